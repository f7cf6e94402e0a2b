// Package usecase contains the orchestration workflows: the per-source
// ingestion pipeline and the daily digest generation.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"aidigest/internal/connector"
	"aidigest/internal/domain"
	"aidigest/internal/pipeline"
	"aidigest/internal/ports"
	"aidigest/internal/taxonomy"
)

// PipelineDeps wires all driven adapters into the ingestion pipeline.
type PipelineDeps struct {
	Registry   *connector.Registry
	Sources    ports.SourceRepository
	RawItems   ports.RawItemRepository
	Events     ports.EventRepository
	Clusters   ports.ClusterRepository
	Summarizer ports.Summarizer
	Clusterer  pipeline.Clusterer
	Rules      taxonomy.Rules
	Logger     *slog.Logger
	Now        func() time.Time
}

// Pipeline implements the fetch-to-event workflow for every source.
type Pipeline struct {
	registry   *connector.Registry
	sources    ports.SourceRepository
	rawItems   ports.RawItemRepository
	events     ports.EventRepository
	clusters   ports.ClusterRepository
	summarizer ports.Summarizer
	clusterer  pipeline.Clusterer
	rules      taxonomy.Rules
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Pipeline{
		registry:   deps.Registry,
		sources:    deps.Sources,
		rawItems:   deps.RawItems,
		events:     deps.Events,
		clusters:   deps.Clusters,
		summarizer: deps.Summarizer,
		clusterer:  deps.Clusterer,
		rules:      deps.Rules,
		logger:     deps.Logger.With("component", "pipeline"),
		now:        now,
	}
}

// FetchSource runs one source through the full pipeline: fetch, hard dedup,
// normalize, resolve, rank, cluster, summarize, persist. An unknown fetch
// method surfaces to the caller; transport failures mark the source erroring
// and stop this run only.
func (p *Pipeline) FetchSource(ctx context.Context, source domain.Source) error {
	conn, err := p.registry.Resolve(source.FetchMethod)
	if err != nil {
		return fmt.Errorf("source %s: %w", source.Name, err)
	}

	now := p.now()
	items, err := conn.Fetch(ctx, source)
	if err != nil {
		p.logger.Error("fetch failed", "source", source.Name, "error", err)
		if stateErr := p.sources.UpdateFetchState(ctx, source.ID, now, time.Time{}, domain.HealthErroring); stateErr != nil {
			p.logger.Error("health update failed", "source", source.Name, "error", stateErr)
		}
		return nil
	}

	accepted, raws, err := p.acceptItems(ctx, source, items, now)
	if err != nil {
		return err
	}

	if len(accepted) > 0 {
		if err := p.processBatch(ctx, source, accepted, raws, now); err != nil {
			return err
		}
	}

	lastItemAt := latestPublished(items)
	if err := p.sources.UpdateFetchState(ctx, source.ID, now, lastItemAt, domain.HealthOK); err != nil {
		return fmt.Errorf("update fetch state for %s: %w", source.Name, err)
	}

	p.logger.Info("source fetched",
		"source", source.Name, "items", len(items), "new", len(accepted))
	return nil
}

// acceptItems applies the hard-dedup check and persists surviving raw items.
func (p *Pipeline) acceptItems(ctx context.Context, source domain.Source, items []domain.CandidateItem, now time.Time) ([]domain.CandidateItem, []*domain.RawItem, error) {
	var accepted []domain.CandidateItem
	var raws []*domain.RawItem

	for _, item := range items {
		hash := item.ContentHash()
		exists, err := p.rawItems.HashExists(ctx, hash)
		if err != nil {
			return nil, nil, fmt.Errorf("dedup check for %s: %w", source.Name, err)
		}
		if exists {
			continue
		}

		raw := &domain.RawItem{
			ID:          uuid.New(),
			SourceID:    source.ID,
			ExternalID:  item.ExternalID,
			URL:         item.URL,
			Title:       item.Title,
			ContentText: item.ContentText,
			ContentHTML: item.ContentHTML,
			ContentHash: hash,
			PublishedAt: item.PublishedAt,
			FetchedAt:   now,
			Metadata:    item.Metadata,
		}
		if err := p.rawItems.Save(ctx, raw); err != nil {
			return nil, nil, fmt.Errorf("save raw item for %s: %w", source.Name, err)
		}

		accepted = append(accepted, item)
		raws = append(raws, raw)
	}

	return accepted, raws, nil
}

// processBatch turns accepted raw items into ranked, clustered, summarized
// events and persists them.
func (p *Pipeline) processBatch(ctx context.Context, source domain.Source, items []domain.CandidateItem, raws []*domain.RawItem, now time.Time) error {
	events := pipeline.NormalizeBatch(items, raws, source, now)
	pipeline.ResolveEntities(events, source, p.rules)
	pipeline.RankEvents(events, p.rules, now)

	for _, cluster := range p.clusterer.Cluster(events) {
		if err := p.clusters.Save(ctx, cluster); err != nil {
			return fmt.Errorf("save cluster for %s: %w", source.Name, err)
		}
	}

	if p.summarizer != nil {
		for i, event := range events {
			if err := p.summarizer.Summarize(ctx, event, raws[i].ContentText); err != nil {
				p.logger.Warn("summarization failed",
					"source", source.Name, "event_id", event.ID, "error", err)
			}
		}
	}

	if err := p.events.SaveBatch(ctx, events); err != nil {
		return fmt.Errorf("save events for %s: %w", source.Name, err)
	}
	return nil
}

// RunBatch fetches every enabled source sequentially. A failing source is
// logged and skipped so the rest of the batch still runs.
func (p *Pipeline) RunBatch(ctx context.Context) error {
	sources, err := p.sources.Enabled(ctx)
	if err != nil {
		return fmt.Errorf("list enabled sources: %w", err)
	}

	for _, source := range sources {
		if err := p.FetchSource(ctx, source); err != nil {
			p.logger.Error("source run failed", "source", source.Name, "error", err)
		}
	}
	return nil
}

func latestPublished(items []domain.CandidateItem) time.Time {
	var latest time.Time
	for _, item := range items {
		if item.PublishedAt.After(latest) {
			latest = item.PublishedAt
		}
	}
	return latest
}
