package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"aidigest/internal/domain"
	"aidigest/internal/pipeline"
	"aidigest/internal/ports"
	"aidigest/internal/taxonomy"
)

// DigestDeps wires the digest generation workflow.
type DigestDeps struct {
	Events     ports.EventRepository
	Clusters   ports.ClusterRepository
	Digests    ports.DigestRepository
	Summarizer ports.Summarizer
	Notifier   ports.Notifier
	Clusterer  pipeline.Clusterer
	Rules      taxonomy.Rules
	Logger     *slog.Logger

	// WindowHours and WindowEndHour define the event window: a digest for
	// date D covers [D@end-window, D@end] in Location.
	WindowHours   int
	WindowEndHour int
	Location      *time.Location

	Now func() time.Time
}

// DigestGenerator assembles, stores, and delivers the daily digest.
type DigestGenerator struct {
	events     ports.EventRepository
	clusters   ports.ClusterRepository
	digests    ports.DigestRepository
	summarizer ports.Summarizer
	notifier   ports.Notifier
	clusterer  pipeline.Clusterer
	rules      taxonomy.Rules
	logger     *slog.Logger

	windowHours   int
	windowEndHour int
	location      *time.Location
	now           func() time.Time
}

// NewDigestGenerator constructs the digest workflow.
func NewDigestGenerator(deps DigestDeps) *DigestGenerator {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	windowHours := deps.WindowHours
	if windowHours <= 0 {
		windowHours = 24
	}
	return &DigestGenerator{
		events:        deps.Events,
		clusters:      deps.Clusters,
		digests:       deps.Digests,
		summarizer:    deps.Summarizer,
		notifier:      deps.Notifier,
		clusterer:     deps.Clusterer,
		rules:         deps.Rules,
		logger:        deps.Logger.With("component", "digest"),
		windowHours:   windowHours,
		windowEndHour: deps.WindowEndHour,
		location:      loc,
		now:           now,
	}
}

// Generate builds the digest for the given date. When no usable events exist
// in the window it is a logged no-op. A digest already stored for the date
// surfaces as storage.ErrDigestExists from the repository.
func (g *DigestGenerator) Generate(ctx context.Context, date time.Time) error {
	from, to := g.window(date)

	events, err := g.events.UnassignedWindow(ctx, from, to)
	if err != nil {
		return fmt.Errorf("query digest window: %w", err)
	}
	if len(events) == 0 {
		g.logger.Warn("no events in digest window", "date", date.Format("2006-01-02"))
		return nil
	}

	// Re-cluster so late-arriving duplicates from different sources group up
	// before allocation.
	for _, cluster := range g.clusterer.Cluster(events) {
		if err := g.clusters.Save(ctx, cluster); err != nil {
			return fmt.Errorf("save cluster: %w", err)
		}
	}

	events = pipeline.DedupeAcrossRuns(events)
	events = g.dropNoise(events)
	if len(events) == 0 {
		g.logger.Warn("no usable events after filtering", "date", date.Format("2006-01-02"))
		return nil
	}

	sections := pipeline.AllocateSections(events, g.rules)
	g.summarizeSections(ctx, sections)

	digest := &domain.Digest{
		ID:          uuid.New(),
		Date:        date,
		Overview:    buildOverview(sections),
		Sections:    sections.EventIDs(),
		EventCount:  sections.TotalCount(),
		GeneratedAt: g.now(),
	}
	if err := g.digests.Create(ctx, digest); err != nil {
		return err
	}

	allocated := sections.All()
	if err := g.events.AssignDigest(ctx, allocated, digest.ID); err != nil {
		return fmt.Errorf("assign events to digest: %w", err)
	}

	g.logger.Info("digest generated",
		"date", date.Format("2006-01-02"), "events", digest.EventCount)

	if g.notifier != nil {
		if err := g.notifier.PublishDigest(ctx, renderDigestText(date, digest.Overview, sections)); err != nil {
			g.logger.Error("digest delivery failed", "error", err)
			return nil
		}
		if err := g.digests.MarkDelivered(ctx, digest.ID, g.now(), []string{"telegram"}); err != nil {
			return fmt.Errorf("mark digest delivered: %w", err)
		}
	}

	return nil
}

// window returns the covered interval for a digest date.
func (g *DigestGenerator) window(date time.Time) (time.Time, time.Time) {
	end := time.Date(date.Year(), date.Month(), date.Day(),
		g.windowEndHour, 0, 0, 0, g.location)
	return end.Add(-time.Duration(g.windowHours) * time.Hour), end
}

func (g *DigestGenerator) dropNoise(events []*domain.Event) []*domain.Event {
	var kept []*domain.Event
	for _, event := range events {
		if pipeline.IsNoise(event, g.rules) {
			continue
		}
		kept = append(kept, event)
	}
	return kept
}

// summarizeSections fills missing summaries for the reader-facing sections.
// Radar and everything_else render title-only, so they skip the LLM round.
func (g *DigestGenerator) summarizeSections(ctx context.Context, sections pipeline.Sections) {
	if g.summarizer == nil {
		return
	}

	var primary []*domain.Event
	primary = append(primary, sections.Top5...)
	primary = append(primary, sections.Developer...)
	primary = append(primary, sections.Models...)
	primary = append(primary, sections.Pricing...)
	primary = append(primary, sections.Incidents...)

	for _, event := range primary {
		if event.SummaryShort != "" {
			continue
		}
		if err := g.summarizer.Summarize(ctx, event, ""); err != nil {
			g.logger.Warn("summarization failed", "event_id", event.ID, "error", err)
		}
	}
}

// buildOverview produces the one-paragraph opener from the lead stories.
func buildOverview(sections pipeline.Sections) string {
	if len(sections.Top5) == 0 {
		return "No major AI updates today."
	}

	var highlights []string
	for _, event := range sections.Top5 {
		highlights = append(highlights, event.CompanyName+": "+event.Title)
		if len(highlights) == 3 {
			break
		}
	}
	return "Today: " + strings.Join(highlights, ". ") + "."
}

// renderDigestText formats the digest as a Markdown message for delivery.
func renderDigestText(date time.Time, overview string, sections pipeline.Sections) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*AI Digest %s*\n\n%s\n", date.Format("January 2, 2006"), overview)

	writeSection := func(heading string, events []*domain.Event, withSummary bool) {
		if len(events) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n*%s*\n", heading)
		for _, event := range events {
			line := event.SummaryShort
			if !withSummary || line == "" {
				line = event.Title
			}
			fmt.Fprintf(&b, "- %s: %s\n", event.CompanyName, line)
		}
	}

	writeSection("Top 5", sections.Top5, true)
	writeSection("Developer", sections.Developer, true)
	writeSection("Models", sections.Models, true)
	writeSection("Pricing", sections.Pricing, true)
	writeSection("Incidents", sections.Incidents, true)
	writeSection("Radar", sections.Radar, false)
	writeSection("Everything Else", sections.EverythingElse, false)

	return b.String()
}
