package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"aidigest/internal/infrastructure/storage"
	"aidigest/internal/ports"
)

// SchedulerDeps configures the recurring jobs.
type SchedulerDeps struct {
	Pipeline *Pipeline
	Digest   *DigestGenerator
	Sources  ports.SourceRepository

	PipelineCron string
	DigestCron   string
	Location     *time.Location
	Logger       *slog.Logger
}

// Scheduler drives the recurring jobs: per-source fetches on each source's
// poll interval, the batch pipeline sweep, and the daily digest.
type Scheduler struct {
	cron     *cron.Cron
	pipeline *Pipeline
	digest   *DigestGenerator
	sources  ports.SourceRepository

	pipelineCron string
	digestCron   string
	location     *time.Location
	logger       *slog.Logger
}

// NewScheduler builds the cron runner, jobs are registered on Start.
func NewScheduler(deps SchedulerDeps) *Scheduler {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:         cron.New(cron.WithLocation(loc)),
		pipeline:     deps.Pipeline,
		digest:       deps.Digest,
		sources:      deps.Sources,
		pipelineCron: deps.PipelineCron,
		digestCron:   deps.DigestCron,
		location:     loc,
		logger:       deps.Logger.With("component", "scheduler"),
	}
}

// Start registers all jobs and launches the cron loop. Per-source fetch jobs
// are registered from the source registry at startup; sources added later are
// picked up by the batch sweep.
func (s *Scheduler) Start(ctx context.Context) error {
	sources, err := s.sources.Enabled(ctx)
	if err != nil {
		return fmt.Errorf("load sources for scheduling: %w", err)
	}

	for _, source := range sources {
		src := source
		interval := src.PollInterval
		if interval <= 0 {
			interval = 60 * time.Minute
		}
		spec := fmt.Sprintf("@every %s", interval)
		if _, err := s.cron.AddFunc(spec, func() {
			if err := s.pipeline.FetchSource(ctx, src); err != nil {
				s.logger.Error("scheduled fetch failed", "source", src.Name, "error", err)
			}
		}); err != nil {
			return fmt.Errorf("schedule source %s: %w", src.Name, err)
		}
	}

	if _, err := s.cron.AddFunc(s.pipelineCron, func() {
		if err := s.pipeline.RunBatch(ctx); err != nil {
			s.logger.Error("pipeline sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule pipeline sweep: %w", err)
	}

	if _, err := s.cron.AddFunc(s.digestCron, func() {
		s.runDigest(ctx)
	}); err != nil {
		return fmt.Errorf("schedule digest: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		"sources", len(sources), "pipeline_cron", s.pipelineCron, "digest_cron", s.digestCron)
	return nil
}

func (s *Scheduler) runDigest(ctx context.Context) {
	today := time.Now().In(s.location)
	err := s.digest.Generate(ctx, today)
	switch {
	case errors.Is(err, storage.ErrDigestExists):
		s.logger.Info("digest already generated", "date", today.Format("2006-01-02"))
	case err != nil:
		s.logger.Error("digest generation failed", "error", err)
	}
}

// Stop halts the cron loop and returns once running jobs finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
