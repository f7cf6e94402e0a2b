// Package app wires configuration, storage, connectors, and use cases into a
// runnable service.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"aidigest/internal/config"
	"aidigest/internal/connector"
	"aidigest/internal/domain"
	"aidigest/internal/infrastructure/storage"
	"aidigest/internal/infrastructure/summarizer"
	"aidigest/internal/infrastructure/telegram"
	"aidigest/internal/logging"
	"aidigest/internal/pipeline"
	"aidigest/internal/ports"
	"aidigest/internal/taxonomy"
	"aidigest/internal/usecase"
)

// Application owns the wired components and their lifecycle.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	sources   ports.SourceRepository
	scheduler *usecase.Scheduler
}

// New builds the full application graph.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	rules := taxonomy.Default()
	httpClient := connector.NewHTTPClient(cfg.HTTP.Timeout())

	sourceRepo := storage.NewSourceRepository(db)
	rawItemRepo := storage.NewRawItemRepository(db)
	snapshotRepo := storage.NewSnapshotRepository(db)
	eventRepo := storage.NewEventRepository(db)
	clusterRepo := storage.NewClusterRepository(db)
	digestRepo := storage.NewDigestRepository(db)

	registry := connector.NewRegistry()
	registry.Register(connector.NewFeedConnector(httpClient, cfg.HTTP.UserAgent, baseLogger))
	registry.Register(connector.NewPageDiffConnector(httpClient, snapshotRepo, cfg.HTTP.UserAgent, baseLogger))
	registry.Register(connector.NewReleasesConnector(
		connector.NewGitHubClient(ctx, cfg.GitHub.Token, nil), baseLogger))
	registry.Register(connector.NewJSONAPIConnector(httpClient, cfg.HTTP.UserAgent, baseLogger))

	var summ ports.Summarizer
	if cfg.Anthropic.APIKey != "" {
		summ = summarizer.NewAnthropicSummarizer(
			cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, rules, baseLogger)
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(
			cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	clusterer := pipeline.NewTitleClusterer(rules.SimilarityThreshold)

	pipelineUC := usecase.NewPipeline(usecase.PipelineDeps{
		Registry:   registry,
		Sources:    sourceRepo,
		RawItems:   rawItemRepo,
		Events:     eventRepo,
		Clusters:   clusterRepo,
		Summarizer: summ,
		Clusterer:  clusterer,
		Rules:      rules,
		Logger:     baseLogger,
	})

	digestUC := usecase.NewDigestGenerator(usecase.DigestDeps{
		Events:        eventRepo,
		Clusters:      clusterRepo,
		Digests:       digestRepo,
		Summarizer:    summ,
		Notifier:      notifier,
		Clusterer:     clusterer,
		Rules:         rules,
		Logger:        baseLogger,
		WindowHours:   cfg.Digest.WindowHours,
		WindowEndHour: cfg.Digest.WindowEndHour,
		Location:      cfg.Scheduler.Location(),
	})

	scheduler := usecase.NewScheduler(usecase.SchedulerDeps{
		Pipeline:     pipelineUC,
		Digest:       digestUC,
		Sources:      sourceRepo,
		PipelineCron: cfg.Scheduler.PipelineCron,
		DigestCron:   cfg.Scheduler.DigestCron,
		Location:     cfg.Scheduler.Location(),
		Logger:       baseLogger,
	})

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		db:        db,
		sources:   sourceRepo,
		scheduler: scheduler,
	}, nil
}

// Run seeds configured sources, starts the scheduler, and blocks until the
// context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.sources.Seed(ctx, seedSources(a.cfg.Sources)); err != nil {
		return fmt.Errorf("seed sources: %w", err)
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	a.logger.Info("shutting down")
	a.scheduler.Stop()
	return a.db.Close()
}

// seedSources converts configured source entries into registry records.
func seedSources(configs []config.SourceConfig) []domain.Source {
	var sources []domain.Source
	for _, sc := range configs {
		poll := time.Duration(sc.PollMinutes) * time.Minute
		if poll <= 0 {
			poll = 60 * time.Minute
		}
		sources = append(sources, domain.Source{
			ID:           uuid.New(),
			CompanySlug:  sc.CompanySlug,
			CompanyName:  sc.CompanyName,
			ProductLine:  sc.ProductLine,
			Name:         sc.Name,
			URL:          sc.URL,
			FetchMethod:  domain.FetchMethod(sc.FetchMethod),
			PollInterval: poll,
			TrustTier:    sc.TrustTier,
			ParseRules:   sc.ParseRules,
			Health:       domain.HealthOK,
			Enabled:      sc.IsEnabled(),
		})
	}
	return sources
}
