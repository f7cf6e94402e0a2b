package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"aidigest/internal/domain"
	"aidigest/internal/pipeline"
	"aidigest/internal/taxonomy"
)

func windowEvent(title, company string, tier int, score float64) *domain.Event {
	return &domain.Event{
		ID:          uuid.New(),
		Title:       title,
		CompanySlug: strings.ToLower(company),
		CompanyName: company,
		TrustTier:   tier,
		ImpactScore: score,
		Severity:    domain.SeverityMedium,
		PublishedAt: time.Date(2026, time.March, 10, 6, 0, 0, 0, time.UTC),
	}
}

func newTestGenerator(events *fakeEventRepo, digests *fakeDigestRepo, summ *fakeSummarizer, notifier *fakeNotifier) *DigestGenerator {
	return NewDigestGenerator(DigestDeps{
		Events:        events,
		Clusters:      &fakeClusterRepo{},
		Digests:       digests,
		Summarizer:    summ,
		Notifier:      notifier,
		Clusterer:     pipeline.NewTitleClusterer(0.85),
		Rules:         taxonomy.Default(),
		Logger:        testLogger(),
		WindowHours:   24,
		WindowEndHour: 8,
		Location:      time.UTC,
		Now:           func() time.Time { return time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC) },
	})
}

func TestGenerateFullFlow(t *testing.T) {
	t.Parallel()

	events := &fakeEventRepo{window: []*domain.Event{
		windowEvent("Acme launches frontier reasoning model", "Acme", 1, 0.9),
		windowEvent("Orbit cuts inference pricing in half", "Orbit", 1, 0.8),
		windowEvent("Vega SDK reaches version three", "Vega", 2, 0.7),
	}}
	digests := &fakeDigestRepo{}
	summ := &fakeSummarizer{}
	notifier := &fakeNotifier{}

	g := newTestGenerator(events, digests, summ, notifier)
	date := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	if err := g.Generate(context.Background(), date); err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	if digests.created == nil {
		t.Fatalf("digest not created")
	}
	if digests.created.EventCount != 3 {
		t.Fatalf("expected 3 allocated events, got %d", digests.created.EventCount)
	}
	if !strings.HasPrefix(digests.created.Overview, "Today: Acme: ") {
		t.Fatalf("unexpected overview: %q", digests.created.Overview)
	}
	if len(digests.created.Sections[domain.SectionTop5]) != 3 {
		t.Fatalf("unexpected top5 ids: %v", digests.created.Sections)
	}

	if len(events.assigned) != 3 || events.digestID != digests.created.ID {
		t.Fatalf("events not assigned to the digest")
	}
	if summ.calls != 3 {
		t.Fatalf("expected every lead event summarized, got %d calls", summ.calls)
	}

	if len(notifier.published) != 1 {
		t.Fatalf("digest not delivered")
	}
	if !strings.Contains(notifier.published[0], "Acme launches frontier reasoning model") {
		t.Fatalf("delivery text missing lead story: %q", notifier.published[0])
	}
	if !digests.delivered || digests.channels[0] != "telegram" {
		t.Fatalf("delivery not recorded: %v", digests.channels)
	}
}

func TestGenerateNoEventsIsNoop(t *testing.T) {
	t.Parallel()

	digests := &fakeDigestRepo{}
	g := newTestGenerator(&fakeEventRepo{}, digests, &fakeSummarizer{}, &fakeNotifier{})

	if err := g.Generate(context.Background(), time.Now()); err != nil {
		t.Fatalf("empty window must be a no-op, got %v", err)
	}
	if digests.created != nil {
		t.Fatalf("no digest must be created for an empty window")
	}
}

func TestGenerateAllNoiseIsNoop(t *testing.T) {
	t.Parallel()

	events := &fakeEventRepo{window: []*domain.Event{
		windowEvent("1,234 stars today", "Trending", 4, 0.5),
		windowEvent("12,345", "Trending", 4, 0.4),
	}}
	digests := &fakeDigestRepo{}

	g := newTestGenerator(events, digests, &fakeSummarizer{}, &fakeNotifier{})
	if err := g.Generate(context.Background(), time.Now()); err != nil {
		t.Fatalf("all-noise window must be a no-op, got %v", err)
	}
	if digests.created != nil {
		t.Fatalf("no digest must be created when every event is noise")
	}
}

func TestGenerateSummarizerFailureContinues(t *testing.T) {
	t.Parallel()

	events := &fakeEventRepo{window: []*domain.Event{
		windowEvent("Acme launches frontier reasoning model", "Acme", 1, 0.9),
	}}
	digests := &fakeDigestRepo{}
	notifier := &fakeNotifier{}

	g := newTestGenerator(events, digests, &fakeSummarizer{err: errors.New("rate limited")}, notifier)
	if err := g.Generate(context.Background(), time.Now()); err != nil {
		t.Fatalf("summarizer failures must not block the digest, got %v", err)
	}
	if digests.created == nil || len(notifier.published) != 1 {
		t.Fatalf("digest must still be created and delivered")
	}
}

func TestGenerateCreateErrorPropagates(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("digest already generated for date")
	events := &fakeEventRepo{window: []*domain.Event{
		windowEvent("Acme launches frontier reasoning model", "Acme", 1, 0.9),
	}}
	digests := &fakeDigestRepo{createErr: sentinel}

	g := newTestGenerator(events, digests, &fakeSummarizer{}, &fakeNotifier{})
	if err := g.Generate(context.Background(), time.Now()); !errors.Is(err, sentinel) {
		t.Fatalf("repository error must surface unchanged, got %v", err)
	}
}

func TestGenerateDeliveryFailureDoesNotMarkDelivered(t *testing.T) {
	t.Parallel()

	events := &fakeEventRepo{window: []*domain.Event{
		windowEvent("Acme launches frontier reasoning model", "Acme", 1, 0.9),
	}}
	digests := &fakeDigestRepo{}

	g := newTestGenerator(events, digests, &fakeSummarizer{}, &fakeNotifier{err: errors.New("telegram down")})
	if err := g.Generate(context.Background(), time.Now()); err != nil {
		t.Fatalf("delivery failure must not fail generation, got %v", err)
	}
	if digests.created == nil {
		t.Fatalf("digest must still be stored")
	}
	if digests.delivered {
		t.Fatalf("failed delivery must not be marked delivered")
	}
}

func TestDigestWindowBounds(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(&fakeEventRepo{}, &fakeDigestRepo{}, &fakeSummarizer{}, &fakeNotifier{})

	date := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	from, to := g.window(date)

	wantTo := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	if !to.Equal(wantTo) {
		t.Fatalf("unexpected window end: %v", to)
	}
	if !from.Equal(wantTo.Add(-24 * time.Hour)) {
		t.Fatalf("unexpected window start: %v", from)
	}
}
