package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"aidigest/internal/connector"
	"aidigest/internal/domain"
	"aidigest/internal/pipeline"
	"aidigest/internal/taxonomy"
)

func testPipelineSource() domain.Source {
	return domain.Source{
		ID:          uuid.New(),
		CompanySlug: "acme",
		CompanyName: "Acme",
		Name:        "Acme Blog",
		URL:         "https://acme.test/blog",
		FetchMethod: domain.FetchFeed,
		TrustTier:   1,
		Enabled:     true,
	}
}

func newTestPipeline(conn *fakeConnector, sources *fakeSourceRepo, raws *fakeRawItemRepo, events *fakeEventRepo) *Pipeline {
	registry := connector.NewRegistry()
	if conn != nil {
		registry.Register(conn)
	}
	return NewPipeline(PipelineDeps{
		Registry:   registry,
		Sources:    sources,
		RawItems:   raws,
		Events:     events,
		Clusters:   &fakeClusterRepo{},
		Summarizer: &fakeSummarizer{},
		Clusterer:  pipeline.NewTitleClusterer(0.85),
		Rules:      taxonomy.Default(),
		Logger:     testLogger(),
		Now:        func() time.Time { return time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC) },
	})
}

func TestFetchSourceFullRun(t *testing.T) {
	t.Parallel()

	conn := &fakeConnector{
		method: domain.FetchFeed,
		items: []domain.CandidateItem{
			{
				ExternalID: "post-1",
				URL:        "https://acme.test/post/1",
				Title:      "Acme ships new SDK release",
			},
			{
				ExternalID: "post-2",
				URL:        "https://acme.test/post/2",
				Title:      "Pricing update for the completion API",
			},
		},
	}
	sources := &fakeSourceRepo{}
	raws := &fakeRawItemRepo{existing: map[string]bool{}}
	events := &fakeEventRepo{}

	p := newTestPipeline(conn, sources, raws, events)
	if err := p.FetchSource(context.Background(), testPipelineSource()); err != nil {
		t.Fatalf("FetchSource error: %v", err)
	}

	if len(raws.saved) != 2 {
		t.Fatalf("expected 2 raw items, got %d", len(raws.saved))
	}
	if len(events.saved) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events.saved))
	}

	event := events.saved[0]
	if event.CompanySlug != "acme" || len(event.Categories) == 0 {
		t.Fatalf("event not resolved: %+v", event)
	}
	if event.ImpactScore <= 0 {
		t.Fatalf("event not ranked: %v", event.ImpactScore)
	}
	if event.SummaryShort == "" {
		t.Fatalf("event not summarized")
	}

	if len(sources.states) != 1 || sources.states[0] != domain.HealthOK {
		t.Fatalf("expected healthy fetch state, got %v", sources.states)
	}
}

func TestFetchSourceSkipsKnownHashes(t *testing.T) {
	t.Parallel()

	item := domain.CandidateItem{
		ExternalID: "post-1",
		URL:        "https://acme.test/post/1",
		Title:      "Acme ships new SDK release",
	}
	conn := &fakeConnector{method: domain.FetchFeed, items: []domain.CandidateItem{item}}
	raws := &fakeRawItemRepo{existing: map[string]bool{item.ContentHash(): true}}
	events := &fakeEventRepo{}

	p := newTestPipeline(conn, &fakeSourceRepo{}, raws, events)
	if err := p.FetchSource(context.Background(), testPipelineSource()); err != nil {
		t.Fatalf("FetchSource error: %v", err)
	}

	if len(raws.saved) != 0 {
		t.Fatalf("duplicate must not be saved, got %d", len(raws.saved))
	}
	if len(events.saved) != 0 {
		t.Fatalf("duplicate must not produce events, got %d", len(events.saved))
	}
}

func TestFetchSourceUnknownMethodSurfaces(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(nil, &fakeSourceRepo{}, &fakeRawItemRepo{existing: map[string]bool{}}, &fakeEventRepo{})

	err := p.FetchSource(context.Background(), testPipelineSource())
	if !errors.Is(err, connector.ErrUnknownFetchMethod) {
		t.Fatalf("expected ErrUnknownFetchMethod, got %v", err)
	}
}

func TestFetchSourceMarksErroringOnFetchFailure(t *testing.T) {
	t.Parallel()

	conn := &fakeConnector{method: domain.FetchFeed, err: errors.New("connection reset")}
	sources := &fakeSourceRepo{}

	p := newTestPipeline(conn, sources, &fakeRawItemRepo{existing: map[string]bool{}}, &fakeEventRepo{})
	if err := p.FetchSource(context.Background(), testPipelineSource()); err != nil {
		t.Fatalf("transport failures must not propagate, got %v", err)
	}

	if len(sources.states) != 1 || sources.states[0] != domain.HealthErroring {
		t.Fatalf("expected erroring health state, got %v", sources.states)
	}
}

func TestRunBatchIsolatesFailingSources(t *testing.T) {
	t.Parallel()

	good := testPipelineSource()
	bad := testPipelineSource()
	bad.FetchMethod = domain.FetchMethod("bogus")

	conn := &fakeConnector{method: domain.FetchFeed, items: []domain.CandidateItem{{
		ExternalID: "post-1", URL: "https://acme.test/post/1", Title: "Acme ships new SDK release",
	}}}
	sources := &fakeSourceRepo{sources: []domain.Source{bad, good}}
	events := &fakeEventRepo{}

	p := newTestPipeline(conn, sources, &fakeRawItemRepo{existing: map[string]bool{}}, events)
	if err := p.RunBatch(context.Background()); err != nil {
		t.Fatalf("RunBatch error: %v", err)
	}

	if conn.calls != 1 {
		t.Fatalf("good source must still run, got %d calls", conn.calls)
	}
	if len(events.saved) != 1 {
		t.Fatalf("expected events from the good source, got %d", len(events.saved))
	}
}
