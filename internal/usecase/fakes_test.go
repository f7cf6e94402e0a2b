package usecase

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"aidigest/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeConnector struct {
	method domain.FetchMethod
	items  []domain.CandidateItem
	err    error
	calls  int
}

func (f *fakeConnector) Method() domain.FetchMethod { return f.method }

func (f *fakeConnector) Fetch(context.Context, domain.Source) ([]domain.CandidateItem, error) {
	f.calls++
	return f.items, f.err
}

type fakeSourceRepo struct {
	sources []domain.Source
	seeded  []domain.Source
	states  []domain.HealthStatus
}

func (f *fakeSourceRepo) Enabled(context.Context) ([]domain.Source, error) {
	return f.sources, nil
}

func (f *fakeSourceRepo) Seed(_ context.Context, sources []domain.Source) error {
	f.seeded = append(f.seeded, sources...)
	return nil
}

func (f *fakeSourceRepo) UpdateFetchState(_ context.Context, _ uuid.UUID, _, _ time.Time, health domain.HealthStatus) error {
	f.states = append(f.states, health)
	return nil
}

type fakeRawItemRepo struct {
	existing map[string]bool
	saved    []*domain.RawItem
}

func (f *fakeRawItemRepo) HashExists(_ context.Context, hash string) (bool, error) {
	return f.existing[hash], nil
}

func (f *fakeRawItemRepo) Save(_ context.Context, item *domain.RawItem) error {
	f.saved = append(f.saved, item)
	return nil
}

type fakeEventRepo struct {
	saved    []*domain.Event
	window   []*domain.Event
	assigned []*domain.Event
	digestID uuid.UUID
}

func (f *fakeEventRepo) SaveBatch(_ context.Context, events []*domain.Event) error {
	f.saved = append(f.saved, events...)
	return nil
}

func (f *fakeEventRepo) UnassignedWindow(context.Context, time.Time, time.Time) ([]*domain.Event, error) {
	return f.window, nil
}

func (f *fakeEventRepo) AssignDigest(_ context.Context, events []*domain.Event, digestID uuid.UUID) error {
	f.assigned = events
	f.digestID = digestID
	return nil
}

type fakeClusterRepo struct {
	saved []domain.Cluster
}

func (f *fakeClusterRepo) Save(_ context.Context, cluster domain.Cluster) error {
	f.saved = append(f.saved, cluster)
	return nil
}

type fakeDigestRepo struct {
	created   *domain.Digest
	createErr error
	delivered bool
	channels  []string
}

func (f *fakeDigestRepo) Create(_ context.Context, digest *domain.Digest) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = digest
	return nil
}

func (f *fakeDigestRepo) MarkDelivered(_ context.Context, _ uuid.UUID, _ time.Time, channels []string) error {
	f.delivered = true
	f.channels = channels
	return nil
}

type fakeSummarizer struct {
	calls int
	err   error
}

func (f *fakeSummarizer) Summarize(_ context.Context, event *domain.Event, _ string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	event.SummaryShort = "summary: " + event.Title
	return nil
}

type fakeNotifier struct {
	published []string
	err       error
}

func (f *fakeNotifier) PublishDigest(_ context.Context, digest string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, digest)
	return nil
}
