package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"aidigest/internal/domain"
)

// Connector fetches new content for one source kind. Recoverable failures
// (transport errors, non-2xx, unparseable payloads) are logged inside the
// connector and yield an empty slice with a nil error; they never propagate.
type Connector interface {
	Method() domain.FetchMethod
	Fetch(ctx context.Context, source domain.Source) ([]domain.CandidateItem, error)
}

// SourceRepository is the source registry boundary.
type SourceRepository interface {
	Enabled(ctx context.Context) ([]domain.Source, error)
	Seed(ctx context.Context, sources []domain.Source) error
	UpdateFetchState(ctx context.Context, id uuid.UUID, fetchedAt, lastItemAt time.Time, health domain.HealthStatus) error
}

// RawItemRepository persists accepted candidate items.
type RawItemRepository interface {
	HashExists(ctx context.Context, contentHash string) (bool, error)
	Save(ctx context.Context, item *domain.RawItem) error
}

// SnapshotRepository stores page captures for the diff adapter.
type SnapshotRepository interface {
	Latest(ctx context.Context, sourceID uuid.UUID) (*domain.Snapshot, error)
	Save(ctx context.Context, snapshot domain.Snapshot) error
}

// EventRepository persists canonical events.
type EventRepository interface {
	SaveBatch(ctx context.Context, events []*domain.Event) error
	UnassignedWindow(ctx context.Context, from, to time.Time) ([]*domain.Event, error)
	AssignDigest(ctx context.Context, events []*domain.Event, digestID uuid.UUID) error
}

// ClusterRepository stores per-run cluster groupings.
type ClusterRepository interface {
	Save(ctx context.Context, cluster domain.Cluster) error
}

// DigestRepository persists finalized digests. Create returns
// storage.ErrDigestExists when a digest for the date already exists.
type DigestRepository interface {
	Create(ctx context.Context, digest *domain.Digest) error
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time, channels []string) error
}

// Summarizer enriches an event with structured summary fields. On failure it
// must leave the event with a minimal fallback summary rather than returning
// the event unsummarized.
type Summarizer interface {
	Summarize(ctx context.Context, event *domain.Event, sourceText string) error
}

// Notifier pushes the finished digest to an outbound channel.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}
