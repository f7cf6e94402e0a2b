package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"aidigest/internal/domain"
	"aidigest/internal/ports"
)

// DigestRepository persists generated digests. The digest_date column carries
// a unique constraint so a second generation for the same day fails cleanly.
type DigestRepository struct {
	db *sql.DB
}

var _ ports.DigestRepository = (*DigestRepository)(nil)

func NewDigestRepository(db *sql.DB) *DigestRepository {
	return &DigestRepository{db: db}
}

// Create inserts the digest record. Returns ErrDigestExists when a digest for
// the same date was already generated.
func (r *DigestRepository) Create(ctx context.Context, digest *domain.Digest) error {
	sections, err := json.Marshal(digest.Sections)
	if err != nil {
		return fmt.Errorf("encode digest sections: %w", err)
	}

	query, args, err := psql.
		Insert("daily_digests").
		Columns("digest_id", "digest_date", "overview", "sections",
			"event_count", "generated_at", "delivered_at", "delivery_channels").
		Values(digest.ID, digest.Date, digest.Overview, sections,
			digest.EventCount, digest.GeneratedAt, nullTime(digest.DeliveredAt),
			pq.Array(digest.DeliveryChannels)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build digest insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("digest for %s: %w", digest.Date.Format("2006-01-02"), ErrDigestExists)
		}
		return fmt.Errorf("insert digest: %w", err)
	}
	return nil
}

// MarkDelivered records the delivery time and which channels received the digest.
func (r *DigestRepository) MarkDelivered(ctx context.Context, digestID uuid.UUID, deliveredAt time.Time, channels []string) error {
	query, args, err := psql.
		Update("daily_digests").
		Set("delivered_at", deliveredAt).
		Set("delivery_channels", pq.Array(channels)).
		Where(sq.Eq{"digest_id": digestID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delivery update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark digest delivered: %w", err)
	}
	return nil
}
