package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"aidigest/internal/domain"
	"aidigest/internal/ports"
)

// SnapshotRepository stores page captures for the diff connector.
type SnapshotRepository struct {
	db *sql.DB
}

var _ ports.SnapshotRepository = (*SnapshotRepository)(nil)

// NewSnapshotRepository wires a sql.DB implementation.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Latest returns the most recent snapshot for a source, or nil when the
// source has no baseline yet.
func (r *SnapshotRepository) Latest(ctx context.Context, sourceID uuid.UUID) (*domain.Snapshot, error) {
	query, args, err := psql.
		Select("snapshot_id", "source_id", "content_hash", "page_text", "fetched_at").
		From("snapshots").
		Where(sq.Eq{"source_id": sourceID}).
		OrderBy("fetched_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build snapshot query: %w", err)
	}

	var s domain.Snapshot
	err = r.db.QueryRowContext(ctx, query, args...).
		Scan(&s.ID, &s.SourceID, &s.ContentHash, &s.Text, &s.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	return &s, nil
}

// Save appends a snapshot to the source's capture history.
func (r *SnapshotRepository) Save(ctx context.Context, snapshot domain.Snapshot) error {
	query, args, err := psql.
		Insert("snapshots").
		Columns("snapshot_id", "source_id", "content_hash", "page_text", "fetched_at").
		Values(snapshot.ID, snapshot.SourceID, snapshot.ContentHash, snapshot.Text, snapshot.FetchedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build snapshot insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}
