package storage

import (
	"context"
	"database/sql"
	"fmt"

	"aidigest/internal/domain"
	"aidigest/internal/ports"
)

// ClusterRepository persists clusters of near-duplicate events.
type ClusterRepository struct {
	db *sql.DB
}

var _ ports.ClusterRepository = (*ClusterRepository)(nil)

func NewClusterRepository(db *sql.DB) *ClusterRepository {
	return &ClusterRepository{db: db}
}

// Save upserts a cluster. Re-clustering during digest generation may revisit
// an existing cluster id, so conflicts refresh the aggregate columns.
func (r *ClusterRepository) Save(ctx context.Context, cluster domain.Cluster) error {
	query, args, err := psql.
		Insert("event_clusters").
		Columns("cluster_id", "canonical_title", "company_slug",
			"event_count", "first_seen_at", "last_seen_at").
		Values(cluster.ID, cluster.CanonicalTitle, cluster.CompanySlug,
			cluster.EventCount, cluster.FirstSeenAt, cluster.LastSeenAt).
		Suffix(`ON CONFLICT (cluster_id) DO UPDATE SET
			canonical_title = EXCLUDED.canonical_title,
			event_count = EXCLUDED.event_count,
			last_seen_at = EXCLUDED.last_seen_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build cluster insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save cluster %s: %w", cluster.ID, err)
	}
	return nil
}
