package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"aidigest/internal/domain"
	"aidigest/internal/ports"
)

// SourceRepository is the Postgres-backed source registry.
type SourceRepository struct {
	db *sql.DB
}

var _ ports.SourceRepository = (*SourceRepository)(nil)

// NewSourceRepository wires a sql.DB implementation.
func NewSourceRepository(db *sql.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// Enabled returns all enabled registry entries.
func (r *SourceRepository) Enabled(ctx context.Context) ([]domain.Source, error) {
	query, args, err := psql.
		Select("source_id", "company_slug", "company_name", "product_line",
			"source_name", "source_url", "fetch_method", "poll_interval_min",
			"trust_tier", "parse_rules", "health_status").
		From("sources").
		Where(sq.Eq{"enabled": true}).
		OrderBy("company_slug", "source_name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sources query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var (
			s            domain.Source
			productLine  sql.NullString
			pollMinutes  int
			parseRules   []byte
			healthStatus string
		)
		if err := rows.Scan(&s.ID, &s.CompanySlug, &s.CompanyName, &productLine,
			&s.Name, &s.URL, &s.FetchMethod, &pollMinutes,
			&s.TrustTier, &parseRules, &healthStatus); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}

		s.ProductLine = productLine.String
		s.PollInterval = time.Duration(pollMinutes) * time.Minute
		s.Health = domain.HealthStatus(healthStatus)
		s.Enabled = true
		if len(parseRules) > 0 {
			if err := json.Unmarshal(parseRules, &s.ParseRules); err != nil {
				return nil, fmt.Errorf("decode parse rules for %s: %w", s.Name, err)
			}
		}

		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sources iteration: %w", err)
	}

	return sources, nil
}

// Seed inserts registry entries, leaving already-registered URLs untouched.
func (r *SourceRepository) Seed(ctx context.Context, sources []domain.Source) error {
	if len(sources) == 0 {
		return nil
	}

	builder := psql.
		Insert("sources").
		Columns("source_id", "company_slug", "company_name", "product_line",
			"source_name", "source_url", "fetch_method", "poll_interval_min",
			"trust_tier", "parse_rules", "health_status", "enabled").
		Suffix("ON CONFLICT (source_url) DO NOTHING")

	for _, s := range sources {
		rules, err := json.Marshal(s.ParseRules)
		if err != nil {
			return fmt.Errorf("encode parse rules for %s: %w", s.Name, err)
		}
		builder = builder.Values(s.ID, s.CompanySlug, s.CompanyName, nullString(s.ProductLine),
			s.Name, s.URL, string(s.FetchMethod), int(s.PollInterval.Minutes()),
			s.TrustTier, rules, string(domain.HealthOK), s.Enabled)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build seed query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("seed sources: %w", err)
	}

	return nil
}

// UpdateFetchState records the outcome of a fetch attempt.
func (r *SourceRepository) UpdateFetchState(ctx context.Context, id uuid.UUID, fetchedAt, lastItemAt time.Time, health domain.HealthStatus) error {
	builder := psql.
		Update("sources").
		Set("last_fetched_at", nullTime(fetchedAt)).
		Set("health_status", string(health)).
		Where(sq.Eq{"source_id": id})

	if !lastItemAt.IsZero() {
		builder = builder.Set("last_item_at", lastItemAt)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build fetch-state query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update fetch state: %w", err)
	}

	return nil
}
