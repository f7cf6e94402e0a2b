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

// EventRepository persists canonical events.
type EventRepository struct {
	db *sql.DB
}

var _ ports.EventRepository = (*EventRepository)(nil)

// NewEventRepository wires a sql.DB implementation.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// SaveBatch inserts all events from one source batch in a single transaction.
func (r *EventRepository) SaveBatch(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin event batch: %w", err)
	}
	defer tx.Rollback()

	for _, event := range events {
		whatChanged, err := json.Marshal(event.WhatChanged)
		if err != nil {
			return fmt.Errorf("encode what_changed: %w", err)
		}

		query, args, err := psql.
			Insert("update_events").
			Columns("event_id", "cluster_id", "source_id", "raw_item_id",
				"company_slug", "company_name", "product_line", "title",
				"categories", "trust_tier", "severity", "breaking_change",
				"impact_score", "confidence", "what_changed", "why_it_matters",
				"action_items", "citations", "evidence_snippets",
				"summary_short", "summary_medium", "published_at", "created_at").
			Values(event.ID, event.ClusterID, event.SourceID, event.RawItemID,
				event.CompanySlug, event.CompanyName, nullString(event.ProductLine), event.Title,
				pq.Array(event.Categories), event.TrustTier, string(event.Severity), event.BreakingChange,
				event.ImpactScore, string(event.Confidence), whatChanged, nullString(event.WhyItMatters),
				pq.Array(event.ActionItems), pq.Array(event.Citations), pq.Array(event.EvidenceSnippets),
				nullString(event.SummaryShort), nullString(event.SummaryMedium),
				nullTime(event.PublishedAt), event.CreatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("build event insert: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert event %s: %w", event.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit event batch: %w", err)
	}
	return nil
}

// UnassignedWindow returns digest-less events created inside the window,
// ordered descending by impact score.
func (r *EventRepository) UnassignedWindow(ctx context.Context, from, to time.Time) ([]*domain.Event, error) {
	query, args, err := psql.
		Select("event_id", "cluster_id", "source_id", "raw_item_id",
			"company_slug", "company_name", "product_line", "title",
			"categories", "trust_tier", "severity", "breaking_change",
			"impact_score", "confidence", "what_changed", "why_it_matters",
			"action_items", "citations", "evidence_snippets",
			"summary_short", "summary_medium", "published_at", "created_at").
		From("update_events").
		Where(sq.GtOrEq{"created_at": from}).
		Where(sq.LtOrEq{"created_at": to}).
		Where(sq.Eq{"digest_id": nil}).
		OrderBy("impact_score DESC", "published_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build window query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events window: %w", err)
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("events iteration: %w", err)
	}

	return events, nil
}

func scanEvent(rows *sql.Rows) (*domain.Event, error) {
	var (
		event         domain.Event
		clusterID     uuid.NullUUID
		productLine   sql.NullString
		severity      string
		confidence    string
		whatChanged   []byte
		whyItMatters  sql.NullString
		summaryShort  sql.NullString
		summaryMedium sql.NullString
		publishedAt   sql.NullTime
	)

	err := rows.Scan(&event.ID, &clusterID, &event.SourceID, &event.RawItemID,
		&event.CompanySlug, &event.CompanyName, &productLine, &event.Title,
		pq.Array(&event.Categories), &event.TrustTier, &severity, &event.BreakingChange,
		&event.ImpactScore, &confidence, &whatChanged, &whyItMatters,
		pq.Array(&event.ActionItems), pq.Array(&event.Citations), pq.Array(&event.EvidenceSnippets),
		&summaryShort, &summaryMedium, &publishedAt, &event.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}

	if clusterID.Valid {
		id := clusterID.UUID
		event.ClusterID = &id
	}
	event.ProductLine = productLine.String
	event.Severity = domain.Severity(severity)
	event.Confidence = domain.Confidence(confidence)
	event.WhyItMatters = whyItMatters.String
	event.SummaryShort = summaryShort.String
	event.SummaryMedium = summaryMedium.String
	if publishedAt.Valid {
		event.PublishedAt = publishedAt.Time
	}
	if len(whatChanged) > 0 {
		if err := json.Unmarshal(whatChanged, &event.WhatChanged); err != nil {
			return nil, fmt.Errorf("decode what_changed: %w", err)
		}
	}

	return &event, nil
}

// AssignDigest writes the digest reference and section label back onto every
// allocated event inside one transaction, so digest creation and event
// assignment commit atomically with the caller's digest insert.
func (r *EventRepository) AssignDigest(ctx context.Context, events []*domain.Event, digestID uuid.UUID) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin digest assignment: %w", err)
	}
	defer tx.Rollback()

	for _, event := range events {
		query, args, err := psql.
			Update("update_events").
			Set("digest_id", digestID).
			Set("digest_section", event.Section).
			Set("cluster_id", event.ClusterID).
			Set("impact_score", event.ImpactScore).
			Set("summary_short", nullString(event.SummaryShort)).
			Set("summary_medium", nullString(event.SummaryMedium)).
			Where(sq.Eq{"event_id": event.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build assignment update: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("assign event %s: %w", event.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit digest assignment: %w", err)
	}
	return nil
}
