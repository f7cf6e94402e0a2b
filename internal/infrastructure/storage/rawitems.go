package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"aidigest/internal/domain"
	"aidigest/internal/ports"
)

// RawItemRepository persists accepted candidate items.
type RawItemRepository struct {
	db *sql.DB
}

var _ ports.RawItemRepository = (*RawItemRepository)(nil)

// NewRawItemRepository wires a sql.DB implementation.
func NewRawItemRepository(db *sql.DB) *RawItemRepository {
	return &RawItemRepository{db: db}
}

// HashExists is the hard-dedup point lookup, scoped across all sources.
func (r *RawItemRepository) HashExists(ctx context.Context, contentHash string) (bool, error) {
	query, args, err := psql.
		Select("1").
		From("raw_items").
		Where(sq.Eq{"content_hash": contentHash}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build hash query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query content hash: %w", err)
	}
	return true, nil
}

// Save inserts the raw item record. Raw items are never mutated afterwards
// except for the duplicate flag.
func (r *RawItemRepository) Save(ctx context.Context, item *domain.RawItem) error {
	metadata, err := json.Marshal(item.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	query, args, err := psql.
		Insert("raw_items").
		Columns("raw_item_id", "source_id", "external_id", "url", "title",
			"content_text", "content_html", "content_hash", "published_at",
			"fetched_at", "metadata", "is_duplicate").
		Values(item.ID, item.SourceID, nullString(item.ExternalID), item.URL,
			nullString(item.Title), nullString(item.ContentText),
			nullString(item.ContentHTML), item.ContentHash,
			nullTime(item.PublishedAt), item.FetchedAt, metadata, item.IsDuplicate).
		ToSql()
	if err != nil {
		return fmt.Errorf("build raw item insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert raw item: %w", err)
	}
	return nil
}
