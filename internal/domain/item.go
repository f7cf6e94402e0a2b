package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// CandidateItem is an adapter-produced record that has not been persisted yet.
// It exists only in memory between fetch and the hard-dedup check.
type CandidateItem struct {
	ExternalID  string
	URL         string
	Title       string
	ContentText string
	ContentHTML string
	PublishedAt time.Time
	Metadata    map[string]string
}

// ContentHash is the hard-dedup key: SHA-256 hex of url + best-available text.
// Hashing URL+text (not URL alone) catches verbatim syndication across sources
// without false positives on generic aggregator URLs.
func (c CandidateItem) ContentHash() string {
	text := c.ContentText
	if text == "" {
		text = c.Title
	}
	sum := sha256.Sum256([]byte(c.URL + text))
	return hex.EncodeToString(sum[:])
}

// RawItem is the durable record of an accepted candidate item.
type RawItem struct {
	ID          uuid.UUID
	SourceID    uuid.UUID
	ExternalID  string
	URL         string
	Title       string
	ContentText string
	ContentHTML string
	ContentHash string
	PublishedAt time.Time
	FetchedAt   time.Time
	Metadata    map[string]string
	IsDuplicate bool
}

// Snapshot captures a polled page at a point in time for the page-diff adapter.
// Retained as append-only history; the latest one is the diff baseline.
type Snapshot struct {
	ID          uuid.UUID
	SourceID    uuid.UUID
	ContentHash string
	Text        string
	FetchedAt   time.Time
}
