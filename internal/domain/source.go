package domain

import (
	"time"

	"github.com/google/uuid"
)

// FetchMethod selects the ingestion adapter for a source.
type FetchMethod string

const (
	FetchFeed     FetchMethod = "feed"
	FetchPageDiff FetchMethod = "page_diff"
	FetchReleases FetchMethod = "github_releases"
	FetchJSONAPI  FetchMethod = "api_poll"
)

// HealthStatus tracks the outcome of the most recent fetch attempt.
type HealthStatus string

const (
	HealthOK       HealthStatus = "healthy"
	HealthErroring HealthStatus = "erroring"
)

// Source is a registered origin to poll. Trust tier is ordinal:
// 1 = first-party/most trusted, 4 = community/least trusted.
type Source struct {
	ID           uuid.UUID
	CompanySlug  string
	CompanyName  string
	ProductLine  string
	Name         string
	URL          string
	FetchMethod  FetchMethod
	PollInterval time.Duration
	TrustTier    int
	ParseRules   map[string]string
	Health       HealthStatus
	LastFetchAt  time.Time
	LastItemAt   time.Time
	Enabled      bool
}
