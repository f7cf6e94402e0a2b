package domain

import (
	"time"

	"github.com/google/uuid"
)

// Cluster groups near-duplicate events reporting the same development.
// Clusters are re-derived on every clustering pass; a cluster ID is not a
// durable cross-run identity.
type Cluster struct {
	ID             uuid.UUID
	CanonicalTitle string
	CompanySlug    string
	EventCount     int
	FirstSeenAt    time.Time
	LastSeenAt     time.Time
}
