package domain

import (
	"time"

	"github.com/google/uuid"
)

// Digest section names. Every allocated event carries exactly one of these.
const (
	SectionTop5           = "top5"
	SectionDeveloper      = "developer"
	SectionModels         = "models"
	SectionPricing        = "pricing"
	SectionIncidents      = "incidents"
	SectionRadar          = "radar"
	SectionEverythingElse = "everything_else"
)

// Digest is the finalized daily artifact. At most one exists per date.
type Digest struct {
	ID               uuid.UUID
	Date             time.Time
	Overview         string
	Sections         map[string][]uuid.UUID
	EventCount       int
	GeneratedAt      time.Time
	DeliveredAt      time.Time
	DeliveryChannels []string
}
