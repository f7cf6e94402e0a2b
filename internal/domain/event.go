package domain

import (
	"time"

	"github.com/google/uuid"
)

// Severity is the ordinal importance label assigned by the ranking stage.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Confidence reflects how well-corroborated an event is, derived from the
// source trust tier at normalization time.
type Confidence string

const (
	ConfidenceConfirmed  Confidence = "confirmed"
	ConfidenceLikely     Confidence = "likely"
	ConfidenceUnverified Confidence = "unverified"
)

// ConfidenceForTier maps a trust tier to the initial confidence label.
func ConfidenceForTier(tier int) Confidence {
	switch tier {
	case 1:
		return ConfidenceConfirmed
	case 2:
		return ConfidenceLikely
	default:
		return ConfidenceUnverified
	}
}

// Fact is one "what changed" statement, optionally backed by a citation.
type Fact struct {
	Fact        string `json:"fact"`
	CitationURL string `json:"citation_url,omitempty"`
}

// Event is the canonical unit the pipeline operates on. It is created by
// normalization with placeholder fields and mutated in place by each later
// stage: resolve fills identity and categories, rank fills severity and
// impact score, clustering sets ClusterID, summarization fills the summary
// fields, allocation sets DigestID and Section.
type Event struct {
	ID          uuid.UUID
	SourceID    uuid.UUID
	RawItemID   uuid.UUID
	ClusterID   *uuid.UUID
	CompanySlug string
	CompanyName string
	ProductLine string

	Title          string
	Categories     []string
	TrustTier      int
	Severity       Severity
	BreakingChange bool
	ImpactScore    float64
	Confidence     Confidence

	WhatChanged      []Fact
	WhyItMatters     string
	ActionItems      []string
	Citations        []string
	EvidenceSnippets []string
	SummaryShort     string
	SummaryMedium    string

	PublishedAt time.Time
	CreatedAt   time.Time

	DigestID *uuid.UUID
	Section  string
}

// HasCategory reports whether the event carries the given taxonomy label.
func (e *Event) HasCategory(name string) bool {
	for _, c := range e.Categories {
		if c == name {
			return true
		}
	}
	return false
}

// EffectivePublishedAt falls back to creation time when the source never
// provided a publish timestamp.
func (e *Event) EffectivePublishedAt() time.Time {
	if !e.PublishedAt.IsZero() {
		return e.PublishedAt
	}
	return e.CreatedAt
}
