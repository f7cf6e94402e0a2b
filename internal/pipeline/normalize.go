// Package pipeline implements the processing stages between ingestion and
// digest assembly: normalization, entity/category resolution, scoring,
// similarity clustering, noise filtering, and section allocation.
package pipeline

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"aidigest/internal/domain"
)

var (
	tagRE       = regexp.MustCompile(`<[^>]+>`)
	spacesRE    = regexp.MustCompile(`\s+`)
	alphaWordRE = regexp.MustCompile(`[A-Za-z]{2,}`)
	repoRE      = regexp.MustCompile(`([\w.-]+)\s*/\s*([\w.-]+)`)
)

func stripMarkup(text string) string {
	clean := tagRE.ReplaceAllString(text, " ")
	return strings.TrimSpace(spacesRE.ReplaceAllString(clean, " "))
}

// isReadable filters out star-count spam and numeric-only noise: the text
// needs the minimum word count and over 30% of its tokens must contain at
// least two consecutive letters.
func isReadable(text string, minWords int) bool {
	words := strings.Fields(text)
	if len(words) < minWords {
		return false
	}
	alpha := 0
	for _, w := range words {
		if alphaWordRE.MatchString(w) {
			alpha++
		}
	}
	return float64(alpha)/float64(len(words)) > 0.3
}

func extractRepoTitle(text string) string {
	m := repoRE.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1] + "/" + m[2]
}

// NormalizeItem converts a candidate plus its persisted raw item into a
// skeleton event. Categories, severity, score, and summaries are left at
// defaults for the later stages.
//
// Title policy, first match wins: the candidate title when readable, an
// owner/name token from the title or body, the first ~100 characters of the
// stripped body when readable, else a "{company} update" placeholder.
func NormalizeItem(item domain.CandidateItem, raw *domain.RawItem, source domain.Source, now time.Time) *domain.Event {
	title := strings.TrimSpace(item.Title)
	if title == "" || !isReadable(title, 1) {
		repo := extractRepoTitle(title)
		if repo == "" {
			repo = extractRepoTitle(item.ContentText)
		}
		if repo != "" {
			title = repo
		} else if clean := stripMarkup(item.ContentText); clean != "" && isReadable(clean, 2) {
			title = strings.TrimSpace(truncateText(clean, 100))
		} else {
			title = source.CompanyName + " update"
		}
	}

	published := item.PublishedAt
	if published.IsZero() {
		published = now
	}

	return &domain.Event{
		ID:          uuid.New(),
		SourceID:    source.ID,
		RawItemID:   raw.ID,
		CompanySlug: source.CompanySlug,
		CompanyName: source.CompanyName,
		ProductLine: source.ProductLine,
		Title:       title,
		Categories:  []string{},
		TrustTier:   source.TrustTier,
		Severity:    domain.SeverityLow,
		Confidence:  domain.ConfidenceForTier(source.TrustTier),
		Citations:   []string{item.URL},
		PublishedAt: published,
		CreatedAt:   now,
	}
}

// NormalizeBatch normalizes candidate/raw-item pairs in order.
func NormalizeBatch(items []domain.CandidateItem, raws []*domain.RawItem, source domain.Source, now time.Time) []*domain.Event {
	events := make([]*domain.Event, 0, len(items))
	for i := range items {
		events = append(events, NormalizeItem(items[i], raws[i], source, now))
	}
	return events
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
