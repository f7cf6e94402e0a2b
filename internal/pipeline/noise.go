package pipeline

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"aidigest/internal/domain"
	"aidigest/internal/taxonomy"
)

var numericOnlyRE = regexp.MustCompile(`^[\d,\s]+$`)

// NormalizeTitle lowercases and collapses whitespace for exact-key matching.
func NormalizeTitle(title string) string {
	return spacesRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), " ")
}

// LooksLikeStarCount flags trending-repo scrape artifacts: "N stars today"
// strings and titles that are nothing but digits and punctuation.
func LooksLikeStarCount(text string) bool {
	if strings.Contains(strings.ToLower(text), "stars today") {
		return true
	}
	return numericOnlyRE.MatchString(strings.TrimSpace(text))
}

// isReadableTitle is the digest-time readability check: single words must be
// real words of at least four letters, longer titles reuse the token ratio.
func isReadableTitle(title string) bool {
	words := strings.Fields(title)
	if len(words) == 1 {
		return alphaWordRE.MatchString(words[0]) && len(words[0]) >= 4
	}
	if len(words) < 2 {
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

// IsNoise reports whether an event should be dropped from digest
// consideration: star-count spam for everyone, and for the lowest trust tier
// also stopword titles and unreadable titles.
func IsNoise(event *domain.Event, rules taxonomy.Rules) bool {
	if LooksLikeStarCount(event.Title) {
		return true
	}
	if event.TrustTier >= 4 {
		if rules.NoiseTitles[NormalizeTitle(event.Title)] {
			return true
		}
		if !isReadableTitle(event.Title) {
			return true
		}
	}
	return false
}

// DedupeAcrossRuns collapses duplicates the similarity pass missed between
// separate pipeline runs: at most one event survives per cluster, and events
// sharing an exact (company slug, product line, normalized title) key are
// collapsed to the first occurrence. Input order (score order) is preserved.
func DedupeAcrossRuns(events []*domain.Event) []*domain.Event {
	seenClusters := map[uuid.UUID]bool{}
	seenKeys := map[[3]string]bool{}
	deduped := make([]*domain.Event, 0, len(events))

	for _, event := range events {
		if event.ClusterID != nil && seenClusters[*event.ClusterID] {
			continue
		}
		key := [3]string{
			strings.ToLower(event.CompanySlug),
			strings.ToLower(event.ProductLine),
			NormalizeTitle(event.Title),
		}
		if seenKeys[key] {
			continue
		}

		deduped = append(deduped, event)
		if event.ClusterID != nil {
			seenClusters[*event.ClusterID] = true
		}
		seenKeys[key] = true
	}

	return deduped
}
