package pipeline

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"

	"aidigest/internal/domain"
)

// Clusterer groups near-duplicate events. The pairwise implementation below
// is O(n²) in string comparisons, acceptable at tens-to-hundreds of events
// per run; the interface exists so a bucketed/indexed similarity structure
// can replace it without touching callers.
type Clusterer interface {
	Cluster(events []*domain.Event) []domain.Cluster
}

// TitleSimilarity is a standard sequence-matching ratio over case-folded,
// trimmed strings, in [0,1]. Arguments are ordered canonically before
// matching so the ratio is symmetric.
func TitleSimilarity(a, b string) float64 {
	a = strings.TrimSpace(strings.ToLower(a))
	b = strings.TrimSpace(strings.ToLower(b))
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}
	if a > b {
		a, b = b, a
	}
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}

// TitleClusterer implements pairwise title-similarity clustering.
type TitleClusterer struct {
	threshold float64
	now       func() time.Time
}

var _ Clusterer = (*TitleClusterer)(nil)

// NewTitleClusterer builds a clusterer with the given similarity threshold.
func NewTitleClusterer(threshold float64) *TitleClusterer {
	return &TitleClusterer{threshold: threshold, now: time.Now}
}

// Cluster walks each unclustered event and groups every later event whose
// title similarity meets the threshold. Only groups of size >= 2 become
// clusters; singletons stay unclustered. The canonical representative is the
// member with the lowest trust-tier number, and its title names the cluster.
// Cluster IDs are re-derived on every pass and carry no cross-run identity.
func (c *TitleClusterer) Cluster(events []*domain.Event) []domain.Cluster {
	assigned := make([]bool, len(events))
	var clusters []domain.Cluster

	for i := range events {
		if assigned[i] {
			continue
		}
		group := []*domain.Event{events[i]}
		assigned[i] = true

		for j := i + 1; j < len(events); j++ {
			if assigned[j] {
				continue
			}
			if TitleSimilarity(events[i].Title, events[j].Title) >= c.threshold {
				group = append(group, events[j])
				assigned[j] = true
			}
		}

		if len(group) < 2 {
			continue
		}
		clusters = append(clusters, c.buildCluster(group))
	}

	return clusters
}

func (c *TitleClusterer) buildCluster(group []*domain.Event) domain.Cluster {
	canonical := group[0]
	for _, event := range group[1:] {
		if event.TrustTier < canonical.TrustTier {
			canonical = event
		}
	}

	now := c.now()
	first, last := now, now
	for i, event := range group {
		at := event.PublishedAt
		if at.IsZero() {
			at = now
		}
		if i == 0 || at.Before(first) {
			first = at
		}
		if i == 0 || at.After(last) {
			last = at
		}
	}

	cluster := domain.Cluster{
		ID:             uuid.New(),
		CanonicalTitle: canonical.Title,
		CompanySlug:    canonical.CompanySlug,
		EventCount:     len(group),
		FirstSeenAt:    first,
		LastSeenAt:     last,
	}

	for _, event := range group {
		id := cluster.ID
		event.ClusterID = &id
	}

	return cluster
}
