package pipeline

import (
	"testing"
	"time"

	"aidigest/internal/domain"
)

func TestTitleSimilarityBasics(t *testing.T) {
	t.Parallel()

	if got := TitleSimilarity("Acme launches GPT add-on", "acme launches gpt add-on"); got != 1.0 {
		t.Fatalf("case-folded identical titles must score 1.0, got %v", got)
	}
	if got := TitleSimilarity("", "anything"); got != 0.0 {
		t.Fatalf("empty title must score 0.0, got %v", got)
	}
	if got := TitleSimilarity("alpha", "alpha "); got != 1.0 {
		t.Fatalf("trailing whitespace must not matter, got %v", got)
	}
}

func TestTitleSimilarityBoundsAndSymmetry(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"Acme releases SDK v2", "Acme releases SDK v3"},
		{"completely different text", "nothing alike here"},
		{"a", "b"},
	}

	for _, pair := range pairs {
		ab := TitleSimilarity(pair[0], pair[1])
		ba := TitleSimilarity(pair[1], pair[0])
		if ab < 0 || ab > 1 {
			t.Fatalf("similarity out of bounds for %q/%q: %v", pair[0], pair[1], ab)
		}
		if ab != ba {
			t.Fatalf("similarity not symmetric for %q/%q: %v vs %v", pair[0], pair[1], ab, ba)
		}
	}
}

func TestClusterGroupsNearDuplicates(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	primary := &domain.Event{
		Title:       "Acme releases Frontier model with 1M context",
		CompanySlug: "acme", TrustTier: 3, PublishedAt: now.Add(-2 * time.Hour),
	}
	echo := &domain.Event{
		Title:       "Acme releases Frontier model with 1M context!",
		CompanySlug: "acme", TrustTier: 1, PublishedAt: now,
	}
	unrelated := &domain.Event{
		Title:       "Weekly community newsletter roundup",
		CompanySlug: "other", TrustTier: 2, PublishedAt: now,
	}

	clusterer := NewTitleClusterer(0.85)
	clusters := clusterer.Cluster([]*domain.Event{primary, echo, unrelated})

	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}

	cluster := clusters[0]
	if cluster.EventCount != 2 {
		t.Fatalf("expected 2 members, got %d", cluster.EventCount)
	}
	if cluster.CanonicalTitle != echo.Title {
		t.Fatalf("canonical must come from the most trusted member, got %q", cluster.CanonicalTitle)
	}
	if !cluster.FirstSeenAt.Equal(primary.PublishedAt) || !cluster.LastSeenAt.Equal(echo.PublishedAt) {
		t.Fatalf("unexpected seen range: %v .. %v", cluster.FirstSeenAt, cluster.LastSeenAt)
	}

	if primary.ClusterID == nil || echo.ClusterID == nil || *primary.ClusterID != *echo.ClusterID {
		t.Fatalf("members must share the cluster id")
	}
	if unrelated.ClusterID != nil {
		t.Fatalf("singleton must stay unclustered")
	}
}

func TestClusterSingletonsProduceNoClusters(t *testing.T) {
	t.Parallel()

	events := []*domain.Event{
		{Title: "first entirely distinct headline"},
		{Title: "zebra walks through quiet data center"},
	}

	clusterer := NewTitleClusterer(0.85)
	if clusters := clusterer.Cluster(events); len(clusters) != 0 {
		t.Fatalf("expected no clusters, got %d", len(clusters))
	}
}
