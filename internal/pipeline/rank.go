package pipeline

import (
	"math"
	"sort"
	"strings"
	"time"

	"aidigest/internal/domain"
	"aidigest/internal/taxonomy"
)

// RankEvents assigns severity and impact score to each event in place, then
// sorts the slice descending by score.
//
// Equal scores tie-break by published-at descending (created-at when publish
// time is absent), then by original order; allocation downstream relies on
// this being deterministic.
func RankEvents(events []*domain.Event, rules taxonomy.Rules, now time.Time) {
	for _, event := range events {
		event.Severity = assignSeverity(event, rules)
		event.ImpactScore = impactScore(event, rules, now)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].ImpactScore != events[j].ImpactScore {
			return events[i].ImpactScore > events[j].ImpactScore
		}
		return events[i].EffectivePublishedAt().After(events[j].EffectivePublishedAt())
	})
}

// assignSeverity applies the severity rules in precedence order: always-high
// category, breaking change, high-signal title keyword, medium-signal title
// keyword, tier-1 SDK/API category, else LOW.
func assignSeverity(event *domain.Event, rules taxonomy.Rules) domain.Severity {
	for _, category := range rules.AlwaysHighCategories {
		if event.HasCategory(category) {
			return domain.SeverityHigh
		}
	}

	if event.BreakingChange {
		return domain.SeverityHigh
	}

	title := strings.ToLower(event.Title)
	for _, kw := range rules.HighKeywords {
		if strings.Contains(title, kw) {
			return domain.SeverityHigh
		}
	}
	for _, kw := range rules.MediumKeywords {
		if strings.Contains(title, kw) {
			return domain.SeverityMedium
		}
	}

	if event.TrustTier == 1 &&
		(event.HasCategory(taxonomy.CategorySDK) || event.HasCategory(taxonomy.CategoryAPI)) {
		return domain.SeverityMedium
	}

	return domain.SeverityLow
}

// impactScore computes the weighted factor sum, clamped to [0,1] and rounded
// to 4 decimal places. UserMatch, breadth, novelty, and the spam penalty are
// documented placeholders until personalization, corroboration tracking, and
// a spam model exist.
func impactScore(event *domain.Event, rules taxonomy.Rules, now time.Time) float64 {
	w := rules.ImpactWeights

	trust, ok := rules.TrustScores[event.TrustTier]
	if !ok {
		trust = 0.2
	}

	severity, ok := rules.SeverityScores[event.Severity]
	if !ok {
		severity = 0.15
	}

	userMatch := 0.5

	hoursOld := math.Max(now.Sub(event.EffectivePublishedAt()).Hours(), 0)
	recency := math.Exp(-rules.RecencyLambda * hoursOld)

	breadth := 1.0 / 3.0
	novelty := 1.0
	spamPenalty := 0.0

	score := w.Trust*trust +
		w.Severity*severity +
		w.UserMatch*userMatch +
		w.Recency*recency +
		w.Breadth*breadth +
		w.Novelty*novelty -
		w.SpamPenalty*spamPenalty

	score = math.Min(math.Max(score, 0.0), 1.0)
	return math.Round(score*10000) / 10000
}
