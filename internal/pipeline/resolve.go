package pipeline

import (
	"strings"

	"aidigest/internal/domain"
	"aidigest/internal/taxonomy"
)

// ResolveEntities tags each event in place with company/product identity and
// taxonomy categories.
//
// Identity is inherited from the source registry when the event does not
// already carry one. Categories come from substring keyword matching over the
// lowercased title plus rationale text; when nothing matches, a deterministic
// fallback based on the source's fetch method or name applies. Breaking-change
// detection is monotonic: the flag is set here and never cleared.
func ResolveEntities(events []*domain.Event, source domain.Source, rules taxonomy.Rules) {
	for _, event := range events {
		if event.CompanySlug == "" {
			event.CompanySlug = source.CompanySlug
		}
		if event.CompanyName == "" {
			event.CompanyName = source.CompanyName
		}
		if event.ProductLine == "" {
			event.ProductLine = source.ProductLine
		}

		text := strings.ToLower(event.Title + " " + event.WhyItMatters)

		var matched []string
		for _, rule := range rules.Categories {
			for _, kw := range rule.Keywords {
				if strings.Contains(text, kw) {
					matched = append(matched, rule.Category)
					break
				}
			}
		}

		if len(matched) == 0 {
			matched = []string{fallbackCategory(source)}
		}
		event.Categories = matched

		for _, kw := range rules.BreakingKeywords {
			if strings.Contains(text, kw) {
				event.BreakingChange = true
				break
			}
		}
	}
}

func fallbackCategory(source domain.Source) string {
	switch {
	case source.FetchMethod == domain.FetchReleases:
		return taxonomy.CategorySDK
	case strings.Contains(strings.ToLower(source.Name), "status"):
		return taxonomy.CategoryReliability
	default:
		return taxonomy.CategoryAPI
	}
}
