package pipeline

import (
	"github.com/google/uuid"

	"aidigest/internal/domain"
	"aidigest/internal/taxonomy"
)

// Sections holds the partitioned digest content.
type Sections struct {
	Top5           []*domain.Event
	Developer      []*domain.Event
	Models         []*domain.Event
	Pricing        []*domain.Event
	Incidents      []*domain.Event
	Radar          []*domain.Event
	EverythingElse []*domain.Event
}

// TotalCount is the number of allocated events across all sections.
func (s Sections) TotalCount() int {
	return len(s.Top5) + len(s.Developer) + len(s.Models) + len(s.Pricing) +
		len(s.Incidents) + len(s.Radar) + len(s.EverythingElse)
}

// All returns every allocated event, section by section.
func (s Sections) All() []*domain.Event {
	all := make([]*domain.Event, 0, s.TotalCount())
	all = append(all, s.Top5...)
	all = append(all, s.Developer...)
	all = append(all, s.Models...)
	all = append(all, s.Pricing...)
	all = append(all, s.Incidents...)
	all = append(all, s.Radar...)
	all = append(all, s.EverythingElse...)
	return all
}

// EventIDs serializes the section→event mapping for digest storage.
func (s Sections) EventIDs() map[string][]uuid.UUID {
	ids := func(events []*domain.Event) []uuid.UUID {
		out := make([]uuid.UUID, 0, len(events))
		for _, e := range events {
			out = append(out, e.ID)
		}
		return out
	}
	return map[string][]uuid.UUID{
		domain.SectionTop5:           ids(s.Top5),
		domain.SectionDeveloper:      ids(s.Developer),
		domain.SectionModels:         ids(s.Models),
		domain.SectionPricing:        ids(s.Pricing),
		domain.SectionIncidents:      ids(s.Incidents),
		domain.SectionRadar:          ids(s.Radar),
		domain.SectionEverythingElse: ids(s.EverythingElse),
	}
}

// AllocateSections partitions events, already sorted descending by impact
// score, into the digest sections under their quotas.
//
// The first five events become top5 unconditionally. Each remaining event
// routes, in score order, to the first matching rule whose section still has
// room: tier-4 community events to radar, then by category to developer,
// models, pricing, or incidents. Whatever is left lands in everything_else.
// Processing strictly in score order makes the partition respect the total
// ordering: a higher-scored event is never bumped by a lower-scored one.
func AllocateSections(events []*domain.Event, rules taxonomy.Rules) Sections {
	var s Sections
	if len(events) == 0 {
		return s
	}

	quota := rules.SectionQuotas

	top := quota[domain.SectionTop5]
	if top > len(events) {
		top = len(events)
	}
	s.Top5 = events[:top]

	for _, event := range events[top:] {
		switch {
		case event.TrustTier == 4 && len(s.Radar) < quota[domain.SectionRadar]:
			s.Radar = append(s.Radar, event)
		case intersects(event.Categories, rules.SectionDeveloper) && len(s.Developer) < quota[domain.SectionDeveloper]:
			s.Developer = append(s.Developer, event)
		case intersects(event.Categories, rules.SectionModels) && len(s.Models) < quota[domain.SectionModels]:
			s.Models = append(s.Models, event)
		case intersects(event.Categories, rules.SectionPricing) && len(s.Pricing) < quota[domain.SectionPricing]:
			s.Pricing = append(s.Pricing, event)
		case intersects(event.Categories, rules.SectionIncidents) && len(s.Incidents) < quota[domain.SectionIncidents]:
			s.Incidents = append(s.Incidents, event)
		default:
			s.EverythingElse = append(s.EverythingElse, event)
		}
	}

	label(s.Top5, domain.SectionTop5)
	label(s.Developer, domain.SectionDeveloper)
	label(s.Models, domain.SectionModels)
	label(s.Pricing, domain.SectionPricing)
	label(s.Incidents, domain.SectionIncidents)
	label(s.Radar, domain.SectionRadar)
	label(s.EverythingElse, domain.SectionEverythingElse)

	return s
}

func intersects(categories []string, section map[string]bool) bool {
	for _, c := range categories {
		if section[c] {
			return true
		}
	}
	return false
}

func label(events []*domain.Event, section string) {
	for _, e := range events {
		e.Section = section
	}
}
