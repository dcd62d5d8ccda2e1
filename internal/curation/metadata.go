package curation

import (
	"strings"

	"github.com/netguy47/Scenario-Atlas/internal/scenario"
)

// domainCategory is the fallback category for a record whose category is
// missing or outside the closed set.
var domainCategory = map[scenario.Domain]scenario.Category{
	scenario.DomainPolitical:     scenario.CategoryDomestic,
	scenario.DomainEconomic:      scenario.CategoryEconomics,
	scenario.DomainSecurity:      scenario.CategorySecurity,
	scenario.DomainTechnological: scenario.CategoryTechnology,
	scenario.DomainMixed:         scenario.CategoryGeopolitics,
}

// disciplineCategory resolves the record to one canonical category and a
// valid domain. It reports whether the category changed.
func disciplineCategory(l *scenario.LibraryEntry) bool {
	if !l.Domain.Valid() {
		if d, ok := scenario.ParseDomain(string(l.Domain)); ok {
			l.Domain = d
		} else {
			l.Domain = scenario.DomainMixed
		}
	}

	original := l.Category
	if c, ok := scenario.ParseCategory(string(l.Category)); ok {
		l.Category = c
	} else {
		l.Category = domainCategory[l.Domain]
	}
	return l.Category != original
}

// assignMetadata fills difficulty, reusability and use cases. Valid existing
// values are kept.
func assignMetadata(l *scenario.LibraryEntry) {
	if !l.Difficulty.Valid() {
		l.Difficulty = deriveDifficulty(*l)
	}
	if !l.Reusability.Valid() {
		l.Reusability = deriveReusability(*l)
	}

	var uses []scenario.UseCase
	seen := make(map[scenario.UseCase]bool)
	for _, u := range l.IdealUseCases {
		if parsed, ok := scenario.ParseUseCase(string(u)); ok && !seen[parsed] {
			seen[parsed] = true
			uses = append(uses, parsed)
		}
	}
	if len(uses) == 0 {
		uses = deriveUseCases(*l)
	}
	l.IdealUseCases = uses
}

// deriveDifficulty scores scope breadth: a mixed domain, more than one
// horizon, and a five-year horizon each add one point. Zero points is
// Introductory, one is Intermediate, two or more is Advanced.
func deriveDifficulty(l scenario.LibraryEntry) scenario.Difficulty {
	score := 0
	if l.Domain == scenario.DomainMixed {
		score++
	}
	if len(l.TimeHorizon) > 1 {
		score++
	}
	if l.TimeHorizon.Contains(scenario.Horizon5Year) {
		score++
	}
	switch {
	case score >= 2:
		return scenario.DifficultyAdvanced
	case score == 1:
		return scenario.DifficultyIntermediate
	default:
		return scenario.DifficultyIntroductory
	}
}

// deriveReusability rates how often a question can be re-run. Global or
// multi-horizon questions rate High; a single short horizon on a specific
// geography rates Low.
func deriveReusability(l scenario.LibraryEntry) scenario.Reusability {
	global := l.Geography == "" || strings.EqualFold(strings.TrimSpace(l.Geography), "global")
	switch {
	case global || len(l.TimeHorizon) > 1:
		return scenario.ReusabilityHigh
	case len(l.TimeHorizon) == 1 && l.TimeHorizon[0] == scenario.Horizon1Year:
		return scenario.ReusabilityLow
	default:
		return scenario.ReusabilityMedium
	}
}

// deriveUseCases picks labels from the horizon shape, in canonical order.
func deriveUseCases(l scenario.LibraryEntry) []scenario.UseCase {
	if l.TimeHorizon.IsIrrelevant() {
		return []scenario.UseCase{scenario.UseCaseEducation, scenario.UseCaseExploratory}
	}

	want := map[scenario.UseCase]bool{
		scenario.UseCaseStrategicPlanning: l.TimeHorizon.Contains(scenario.Horizon3Year) || l.TimeHorizon.Contains(scenario.Horizon5Year),
		scenario.UseCaseEducation:         l.Difficulty == scenario.DifficultyIntroductory,
		scenario.UseCaseMonitoring:        l.TimeHorizon.Contains(scenario.Horizon1Year),
		scenario.UseCaseComparison:        len(l.TimeHorizon) > 1,
	}
	var uses []scenario.UseCase
	for _, u := range scenario.UseCases {
		if want[u] {
			uses = append(uses, u)
		}
	}
	if len(uses) == 0 {
		uses = []scenario.UseCase{scenario.UseCaseExploratory}
	}
	return uses
}
