// Package scenario defines the scenario record schema shared by the session
// store, the curation engine, and watchlist memory.
package scenario

import "strings"

// Category is one of the ten topical domains every scenario belongs to.
type Category string

const (
	CategoryHistory     Category = "History & Counterfactuals"
	CategoryGeopolitics Category = "Geopolitics & International Relations"
	CategoryEconomics   Category = "Economics & Markets"
	CategoryDomestic    Category = "Domestic Politics & Governance"
	CategoryTechnology  Category = "Technology & AI Futures"
	CategoryClimate     Category = "Climate & Environment"
	CategoryBusiness    Category = "Business Strategy & Startups"
	CategorySports      Category = "Sports"
	CategorySocial      Category = "Social & Cultural Dynamics"
	CategorySecurity    Category = "Security & Conflict"
)

// Categories lists the closed category set in rotation order.
var Categories = []Category{
	CategoryHistory,
	CategoryGeopolitics,
	CategoryEconomics,
	CategoryDomestic,
	CategoryTechnology,
	CategoryClimate,
	CategoryBusiness,
	CategorySports,
	CategorySocial,
	CategorySecurity,
}

// categoryKeywords maps a leading keyword to its category.
var categoryKeywords = map[string]Category{
	"history":         CategoryHistory,
	"counterfactual":  CategoryHistory,
	"counterfactuals": CategoryHistory,
	"geopolitics":     CategoryGeopolitics,
	"geopolitical":    CategoryGeopolitics,
	"international":   CategoryGeopolitics,
	"economics":       CategoryEconomics,
	"economic":        CategoryEconomics,
	"markets":         CategoryEconomics,
	"domestic":        CategoryDomestic,
	"politics":        CategoryDomestic,
	"governance":      CategoryDomestic,
	"technology":      CategoryTechnology,
	"tech":            CategoryTechnology,
	"ai":              CategoryTechnology,
	"climate":         CategoryClimate,
	"environment":     CategoryClimate,
	"business":        CategoryBusiness,
	"startups":        CategoryBusiness,
	"sports":          CategorySports,
	"sport":           CategorySports,
	"social":          CategorySocial,
	"cultural":        CategorySocial,
	"security":        CategorySecurity,
	"conflict":        CategorySecurity,
}

// Valid reports whether c is one of the ten canonical categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory resolves free text to a canonical category. It accepts exact
// names, case-insensitive names, and labels whose leading word identifies the
// category (for example "Sports (Teams, Players, Seasons)").
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, known := range Categories {
		if strings.EqualFold(s, string(known)) {
			return known, true
		}
	}

	first := strings.ToLower(strings.Fields(s)[0])
	first = strings.Trim(first, ".,:;()&/-")
	if c, ok := categoryKeywords[first]; ok {
		return c, true
	}
	return "", false
}

// Domain describes the causal nature of a scenario, independent of Category.
type Domain string

const (
	DomainPolitical     Domain = "political"
	DomainEconomic      Domain = "economic"
	DomainSecurity      Domain = "security"
	DomainTechnological Domain = "technological"
	DomainMixed         Domain = "mixed"
)

// Domains lists the closed domain set.
var Domains = []Domain{DomainPolitical, DomainEconomic, DomainSecurity, DomainTechnological, DomainMixed}

// Valid reports whether d is a known domain.
func (d Domain) Valid() bool {
	for _, known := range Domains {
		if d == known {
			return true
		}
	}
	return false
}

// DomainChoices lists the domain set for help text.
func DomainChoices() string {
	names := make([]string, len(Domains))
	for i, d := range Domains {
		names[i] = string(d)
	}
	return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
}

// ParseDomain resolves free text to a domain, case-insensitively.
func ParseDomain(s string) (Domain, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, known := range Domains {
		if s == string(known) {
			return known, true
		}
	}
	return "", false
}

// Difficulty is the curated difficulty level of a library entry.
type Difficulty string

const (
	DifficultyIntroductory Difficulty = "Introductory"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	return d == DifficultyIntroductory || d == DifficultyIntermediate || d == DifficultyAdvanced
}

// Reusability is the curated reusability score of a library entry.
type Reusability string

const (
	ReusabilityLow    Reusability = "Low"
	ReusabilityMedium Reusability = "Medium"
	ReusabilityHigh   Reusability = "High"
)

// Valid reports whether r is a known reusability score.
func (r Reusability) Valid() bool {
	return r == ReusabilityLow || r == ReusabilityMedium || r == ReusabilityHigh
}

// UseCase is one of the fixed ideal use-case labels.
type UseCase string

const (
	UseCaseStrategicPlanning UseCase = "Strategic planning"
	UseCaseEducation         UseCase = "Education"
	UseCaseMonitoring        UseCase = "Monitoring/Watchlists"
	UseCaseComparison        UseCase = "Scenario comparison"
	UseCaseExploratory       UseCase = "Exploratory thinking"
)

// UseCases lists the fixed use-case label set.
var UseCases = []UseCase{
	UseCaseStrategicPlanning,
	UseCaseEducation,
	UseCaseMonitoring,
	UseCaseComparison,
	UseCaseExploratory,
}

// Valid reports whether u is one of the fixed labels.
func (u UseCase) Valid() bool {
	for _, known := range UseCases {
		if u == known {
			return true
		}
	}
	return false
}

// ParseUseCase resolves a label, tolerating spacing around the slash.
func ParseUseCase(s string) (UseCase, bool) {
	norm := strings.ReplaceAll(strings.TrimSpace(s), " / ", "/")
	for _, known := range UseCases {
		if strings.EqualFold(norm, string(known)) {
			return known, true
		}
	}
	return "", false
}

// RawScenarioEntry is a record as produced by the generation collaborator.
// ScenarioID is caller-assigned and not guaranteed unique across runs.
type RawScenarioEntry struct {
	ScenarioID        string      `json:"scenarioId"`
	Title             string      `json:"title"`
	Category          Category    `json:"category"`
	CanonicalQuestion string      `json:"canonicalQuestion"`
	SystemActor       string      `json:"systemActor"`
	IssueFocus        string      `json:"issueFocus"`
	TimeHorizon       TimeHorizon `json:"timeHorizon"`
	Domain            Domain      `json:"domain"`
	Geography         string      `json:"geography"`
	Notes             string      `json:"notes,omitempty"`
	Tags              []string    `json:"tags,omitempty"`
}

// LibraryEntry is a curated, canonical scenario record.
type LibraryEntry struct {
	ScenarioID        string      `json:"scenarioId"`
	Title             string      `json:"title"`
	Category          Category    `json:"category"`
	CanonicalQuestion string      `json:"canonicalQuestion"`
	SystemActor       string      `json:"systemActor"`
	IssueFocus        string      `json:"issueFocus"`
	TimeHorizon       TimeHorizon `json:"timeHorizon"`
	Domain            Domain      `json:"domain"`
	Geography         string      `json:"geography,omitempty"`
	Difficulty        Difficulty  `json:"difficulty"`
	Reusability       Reusability `json:"reusability"`
	IdealUseCases     []UseCase   `json:"idealUseCases"`
	Tags              []string    `json:"tags,omitempty"`
	Notes             string      `json:"notes,omitempty"`
}

// Entry is one record of the session working set: exactly one of Raw or
// Library is set.
type Entry struct {
	Raw     *RawScenarioEntry `json:"raw,omitempty"`
	Library *LibraryEntry     `json:"library,omitempty"`
}

// FromRaw wraps a raw record.
func FromRaw(r RawScenarioEntry) Entry {
	return Entry{Raw: &r}
}

// FromLibrary wraps a curated record.
func FromLibrary(l LibraryEntry) Entry {
	return Entry{Library: &l}
}

// IsCurated reports whether the entry holds a library record.
func (e Entry) IsCurated() bool {
	return e.Library != nil
}

// ID returns the scenario id of whichever record is set.
func (e Entry) ID() string {
	if e.Library != nil {
		return e.Library.ScenarioID
	}
	if e.Raw != nil {
		return e.Raw.ScenarioID
	}
	return ""
}

// AsLibrary returns the entry in library shape. Raw records come back with
// empty curation metadata.
func (e Entry) AsLibrary() LibraryEntry {
	if e.Library != nil {
		return e.Library.Clone()
	}
	if e.Raw == nil {
		return LibraryEntry{}
	}
	r := e.Raw
	return LibraryEntry{
		ScenarioID:        r.ScenarioID,
		Title:             r.Title,
		Category:          r.Category,
		CanonicalQuestion: r.CanonicalQuestion,
		SystemActor:       r.SystemActor,
		IssueFocus:        r.IssueFocus,
		TimeHorizon:       append(TimeHorizon(nil), r.TimeHorizon...),
		Domain:            r.Domain,
		Geography:         r.Geography,
		Notes:             r.Notes,
		Tags:              append([]string(nil), r.Tags...),
	}
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	var out Entry
	if e.Raw != nil {
		r := *e.Raw
		r.TimeHorizon = append(TimeHorizon(nil), e.Raw.TimeHorizon...)
		r.Tags = append([]string(nil), e.Raw.Tags...)
		out.Raw = &r
	}
	if e.Library != nil {
		l := e.Library.Clone()
		out.Library = &l
	}
	return out
}

// Clone returns a deep copy of the library entry.
func (l LibraryEntry) Clone() LibraryEntry {
	out := l
	out.TimeHorizon = append(TimeHorizon(nil), l.TimeHorizon...)
	out.IdealUseCases = append([]UseCase(nil), l.IdealUseCases...)
	out.Tags = append([]string(nil), l.Tags...)
	return out
}

// Promotable is the subset of record fields watchlist memory copies at import
// time. Both raw and curated records satisfy it.
type Promotable interface {
	PromotionFields() PromotionFields
}

// PromotionFields are the fields copied into a saved scenario.
type PromotionFields struct {
	ScenarioID        string
	Title             string
	Category          Category
	Domain            Domain
	TimeHorizon       TimeHorizon
	CanonicalQuestion string
}

// PromotionFields implements Promotable.
func (r RawScenarioEntry) PromotionFields() PromotionFields {
	return PromotionFields{
		ScenarioID:        r.ScenarioID,
		Title:             r.Title,
		Category:          r.Category,
		Domain:            r.Domain,
		TimeHorizon:       append(TimeHorizon(nil), r.TimeHorizon...),
		CanonicalQuestion: r.CanonicalQuestion,
	}
}

// PromotionFields implements Promotable.
func (l LibraryEntry) PromotionFields() PromotionFields {
	return PromotionFields{
		ScenarioID:        l.ScenarioID,
		Title:             l.Title,
		Category:          l.Category,
		Domain:            l.Domain,
		TimeHorizon:       append(TimeHorizon(nil), l.TimeHorizon...),
		CanonicalQuestion: l.CanonicalQuestion,
	}
}

// PromotionFields implements Promotable for whichever record is set.
func (e Entry) PromotionFields() PromotionFields {
	if e.Library != nil {
		return e.Library.PromotionFields()
	}
	if e.Raw != nil {
		return e.Raw.PromotionFields()
	}
	return PromotionFields{}
}
