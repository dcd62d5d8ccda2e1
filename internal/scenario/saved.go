package scenario

import (
	"fmt"
	"strings"
	"time"
)

// VersionType records how a prompt version was produced.
type VersionType string

const (
	VersionManual    VersionType = "Manual"
	VersionEnhanced  VersionType = "Enhanced"
	VersionCanonical VersionType = "Canonical"
)

// Valid reports whether v is a known version type.
func (v VersionType) Valid() bool {
	return v == VersionManual || v == VersionEnhanced || v == VersionCanonical
}

// DriftStatus classifies how far a saved scenario's prompt has moved across
// its version history. It is always derived, never set directly.
type DriftStatus string

const (
	DriftNew                 DriftStatus = "New"
	DriftStable              DriftStatus = "Stable"
	DriftGradualShift        DriftStatus = "Gradual Shift"
	DriftWideningUncertainty DriftStatus = "Widening Uncertainty"
)

// PromptVersion is an immutable snapshot of a saved scenario's prompt text.
type PromptVersion struct {
	ID            string      `json:"id"`
	VersionNumber int         `json:"versionNumber"`
	Type          VersionType `json:"type"`
	Text          string      `json:"text"`
	Created       time.Time   `json:"created"`
	Notes         string      `json:"notes,omitempty"`
	Changes       []string    `json:"changes,omitempty"`
}

// SavedScenario is a scenario adopted into long-term watchlist memory.
type SavedScenario struct {
	ID          string          `json:"id"`
	WatchlistID string          `json:"watchlistId"`
	LibraryID   string          `json:"libraryId,omitempty"`
	Title       string          `json:"title"`
	Category    Category        `json:"category"`
	Domain      Domain          `json:"domain"`
	TimeHorizon TimeHorizon     `json:"timeHorizon"`
	LastRunDate *time.Time      `json:"lastRunDate,omitempty"`
	DriftStatus DriftStatus     `json:"driftStatus"`
	Versions    []PromptVersion `json:"versions"`
	RunCount    int             `json:"runCount"`
	Notes       string          `json:"notes,omitempty"`
}

// Latest returns the newest version. Saved scenarios always have at least one.
func (s SavedScenario) Latest() PromptVersion {
	return s.Versions[len(s.Versions)-1]
}

// CheckVersions verifies the history is non-empty and numbered 1..n without gaps.
func (s SavedScenario) CheckVersions() error {
	if len(s.Versions) == 0 {
		return fmt.Errorf("saved scenario %s has no versions", s.ID)
	}
	for i, v := range s.Versions {
		if v.VersionNumber != i+1 {
			return fmt.Errorf("saved scenario %s: version at index %d has number %d", s.ID, i, v.VersionNumber)
		}
	}
	return nil
}

// WatchlistType classifies a watchlist.
type WatchlistType string

const (
	WatchlistActive   WatchlistType = "active"
	WatchlistLibrary  WatchlistType = "library"
	WatchlistPersonal WatchlistType = "personal"
)

// WatchlistSubtype refines personal watchlists.
type WatchlistSubtype string

const (
	SubtypeDraft    WatchlistSubtype = "draft"
	SubtypeRefined  WatchlistSubtype = "refined"
	SubtypeArchived WatchlistSubtype = "archived"
)

// Watchlist is a named bucket of saved scenarios.
type Watchlist struct {
	ID      string           `json:"id" yaml:"id"`
	Name    string           `json:"name" yaml:"name"`
	Type    WatchlistType    `json:"type" yaml:"type"`
	Subtype WatchlistSubtype `json:"subtype,omitempty" yaml:"subtype,omitempty"`
}

// Validate checks the watchlist schema. A subtype is only meaningful on
// personal watchlists.
func (w Watchlist) Validate() error {
	if strings.TrimSpace(w.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidWatchlist)
	}
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("%w: %s: name is required", ErrInvalidWatchlist, w.ID)
	}
	switch w.Type {
	case WatchlistActive, WatchlistLibrary, WatchlistPersonal:
	default:
		return fmt.Errorf("%w: %s: unknown type %q", ErrInvalidWatchlist, w.ID, w.Type)
	}
	switch w.Subtype {
	case "":
	case SubtypeDraft, SubtypeRefined, SubtypeArchived:
		if w.Type != WatchlistPersonal {
			return fmt.Errorf("%w: %s: subtype %q requires type personal", ErrInvalidWatchlist, w.ID, w.Subtype)
		}
	default:
		return fmt.Errorf("%w: %s: unknown subtype %q", ErrInvalidWatchlist, w.ID, w.Subtype)
	}
	return nil
}
