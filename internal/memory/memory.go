// Package memory keeps long-term watchlists of saved scenarios, each with an
// append-only prompt version history and a derived drift status.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/netguy47/Scenario-Atlas/internal/database"
	"github.com/netguy47/Scenario-Atlas/internal/scenario"
)

// ErrInvalidInput means caller-supplied fields are missing or unknown.
var ErrInvalidInput = errors.New("invalid input")

const (
	importNote = "Imported from Library"
	manualNote = "Initial Manual Draft"
)

// Memory is the watchlist memory backed by SQLite. Every mutation is a
// single transaction.
type Memory struct {
	db     *database.DB
	policy DriftPolicy
	logger *zap.Logger

	now   func() time.Time
	newID func() string
}

// New creates a watchlist memory.
func New(db *database.DB, policy DriftPolicy, logger *zap.Logger) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memory{
		db:     db,
		policy: policy,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// SeedWatchlists validates and upserts the configured watchlists. It is safe
// to call on every start.
func (m *Memory) SeedWatchlists(ctx context.Context, ws []scenario.Watchlist) error {
	seen := make(map[string]bool, len(ws))
	for _, w := range ws {
		if err := w.Validate(); err != nil {
			return err
		}
		if seen[w.ID] {
			return fmt.Errorf("%w: duplicate id %s", scenario.ErrInvalidWatchlist, w.ID)
		}
		seen[w.ID] = true
	}
	if err := m.db.UpsertWatchlists(ctx, ws); err != nil {
		return fmt.Errorf("seeding watchlists: %w", err)
	}
	return nil
}

// Watchlists returns all watchlists in seed order.
func (m *Memory) Watchlists(ctx context.Context) ([]scenario.Watchlist, error) {
	return m.db.Watchlists(ctx)
}

// PromoteOptions selects the target of a promotion.
type PromoteOptions struct {
	// WatchlistID defaults to the first watchlist.
	WatchlistID string
}

// Promote adopts a record into memory as a new saved scenario whose first
// version is the record's canonical question.
func (m *Memory) Promote(ctx context.Context, entry scenario.Promotable, opts PromoteOptions) (*scenario.SavedScenario, error) {
	f := entry.PromotionFields()
	if err := f.TimeHorizon.Validate(); err != nil {
		return nil, fmt.Errorf("promoting %s: %w", f.ScenarioID, err)
	}

	target, err := m.resolveWatchlist(ctx, opts.WatchlistID, false)
	if err != nil {
		return nil, err
	}

	now := m.now()
	s := scenario.SavedScenario{
		ID:          "save-" + m.newID(),
		WatchlistID: target,
		LibraryID:   f.ScenarioID,
		Title:       f.Title,
		Category:    f.Category,
		Domain:      f.Domain,
		TimeHorizon: f.TimeHorizon,
		DriftStatus: scenario.DriftNew,
		Versions: []scenario.PromptVersion{{
			ID:            m.versionID(1),
			VersionNumber: 1,
			Type:          scenario.VersionCanonical,
			Text:          f.CanonicalQuestion,
			Created:       now,
			Notes:         importNote,
		}},
	}
	if err := m.db.InsertSavedScenario(ctx, s); err != nil {
		return nil, err
	}

	m.logger.Info("promoted scenario",
		zap.String("id", s.ID), zap.String("library_id", s.LibraryID), zap.String("watchlist", target))
	return &s, nil
}

// ManualInput describes a hand-written prompt.
type ManualInput struct {
	WatchlistID string
	Title       string
	Text        string
	Category    string
	Domain      string
	TimeHorizon scenario.TimeHorizon
	Notes       string
}

// CreateManual stores a hand-written prompt. The watchlist defaults to the
// first personal watchlist, then the first watchlist.
func (m *Memory) CreateManual(ctx context.Context, in ManualInput) (*scenario.SavedScenario, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: manual prompt: title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("%w: manual prompt: text is required", ErrInvalidInput)
	}
	if err := in.TimeHorizon.Validate(); err != nil {
		return nil, fmt.Errorf("manual prompt: %w", err)
	}

	target, err := m.resolveWatchlist(ctx, in.WatchlistID, true)
	if err != nil {
		return nil, err
	}

	category := scenario.Category(strings.TrimSpace(in.Category))
	if c, ok := scenario.ParseCategory(in.Category); ok {
		category = c
	}
	domain := scenario.Domain(strings.TrimSpace(in.Domain))
	if d, ok := scenario.ParseDomain(in.Domain); ok {
		domain = d
	}

	now := m.now()
	s := scenario.SavedScenario{
		ID:          "custom-" + m.newID(),
		WatchlistID: target,
		Title:       strings.TrimSpace(in.Title),
		Category:    category,
		Domain:      domain,
		TimeHorizon: in.TimeHorizon,
		DriftStatus: scenario.DriftNew,
		Notes:       in.Notes,
		Versions: []scenario.PromptVersion{{
			ID:            m.versionID(1),
			VersionNumber: 1,
			Type:          scenario.VersionManual,
			Text:          in.Text,
			Created:       now,
			Notes:         manualNote,
		}},
	}
	if err := m.db.InsertSavedScenario(ctx, s); err != nil {
		return nil, err
	}

	m.logger.Info("created manual prompt", zap.String("id", s.ID), zap.String("watchlist", target))
	return &s, nil
}

// VersionInput describes a new prompt revision.
type VersionInput struct {
	Text    string
	Type    scenario.VersionType
	Changes []string
	Notes   string
}

// AddVersion appends a revision to a saved scenario, bumps its run count and
// last run date, and recomputes its drift status.
func (m *Memory) AddVersion(ctx context.Context, id string, in VersionInput) (*scenario.SavedScenario, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("%w: adding version to %s: text is required", ErrInvalidInput, id)
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: adding version to %s: unknown version type %q", ErrInvalidInput, id, in.Type)
	}

	now := m.now()
	updated, err := m.db.UpdateSavedScenario(ctx, id, func(s *scenario.SavedScenario) error {
		next := 1
		for _, v := range s.Versions {
			if v.VersionNumber >= next {
				next = v.VersionNumber + 1
			}
		}

		s.Versions = append(s.Versions, scenario.PromptVersion{
			ID:            m.versionID(next),
			VersionNumber: next,
			Type:          in.Type,
			Text:          in.Text,
			Created:       now,
			Notes:         in.Notes,
			Changes:       append([]string(nil), in.Changes...),
		})

		runAt := now
		if s.LastRunDate != nil && s.LastRunDate.After(runAt) {
			runAt = *s.LastRunDate
		}
		s.LastRunDate = &runAt
		s.RunCount++
		s.DriftStatus = DeriveDrift(s.Versions, m.policy)
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("added version",
		zap.String("id", id),
		zap.Int("version", updated.Latest().VersionNumber),
		zap.String("drift", string(updated.DriftStatus)))
	return updated, nil
}

// Get returns a saved scenario. A missing id wraps ErrUnknownScenario.
func (m *Memory) Get(ctx context.Context, id string) (*scenario.SavedScenario, error) {
	s, err := m.db.GetSavedScenario(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %s", scenario.ErrUnknownScenario, id)
	}
	return s, nil
}

// List returns saved scenarios, optionally restricted to one watchlist.
func (m *Memory) List(ctx context.Context, watchlistID string) ([]scenario.SavedScenario, error) {
	if watchlistID != "" {
		if _, err := m.resolveWatchlist(ctx, watchlistID, false); err != nil {
			return nil, err
		}
	}
	return m.db.ListSavedScenarios(ctx, watchlistID)
}

// History returns the version history of a saved scenario, oldest first.
func (m *Memory) History(ctx context.Context, id string) ([]scenario.PromptVersion, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Versions, nil
}

// resolveWatchlist returns the explicit id if it exists, otherwise the
// default target.
func (m *Memory) resolveWatchlist(ctx context.Context, explicit string, preferPersonal bool) (string, error) {
	ws, err := m.db.Watchlists(ctx)
	if err != nil {
		return "", err
	}
	if len(ws) == 0 {
		return "", fmt.Errorf("%w: no watchlists configured", scenario.ErrUnknownWatchlist)
	}

	if explicit != "" {
		for _, w := range ws {
			if w.ID == explicit {
				return w.ID, nil
			}
		}
		return "", fmt.Errorf("%w: %s", scenario.ErrUnknownWatchlist, explicit)
	}

	if preferPersonal {
		for _, w := range ws {
			if w.Type == scenario.WatchlistPersonal {
				return w.ID, nil
			}
		}
	}
	return ws[0].ID, nil
}

func (m *Memory) versionID(n int) string {
	return fmt.Sprintf("v%d-%s", n, m.newID())
}
