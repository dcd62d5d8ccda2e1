package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/netguy47/Scenario-Atlas/internal/database"
	"github.com/netguy47/Scenario-Atlas/internal/scenario"
)

var seed = []scenario.Watchlist{
	{ID: "w1", Name: "Geopolitical Risks", Type: scenario.WatchlistActive},
	{ID: "w2", Name: "Sports Teams (2026)", Type: scenario.WatchlistActive},
	{ID: "w3", Name: "Startup Ideas", Type: scenario.WatchlistPersonal, Subtype: scenario.SubtypeDraft},
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestMemory(t *testing.T) (*Memory, *clock) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := New(db, DefaultDriftPolicy(), zaptest.NewLogger(t))
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m.now = c.now
	n := 0
	m.newID = func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}
	return m, c
}

func libraryEntry() scenario.LibraryEntry {
	return scenario.LibraryEntry{
		ScenarioID:        "geo-arctic",
		Title:             "Arctic shipping",
		Category:          scenario.CategoryGeopolitics,
		CanonicalQuestion: "How might Arctic coastal states evolve regarding shipping access under retreating sea ice, and what scenarios are plausible?",
		SystemActor:       "Arctic coastal states",
		IssueFocus:        "shipping access",
		TimeHorizon:       scenario.TimeHorizon{scenario.Horizon3Year, scenario.Horizon5Year},
		Domain:            scenario.DomainMixed,
		Difficulty:        scenario.DifficultyAdvanced,
		Reusability:       scenario.ReusabilityHigh,
		IdealUseCases:     []scenario.UseCase{scenario.UseCaseMonitoring},
	}
}

func TestSeedWatchlistsIdempotent(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, m.SeedWatchlists(ctx, seed))
	require.NoError(t, m.SeedWatchlists(ctx, seed))

	ws, err := m.Watchlists(ctx)
	require.NoError(t, err)
	assert.Equal(t, seed, ws)
}

func TestSeedWatchlistsRejectsInvalid(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	bad := []scenario.Watchlist{{ID: "w1", Name: "Risks", Type: scenario.WatchlistActive, Subtype: scenario.SubtypeDraft}}
	assert.ErrorIs(t, m.SeedWatchlists(ctx, bad), scenario.ErrInvalidWatchlist)

	dup := []scenario.Watchlist{seed[0], seed[0]}
	assert.ErrorIs(t, m.SeedWatchlists(ctx, dup), scenario.ErrInvalidWatchlist)

	ws, err := m.Watchlists(ctx)
	require.NoError(t, err)
	assert.Empty(t, ws)
}

func TestPromoteDefaultsToFirstWatchlist(t *testing.T) {
	m, c := newTestMemory(t)
	ctx := context.Background()
	require.NoError(t, m.SeedWatchlists(ctx, seed))

	s, err := m.Promote(ctx, libraryEntry(), PromoteOptions{})
	require.NoError(t, err)

	assert.Equal(t, "save-id1", s.ID)
	assert.Equal(t, "w1", s.WatchlistID)
	assert.Equal(t, "geo-arctic", s.LibraryID)
	assert.Equal(t, scenario.DriftNew, s.DriftStatus)
	assert.Equal(t, 0, s.RunCount)
	assert.Nil(t, s.LastRunDate)
	require.Len(t, s.Versions, 1)

	v := s.Versions[0]
	assert.Equal(t, 1, v.VersionNumber)
	assert.Equal(t, scenario.VersionCanonical, v.Type)
	assert.Equal(t, libraryEntry().CanonicalQuestion, v.Text)
	assert.Equal(t, "Imported from Library", v.Notes)
	assert.True(t, c.t.Equal(v.Created))

	stored, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Title, stored.Title)
	assert.Len(t, stored.Versions, 1)
}

func TestPromoteRawEntryToExplicitWatchlist(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()
	require.NoError(t, m.SeedWatchlists(ctx, seed))

	raw := scenario.RawScenarioEntry{
		ScenarioID:        "nba-1",
		Title:             "Lakers",
		Category:          scenario.CategorySports,
		CanonicalQuestion: "How might the Lakers evolve?",
		TimeHorizon:       scenario.TimeHorizon{scenario.Horizon1Year},
		Domain:            scenario.DomainMixed,
	}
	s, err := m.Promote(ctx, raw, PromoteOptions{WatchlistID: "w2"})
	require.NoError(t, err)
	assert.Equal(t, "w2", s.WatchlistID)
	assert.Equal(t, "nba-1", s.LibraryID)
}

func TestPromoteUnknownWatchlist(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	_, err := m.Promote(ctx, libraryEntry(), PromoteOptions{})
	assert.ErrorIs(t, err, scenario.ErrUnknownWatchlist, "no watchlists at all")

	require.NoError(t, m.SeedWatchlists(ctx, seed))
	_, err = m.Promote(ctx, libraryEntry(), PromoteOptions{WatchlistID: "w9"})
	assert.ErrorIs(t, err, scenario.ErrUnknownWatchlist)

	saved, err := m.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestCreateManualTargets(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()
	require.NoError(t, m.SeedWatchlists(ctx, seed))

	in := ManualInput{
		Title:       "My idea",
		Text:        "What if remote work reverses?",
		Category:    "business",
		Domain:      "economic",
		TimeHorizon: scenario.TimeHorizon{scenario.Horizon3Year},
	}

	s, err := m.CreateManual(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "custom-id1", s.ID)
	assert.Equal(t, "w3", s.WatchlistID, "first personal watchlist")
	assert.Equal(t, scenario.CategoryBusiness, s.Category)
	assert.Equal(t, scenario.DomainEconomic, s.Domain)
	assert.Equal(t, scenario.VersionManual, s.Versions[0].Type)
	assert.Equal(t, "Initial Manual Draft", s.Versions[0].Notes)
	assert.Equal(t, "What if remote work reverses?", s.Versions[0].Text)

	in.WatchlistID = "w2"
	s, err = m.CreateManual(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "w2", s.WatchlistID)

	in.WatchlistID = "w9"
	_, err = m.CreateManual(ctx, in)
	assert.ErrorIs(t, err, scenario.ErrUnknownWatchlist)
}

func TestCreateManualFallsBackToFirstWatchlist(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()
	require.NoError(t, m.SeedWatchlists(ctx, seed[:2]))

	s, err := m.CreateManual(ctx, ManualInput{
		Title: "Idea", Text: "Free text", TimeHorizon: scenario.TimeHorizon{scenario.HorizonIrrelevant},
	})
	require.NoError(t, err)
	assert.Equal(t, "w1", s.WatchlistID)
}

func TestCreateManualValidation(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()
	require.NoError(t, m.SeedWatchlists(ctx, seed))

	_, err := m.CreateManual(ctx, ManualInput{Title: "Idea", Text: "  ", TimeHorizon: scenario.TimeHorizon{scenario.Horizon1Year}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = m.CreateManual(ctx, ManualInput{Title: "Idea", Text: "Text"})
	assert.ErrorIs(t, err, scenario.ErrEmptyTimeHorizon)
}

func TestAddVersion(t *testing.T) {
	m, c := newTestMemory(t)
	ctx := context.Background()
	require.NoError(t, m.SeedWatchlists(ctx, seed))

	s, err := m.Promote(ctx, libraryEntry(), PromoteOptions{})
	require.NoError(t, err)

	c.t = c.t.Add(time.Hour)
	updated, err := m.AddVersion(ctx, s.ID, VersionInput{
		Text:    "How might Arctic coastal states evolve regarding shipping access under retreating sea ice, and what scenarios are plausible?",
		Type:    scenario.VersionManual,
		Changes: []string{"Re-run"},
	})
	require.NoError(t, err)

	require.Len(t, updated.Versions, 2)
	assert.Equal(t, 2, updated.Latest().VersionNumber)
	assert.Equal(t, 1, updated.RunCount)
	require.NotNil(t, updated.LastRunDate)
	assert.True(t, c.t.Equal(*updated.LastRunDate))
	assert.Equal(t, scenario.DriftStable, updated.DriftStatus)

	c.t = c.t.Add(time.Hour)
	updated, err = m.AddVersion(ctx, s.ID, VersionInput{
		Text:    "How might Arctic coastal states evolve regarding shipping access under a black swan event, and what scenarios are plausible?",
		Type:    scenario.VersionEnhanced,
		Changes: []string{"Introduce a Black Swan event", "Replaced sea-ice constraint"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Latest().VersionNumber)
	assert.Equal(t, 2, updated.RunCount)
	assert.Equal(t, scenario.DriftWideningUncertainty, updated.DriftStatus)

	history, err := m.History(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, v := range history {
		assert.Equal(t, i+1, v.VersionNumber)
	}
	assert.Equal(t, libraryEntry().CanonicalQuestion, history[0].Text, "earlier versions are immutable")
}

func TestAddVersionKeepsLastRunDateMonotonic(t *testing.T) {
	m, c := newTestMemory(t)
	ctx := context.Background()
	require.NoError(t, m.SeedWatchlists(ctx, seed))
	s, err := m.Promote(ctx, libraryEntry(), PromoteOptions{})
	require.NoError(t, err)

	first := c.t
	_, err = m.AddVersion(ctx, s.ID, VersionInput{Text: "How might X evolve?", Type: scenario.VersionManual})
	require.NoError(t, err)

	c.t = first.Add(-24 * time.Hour)
	updated, err := m.AddVersion(ctx, s.ID, VersionInput{Text: "How might X evolve?", Type: scenario.VersionManual})
	require.NoError(t, err)
	assert.True(t, first.Equal(*updated.LastRunDate))
}

func TestAddVersionErrors(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()
	require.NoError(t, m.SeedWatchlists(ctx, seed))

	_, err := m.AddVersion(ctx, "missing", VersionInput{Text: "How might X evolve?", Type: scenario.VersionManual})
	assert.ErrorIs(t, err, scenario.ErrUnknownScenario)

	s, err := m.Promote(ctx, libraryEntry(), PromoteOptions{})
	require.NoError(t, err)
	_, err = m.AddVersion(ctx, s.ID, VersionInput{Text: "How might X evolve?", Type: "Automatic"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = m.AddVersion(ctx, s.ID, VersionInput{Type: scenario.VersionManual})
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, got.Versions, 1)
}

func TestListByWatchlist(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()
	require.NoError(t, m.SeedWatchlists(ctx, seed))

	_, err := m.Promote(ctx, libraryEntry(), PromoteOptions{})
	require.NoError(t, err)
	_, err = m.Promote(ctx, libraryEntry(), PromoteOptions{WatchlistID: "w2"})
	require.NoError(t, err)

	w2, err := m.List(ctx, "w2")
	require.NoError(t, err)
	require.Len(t, w2, 1)
	assert.Equal(t, "w2", w2[0].WatchlistID)

	all, err := m.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = m.List(ctx, "w9")
	assert.ErrorIs(t, err, scenario.ErrUnknownWatchlist)

	_, err = m.Get(ctx, "nope")
	assert.ErrorIs(t, err, scenario.ErrUnknownScenario)
}
