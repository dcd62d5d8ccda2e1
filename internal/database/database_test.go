package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/netguy47/Scenario-Atlas/internal/scenario"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if db.Path() != path {
		t.Fatalf("Path() = %q, want %q", db.Path(), path)
	}
	return db
}

var testWatchlists = []scenario.Watchlist{
	{ID: "w1", Name: "Geopolitical Risks", Type: scenario.WatchlistActive},
	{ID: "w3", Name: "Startup Ideas", Type: scenario.WatchlistPersonal, Subtype: scenario.SubtypeDraft},
}

func rawEntry(id string) scenario.RawScenarioEntry {
	return scenario.RawScenarioEntry{
		ScenarioID:        id,
		Title:             "Title " + id,
		Category:          scenario.CategoryEconomics,
		CanonicalQuestion: "How might central banks evolve regarding rates under inflation, and what scenarios are plausible?",
		SystemActor:       "central banks",
		IssueFocus:        "rates",
		TimeHorizon:       scenario.TimeHorizon{scenario.Horizon1Year},
		Domain:            scenario.DomainEconomic,
		Geography:         "Global",
		Tags:              []string{"rates"},
	}
}

func TestSessionEntriesRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	entries, rev, err := db.SessionEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, uint64(0), rev)

	lib := rawEntry("b").PromotionFields()
	want := []scenario.Entry{
		scenario.FromRaw(rawEntry("a")),
		scenario.FromLibrary(scenario.LibraryEntry{
			ScenarioID:        lib.ScenarioID,
			Title:             lib.Title,
			Category:          lib.Category,
			CanonicalQuestion: lib.CanonicalQuestion,
			TimeHorizon:       lib.TimeHorizon,
			Domain:            lib.Domain,
			Difficulty:        scenario.DifficultyIntermediate,
			Reusability:       scenario.ReusabilityHigh,
			IdealUseCases:     []scenario.UseCase{scenario.UseCaseMonitoring},
		}),
	}
	require.NoError(t, db.ReplaceSessionEntries(ctx, want, 7))

	got, rev, err := db.SessionEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), rev)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("session entries mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, db.ReplaceSessionEntries(ctx, want[1:], 8))
	got, _, err = db.SessionEntries(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsCurated())
}

func TestUpsertWatchlistsKeepsOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertWatchlists(ctx, testWatchlists))
	require.NoError(t, db.UpsertWatchlists(ctx, testWatchlists))

	ws, err := db.Watchlists(ctx)
	require.NoError(t, err)
	assert.Equal(t, testWatchlists, ws)
}

func savedFixture(id string) scenario.SavedScenario {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return scenario.SavedScenario{
		ID:          id,
		WatchlistID: "w1",
		LibraryID:   "econ-001",
		Title:       "Rates",
		Category:    scenario.CategoryEconomics,
		Domain:      scenario.DomainEconomic,
		TimeHorizon: scenario.TimeHorizon{scenario.Horizon1Year, scenario.Horizon3Year},
		DriftStatus: scenario.DriftNew,
		Versions: []scenario.PromptVersion{{
			ID:            "v-" + id,
			VersionNumber: 1,
			Type:          scenario.VersionCanonical,
			Text:          "How might central banks evolve?",
			Created:       created,
			Notes:         "Imported from Library",
		}},
	}
}

func TestSavedScenarioRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertWatchlists(ctx, testWatchlists))

	want := savedFixture("save-1")
	require.NoError(t, db.InsertSavedScenario(ctx, want))

	got, err := db.GetSavedScenario(ctx, "save-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("saved scenario mismatch (-want +got):\n%s", diff)
	}

	missing, err := db.GetSavedScenario(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInsertSavedScenarioUnknownWatchlist(t *testing.T) {
	db := openTestDB(t)
	s := savedFixture("save-1")
	s.WatchlistID = "w9"
	assert.Error(t, db.InsertSavedScenario(context.Background(), s))
}

func TestUpdateSavedScenarioAppendsVersion(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertWatchlists(ctx, testWatchlists))
	require.NoError(t, db.InsertSavedScenario(ctx, savedFixture("save-1")))

	run := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	updated, err := db.UpdateSavedScenario(ctx, "save-1", func(s *scenario.SavedScenario) error {
		s.Versions = append(s.Versions, scenario.PromptVersion{
			ID: "v2", VersionNumber: 2, Type: scenario.VersionEnhanced,
			Text: "How might central banks evolve over five years?", Created: run,
			Changes: []string{"Extend horizon", "Longer view"},
		})
		s.RunCount++
		s.LastRunDate = &run
		s.DriftStatus = scenario.DriftWideningUncertainty
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, updated.Versions, 2)

	got, err := db.GetSavedScenario(ctx, "save-1")
	require.NoError(t, err)
	require.Len(t, got.Versions, 2)
	assert.Equal(t, []string{"Extend horizon", "Longer view"}, got.Versions[1].Changes)
	assert.Equal(t, 1, got.RunCount)
	assert.True(t, run.Equal(*got.LastRunDate))
	assert.Equal(t, scenario.DriftWideningUncertainty, got.DriftStatus)
}

func TestUpdateSavedScenarioRollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertWatchlists(ctx, testWatchlists))
	require.NoError(t, db.InsertSavedScenario(ctx, savedFixture("save-1")))

	boom := errors.New("boom")
	_, err := db.UpdateSavedScenario(ctx, "save-1", func(s *scenario.SavedScenario) error {
		s.RunCount = 42
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := db.GetSavedScenario(ctx, "save-1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.RunCount)

	_, err = db.UpdateSavedScenario(ctx, "missing", func(*scenario.SavedScenario) error { return nil })
	assert.ErrorIs(t, err, scenario.ErrUnknownScenario)
}

func TestSavedScenarioRejectsBrokenHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertWatchlists(ctx, testWatchlists))
	require.NoError(t, db.InsertSavedScenario(ctx, savedFixture("save-1")))

	_, err := db.conn.ExecContext(ctx, "UPDATE prompt_versions SET version_number = 3 WHERE saved_id = ?", "save-1")
	require.NoError(t, err)

	_, err = db.GetSavedScenario(ctx, "save-1")
	assert.ErrorContains(t, err, "has number 3")
	_, err = db.ListSavedScenarios(ctx, "")
	assert.ErrorContains(t, err, "has number 3")
	_, err = db.UpdateSavedScenario(ctx, "save-1", func(*scenario.SavedScenario) error { return nil })
	assert.Error(t, err)

	_, err = db.conn.ExecContext(ctx, "DELETE FROM prompt_versions WHERE saved_id = ?", "save-1")
	require.NoError(t, err)
	_, err = db.GetSavedScenario(ctx, "save-1")
	assert.ErrorContains(t, err, "has no versions")
}

func TestSavedScenarioRejectsGappedVersions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertWatchlists(ctx, testWatchlists))

	s := savedFixture("save-1")
	s.Versions = nil
	assert.Error(t, db.InsertSavedScenario(ctx, s))

	require.NoError(t, db.InsertSavedScenario(ctx, savedFixture("save-1")))
	_, err := db.UpdateSavedScenario(ctx, "save-1", func(s *scenario.SavedScenario) error {
		s.Versions = append(s.Versions, scenario.PromptVersion{
			ID: "v5", VersionNumber: 5, Type: scenario.VersionManual, Text: "x", Created: time.Now(),
		})
		return nil
	})
	assert.ErrorContains(t, err, "has number 5")

	got, err := db.GetSavedScenario(ctx, "save-1")
	require.NoError(t, err)
	assert.Len(t, got.Versions, 1)
}

func TestListSavedScenarios(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertWatchlists(ctx, testWatchlists))

	a := savedFixture("save-a")
	b := savedFixture("save-b")
	b.WatchlistID = "w3"
	require.NoError(t, db.InsertSavedScenario(ctx, a))
	require.NoError(t, db.InsertSavedScenario(ctx, b))

	all, err := db.ListSavedScenarios(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "save-a", all[0].ID)
	assert.Len(t, all[1].Versions, 1)

	w3, err := db.ListSavedScenarios(ctx, "w3")
	require.NoError(t, err)
	require.Len(t, w3, 1)
	assert.Equal(t, "save-b", w3[0].ID)

	counts, err := db.CountSavedScenarios(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"w1": 1, "w3": 1}, counts)
}

func TestGenerationRuns(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := db.InsertGenerationRun(ctx, GenerationRun{EntryCount: 11, StartedAt: start, FinishedAt: start.Add(time.Second)})
	require.NoError(t, err)
	_, err = db.InsertGenerationRun(ctx, GenerationRun{Subject: "Lakers", Error: "malformed", StartedAt: start, FinishedAt: start})
	require.NoError(t, err)

	runs, err := db.RecentGenerationRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "Lakers", runs[0].Subject)
	assert.Equal(t, "malformed", runs[0].Error)
	assert.Equal(t, 11, runs[1].EntryCount)
}
