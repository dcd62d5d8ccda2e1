package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/netguy47/Scenario-Atlas/internal/curation"
	"github.com/netguy47/Scenario-Atlas/internal/database"
	"github.com/netguy47/Scenario-Atlas/internal/generate"
	"github.com/netguy47/Scenario-Atlas/internal/memory"
	"github.com/netguy47/Scenario-Atlas/internal/mutate"
	"github.com/netguy47/Scenario-Atlas/internal/pipeline"
	"github.com/netguy47/Scenario-Atlas/internal/scenario"
	"github.com/netguy47/Scenario-Atlas/internal/session"
)

type mockProvider struct {
	response string
}

func (m *mockProvider) Generate(_ context.Context, _ string, _ int) (string, error) {
	return m.response, nil
}

func (m *mockProvider) IsConfigured() bool { return true }

type blockingGenerator struct{ started chan struct{} }

func (b *blockingGenerator) Generate(ctx context.Context, _ generate.Request) ([]scenario.RawScenarioEntry, error) {
	close(b.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

type fixture struct {
	srv   *Server
	store *session.Store
	db    *database.DB
}

func newFixture(t *testing.T, provider *mockProvider) *fixture {
	t.Helper()
	return newFixtureWithGenerator(t, provider, nil)
}

func newFixtureWithGenerator(t *testing.T, provider *mockProvider, gen pipeline.Generator) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mem := memory.New(db, memory.DefaultDriftPolicy(), logger)
	require.NoError(t, mem.SeedWatchlists(context.Background(), []scenario.Watchlist{
		{ID: "w1", Name: "Geopolitical Risks", Type: scenario.WatchlistActive},
		{ID: "w3", Name: "Startup Ideas", Type: scenario.WatchlistPersonal, Subtype: scenario.SubtypeDraft},
	}))

	store := session.New(logger)
	engine := curation.New(curation.Options{}, logger)
	d := Deps{
		Store:    store,
		Pipeline: pipeline.New(store, gen, engine, db, 1, logger),
		Memory:   mem,
		Logger:   logger,
	}
	if provider != nil {
		d.Mutator = mutate.New(provider, mem, logger)
	}
	srv := New(d)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, store: store, db: db}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func raw(id, actor string) scenario.RawScenarioEntry {
	return scenario.RawScenarioEntry{
		ScenarioID:        id,
		Title:             "Scenario " + id,
		Category:          scenario.CategoryGeopolitics,
		CanonicalQuestion: fmt.Sprintf("How might %s evolve regarding border security under sanctions, and what scenarios are plausible?", actor),
		SystemActor:       actor,
		IssueFocus:        "border security",
		TimeHorizon:       scenario.TimeHorizon{scenario.Horizon3Year},
		Domain:            scenario.DomainSecurity,
		Geography:         "Europe",
	}
}

func TestIndexRoute(t *testing.T) {
	f := newFixture(t, nil)
	f.store.Append([]scenario.RawScenarioEntry{raw("geo-1", "Baltic states")})

	rec := f.do(t, "GET", "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Scenario Atlas")
	assert.Contains(t, body, "Scenario geo-1")
	assert.Contains(t, body, "Geopolitical Risks")

	rec = f.do(t, "GET", "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScenariosRoute(t *testing.T) {
	f := newFixture(t, nil)
	f.store.Append([]scenario.RawScenarioEntry{raw("geo-1", "Baltic states"), raw("geo-2", "Arctic states")})

	rec := f.do(t, "GET", "/api/scenarios", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[scenariosResponse](t, rec)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 0, got.Curated)
	assert.Equal(t, uint64(1), got.Revision)
	require.Len(t, got.Scenarios, 2)
	assert.Equal(t, "geo-2", got.Scenarios[1].ID())
}

func TestCurateRoute(t *testing.T) {
	f := newFixture(t, nil)
	f.store.Append([]scenario.RawScenarioEntry{raw("geo-1", "Baltic states"), raw("geo-1b", "Baltic states")})

	rec := f.do(t, "POST", "/api/curate", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Curated 2 entries into 1")

	current := f.store.Current()
	require.Len(t, current, 1)
	assert.True(t, current[0].IsCurated())

	persisted, _, err := f.db.SessionEntries(context.Background())
	require.NoError(t, err)
	assert.Len(t, persisted, 1)
}

func TestGenerateWithoutProvider(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, "POST", "/api/generate", `{"subjects": ["Bitcoin"]}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPromoteAndHistory(t *testing.T) {
	f := newFixture(t, nil)
	f.store.Append([]scenario.RawScenarioEntry{raw("geo-1", "Baltic states")})

	rec := f.do(t, "POST", "/api/saved", `{"scenarioId": "geo-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	saved := decode[scenario.SavedScenario](t, rec)
	assert.Equal(t, "w1", saved.WatchlistID)
	assert.Equal(t, scenario.DriftNew, saved.DriftStatus)
	assert.Equal(t, 0, saved.RunCount)
	require.Len(t, saved.Versions, 1)
	assert.Equal(t, scenario.VersionCanonical, saved.Versions[0].Type)

	rec = f.do(t, "POST", "/api/saved/"+saved.ID+"/versions",
		`{"text": "How might Baltic states evolve regarding border security under a prolonged blockade, and what scenarios are plausible?", "changes": ["lengthen horizon"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	updated := decode[scenario.SavedScenario](t, rec)
	assert.Len(t, updated.Versions, 2)
	assert.Equal(t, scenario.VersionManual, updated.Latest().Type)
	assert.Equal(t, scenario.DriftWideningUncertainty, updated.DriftStatus)

	rec = f.do(t, "GET", "/api/saved/"+saved.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[scenario.SavedScenario](t, rec).Versions, 2)

	rec = f.do(t, "GET", "/api/saved/"+saved.ID+"/versions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]scenario.PromptVersion](t, rec)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].VersionNumber)
	assert.Equal(t, []string{"lengthen horizon"}, history[1].Changes)

	rec = f.do(t, "GET", "/api/saved/missing/versions", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, "GET", "/api/saved?watchlist=w1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]scenario.SavedScenario](t, rec), 1)

	rec = f.do(t, "GET", "/api/saved?watchlist=w3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestPromoteErrors(t *testing.T) {
	f := newFixture(t, nil)
	f.store.Append([]scenario.RawScenarioEntry{raw("geo-1", "Baltic states")})

	tests := []struct {
		name string
		body string
		code int
	}{
		{"unknown scenario", `{"scenarioId": "nope"}`, http.StatusNotFound},
		{"unknown watchlist", `{"scenarioId": "geo-1", "watchlistId": "w9"}`, http.StatusNotFound},
		{"bad body", `{"scenarioId": `, http.StatusBadRequest},
		{"unknown field", `{"scenarioId": "geo-1", "colour": "red"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, "POST", "/api/saved", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestManualRoute(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, "POST", "/api/saved/manual",
		`{"title": "T", "category": "Sports", "domain": "mixed", "timeHorizon": ["1-year"], "text": "How might the club evolve?"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	saved := decode[scenario.SavedScenario](t, rec)
	assert.Equal(t, "w3", saved.WatchlistID)
	assert.Equal(t, scenario.CategorySports, saved.Category)
	assert.Equal(t, scenario.VersionManual, saved.Versions[0].Type)

	rec = f.do(t, "POST", "/api/saved/manual", `{"title": "T", "text": "x", "timeHorizon": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, "POST", "/api/saved/manual", `{"title": "T", "timeHorizon": ["1-year"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMutateRoute(t *testing.T) {
	provider := &mockProvider{response: `{"rewrittenPrompt": "How might Baltic states evolve regarding border security under a sudden regional war, and what scenarios are plausible?", "changeSummary": "added a shock"}`}
	f := newFixture(t, provider)
	f.store.Append([]scenario.RawScenarioEntry{raw("geo-1", "Baltic states")})

	rec := f.do(t, "POST", "/api/saved", `{"scenarioId": "geo-1", "watchlistId": "w1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	saved := decode[scenario.SavedScenario](t, rec)

	rec = f.do(t, "POST", "/api/saved/"+saved.ID+"/mutate", `{"driftVector": "Introduce a Black Swan event"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	updated := decode[scenario.SavedScenario](t, rec)
	assert.Equal(t, scenario.VersionEnhanced, updated.Latest().Type)

	provider.response = `{"rewrittenPrompt": "Borders will close."}`
	rec = f.do(t, "POST", "/api/saved/"+saved.ID+"/mutate", `{"driftVector": "Make it more pessimistic"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, "POST", "/api/saved/missing/mutate", `{"driftVector": "x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMutateWithoutProvider(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, "POST", "/api/saved/x/mutate", `{"driftVector": "x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWatchlistsRoute(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, "GET", "/api/watchlists", "")
	require.Equal(t, http.StatusOK, rec.Code)
	ws := decode[[]scenario.Watchlist](t, rec)
	require.Len(t, ws, 2)
	assert.Equal(t, "w1", ws[0].ID)
}

func waitForJob(t *testing.T, f *fixture) jobResponse {
	t.Helper()
	var got jobResponse
	require.Eventually(t, func() bool {
		rec := f.do(t, "GET", "/api/jobs/current", "")
		if rec.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			return false
		}
		return got.Status != JobRunning
	}, 5*time.Second, 10*time.Millisecond)
	return got
}

func TestCurateJob(t *testing.T) {
	f := newFixture(t, nil)
	f.store.Append([]scenario.RawScenarioEntry{raw("geo-1", "Baltic states"), raw("geo-2", "Arctic states")})

	rec := f.do(t, "GET", "/api/jobs/current", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, "POST", "/api/jobs", `{"curate": true}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	started := decode[jobResponse](t, rec)
	assert.NotEmpty(t, started.ID)
	assert.True(t, started.Curate)

	done := waitForJob(t, f)
	assert.Equal(t, started.ID, done.ID)
	assert.Equal(t, JobSucceeded, done.Status)
	require.NotEmpty(t, done.Steps)
	assert.Equal(t, "Curate", done.Steps[0].Name)
	assert.Empty(t, done.Error)

	rec = f.do(t, "POST", "/api/jobs", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobConflictAndCancel(t *testing.T) {
	gen := &blockingGenerator{started: make(chan struct{})}
	f := newFixtureWithGenerator(t, nil, gen)

	rec := f.do(t, "POST", "/api/jobs", `{"generate": true, "curate": true}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	<-gen.started

	rec = f.do(t, "POST", "/api/jobs", `{"curate": true}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, "GET", "/api/jobs/current", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, JobRunning, decode[jobResponse](t, rec).Status)

	rec = f.do(t, "DELETE", "/api/jobs/current", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cancelled := decode[jobResponse](t, rec)
	assert.Equal(t, JobCancelled, cancelled.Status)
	assert.Contains(t, cancelled.Error, "context canceled")

	rec = f.do(t, "POST", "/api/jobs", `{"curate": true}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, JobSucceeded, waitForJob(t, f).Status)
}

func TestCloseCancelsRunningJob(t *testing.T) {
	gen := &blockingGenerator{started: make(chan struct{})}
	f := newFixtureWithGenerator(t, nil, gen)

	rec := f.do(t, "POST", "/api/jobs", `{"generate": true}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	<-gen.started

	f.srv.Close()
	rec = f.do(t, "GET", "/api/jobs/current", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, JobCancelled, decode[jobResponse](t, rec).Status)

	rec = f.do(t, "POST", "/api/jobs", `{"curate": true}`)
	assert.Equal(t, 499, rec.Code)
}
