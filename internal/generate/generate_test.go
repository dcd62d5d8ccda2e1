package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/netguy47/Scenario-Atlas/internal/database"
	"github.com/netguy47/Scenario-Atlas/internal/scenario"
)

type mockProvider struct {
	response string
	err      error
	prompts  []string
}

func (m *mockProvider) Generate(_ context.Context, prompt string, _ int) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func batch(t *testing.T, n int, tags ...string) string {
	t.Helper()
	entries := make([]scenario.RawScenarioEntry, n)
	for i := range entries {
		entries[i] = scenario.RawScenarioEntry{
			ScenarioID:        fmt.Sprintf("gen-%02d", i),
			Title:             fmt.Sprintf("Scenario %d", i),
			Category:          scenario.Categories[i%len(scenario.Categories)],
			CanonicalQuestion: fmt.Sprintf("How might actor %d evolve regarding issue %d under current conditions, and what scenarios are plausible?", i, i),
			SystemActor:       fmt.Sprintf("actor %d", i),
			IssueFocus:        fmt.Sprintf("issue %d", i),
			TimeHorizon:       scenario.TimeHorizon{scenario.Horizon1Year},
			Domain:            scenario.DomainMixed,
			Geography:         "Global",
			Tags:              tags,
		}
	}
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	return string(data)
}

func TestGenerateRotation(t *testing.T) {
	db := openTestDB(t)
	mock := &mockProvider{response: "```json\n" + batch(t, 10) + "\n```"}
	g := New(mock, db, Options{}, zaptest.NewLogger(t))

	entries, err := g.Generate(context.Background(), Request{Rotation: 7})
	require.NoError(t, err)
	assert.Len(t, entries, 10)

	require.Len(t, mock.prompts, 1)
	prompt := mock.prompts[0]
	assert.Contains(t, prompt, "10 to 12 entries")
	// Rotation 7 starts at Sports and wraps around to History.
	assert.Less(t, strings.Index(prompt, "- Sports"), strings.Index(prompt, "- History & Counterfactuals"))

	runs, err := db.RecentGenerationRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 10, runs[0].EntryCount)
	assert.Empty(t, runs[0].Error)
}

func TestGenerateSubjectAddsTag(t *testing.T) {
	mock := &mockProvider{response: batch(t, 8, "crypto")}
	g := New(mock, nil, Options{}, zaptest.NewLogger(t))

	entries, err := g.Generate(context.Background(), Request{Subject: " Bitcoin "})
	require.NoError(t, err)
	require.Len(t, entries, 8)
	for _, e := range entries {
		assert.Equal(t, []string{"Bitcoin", "crypto"}, e.Tags)
	}
	assert.Contains(t, mock.prompts[0], `"Bitcoin"`)
	assert.Contains(t, mock.prompts[0], "8 to 10 entries")
}

func TestGenerateOddBatchSizeIsKept(t *testing.T) {
	g := New(&mockProvider{response: batch(t, 3)}, nil, Options{}, zaptest.NewLogger(t))
	entries, err := g.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestGenerateRejectsMalformedBatch(t *testing.T) {
	db := openTestDB(t)
	bad := `[{"scenarioId":"x","title":"X","canonicalQuestion":"X will surely happen","timeHorizon":["1-year"]}]`
	g := New(&mockProvider{response: bad}, db, Options{}, zaptest.NewLogger(t))

	entries, err := g.Generate(context.Background(), Request{})
	assert.Nil(t, entries)
	assert.ErrorIs(t, err, scenario.ErrMalformedGenerationOutput)
	assert.ErrorIs(t, err, scenario.ErrInvalidFormat)

	runs, err := db.RecentGenerationRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.NotEmpty(t, runs[0].Error)
}

func TestGenerateTransportError(t *testing.T) {
	boom := errors.New("connection refused")
	g := New(&mockProvider{err: boom}, nil, Options{}, zaptest.NewLogger(t))
	_, err := g.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, boom)
}

func TestGenerateWithoutProvider(t *testing.T) {
	g := New(nil, nil, Options{}, nil)
	_, err := g.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestRotate(t *testing.T) {
	assert.Equal(t, scenario.Categories, rotate(0))
	assert.Equal(t, scenario.Categories, rotate(len(scenario.Categories)))
	assert.Equal(t, scenario.CategorySecurity, rotate(-1)[0])
	assert.Len(t, rotate(3), len(scenario.Categories))
}
