package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netguy47/Scenario-Atlas/internal/scenario"
)

func fixture() Document {
	run := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return Document{
		Title:     "Scenario Atlas",
		Generated: time.Date(2026, 3, 3, 10, 30, 0, 0, time.UTC),
		Entries: []scenario.Entry{
			scenario.FromLibrary(scenario.LibraryEntry{
				ScenarioID:        "eco-opec",
				Title:             "OPEC+ output policy",
				Category:          scenario.CategoryEconomics,
				CanonicalQuestion: "How might OPEC+ evolve regarding output quotas under global conditions over a 1-year horizon, and what scenarios are plausible?",
				SystemActor:       "OPEC+",
				IssueFocus:        "output quotas",
				TimeHorizon:       scenario.TimeHorizon{scenario.Horizon1Year},
				Domain:            scenario.DomainEconomic,
				Geography:         "Global",
				Difficulty:        scenario.DifficultyIntermediate,
				Reusability:       scenario.ReusabilityHigh,
				IdealUseCases:     []scenario.UseCase{scenario.UseCaseMonitoring},
				Tags:              []string{"energy"},
			}),
			scenario.FromRaw(scenario.RawScenarioEntry{
				ScenarioID:        "geo-arctic",
				Title:             "Arctic shipping",
				Category:          scenario.CategoryGeopolitics,
				CanonicalQuestion: "How might Arctic states evolve regarding shipping access?",
				TimeHorizon:       scenario.TimeHorizon{scenario.Horizon5Year},
			}),
		},
		Watchlists: []scenario.Watchlist{
			{ID: "w1", Name: "Geopolitical Risks", Type: scenario.WatchlistActive},
			{ID: "w3", Name: "Startup Ideas", Type: scenario.WatchlistPersonal, Subtype: scenario.SubtypeDraft},
		},
		Saved: []scenario.SavedScenario{{
			ID:          "save-1",
			WatchlistID: "w1",
			Title:       "Arctic shipping",
			DriftStatus: scenario.DriftGradualShift,
			RunCount:    1,
			LastRunDate: &run,
			Versions: []scenario.PromptVersion{
				{VersionNumber: 1, Type: scenario.VersionCanonical, Text: "How might Arctic states evolve?"},
				{VersionNumber: 2, Type: scenario.VersionEnhanced, Text: "How might Arctic states evolve under sanctions?", Changes: []string{"Add sanctions"}},
			},
		}},
	}
}

func TestMarkdown(t *testing.T) {
	out := Markdown(fixture())

	assert.True(t, strings.HasPrefix(out, "# Scenario Atlas\n\n*Generated 2026-03-03 10:30 UTC*"))
	assert.Contains(t, out, "2 scenarios, 1 curated.")
	// Canonical category order: Geopolitics before Economics.
	assert.Less(t, strings.Index(out, "### Geopolitics & International Relations"), strings.Index(out, "### Economics & Markets"))
	assert.Contains(t, out, "- **Use cases:** Monitoring/Watchlists")
	assert.Contains(t, out, "### Geopolitical Risks (active)")
	assert.Contains(t, out, "### Startup Ideas (personal/draft)")
	assert.Contains(t, out, "*No saved scenarios.*")
	assert.Contains(t, out, "- v2 (Enhanced): How might Arctic states evolve under sanctions? *[Add sanctions]*")
	assert.Contains(t, out, "**Last run:** 2026-03-02")
}

func TestMarkdownOmitsEmptySections(t *testing.T) {
	out := Markdown(Document{Title: "Empty"})
	assert.Equal(t, "# Empty\n", out)
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, fixture()))

	var got struct {
		Stats struct {
			Total      int            `json:"total"`
			Curated    int            `json:"curated"`
			ByCategory map[string]int `json:"byCategory"`
		} `json:"stats"`
		Scenarios []map[string]any `json:"scenarios"`
		Saved     []scenario.SavedScenario
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 2, got.Stats.Total)
	assert.Equal(t, 1, got.Stats.Curated)
	assert.Equal(t, 1, got.Stats.ByCategory[string(scenario.CategoryEconomics)])
	require.Len(t, got.Scenarios, 2)
	assert.Equal(t, "eco-opec", got.Scenarios[0]["scenarioId"])
	assert.Equal(t, "Intermediate", got.Scenarios[0]["difficulty"])
	assert.NotContains(t, got.Scenarios[1], "difficulty")
	require.Len(t, got.Saved, 1)
	assert.Len(t, got.Saved[0].Versions, 2)
}

func TestHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatHTML, fixture()))
	out := buf.String()

	assert.Contains(t, out, "<title>Scenario Atlas</title>")
	assert.Contains(t, out, "<h1>Scenario Atlas</h1>")
	assert.Contains(t, out, "<blockquote>")
	assert.Contains(t, out, "<code>eco-opec</code>")
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"json": FormatJSON, ".md": FormatMarkdown, "Markdown": FormatMarkdown, "htm": FormatHTML}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)

	assert.Equal(t, ".md", FormatMarkdown.Ext())
	assert.Equal(t, ".html", FormatHTML.Ext())
}
