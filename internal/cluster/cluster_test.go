package cluster

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// mockEmbedder implements llm.Embedder for testing.
type mockEmbedder struct {
	embeddings [][]float64
	err        error
}

func (m *mockEmbedder) Embed(_ context.Context, _ []string) ([][]float64, error) {
	return m.embeddings, m.err
}

func TestTokensDropsTemplateWords(t *testing.T) {
	got := Tokens("How might OPEC+ evolve regarding oil supply quotas under sanctions, and what scenarios are plausible?")
	assert.Equal(t, []string{"opec", "oil", "supply", "quota", "sanction"}, got)
}

func TestGroupLexicalDuplicates(t *testing.T) {
	texts := []string{
		"How might OPEC evolve regarding oil supply quotas under sanctions pressure, and what scenarios are plausible?",
		"How might the European Central Bank evolve regarding interest rates under persistent inflation, and what scenarios are plausible?",
		"How might OPEC evolve regarding oil supply quotas under sanction pressure, and what scenarios are plausible?",
		"How might NATO evolve regarding Arctic deployments under melting sea ice, and what scenarios are plausible?",
	}

	groups, err := NewGrouper(nil, DefaultDistanceThreshold, zaptest.NewLogger(t)).Group(context.Background(), texts)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 2}, {1}, {3}}, groups)
}

func TestGroupDistinctTextsStaySeparate(t *testing.T) {
	texts := []string{
		"Lakers roster depth",
		"Semiconductor export controls",
		"Monsoon rainfall variability",
	}
	groups, err := NewGrouper(nil, 0, nil).Group(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, groups, 3)
}

func TestGroupEmptyTextsDoNotMerge(t *testing.T) {
	groups, err := NewGrouper(nil, 0, nil).Group(context.Background(), []string{"the of", "and how"})
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0}, {1}}, groups)
}

func TestGroupSmallInputs(t *testing.T) {
	g := NewGrouper(nil, 0, nil)
	groups, err := g.Group(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, groups)

	groups, err = g.Group(context.Background(), []string{"only"})
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0}}, groups)
}

func TestGroupWithEmbedder(t *testing.T) {
	emb := &mockEmbedder{embeddings: [][]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0.98, 0.05, 0},
	}}
	groups, err := NewGrouper(emb, 0, nil).Group(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 2}, {1}}, groups)
}

func TestGroupEmbedderFailureFallsBack(t *testing.T) {
	emb := &mockEmbedder{err: errors.New("connection refused")}
	groups, err := NewGrouper(emb, 0, zaptest.NewLogger(t)).Group(context.Background(),
		[]string{"oil supply quotas", "oil supply quota", "rainfall"})
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1}, {2}}, groups)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "oil opec quota", Label([]string{"OPEC oil quotas", "oil quota cuts by OPEC"}))
	assert.Equal(t, "", Label([]string{"the and"}))
}
