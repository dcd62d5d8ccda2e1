// Package mutate rewrites saved prompts along a drift vector and records the
// result as a new version.
package mutate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/netguy47/Scenario-Atlas/internal/llm"
	"github.com/netguy47/Scenario-Atlas/internal/memory"
	"github.com/netguy47/Scenario-Atlas/internal/scenario"
)

// ErrNoProvider is returned when no text-generation provider is available.
var ErrNoProvider = errors.New("no LLM provider available")

// ErrMalformedMutationOutput means the collaborator reply was not the
// expected JSON object.
var ErrMalformedMutationOutput = errors.New("malformed mutation output")

const maxTokens = 1024

const variationPrompt = `You mutate simulation prompts along a drift vector.

Original prompt: %q

Drift vector: %s
(for example "Make it more pessimistic", "Introduce a Black Swan event",
"Focus on technology failure", "Shorten time horizon")

Rewrite the prompt so it reflects the drift vector strictly. Keep the canonical
form, beginning with "How might [actor] evolve regarding [issue]...". Summarize
what changed in one short note.

Respond with ONLY this JSON:
{
    "rewrittenPrompt": "the rewritten prompt",
    "changeSummary": "what changed"
}`

// Rewrite is the collaborator's answer.
type Rewrite struct {
	RewrittenPrompt string `json:"rewrittenPrompt"`
	ChangeSummary   string `json:"changeSummary"`
}

// Store is the part of watchlist memory the mutator needs.
type Store interface {
	Get(ctx context.Context, id string) (*scenario.SavedScenario, error)
	AddVersion(ctx context.Context, id string, in memory.VersionInput) (*scenario.SavedScenario, error)
}

// Mutator applies drift vectors to saved scenarios.
type Mutator struct {
	provider llm.Provider
	store    Store
	logger   *zap.Logger
}

// New creates a mutator.
func New(provider llm.Provider, store Store, logger *zap.Logger) *Mutator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mutator{provider: provider, store: store, logger: logger}
}

// Rewrite asks the collaborator to rewrite original along driftVector. The
// rewritten prompt must pass scenario.ValidateCanonicalQuestion.
func (m *Mutator) Rewrite(ctx context.Context, original, driftVector string) (*Rewrite, error) {
	if m.provider == nil {
		return nil, ErrNoProvider
	}
	driftVector = strings.TrimSpace(driftVector)
	if driftVector == "" {
		return nil, fmt.Errorf("drift vector is required")
	}

	reply, err := m.provider.Generate(ctx, fmt.Sprintf(variationPrompt, original, driftVector), maxTokens)
	if err != nil {
		return nil, fmt.Errorf("mutation request: %w", err)
	}

	parsed, err := llm.ParseJSONResponse(reply)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMutationOutput, err)
	}
	rw := &Rewrite{
		RewrittenPrompt: strings.TrimSpace(llm.GetString(parsed, "rewrittenPrompt", "")),
		ChangeSummary:   strings.TrimSpace(llm.GetString(parsed, "changeSummary", "")),
	}
	if rw.RewrittenPrompt == "" {
		return nil, fmt.Errorf("%w: rewrittenPrompt is missing", ErrMalformedMutationOutput)
	}
	if err := scenario.ValidateCanonicalQuestion(rw.RewrittenPrompt); err != nil {
		return nil, err
	}
	return rw, nil
}

// Mutate rewrites the latest version of saved scenario id and appends the
// result as an Enhanced version. Nothing is written when the rewrite fails.
func (m *Mutator) Mutate(ctx context.Context, id, driftVector string) (*scenario.SavedScenario, error) {
	saved, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rw, err := m.Rewrite(ctx, saved.Latest().Text, driftVector)
	if err != nil {
		m.logger.Warn("mutation rejected", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	changes := []string{strings.TrimSpace(driftVector)}
	if rw.ChangeSummary != "" {
		changes = append(changes, rw.ChangeSummary)
	}
	updated, err := m.store.AddVersion(ctx, id, memory.VersionInput{
		Text:    rw.RewrittenPrompt,
		Type:    scenario.VersionEnhanced,
		Changes: changes,
		Notes:   rw.ChangeSummary,
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("mutated scenario",
		zap.String("id", id),
		zap.String("drift_vector", driftVector),
		zap.String("drift", string(updated.DriftStatus)))
	return updated, nil
}
