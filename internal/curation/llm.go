package curation

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/netguy47/Scenario-Atlas/internal/llm"
	"github.com/netguy47/Scenario-Atlas/internal/scenario"
)

const defaultMaxTokens = 8192

// LLMCurator delegates curation to a text-generation collaborator.
type LLMCurator struct {
	provider  llm.Provider
	maxTokens int
	logger    *zap.Logger
}

// NewLLMCurator creates a curator.
func NewLLMCurator(provider llm.Provider, maxTokens int, logger *zap.Logger) *LLMCurator {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMCurator{provider: provider, maxTokens: maxTokens, logger: logger}
}

// Curate sends entries to the collaborator and parses its reply. The reply
// must be exactly one JSON array of library records, optionally fenced;
// anything else wraps scenario.ErrMalformedCurationOutput.
func (c *LLMCurator) Curate(ctx context.Context, entries []scenario.Entry) ([]scenario.LibraryEntry, error) {
	payload := make([]any, len(entries))
	for i, e := range entries {
		if e.Library != nil {
			payload[i] = e.Library
		} else {
			payload[i] = e.Raw
		}
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding entries for curator: %w", err)
	}

	c.logger.Debug("sending batch to curator", zap.Int("entries", len(entries)))
	reply, err := c.provider.Generate(ctx, curationPrompt+string(data), c.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("curation request: %w", err)
	}

	curated, err := scenario.ParseLibraryBatch([]byte(llm.StripCodeFence(reply)))
	if err != nil {
		c.logger.Warn("curator reply rejected", zap.Error(err), zap.Int("reply_bytes", len(reply)))
		return nil, err
	}
	return curated, nil
}

const curationPrompt = `You are the curator and taxonomist of a scenario library.

You will receive a JSON array of scenario entries. Clean, deduplicate, normalize and
organize them. Your role is editorial only: do not analyze, predict, simulate or
assign probabilities.

In priority order:
1. Deduplicate. Entries exploring the same underlying uncertainty collapse into the
   strongest one. Improve its wording from the weaker ones; do not add content.
2. Normalize. Every canonicalQuestion must read:
   "How might [system/actor] evolve regarding [issue] under [constraints], and what scenarios are plausible?"
   Remove emotionally loaded or speculative phrasing.
3. Category discipline. Exactly one category per entry, from:
   History & Counterfactuals; Geopolitics & International Relations; Economics & Markets;
   Domestic Politics & Governance; Technology & AI Futures; Climate & Environment;
   Business Strategy & Startups; Sports; Social & Cultural Dynamics; Security & Conflict.
4. Clarity. Tighten overly broad questions and state missing constraints using only
   what the entry already says. Add no facts, assumptions or outcomes.
5. Metadata. difficulty: Introductory | Intermediate | Advanced.
   reusability: Low | Medium | High.
   idealUseCases: any of "Strategic planning", "Education", "Monitoring/Watchlists",
   "Scenario comparison", "Exploratory thinking".

Keep each surviving entry's scenarioId. Do not invent scenarios, rank them, or
change their intent.

Return ONLY a JSON array of objects with the fields scenarioId, title, category,
canonicalQuestion, systemActor, issueFocus, timeHorizon (["1-year","3-year","5-year"]
subset or ["Time-irrelevant"]), domain (political | economic | security |
technological | mixed), geography, difficulty, reusability, idealUseCases, tags, notes.

Entries to curate:
`
