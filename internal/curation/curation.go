// Package curation turns a working set of scenario records into a
// deduplicated, normalized library.
package curation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/netguy47/Scenario-Atlas/internal/cluster"
	"github.com/netguy47/Scenario-Atlas/internal/llm"
	"github.com/netguy47/Scenario-Atlas/internal/scenario"
)

// Result holds the results of a curation run.
type Result struct {
	Entries   []scenario.LibraryEntry
	Input     int
	Output    int
	Merged    int
	Remapped  int
	Rewritten int
}

// Options configures an Engine.
type Options struct {
	SimilarityThreshold float64
	Embedder            llm.Embedder
	// Provider enables the LLM curator pass when non-nil and UseLLM is set.
	Provider  llm.Provider
	UseLLM    bool
	MaxTokens int
}

// Engine curates scenario records.
type Engine struct {
	grouper *cluster.Grouper
	curator *LLMCurator
	logger  *zap.Logger
}

// New creates a curation engine.
func New(opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		grouper: cluster.NewGrouper(opts.Embedder, opts.SimilarityThreshold, logger),
		logger:  logger,
	}
	if opts.UseLLM && opts.Provider != nil {
		e.curator = NewLLMCurator(opts.Provider, opts.MaxTokens, logger)
	}
	return e
}

// Curate produces the library for entries. With an LLM curator configured
// the collaborator's reply is parsed strictly and then enforced locally;
// otherwise the local pipeline runs alone. On error nothing is returned and
// the caller keeps its previous working set.
func (e *Engine) Curate(ctx context.Context, entries []scenario.Entry) (*Result, error) {
	if len(entries) == 0 {
		return &Result{Entries: []scenario.LibraryEntry{}}, nil
	}

	records := make([]scenario.LibraryEntry, len(entries))
	for i, entry := range entries {
		records[i] = entry.AsLibrary()
	}

	if e.curator != nil {
		curated, err := e.curator.Curate(ctx, entries)
		if err != nil {
			return nil, err
		}
		e.logger.Info("curator reply accepted", zap.Int("input", len(entries)), zap.Int("returned", len(curated)))
		records = curated
	}

	result, err := e.Enforce(ctx, records)
	if err != nil {
		return nil, err
	}
	result.Input = len(entries)
	result.Merged = result.Input - result.Output
	if result.Merged < 0 {
		result.Merged = 0
	}

	e.logger.Info("curation complete",
		zap.Int("input", result.Input),
		zap.Int("output", result.Output),
		zap.Int("merged", result.Merged),
		zap.Int("remapped", result.Remapped),
		zap.Int("rewritten", result.Rewritten))
	return result, nil
}

// Enforce runs the local curation pipeline: deduplication, normalization,
// category discipline, scope tightening and metadata. It is idempotent.
func (e *Engine) Enforce(ctx context.Context, records []scenario.LibraryEntry) (*Result, error) {
	for _, r := range records {
		if err := r.TimeHorizon.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", r.ScenarioID, err)
		}
	}

	survivors, err := e.dedupe(ctx, records)
	if err != nil {
		return nil, err
	}

	result := &Result{Input: len(records)}
	for i := range survivors {
		l := &survivors[i]
		rewritten, err := normalizeRecord(l)
		if err != nil {
			return nil, err
		}
		if rewritten {
			result.Rewritten++
		}
		if disciplineCategory(l) {
			result.Remapped++
		}
		assignMetadata(l)
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("curated entry %s: %w", l.ScenarioID, err)
		}
	}
	uniqueIDs(survivors)

	result.Entries = survivors
	result.Output = len(survivors)
	result.Merged = result.Input - result.Output
	return result, nil
}
