// Package generate asks a text-generation collaborator for batches of raw
// scenario records.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/netguy47/Scenario-Atlas/internal/database"
	"github.com/netguy47/Scenario-Atlas/internal/llm"
	"github.com/netguy47/Scenario-Atlas/internal/scenario"
)

// ErrNoProvider is returned when no text-generation provider is available.
var ErrNoProvider = errors.New("no LLM provider available")

// RunLog records generation attempts.
type RunLog interface {
	InsertGenerationRun(ctx context.Context, r database.GenerationRun) (int64, error)
}

// Options bounds the expected batch sizes.
type Options struct {
	BatchMin        int
	BatchMax        int
	SubjectBatchMin int
	SubjectBatchMax int
	MaxTokens       int
}

func (o *Options) defaults() {
	if o.BatchMin <= 0 {
		o.BatchMin = 10
	}
	if o.BatchMax < o.BatchMin {
		o.BatchMax = o.BatchMin + 2
	}
	if o.SubjectBatchMin <= 0 {
		o.SubjectBatchMin = 8
	}
	if o.SubjectBatchMax < o.SubjectBatchMin {
		o.SubjectBatchMax = o.SubjectBatchMin + 2
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 8192
	}
}

// Request selects what to generate. An empty Subject produces a general
// batch rotating through every category starting at Rotation.
type Request struct {
	Subject  string
	Rotation int
}

// Generator produces raw scenario batches.
type Generator struct {
	provider llm.Provider
	runs     RunLog
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a generator. runs may be nil.
func New(provider llm.Provider, runs RunLog, opts Options, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.defaults()
	return &Generator{provider: provider, runs: runs, opts: opts, logger: logger, now: time.Now}
}

// Generate requests one batch. The whole batch is rejected when any entry
// fails to parse or validate; the error wraps
// scenario.ErrMalformedGenerationOutput.
func (g *Generator) Generate(ctx context.Context, req Request) ([]scenario.RawScenarioEntry, error) {
	if g.provider == nil {
		return nil, ErrNoProvider
	}

	subject := strings.TrimSpace(req.Subject)
	started := g.now()
	entries, err := g.generate(ctx, subject, req.Rotation)
	g.record(ctx, subject, len(entries), err, started)
	return entries, err
}

func (g *Generator) generate(ctx context.Context, subject string, rotation int) ([]scenario.RawScenarioEntry, error) {
	var prompt string
	lo, hi := g.opts.BatchMin, g.opts.BatchMax
	if subject == "" {
		prompt = buildGenerationPrompt(rotation, lo, hi)
		g.logger.Info("generating scenarios", zap.String("first_category", string(rotate(rotation)[0])))
	} else {
		lo, hi = g.opts.SubjectBatchMin, g.opts.SubjectBatchMax
		prompt = buildSubjectPrompt(subject, lo, hi)
		g.logger.Info("generating scenarios for subject", zap.String("subject", subject))
	}

	reply, err := g.provider.Generate(ctx, prompt, g.opts.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("generation request: %w", err)
	}

	entries, err := scenario.ParseRawBatch([]byte(llm.StripCodeFence(reply)))
	if err != nil {
		g.logger.Warn("generator reply rejected", zap.Error(err), zap.Int("reply_bytes", len(reply)))
		return nil, err
	}

	if subject != "" {
		for i := range entries {
			entries[i].Tags = withTag(entries[i].Tags, subject)
		}
	}
	if len(entries) < lo || len(entries) > hi {
		g.logger.Warn("unexpected batch size",
			zap.Int("entries", len(entries)), zap.Int("min", lo), zap.Int("max", hi))
	}
	g.logger.Info("generated scenarios", zap.Int("entries", len(entries)))
	return entries, nil
}

func (g *Generator) record(ctx context.Context, subject string, count int, genErr error, started time.Time) {
	if g.runs == nil {
		return
	}
	run := database.GenerationRun{
		Subject:    subject,
		EntryCount: count,
		StartedAt:  started,
		FinishedAt: g.now(),
	}
	if genErr != nil {
		run.Error = genErr.Error()
	}
	if _, err := g.runs.InsertGenerationRun(context.WithoutCancel(ctx), run); err != nil {
		g.logger.Warn("failed to record generation run", zap.Error(err))
	}
}

func withTag(tags []string, tag string) []string {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return tags
		}
	}
	return append([]string{tag}, tags...)
}

// rotate returns the category list starting at offset.
func rotate(offset int) []scenario.Category {
	n := len(scenario.Categories)
	offset = ((offset % n) + n) % n
	out := make([]scenario.Category, 0, n)
	out = append(out, scenario.Categories[offset:]...)
	return append(out, scenario.Categories[:offset]...)
}
