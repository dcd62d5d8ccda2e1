// Package pipeline runs the long-latency collaborator calls and applies
// their results to the session store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/netguy47/Scenario-Atlas/internal/curation"
	"github.com/netguy47/Scenario-Atlas/internal/generate"
	"github.com/netguy47/Scenario-Atlas/internal/scenario"
	"github.com/netguy47/Scenario-Atlas/internal/session"
)

// Generator produces raw scenario batches.
type Generator interface {
	Generate(ctx context.Context, req generate.Request) ([]scenario.RawScenarioEntry, error)
}

// Curator turns a working set into its library replacement.
type Curator interface {
	Curate(ctx context.Context, entries []scenario.Entry) (*curation.Result, error)
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a pipeline run.
type Result struct {
	Steps []StepResult
}

// Err returns the first step error.
func (r *Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return s.Err
		}
	}
	return nil
}

// Options selects the steps of a run.
type Options struct {
	// Subjects fans generation out, one call per subject. Empty means a
	// single category-rotation batch.
	Subjects []string
	Rotation int
	Generate bool
	Curate   bool
}

// Pipeline orchestrates generation and curation against one session store.
type Pipeline struct {
	store       *session.Store
	generator   Generator
	curator     Curator
	persister   session.Persister
	concurrency int
	logger      *zap.Logger
}

// New creates a pipeline. persister may be nil, in which case the working
// set is not saved after a run.
func New(store *session.Store, generator Generator, curator Curator, persister session.Persister, concurrency int, logger *zap.Logger) *Pipeline {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:       store,
		generator:   generator,
		curator:     curator,
		persister:   persister,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Start runs Run in the background.
func (p *Pipeline) Start(ctx context.Context, opts Options) *Task[*Result] {
	return Start(ctx, func(ctx context.Context) (*Result, error) {
		r := p.Run(ctx, opts)
		return r, r.Err()
	})
}

// Run executes the selected steps in order. Curation is skipped when
// generation failed outright.
func (p *Pipeline) Run(ctx context.Context, opts Options) *Result {
	r := &Result{}

	if opts.Generate {
		step := p.runGenerate(ctx, opts.Subjects, opts.Rotation)
		r.Steps = append(r.Steps, step)
		if step.Err != nil {
			p.save(ctx, r)
			return r
		}
	}

	if opts.Curate {
		r.Steps = append(r.Steps, p.runCurate(ctx))
	}

	p.save(ctx, r)
	return r
}

func (p *Pipeline) save(ctx context.Context, r *Result) {
	if p.persister == nil {
		return
	}
	if err := p.store.Save(context.WithoutCancel(ctx), p.persister); err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Save", Err: err})
	}
}

func (p *Pipeline) runGenerate(ctx context.Context, subjects []string, rotation int) StepResult {
	p.logger.Info("generating scenarios", zap.Int("subjects", len(subjects)))
	gr, err := p.Generate(ctx, subjects, rotation)
	if err != nil {
		return StepResult{Name: "Generate", Err: err}
	}
	summary := fmt.Sprintf("Added %d scenarios from %d batches", gr.Added, gr.Batches)
	if gr.Failed > 0 || gr.Stale > 0 {
		summary += fmt.Sprintf(" (%d failed, %d stale)", gr.Failed, gr.Stale)
	}
	return StepResult{Name: "Generate", Summary: summary}
}

func (p *Pipeline) runCurate(ctx context.Context) StepResult {
	p.logger.Info("curating working set", zap.Int("entries", p.store.Len()))
	cr, err := p.Curate(ctx)
	if err != nil {
		return StepResult{Name: "Curate", Err: err}
	}
	return StepResult{
		Name:    "Curate",
		Summary: fmt.Sprintf("Curated %d entries into %d (%d merged, %d remapped)", cr.Input, cr.Output, cr.Merged, cr.Remapped),
	}
}

// GenerateResult counts the batches of a fan-out.
type GenerateResult struct {
	Batches int
	Added   int
	Failed  int
	Stale   int
	Errors  []error
}

// Generate calls the generator once per subject, at most concurrency calls
// at a time, and appends each successful batch as it arrives. Appends are
// based on the revision at the start of the call, so a Replace that lands
// in the meantime wins and later batches are dropped as stale. Failed
// subjects do not stop the others; an error is returned only when every
// call failed or ctx was cancelled.
func (p *Pipeline) Generate(ctx context.Context, subjects []string, rotation int) (*GenerateResult, error) {
	if p.generator == nil {
		return nil, generate.ErrNoProvider
	}

	reqs := []generate.Request{{Rotation: rotation}}
	if len(subjects) > 0 {
		reqs = make([]generate.Request, len(subjects))
		for i, s := range subjects {
			reqs[i] = generate.Request{Subject: s, Rotation: rotation + i}
		}
	}

	base := p.store.Revision()
	res := &GenerateResult{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, req := range reqs {
		g.Go(func() error {
			entries, err := p.generator.Generate(gctx, req)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				res.Errors = append(res.Errors, fmt.Errorf("subject %q: %w", req.Subject, err))
				p.logger.Warn("generation failed", zap.String("subject", req.Subject), zap.Error(err))
				return nil
			}
			if _, err := p.store.AppendAt(base, entries); err != nil {
				if errors.Is(err, session.ErrStaleAppend) {
					res.Stale++
					return nil
				}
				return err
			}
			res.Batches++
			res.Added += len(entries)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if res.Batches == 0 && res.Failed > 0 {
		return res, errors.Join(res.Errors...)
	}
	return res, nil
}

// Curate runs the curator over a snapshot of the working set and replaces
// the set with the result. On error the store is untouched.
func (p *Pipeline) Curate(ctx context.Context) (*curation.Result, error) {
	if p.curator == nil {
		return nil, fmt.Errorf("no curator configured")
	}
	entries, _ := p.store.Snapshot()
	res, err := p.curator.Curate(ctx, entries)
	if err != nil {
		return nil, err
	}
	p.store.Replace(res.Entries)
	return res, nil
}
