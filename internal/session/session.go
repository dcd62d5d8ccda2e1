// Package session holds the in-memory working set of scenario records for
// the current session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/netguy47/Scenario-Atlas/internal/scenario"
)

// ErrStaleAppend is returned by AppendAt when the working set was replaced
// after the caller's base revision.
var ErrStaleAppend = errors.New("append is based on a replaced working set")

// ErrNotInLibrary is returned by Lookup for an id absent from the working set.
var ErrNotInLibrary = errors.New("scenario not in library")

// Revision counts mutations of the working set.
type Revision uint64

// Signal is a navigation hint emitted to the presentation layer.
type Signal string

// SignalViewLibrary asks the presentation layer to show the library.
const SignalViewLibrary Signal = "view-library"

// Persister stores and restores a working set.
type Persister interface {
	ReplaceSessionEntries(ctx context.Context, entries []scenario.Entry, revision uint64) error
	SessionEntries(ctx context.Context) ([]scenario.Entry, uint64, error)
}

// Store is the session's scenario store. Readers get copies; writers swap
// the backing slice under the lock, so a snapshot never observes a partial
// Append or Replace.
type Store struct {
	mu         sync.RWMutex
	entries    []scenario.Entry
	rev        Revision
	replacedAt Revision

	onSignal func(Signal)
	logger   *zap.Logger
}

// New creates an empty store.
func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{logger: logger}
}

// OnSignal registers fn to receive navigation signals. The store does not
// own the presentation layer; fn must not call back into the store.
func (s *Store) OnSignal(fn func(Signal)) {
	s.mu.Lock()
	s.onSignal = fn
	s.mu.Unlock()
}

// Append adds raw records to the end of the working set, preserving order.
// Duplicates are kept; deduplication belongs to curation.
func (s *Store) Append(entries []scenario.RawScenarioEntry) Revision {
	s.mu.Lock()
	rev := s.appendLocked(entries)
	notify := s.onSignal
	s.mu.Unlock()

	if notify != nil {
		notify(SignalViewLibrary)
	}
	return rev
}

// AppendAt appends only if no Replace happened after base. A generation
// started before a curation pass must not resurrect records the pass
// removed.
func (s *Store) AppendAt(base Revision, entries []scenario.RawScenarioEntry) (Revision, error) {
	s.mu.Lock()
	if base < s.replacedAt {
		rev, replacedAt := s.rev, s.replacedAt
		s.mu.Unlock()
		s.logger.Warn("dropping stale append",
			zap.Uint64("base", uint64(base)), zap.Uint64("replaced_at", uint64(replacedAt)), zap.Int("entries", len(entries)))
		return rev, fmt.Errorf("%w: base revision %d, replaced at %d", ErrStaleAppend, base, replacedAt)
	}
	rev := s.appendLocked(entries)
	notify := s.onSignal
	s.mu.Unlock()

	if notify != nil {
		notify(SignalViewLibrary)
	}
	return rev, nil
}

func (s *Store) appendLocked(entries []scenario.RawScenarioEntry) Revision {
	next := make([]scenario.Entry, len(s.entries), len(s.entries)+len(entries))
	copy(next, s.entries)
	for _, e := range entries {
		next = append(next, scenario.FromRaw(e).Clone())
	}
	s.entries = next
	s.rev++
	s.logger.Debug("appended entries", zap.Int("added", len(entries)), zap.Int("total", len(next)))
	return s.rev
}

// Replace swaps the entire working set for the curated records. The
// previous set is discarded.
func (s *Store) Replace(curated []scenario.LibraryEntry) Revision {
	next := make([]scenario.Entry, len(curated))
	for i, l := range curated {
		next[i] = scenario.FromLibrary(l.Clone())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = next
	s.rev++
	s.replacedAt = s.rev
	s.logger.Debug("replaced working set", zap.Int("total", len(next)))
	return s.rev
}

// Current returns a copy of the working set in order.
func (s *Store) Current() []scenario.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]scenario.Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Clone()
	}
	return out
}

// Lookup returns a copy of the first record with the given scenario id.
func (s *Store) Lookup(id string) (scenario.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ID() == id {
			return e.Clone(), nil
		}
	}
	return scenario.Entry{}, fmt.Errorf("%w: %s", ErrNotInLibrary, id)
}

// Snapshot returns a copy of the working set together with its revision.
func (s *Store) Snapshot() ([]scenario.Entry, Revision) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]scenario.Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Clone()
	}
	return out, s.rev
}

// Revision returns the current revision.
func (s *Store) Revision() Revision {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rev
}

// Len returns the number of records in the working set.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats summarizes the working set.
func (s *Store) Stats() scenario.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scenario.ComputeStats(s.entries)
}

// Load restores the working set from p. Loading counts as a Replace, so
// appends based on the previous set are stale.
func (s *Store) Load(ctx context.Context, p Persister) error {
	entries, rev, err := p.SessionEntries(ctx)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
	if r := Revision(rev); r > s.rev {
		s.rev = r
	} else {
		s.rev++
	}
	s.replacedAt = s.rev
	s.logger.Debug("loaded session", zap.Int("entries", len(entries)), zap.Uint64("revision", uint64(s.rev)))
	return nil
}

// Save persists the working set to p.
func (s *Store) Save(ctx context.Context, p Persister) error {
	entries, rev := s.Snapshot()
	if err := p.ReplaceSessionEntries(ctx, entries, uint64(rev)); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}
