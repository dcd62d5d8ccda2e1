package pipeline

import (
	"context"
	"sync"
)

// Task is a cancellable unit of background work producing a T.
type Task[T any] struct {
	cancel context.CancelFunc
	done   chan struct{}

	once   sync.Once
	result T
	err    error
}

// Start runs fn in a new goroutine with a context derived from ctx.
func Start[T any](ctx context.Context, fn func(context.Context) (T, error)) *Task[T] {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task[T]{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer cancel()
		t.result, t.err = fn(ctx)
	}()
	return t
}

// Cancel asks the task to stop. It does not wait.
func (t *Task[T]) Cancel() {
	t.once.Do(t.cancel)
}

// Done is closed when the task has finished.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes and returns its result.
func (t *Task[T]) Wait() (T, error) {
	<-t.done
	return t.result, t.err
}
