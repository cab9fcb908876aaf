// Package task runs long operations such as cache refreshes and installs in
// the background, one at a time, with streamed progress.
package task

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

const progressBuffer = 16

// Runner admits one task at a time. Tasks queue in start order.
type Runner struct {
	sem *semaphore.Weighted
}

// NewRunner returns an idle Runner.
func NewRunner() *Runner {
	return &Runner{sem: semaphore.NewWeighted(1)}
}

// Busy reports whether a task is running.
func (r *Runner) Busy() bool {
	if !r.sem.TryAcquire(1) {
		return true
	}
	r.sem.Release(1)
	return false
}

// Future is the pending result of a task.
type Future[T any] struct {
	progress chan string
	done     chan struct{}

	detach     chan struct{}
	detachOnce sync.Once

	value T
	err   error
}

// Go starts fn once the runner is free. fn may report progress any number of
// times. A started task runs to completion; ctx only bounds the wait for the
// runner and is passed on to fn.
func Go[T any](ctx context.Context, r *Runner, fn func(ctx context.Context, progress func(string)) (T, error)) *Future[T] {
	f := &Future[T]{
		progress: make(chan string, progressBuffer),
		done:     make(chan struct{}),
		detach:   make(chan struct{}),
	}
	go func() {
		defer close(f.done)
		defer close(f.progress)

		if err := r.sem.Acquire(ctx, 1); err != nil {
			f.err = err
			return
		}
		defer r.sem.Release(1)

		f.value, f.err = fn(ctx, f.send)
	}()
	return f
}

func (f *Future[T]) send(msg string) {
	select {
	case f.progress <- msg:
	case <-f.detach:
	}
}

// Progress delivers progress messages in order. It is closed when the task
// finishes.
func (f *Future[T]) Progress() <-chan string {
	return f.progress
}

// Done is closed when the task finishes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task finishes and returns its result. Progress
// messages not yet read are discarded.
func (f *Future[T]) Wait() (T, error) {
	f.detachOnce.Do(func() { close(f.detach) })
	<-f.done
	return f.value, f.err
}
