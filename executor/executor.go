// Package executor runs tile work without blocking the caller.
//
// Two strategies share one contract:
//   - Pool runs work on goroutines bounded by a semaphore and invokes the
//     completion on the worker that finished it.
//   - Cooperative also runs work on goroutines (a single cooperative thread
//     under js/wasm) but queues completions until the owner calls Poll, so they
//     run on the caller's goroutine, typically the render loop.
//
// Default picks the strategy for the build target.
package executor

import (
	"context"
	"errors"
)

// ErrClosed is returned by Close when the executor was already closed.
var ErrClosed = errors.New("executor: closed")

// Func is a unit of work. It returns the completion to deliver once the work is
// done, or nil when there is nothing to deliver. ctx is cancelled when the
// executor is closed.
type Func func(ctx context.Context) (complete func())

type Executor interface {
	// Spawn schedules fn and returns immediately.
	Spawn(fn Func)

	// Poll delivers completions that are waiting for the caller's goroutine and
	// returns how many ran. Strategies that complete on workers return 0.
	Poll() int

	// Close stops accepting work, abandons queued work and completions, and
	// waits for running work until ctx is done.
	Close(ctx context.Context) error
}
