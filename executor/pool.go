package executor

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency bounds simultaneous downloads per tile server.
const DefaultConcurrency = 6

// Pool runs at most n units of work at a time. Spawn never blocks: work waiting
// for a slot parks on its own goroutine.
type Pool struct {
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

var _ Executor = (*Pool)(nil)

func NewPool(n int) *Pool {
	if n <= 0 {
		n = DefaultConcurrency
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		sem:    semaphore.NewWeighted(int64(n)),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (p *Pool) Spawn(fn Func) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			return // closed while queued
		}
		defer p.sem.Release(1)
		if p.ctx.Err() != nil {
			return
		}

		if done := fn(p.ctx); done != nil {
			done()
		}
	}()
}

func (p *Pool) Poll() int { return 0 }

func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()

	idle := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(idle)
	}()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
