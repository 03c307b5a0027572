package executor

import (
	"context"
	"sync"
)

// Cooperative runs work on goroutines but hands completions back to whoever
// calls Poll. Completions never run concurrently with each other or with the
// Poll caller.
type Cooperative struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	ready  []func()
	closed bool
}

var _ Executor = (*Cooperative)(nil)

func NewCooperative() *Cooperative {
	ctx, cancel := context.WithCancel(context.Background())
	return &Cooperative{ctx: ctx, cancel: cancel}
}

func (c *Cooperative) Spawn(fn Func) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		done := fn(c.ctx)
		if done == nil {
			return
		}
		c.mu.Lock()
		if !c.closed {
			c.ready = append(c.ready, done)
		}
		c.mu.Unlock()
	}()
}

// Poll runs every completion queued so far on the calling goroutine.
func (c *Cooperative) Poll() int {
	c.mu.Lock()
	ready := c.ready
	c.ready = nil
	c.mu.Unlock()

	for _, done := range ready {
		done()
	}
	return len(ready)
}

// Pending reports how many completions wait for Poll.
func (c *Cooperative) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ready)
}

func (c *Cooperative) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	c.ready = nil
	c.mu.Unlock()

	c.cancel()

	idle := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(idle)
	}()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
