// Package asynchook moves hook calls off the caller's goroutine.
//
//	raw := sloghook.New(slog.Default(), sloghook.Options{EvictedEvery: 100})
//	hooks := asynchook.New(raw, 1, 1024)
//	defer hooks.Close()
//
//	p, _ := tilecache.New(tilecache.Options{Source: tile.OpenStreetMap, Hooks: hooks})
//
// Events are dropped when the queue is full.
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/tilecache"
	"github.com/unkn0wn-root/tilecache/fetch"
	"github.com/unkn0wn-root/tilecache/tile"
)

type Hooks struct {
	inner   tilecache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ tilecache.Hooks = (*Hooks)(nil)

func New(inner tilecache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Later events are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped counts events lost to a full queue or a closed wrapper.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) FetchStarted(id tile.ID, a uint64) { h.try(func() { h.inner.FetchStarted(id, a) }) }
func (h *Hooks) FetchSucceeded(id tile.ID, d time.Duration) {
	h.try(func() { h.inner.FetchSucceeded(id, d) })
}
func (h *Hooks) FetchFailed(id tile.ID, err *fetch.Error) {
	h.try(func() { h.inner.FetchFailed(id, err) })
}
func (h *Hooks) Evicted(id tile.ID, st string) { h.try(func() { h.inner.Evicted(id, st) }) }
func (h *Hooks) CompletionDiscarded(id tile.ID, a uint64) {
	h.try(func() { h.inner.CompletionDiscarded(id, a) })
}
func (h *Hooks) StoreSelfHeal(k, r string) { h.try(func() { h.inner.StoreSelfHeal(k, r) }) }
func (h *Hooks) StoreError(op, k string, err error) {
	h.try(func() { h.inner.StoreError(op, k, err) })
}
func (h *Hooks) StoreSetRejected(k string) { h.try(func() { h.inner.StoreSetRejected(k) }) }
