package asynchook

import (
	"sync/atomic"
	"testing"

	"github.com/unkn0wn-root/tilecache"
	"github.com/unkn0wn-root/tilecache/tile"
)

type countHooks struct {
	tilecache.NopHooks
	evicted atomic.Int32
}

func (c *countHooks) Evicted(tile.ID, string) { c.evicted.Add(1) }

func TestEventsDeliveredBeforeClose(t *testing.T) {
	inner := &countHooks{}
	h := New(inner, 2, 64)
	for i := 0; i < 10; i++ {
		h.Evicted(tile.New(1, 0, 0), "ready")
	}
	h.Close()

	if got := inner.evicted.Load(); got != 10 {
		t.Fatalf("delivered %d, want 10", got)
	}
	h.Evicted(tile.New(1, 0, 0), "ready")
	if h.Dropped() != 1 {
		t.Fatalf("dropped=%d after close, want 1", h.Dropped())
	}
	h.Close()
}
