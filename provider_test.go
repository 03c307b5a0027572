package tilecache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/unkn0wn-root/tilecache/executor"
	"github.com/unkn0wn-root/tilecache/tile"
)

// nopClient is never used by byte sources; it keeps New from building an
// HTTP store.
var nopClient = &http.Client{}

type memProvider struct {
	mu     sync.Mutex
	m      map[string][]byte
	closed bool
}

func newMemProvider() *memProvider { return &memProvider{m: map[string][]byte{}} }

func (p *memProvider) Get(_ context.Context, k string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.m[k]
	return v, ok, nil
}

func (p *memProvider) Set(_ context.Context, k string, v []byte, _ int64, _ time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[k] = append([]byte(nil), v...)
	return true, nil
}

func (p *memProvider) Del(_ context.Context, k string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.m, k)
	return nil
}

func (p *memProvider) Close(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func pollUntilReady(t *testing.T, p *Provider, id tile.ID) Tile {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if tl, ok := p.Poll(id); ok {
			return tl
		}
		if _, failed := p.State(id).(Failed); failed {
			t.Fatalf("%v failed: %v", id, p.State(id).(Failed).Err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("%v never became ready: %v", id, p.State(id))
	return Tile{}
}

func TestProviderOverHTTPWithResponseCache(t *testing.T) {
	body := pngTile(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "max-age=3600")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	mp := newMemProvider()
	var ready atomic.Int32
	p, err := New(Options{
		Source:      tile.Template{URL: srv.URL + "/{z}/{x}/{y}.png"},
		Executor:    executor.NewPool(2),
		HTTPStore:   mp,
		OnTileReady: func(tile.ID) { ready.Add(1) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	id := tile.New(4, 3, 5)
	tl := pollUntilReady(t, p, id)
	if tl.ID != id || tl.Width() != 4 {
		t.Fatalf("tile=%+v", tl.ID)
	}

	// drop the decoded tile; the bytes must come back from the HTTP cache
	p.Invalidate(id)
	pollUntilReady(t, p, id)

	if n := hits.Load(); n != 1 {
		t.Fatalf("server hit %d times, want 1", n)
	}
	if st := p.HTTPStats(); st.Hits != 1 || st.Misses != 1 {
		t.Fatalf("http stats=%+v", st)
	}

	// Close waits for workers, so every OnTileReady call has returned
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if ready.Load() != 2 {
		t.Fatalf("OnTileReady called %d times, want 2", ready.Load())
	}
	if !mp.closed {
		t.Fatalf("http store not closed")
	}
}

func TestProviderConcurrentPollsDedupe(t *testing.T) {
	src := newFakeSource(t)
	p, err := New(Options{Source: src, Capacity: 64, Executor: executor.NewPool(4), HTTPClient: nopClient})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close(context.Background())

	ids := make([]tile.ID, 0, 16)
	for x := uint32(0); x < 16; x++ {
		ids = append(ids, tile.New(4, x, 7))
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				ready := 0
				for i := range ids {
					// each goroutine walks the set from a different offset
					if _, ok := p.Poll(ids[(i+g)%len(ids)]); ok {
						ready++
					}
				}
				if ready == len(ids) {
					return
				}
				time.Sleep(time.Millisecond)
			}
		}(g)
	}
	wg.Wait()

	st := p.Stats()
	if st.Ready != len(ids) || st.Requests != uint64(len(ids)) || st.Evictions != 0 {
		t.Fatalf("stats=%+v, want %d ready and requested once each", st, len(ids))
	}
	for _, id := range ids {
		if n := src.callsFor(id); n != 1 {
			t.Fatalf("%v fetched %d times", id, n)
		}
	}
}

func TestProviderConcurrentPollsStayWithinCapacity(t *testing.T) {
	const capacity = 4
	src := newFakeSource(t)
	p, err := New(Options{Source: src, Capacity: capacity, Executor: executor.NewPool(4), HTTPClient: nopClient})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close(context.Background())

	ids := make([]tile.ID, 0, 16)
	for x := uint32(0); x < 16; x++ {
		ids = append(ids, tile.New(5, x, 3))
	}

	var (
		wg   sync.WaitGroup
		over atomic.Int32
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				p.Poll(ids[(i*(g+1))%len(ids)])
				if st := p.Stats(); st.Ready+st.Failed > capacity {
					over.Add(1)
				}
			}
		}(g)
	}
	wg.Wait()

	deadline := time.Now().Add(5 * time.Second)
	for p.Stats().Pending > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	st := p.Stats()
	if over.Load() != 0 || st.Ready+st.Failed > capacity || st.Pending != 0 {
		t.Fatalf("stats=%+v, %d snapshots over capacity", st, over.Load())
	}
	if st.Failed != 0 {
		t.Fatalf("unexpected failures: %+v", st)
	}
}

func TestProviderCooperativeDeliversInPoll(t *testing.T) {
	src := tile.NewStatic("coop")
	id := tile.New(1, 1, 1)
	src.Put(id, pngTile(t))

	coop := executor.NewCooperative()
	p, err := New(Options{Source: src, Executor: coop, HTTPClient: nopClient})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close(context.Background())

	p.Poll(id)

	// the fetch finishes in the background but stays Pending until Poll runs
	deadline := time.Now().Add(5 * time.Second)
	for coop.Pending() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if _, ok := p.State(id).(Pending); !ok {
		t.Fatalf("state=%v before Poll, want pending", p.State(id))
	}
	if _, ok := p.Poll(id); !ok {
		t.Fatalf("Poll did not deliver the completed fetch: %v", p.State(id))
	}
}

func TestProviderDebugSource(t *testing.T) {
	p, err := New(Options{Source: tile.Debug{}, HTTPClient: nopClient})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close(context.Background())

	tl := pollUntilReady(t, p, tile.New(5, 17, 11))
	if tl.Width() != tile.DefaultSize || tl.Height() != tile.DefaultSize {
		t.Fatalf("debug tile %dx%d", tl.Width(), tl.Height())
	}
}

func TestTilesForViewport(t *testing.T) {
	p, err := New(Options{Source: tile.Debug{}, HTTPClient: nopClient})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close(context.Background())

	ids := p.TilesForViewport(orb.Bound{Min: orb.Point{-180, -85}, Max: orb.Point{180, 85}}, 1)
	if len(ids) != 4 {
		t.Fatalf("got %v, want the 4 tiles of zoom 1", ids)
	}
	for _, id := range ids {
		if !id.Valid() {
			t.Fatalf("invalid id %v", id)
		}
	}
}
