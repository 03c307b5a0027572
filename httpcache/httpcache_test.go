package httpcache

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unkn0wn-root/tilecache/codec"
	"github.com/unkn0wn-root/tilecache/internal/wire"
)

type memProvider struct {
	mu sync.Mutex
	m  map[string][]byte
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

func (p *memProvider) Close(context.Context) error { return nil }

func (p *memProvider) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}

func newStore(t *testing.T, p *memProvider, heals *[]string) *Store {
	t.Helper()
	s, err := NewStore(StoreOptions{
		Provider: p,
		OnSelfHeal: func(_ string, reason string) {
			if heals != nil {
				*heals = append(*heals, reason)
			}
		},
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func get(t *testing.T, c *http.Client, url string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(b)
}

func TestFreshResponseServedWithoutNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Cache-Control", "max-age=3600")
		_, _ = io.WriteString(w, "tile-bytes")
	}))
	defer srv.Close()

	p := newMemProvider()
	tr := NewTransport(Options{Cache: newStore(t, p, nil)})
	client := tr.Client()

	if _, body := get(t, client, srv.URL+"/1/0/0.png"); body != "tile-bytes" {
		t.Fatalf("first body=%q", body)
	}
	resp, body := get(t, client, srv.URL+"/1/0/0.png")
	if body != "tile-bytes" {
		t.Fatalf("cached body=%q", body)
	}
	if !FromCache(resp) {
		t.Fatalf("second response not marked as cached")
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("server hit %d times, want 1", n)
	}
	if p.len() != 1 {
		t.Fatalf("store holds %d records, want 1", p.len())
	}

	st := tr.Stats()
	if st.Requests != 2 || st.Hits != 1 || st.Misses != 1 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestStaleResponseRevalidatedWithETag(t *testing.T) {
	var full, notModified atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Cache-Control", "max-age=0")
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		full.Add(1)
		_, _ = io.WriteString(w, "tile-v1")
	}))
	defer srv.Close()

	tr := NewTransport(Options{Cache: newStore(t, newMemProvider(), nil)})
	client := tr.Client()

	get(t, client, srv.URL+"/2/1/1.png")
	resp, body := get(t, client, srv.URL+"/2/1/1.png")

	if resp.StatusCode != http.StatusOK || body != "tile-v1" {
		t.Fatalf("revalidated status=%d body=%q", resp.StatusCode, body)
	}
	if full.Load() != 1 || notModified.Load() != 1 {
		t.Fatalf("full=%d notModified=%d, want 1/1", full.Load(), notModified.Load())
	}
	if st := tr.Stats(); st.Revalidated != 1 {
		t.Fatalf("stats=%+v, want one revalidation", st)
	}
}

func TestNoStoreIsNotCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Cache-Control", "no-store")
		_, _ = io.WriteString(w, "x")
	}))
	defer srv.Close()

	p := newMemProvider()
	client := NewTransport(Options{Cache: newStore(t, p, nil)}).Client()
	get(t, client, srv.URL+"/a.png")
	get(t, client, srv.URL+"/a.png")

	if hits.Load() != 2 || p.len() != 0 {
		t.Fatalf("hits=%d records=%d", hits.Load(), p.len())
	}
}

func TestStoreSelfHeals(t *testing.T) {
	p := newMemProvider()
	var heals []string
	s := newStore(t, p, &heals)

	s.Set("https://a/1/0/0.png", []byte("resp"))
	k := s.storageKey("https://a/1/0/0.png")

	if got, ok := s.Get("https://a/1/0/0.png"); !ok || string(got) != "resp" {
		t.Fatalf("get=%q ok=%v", got, ok)
	}

	// foreign value
	_, _ = p.Set(context.Background(), k, []byte("garbage"), 0, 0)
	if _, ok := s.Get("https://a/1/0/0.png"); ok {
		t.Fatalf("corrupt record returned")
	}
	if _, ok, _ := p.Get(context.Background(), k); ok {
		t.Fatalf("corrupt record not deleted")
	}

	// same frame, other codec
	other := wire.Encode(wire.CodecJSON, []byte(`{}`))
	_, _ = p.Set(context.Background(), k, other, 0, 0)
	if _, ok := s.Get("https://a/1/0/0.png"); ok {
		t.Fatalf("foreign-codec record returned")
	}

	// record stored under the wrong key
	cb := codec.MustCBOR[Record]()
	payload, _ := cb.Encode(Record{Key: "https://b/9/9/9.png", Response: []byte("x")})
	_, _ = p.Set(context.Background(), k, wire.Encode(wire.CodecCBOR, payload), 0, 0)
	if _, ok := s.Get("https://a/1/0/0.png"); ok {
		t.Fatalf("record for another key returned")
	}

	want := []string{ReasonCorrupt, ReasonCodecMismatch, ReasonKeyMismatch}
	if len(heals) != len(want) {
		t.Fatalf("heals=%v want %v", heals, want)
	}
	for i := range want {
		if heals[i] != want[i] {
			t.Fatalf("heals=%v want %v", heals, want)
		}
	}
}

func TestStoreCodecChoice(t *testing.T) {
	p := newMemProvider()
	s, err := NewStore(StoreOptions{Provider: p, Codec: codec.Msgpack[Record]{}})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s.Set("k", []byte("v"))
	if got, ok := s.Get("k"); !ok || string(got) != "v" {
		t.Fatalf("get=%q ok=%v", got, ok)
	}

	// a CBOR store sharing the provider must not read msgpack records
	c := newStore(t, p, nil)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("cbor store read a msgpack record")
	}
}
