// Package httpcache puts an RFC 7234 response cache in front of tile servers.
// Fresh responses are served without a network call; stale ones are
// revalidated with their ETag or Last-Modified validators. The transport never
// retries.
package httpcache

import (
	"net/http"
	"sync/atomic"
	"time"

	hc "github.com/gregjones/httpcache"
)

const DefaultTimeout = 30 * time.Second

type Options struct {
	// Cache holds responses; usually a *Store. Nil keeps them in a map for
	// the life of the process.
	Cache hc.Cache

	// Base performs network requests. Defaults to http.DefaultTransport.
	Base http.RoundTripper

	// Timeout applies to clients returned by Client.
	Timeout time.Duration
}

// Stats counts requests by how they were answered.
type Stats struct {
	Requests    uint64
	Hits        uint64 // answered from cache without a network call
	Revalidated uint64 // stale entry confirmed by a 304
	Misses      uint64 // full response from the network
	Errors      uint64 // transport failures
}

type Transport struct {
	ht      *hc.Transport
	timeout time.Duration

	requests    atomic.Uint64
	network     atomic.Uint64
	revalidated atomic.Uint64
	errors      atomic.Uint64
}

var _ http.RoundTripper = (*Transport)(nil)

func NewTransport(opts Options) *Transport {
	cache := opts.Cache
	if cache == nil {
		cache = hc.NewMemoryCache()
	}
	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}
	t := &Transport{timeout: opts.Timeout}
	if t.timeout <= 0 {
		t.timeout = DefaultTimeout
	}
	t.ht = hc.NewTransport(cache)
	t.ht.MarkCachedResponses = true
	t.ht.Transport = &counting{base: base, t: t}
	return t
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.requests.Add(1)
	resp, err := t.ht.RoundTrip(req)
	if err != nil {
		t.errors.Add(1)
	}
	return resp, err
}

// Client returns an http.Client using this transport.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t, Timeout: t.timeout}
}

func (t *Transport) Stats() Stats {
	req := t.requests.Load()
	net := t.network.Load()
	rev := t.revalidated.Load()
	s := Stats{Requests: req, Revalidated: rev, Errors: t.errors.Load()}
	if req > net {
		s.Hits = req - net
	}
	if net > rev {
		s.Misses = net - rev
	}
	return s
}

// FromCache reports whether resp was served from the cache, including after a
// successful revalidation.
func FromCache(resp *http.Response) bool {
	return resp != nil && resp.Header.Get(hc.XFromCache) == "1"
}

type counting struct {
	base http.RoundTripper
	t    *Transport
}

func (c *counting) RoundTrip(req *http.Request) (*http.Response, error) {
	c.t.network.Add(1)
	resp, err := c.base.RoundTrip(req)
	if err == nil && resp.StatusCode == http.StatusNotModified {
		c.t.revalidated.Add(1)
	}
	return resp, err
}
