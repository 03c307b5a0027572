package tilecache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/unkn0wn-root/tilecache/decode"
	"github.com/unkn0wn-root/tilecache/executor"
	"github.com/unkn0wn-root/tilecache/fetch"
	"github.com/unkn0wn-root/tilecache/httpcache"
	"github.com/unkn0wn-root/tilecache/store"
	"github.com/unkn0wn-root/tilecache/store/ristretto"
	"github.com/unkn0wn-root/tilecache/tile"
)

// Provider is the render loop's view of the tile cache. All methods are safe
// for concurrent use and none of them wait for the network.
type Provider struct {
	cache   *cache
	exec    executor.Executor
	fetcher *fetch.Fetcher
	http    *httpcache.Transport // nil when the caller supplied HTTPClient
	store   store.Provider       // closed with the provider
	now     func() time.Time
	log     Logger

	closeOnce sync.Once
	closeErr  error
}

func New(opts Options) (*Provider, error) {
	if opts.Source == nil {
		return nil, ErrNoSource
	}
	if opts.Capacity < 0 {
		return nil, fmt.Errorf("tilecache: capacity must not be negative, got %d", opts.Capacity)
	}
	if t, ok := opts.Source.(tile.Template); ok {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("tilecache: %w", err)
		}
	}

	p := &Provider{
		now: opts.Clock,
		log: coalesce[Logger](opts.Logger, NopLogger{}),
	}
	if p.now == nil {
		p.now = time.Now
	}
	hooks := coalesce[Hooks](opts.Hooks, NopHooks{})

	client := opts.HTTPClient
	if client == nil {
		var err error
		client, err = p.buildHTTP(opts, hooks)
		if err != nil {
			return nil, err
		}
	}

	formats := opts.Formats
	if len(formats) == 0 {
		formats = decode.DefaultFormats
	}
	f, err := fetch.New(fetch.Options{
		Source:         opts.Source,
		Client:         client,
		Decoder:        decode.NewDecoder(formats...),
		UserAgent:      opts.UserAgent,
		TracerProvider: opts.TracerProvider,
	})
	if err != nil {
		p.closeStore()
		return nil, err
	}
	p.fetcher = f

	p.exec = opts.Executor
	if p.exec == nil {
		p.exec = executor.Default(executor.DefaultConcurrency)
	}

	p.cache = newCache(cacheOptions{
		capacity:        coalesce(opts.Capacity, DefaultCapacity),
		failureCooldown: coalesce(opts.FailureCooldown, DefaultFailureCooldown),
		networkCooldown: coalesce(opts.NetworkCooldown, DefaultNetworkCooldown),
		now:             p.now,
		log:             p.log,
		hooks:           hooks,
		onReady:         opts.OnTileReady,
		spawn:           p.spawn,
	})
	return p, nil
}

func (p *Provider) buildHTTP(opts Options, hooks Hooks) (*http.Client, error) {
	sp := opts.HTTPStore
	if sp == nil {
		r, err := ristretto.New(ristretto.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("tilecache: http store: %w", err)
		}
		sp = r
	}
	p.store = sp

	st, err := httpcache.NewStore(httpcache.StoreOptions{
		Provider:  sp,
		Namespace: opts.HTTPNamespace,
		Codec:     opts.HTTPCodec,
		TTL:       opts.HTTPTTL,
		OnSelfHeal: func(key, reason string) {
			p.log.Debug("http store self-heal", Fields{"key": key, "reason": reason})
			hooks.StoreSelfHeal(key, reason)
		},
		OnError: func(op, key string, err error) {
			p.log.Warn("http store error", Fields{"op": op, "key": key, "err": err})
			hooks.StoreError(op, key, err)
		},
		OnSetRejected: hooks.StoreSetRejected,
	})
	if err != nil {
		p.closeStore()
		return nil, err
	}
	p.http = httpcache.NewTransport(httpcache.Options{Cache: st, Timeout: opts.HTTPTimeout})
	return p.http.Client(), nil
}

func (p *Provider) spawn(id tile.ID, attempt uint64) {
	p.exec.Spawn(func(ctx context.Context) func() {
		start := p.now()
		img, err := p.fetcher.Fetch(ctx, id)
		elapsed := p.now().Sub(start)
		return func() { p.cache.complete(id, attempt, img, err, elapsed) }
	})
}

// Poll returns the tile if it is Ready. Otherwise it makes sure a fetch is
// scheduled (unless the tile is cooling down after a failure) and returns
// false; call again on a later frame. Under the cooperative executor Poll is
// also where finished fetches are delivered.
//
// Poll panics if id is outside its zoom's grid.
func (p *Provider) Poll(id tile.ID) (Tile, bool) {
	mustValid(id)
	p.exec.Poll()
	if r, ok := p.cache.getOrRequest(id).(Ready); ok {
		return r.Tile, true
	}
	return Tile{}, false
}

// State reports the cached state of id without requesting or touching it.
func (p *Provider) State(id tile.ID) State {
	mustValid(id)
	return p.cache.peek(id)
}

// TilesForViewport lists the tiles covering bounds at zoom.
func (p *Provider) TilesForViewport(bounds orb.Bound, zoom uint8) []tile.ID {
	return tile.ForViewport(bounds, zoom)
}

// Invalidate drops id so the next Poll fetches it again, skipping any
// cool-down. Use it for a manual retry after a failure. If id is Pending, the
// fetch in flight is allowed to finish, its result is thrown away and a single
// new fetch replaces it; the tile stays Pending throughout.
func (p *Provider) Invalidate(id tile.ID) {
	mustValid(id)
	p.cache.invalidate(id)
}

func (p *Provider) Stats() Stats {
	return p.cache.stats()
}

// HTTPStats reports response cache activity. It is zero when the caller
// supplied its own HTTPClient.
func (p *Provider) HTTPStats() httpcache.Stats {
	if p.http == nil {
		return httpcache.Stats{}
	}
	return p.http.Stats()
}

// Close abandons in-flight fetches, then shuts down the executor and the
// HTTP store. Ready tiles remain readable through State.
func (p *Provider) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.cache.close()
		var errs []error
		if err := p.exec.Close(ctx); err != nil && !errors.Is(err, executor.ErrClosed) {
			errs = append(errs, err)
		}
		if p.store != nil {
			if err := p.store.Close(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		p.closeErr = errors.Join(errs...)
		p.log.Info("tile provider closed", Fields{"stats": p.cache.stats()})
	})
	return p.closeErr
}

func (p *Provider) closeStore() {
	if p.store != nil {
		_ = p.store.Close(context.Background())
		p.store = nil
	}
}
