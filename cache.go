package tilecache

import (
	"container/list"
	"image"
	"sync"
	"time"

	"github.com/unkn0wn-root/tilecache/fetch"
	"github.com/unkn0wn-root/tilecache/tile"
)

type entry struct {
	id    tile.ID
	state State         // Pending, Ready or Failed
	elem  *list.Element // position in lru; nil while Pending

	// refetch marks a Pending entry invalidated mid-flight: its outcome is
	// dropped and a fresh attempt starts when it lands.
	refetch bool
}

type cacheOptions struct {
	capacity        int
	failureCooldown time.Duration
	networkCooldown time.Duration
	now             func() time.Time
	log             Logger
	hooks           Hooks
	onReady         func(tile.ID)

	// spawn starts the fetch for an attempt. Called without the lock held.
	spawn func(id tile.ID, attempt uint64)
}

// cache is the LRU tile store. Completions are accepted only for the attempt
// currently recorded in inflight, the same generation check a CAS write uses.
type cache struct {
	mu       sync.Mutex
	entries  map[tile.ID]*entry
	lru      *list.List // front = most recently touched; non-Pending only
	inflight map[tile.ID]uint64
	attempts uint64
	tick     uint64
	closed   bool

	requests  uint64
	evictions uint64
	discarded uint64

	capacity        int
	failureCooldown time.Duration
	networkCooldown time.Duration
	now             func() time.Time
	log             Logger
	hooks           Hooks
	onReady         func(tile.ID)
	spawn           func(tile.ID, uint64)
}

func newCache(o cacheOptions) *cache {
	return &cache{
		entries:         make(map[tile.ID]*entry, o.capacity),
		lru:             list.New(),
		inflight:        make(map[tile.ID]uint64),
		capacity:        o.capacity,
		failureCooldown: o.failureCooldown,
		networkCooldown: o.networkCooldown,
		now:             o.now,
		log:             o.log,
		hooks:           o.hooks,
		onReady:         o.onReady,
		spawn:           o.spawn,
	}
}

type eviction struct {
	id    tile.ID
	state string
}

// getOrRequest returns the current state of id, scheduling a fetch when the
// tile is absent or its cool-down has passed. It never blocks on the fetch.
func (c *cache) getOrRequest(id tile.ID) State {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Absent{}
	}
	if e, ok := c.entries[id]; ok {
		switch st := e.state.(type) {
		case Ready:
			st.LastAccess = c.touchLocked(e)
			e.state = st
			c.mu.Unlock()
			return st
		case Pending:
			c.mu.Unlock()
			return st
		case Failed:
			if c.now().Before(st.RetryAt) {
				c.mu.Unlock()
				return st
			}
			c.removeLocked(e)
		}
	}

	evicted := c.makeRoomLocked()
	c.attempts++
	attempt := c.attempts
	c.inflight[id] = attempt
	st := Pending{Since: c.now(), Attempt: attempt}
	c.entries[id] = &entry{id: id, state: st}
	c.requests++
	c.mu.Unlock()

	c.reportEvictions(evicted)
	c.hooks.FetchStarted(id, attempt)
	c.spawn(id, attempt)
	return st
}

// makeRoomLocked evicts non-Pending entries until one more entry fits. When
// everything is Pending nothing is evicted and the cache runs over capacity.
func (c *cache) makeRoomLocked() []eviction {
	var out []eviction
	for len(c.entries) >= c.capacity && c.lru.Len() > 0 {
		out = append(out, c.evictOldestLocked())
	}
	return out
}

func (c *cache) trimLocked() []eviction {
	var out []eviction
	for c.lru.Len() > c.capacity {
		out = append(out, c.evictOldestLocked())
	}
	return out
}

func (c *cache) evictOldestLocked() eviction {
	e := c.lru.Back().Value.(*entry)
	c.removeLocked(e)
	c.evictions++
	return eviction{id: e.id, state: e.state.String()}
}

func (c *cache) removeLocked(e *entry) {
	if e.elem != nil {
		c.lru.Remove(e.elem)
		e.elem = nil
	}
	delete(c.entries, e.id)
}

func (c *cache) touchLocked(e *entry) uint64 {
	c.tick++
	if e.elem != nil {
		c.lru.MoveToFront(e.elem)
	}
	return c.tick
}

// complete records the outcome of attempt. Outcomes for attempts that are no
// longer in flight are dropped.
func (c *cache) complete(id tile.ID, attempt uint64, img *image.NRGBA, err error, elapsed time.Duration) {
	c.mu.Lock()
	cur, ok := c.inflight[id]
	if c.closed || !ok || cur != attempt {
		c.discarded++
		c.mu.Unlock()
		c.log.Debug("tile completion discarded", Fields{"tile": id.String(), "attempt": attempt})
		c.hooks.CompletionDiscarded(id, attempt)
		return
	}
	e := c.entries[id]
	if e.refetch {
		e.refetch = false
		c.attempts++
		next := c.attempts
		c.inflight[id] = next
		e.state = Pending{Since: c.now(), Attempt: next}
		c.discarded++
		c.requests++
		c.mu.Unlock()

		c.log.Debug("tile invalidated while pending; refetching", Fields{"tile": id.String(), "attempt": next})
		c.hooks.CompletionDiscarded(id, attempt)
		c.hooks.FetchStarted(id, next)
		c.spawn(id, next)
		return
	}
	delete(c.inflight, id)

	var failed *fetch.Error
	if err == nil && img == nil {
		err = &fetch.Error{Kind: fetch.KindDecode, URL: id.String()}
	}
	if err != nil {
		failed = fetch.AsError(err, id.String())
		e.state = Failed{Err: failed, RetryAt: c.now().Add(c.cooldown(failed.Kind))}
	} else {
		e.state = Ready{Tile: Tile{ID: id, Image: img}}
	}
	e.elem = c.lru.PushFront(e)
	if r, ok := e.state.(Ready); ok {
		r.LastAccess = c.touchLocked(e)
		e.state = r
	}
	evicted := c.trimLocked()
	c.mu.Unlock()

	c.reportEvictions(evicted)
	if failed != nil {
		c.log.Warn("tile fetch failed", Fields{
			"tile": id.String(), "kind": failed.Kind.String(), "status": failed.Status, "err": failed.Err,
		})
		c.hooks.FetchFailed(id, failed)
		return
	}
	c.hooks.FetchSucceeded(id, elapsed)
	if c.onReady != nil {
		c.onReady(id)
	}
}

func (c *cache) cooldown(k fetch.Kind) time.Duration {
	if k == fetch.KindNetwork {
		return c.networkCooldown
	}
	return c.failureCooldown
}

func (c *cache) reportEvictions(ev []eviction) {
	for _, e := range ev {
		c.log.Debug("tile evicted", Fields{"tile": e.id.String(), "state": e.state})
		c.hooks.Evicted(e.id, e.state)
	}
}

// peek returns the state of id without touching or requesting it.
func (c *cache) peek(id tile.ID) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		return e.state
	}
	return Absent{}
}

// invalidate forgets a Ready or Failed tile so the next request fetches it
// again, ignoring any cool-down. A Pending tile keeps its running fetch; that
// outcome is dropped and one new fetch starts when it completes, so a tile
// never has two requests on the wire.
func (c *cache) invalidate(id tile.ID) {
	c.mu.Lock()
	e, ok := c.entries[id]
	if c.closed || !ok {
		c.mu.Unlock()
		return
	}
	if _, pending := e.state.(Pending); pending {
		e.refetch = true
		c.mu.Unlock()
		c.log.Debug("tile invalidated while pending", Fields{"tile": id.String()})
		return
	}
	c.removeLocked(e)
	c.mu.Unlock()
	c.log.Debug("tile invalidated", Fields{"tile": id.String()})
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Capacity int
	Pending  int
	Ready    int
	Failed   int

	Requests  uint64 // fetches scheduled
	Evictions uint64
	Discarded uint64 // completions dropped as stale
}

func (c *cache) stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		Capacity:  c.capacity,
		Requests:  c.requests,
		Evictions: c.evictions,
		Discarded: c.discarded,
	}
	for _, e := range c.entries {
		switch e.state.(type) {
		case Pending:
			s.Pending++
		case Ready:
			s.Ready++
		case Failed:
			s.Failed++
		}
	}
	return s
}

// close stops scheduling and drops in-flight attempts. Cached tiles stay
// readable.
func (c *cache) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id := range c.inflight {
		if e, ok := c.entries[id]; ok {
			delete(c.entries, e.id)
		}
	}
	clear(c.inflight)
}
