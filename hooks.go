package tilecache

import (
	"time"

	"github.com/unkn0wn-root/tilecache/fetch"
	"github.com/unkn0wn-root/tilecache/tile"
)

// Hooks receive high-signal events. They are called outside the cache lock
// but on hot paths, so implementations must be cheap and must not block; wrap
// slow ones with hooks/async.
type Hooks interface {
	// A fetch was scheduled for id.
	FetchStarted(id tile.ID, attempt uint64)
	// The fetch for id produced a tile.
	FetchSucceeded(id tile.ID, elapsed time.Duration)
	// The fetch for id failed; the entry is Failed until the cool-down ends.
	FetchFailed(id tile.ID, err *fetch.Error)

	// A Ready or Failed entry was dropped to stay within capacity.
	// state ∈ {"ready", "failed"}
	Evicted(id tile.ID, state string)

	// A completion arrived for an attempt that is no longer wanted
	// (invalidated or closed) and was dropped.
	CompletionDiscarded(id tile.ID, attempt uint64)

	// The HTTP store deleted an unreadable record.
	// reason ∈ {"corrupt", "codec_mismatch", "value_decode", "key_mismatch"}
	StoreSelfHeal(storageKey, reason string)
	// The HTTP store backend failed. op ∈ {"get", "set", "del"}
	StoreError(op, storageKey string, err error)
	// The HTTP store dropped a write under memory pressure.
	StoreSetRejected(storageKey string)
}

// NopHooks is the default.
type NopHooks struct{}

func (NopHooks) FetchStarted(tile.ID, uint64)          {}
func (NopHooks) FetchSucceeded(tile.ID, time.Duration) {}
func (NopHooks) FetchFailed(tile.ID, *fetch.Error)     {}
func (NopHooks) Evicted(tile.ID, string)               {}
func (NopHooks) CompletionDiscarded(tile.ID, uint64)   {}
func (NopHooks) StoreSelfHeal(string, string)          {}
func (NopHooks) StoreError(string, string, error)      {}
func (NopHooks) StoreSetRejected(string)               {}
