// Package sloghook logs cache events to a *slog.Logger with optional
// sampling for the noisy ones.
package sloghook

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/tilecache"
	"github.com/unkn0wn-root/tilecache/fetch"
	"github.com/unkn0wn-root/tilecache/tile"
)

type Options struct {
	// Sampling; 0 or 1 logs every event.
	EvictedEvery  uint64
	SelfHealEvery uint64
	FailedEvery   uint64

	// LogFetches logs every fetch start and success at debug level.
	LogFetches bool

	// Redact shortens store keys. Defaults to a SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	evictedCtr  atomic.Uint64
	selfHealCtr atomic.Uint64
	failedCtr   atomic.Uint64
}

var _ tilecache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n <= 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) FetchStarted(id tile.ID, attempt uint64) {
	if h.l == nil || !h.opts.LogFetches {
		return
	}
	h.l.Debug("tilecache.fetch_started", "tile", id.String(), "attempt", attempt)
}

func (h *Hooks) FetchSucceeded(id tile.ID, elapsed time.Duration) {
	if h.l == nil || !h.opts.LogFetches {
		return
	}
	h.l.Debug("tilecache.fetch_succeeded", "tile", id.String(), "elapsed", elapsed)
}

func (h *Hooks) FetchFailed(id tile.ID, err *fetch.Error) {
	if h.l == nil || !sample(h.opts.FailedEvery, &h.failedCtr) {
		return
	}
	h.l.Warn("tilecache.fetch_failed",
		"tile", id.String(),
		"kind", err.Kind.String(),
		"status", err.Status,
		"err", err.Err)
}

func (h *Hooks) Evicted(id tile.ID, state string) {
	if h.l == nil || !sample(h.opts.EvictedEvery, &h.evictedCtr) {
		return
	}
	h.l.Debug("tilecache.evicted", "tile", id.String(), "state", state)
}

func (h *Hooks) CompletionDiscarded(id tile.ID, attempt uint64) {
	if h.l == nil {
		return
	}
	h.l.Debug("tilecache.completion_discarded", "tile", id.String(), "attempt", attempt)
}

func (h *Hooks) StoreSelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Info("tilecache.store_self_heal", "key", h.redact(storageKey), "reason", reason)
}

func (h *Hooks) StoreError(op, storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("tilecache.store_error", "op", op, "key", h.redact(storageKey), "err", err)
}

func (h *Hooks) StoreSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("tilecache.store_set_rejected", "key", h.redact(storageKey))
}
