// Package store is the byte store behind the HTTP response cache.
//
// A Provider must hand back exactly the bytes it was given: no framing, no
// transcoding. Keys under the "http:" prefix belong to the response cache;
// anything else found there is treated as corruption and removed.
package store

import (
	"context"
	"time"
)

// Provider is a concurrent-safe byte store with per-entry TTLs.
type Provider interface {
	// Get returns (value, true, nil) on hit and (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value for ttl (ttl <= 0 means no expiry). cost is a size hint
	// that stores may ignore. ok=false means the write was dropped under
	// pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes key. Missing keys are not an error.
	Del(ctx context.Context, key string) error

	Close(ctx context.Context) error
}
