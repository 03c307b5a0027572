package tilecache

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/unkn0wn-root/tilecache/codec"
	"github.com/unkn0wn-root/tilecache/decode"
	"github.com/unkn0wn-root/tilecache/executor"
	"github.com/unkn0wn-root/tilecache/httpcache"
	"github.com/unkn0wn-root/tilecache/store"
	"github.com/unkn0wn-root/tilecache/tile"
)

// Options configure a Provider. Only Source is required.
type Options struct {
	// Source maps tile IDs to URLs, or to bytes for a tile.ByteSource.
	Source tile.Source

	Capacity int // decoded tiles kept; 0 => 256

	// Cool-down before a failed tile is requested again.
	FailureCooldown time.Duration // status, malformed and decode failures; 0 => 30s
	NetworkCooldown time.Duration // transport failures; 0 => 5s

	Formats []decode.Format // 0 => png, jpeg

	// Executor runs fetches; nil => executor.Default(6). The Provider closes it.
	Executor executor.Executor

	// HTTPClient performs tile requests. When set, HTTPStore and HTTPCodec are
	// ignored and no response caching is added.
	HTTPClient *http.Client
	// HTTPStore backs the response cache; nil => in-memory ristretto. The
	// Provider closes it.
	HTTPStore store.Provider
	// HTTPCodec encodes stored responses; nil => CBOR.
	HTTPCodec     codec.Codec[httpcache.Record]
	HTTPNamespace string        // store key namespace; "" => "tiles"
	HTTPTTL       time.Duration // record retention; 0 => 7d
	HTTPTimeout   time.Duration // per request; 0 => 30s

	UserAgent string // "" => "tilecache/1.0"

	Logger         Logger // nil => NopLogger
	Hooks          Hooks  // nil => NopHooks
	TracerProvider trace.TracerProvider

	// Clock drives cool-downs; nil => time.Now.
	Clock func() time.Time

	// OnTileReady is called, outside any lock, after a tile becomes Ready.
	// A UI typically requests a repaint here.
	OnTileReady func(tile.ID)
}
