package httpcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	hc "github.com/gregjones/httpcache"

	"github.com/unkn0wn-root/tilecache/codec"
	"github.com/unkn0wn-root/tilecache/internal/util"
	"github.com/unkn0wn-root/tilecache/internal/wire"
	"github.com/unkn0wn-root/tilecache/store"
)

const (
	keyPrefix = "http"

	DefaultNamespace = "tiles"
	DefaultTTL       = 7 * 24 * time.Hour
	DefaultOpTimeout = 2 * time.Second
)

// Record is what the store keeps per cached response. Response is the raw
// HTTP/1.1 dump produced by the transport.
type Record struct {
	Key      string
	Response []byte
	StoredAt time.Time
}

// Self-heal reasons passed to StoreOptions.OnSelfHeal.
const (
	ReasonCorrupt       = "corrupt"
	ReasonCodecMismatch = "codec_mismatch"
	ReasonDecode        = "value_decode"
	ReasonKeyMismatch   = "key_mismatch"
)

type StoreOptions struct {
	Provider  store.Provider // required
	Namespace string
	Codec     codec.Codec[Record] // default CBOR

	// TTL bounds how long a response is retained, independent of its HTTP
	// freshness. Stale records are still useful for revalidation.
	TTL time.Duration

	// OpTimeout bounds each provider call.
	OpTimeout time.Duration

	// OnSelfHeal is called after an unreadable record was deleted.
	OnSelfHeal func(storageKey, reason string)
	// OnError is called when the provider fails; op is "get", "set" or "del".
	OnError func(op, storageKey string, err error)
	// OnSetRejected is called when the provider drops a write under pressure.
	OnSetRejected func(storageKey string)
}

// Store adapts a store.Provider to the transport's cache interface. Read
// failures are reported as misses.
type Store struct {
	p       store.Provider
	ns      string
	codec   codec.Codec[Record]
	tag     byte
	ttl     time.Duration
	timeout time.Duration

	onSelfHeal    func(string, string)
	onError       func(string, string, error)
	onSetRejected func(string)
}

var _ hc.Cache = (*Store)(nil)

func NewStore(opts StoreOptions) (*Store, error) {
	if opts.Provider == nil {
		return nil, errors.New("httpcache: provider is required")
	}
	s := &Store{
		p:             opts.Provider,
		ns:            opts.Namespace,
		codec:         opts.Codec,
		ttl:           opts.TTL,
		timeout:       opts.OpTimeout,
		onSelfHeal:    opts.OnSelfHeal,
		onError:       opts.OnError,
		onSetRejected: opts.OnSetRejected,
	}
	if s.ns == "" {
		s.ns = DefaultNamespace
	}
	if s.codec == nil {
		c, err := codec.NewCBOR[Record](false)
		if err != nil {
			return nil, fmt.Errorf("httpcache: %w", err)
		}
		s.codec = c
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.timeout <= 0 {
		s.timeout = DefaultOpTimeout
	}
	if s.onSelfHeal == nil {
		s.onSelfHeal = func(string, string) {}
	}
	if s.onError == nil {
		s.onError = func(string, string, error) {}
	}
	if s.onSetRejected == nil {
		s.onSetRejected = func(string) {}
	}
	s.tag = codecTag(s.codec)
	return s, nil
}

func codecTag(c codec.Codec[Record]) byte {
	switch c := c.(type) {
	case codec.CBOR[Record]:
		return wire.CodecCBOR
	case codec.Msgpack[Record]:
		return wire.CodecMsgpack
	case codec.JSON[Record]:
		return wire.CodecJSON
	case codec.Limit[Record]:
		return codecTag(c.Inner)
	}
	return wire.CodecOther
}

func (s *Store) storageKey(key string) string {
	return util.StoreKey(keyPrefix, s.ns, key)
}

func (s *Store) Get(key string) ([]byte, bool) {
	k := s.storageKey(key)
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	raw, ok, err := s.p.Get(ctx, k)
	if err != nil {
		s.onError("get", k, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	payload, err := wire.Decode(s.tag, raw)
	if err != nil {
		reason := ReasonCorrupt
		if errors.Is(err, wire.ErrCodec) {
			reason = ReasonCodecMismatch
		}
		s.heal(ctx, k, reason)
		return nil, false
	}
	rec, err := s.codec.Decode(payload)
	if err != nil {
		s.heal(ctx, k, ReasonDecode)
		return nil, false
	}
	if rec.Key != key {
		s.heal(ctx, k, ReasonKeyMismatch)
		return nil, false
	}
	return rec.Response, true
}

func (s *Store) heal(ctx context.Context, k, reason string) {
	if err := s.p.Del(ctx, k); err != nil {
		s.onError("del", k, err)
	}
	s.onSelfHeal(k, reason)
}

func (s *Store) Set(key string, response []byte) {
	k := s.storageKey(key)
	payload, err := s.codec.Encode(Record{Key: key, Response: response, StoredAt: time.Now().UTC()})
	if err != nil {
		s.onError("set", k, err)
		return
	}
	frame := wire.Encode(s.tag, payload)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	ok, err := s.p.Set(ctx, k, frame, int64(len(frame)), s.ttl)
	if err != nil {
		s.onError("set", k, err)
		return
	}
	if !ok {
		s.onSetRejected(k)
	}
}

func (s *Store) Delete(key string) {
	k := s.storageKey(key)
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.p.Del(ctx, k); err != nil {
		s.onError("del", k, err)
	}
}

// Close closes the underlying provider.
func (s *Store) Close(ctx context.Context) error {
	return s.p.Close(ctx)
}
