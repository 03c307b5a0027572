// Package codec serializes values for the byte store.
package codec

import "fmt"

// Codec turns a V into bytes and back. Implementations must be safe for
// concurrent use.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Names accepted by ByName.
const (
	NameCBOR    = "cbor"
	NameMsgpack = "msgpack"
	NameJSON    = "json"
)

// ByName returns the codec registered under name. Empty selects CBOR.
func ByName[V any](name string) (Codec[V], error) {
	switch name {
	case "", NameCBOR:
		return NewCBOR[V](false)
	case NameMsgpack:
		return Msgpack[V]{}, nil
	case NameJSON:
		return JSON[V]{}, nil
	}
	return nil, fmt.Errorf("codec: unknown codec %q", name)
}
