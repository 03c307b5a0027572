// Package wire frames stored HTTP records so foreign or truncated values are
// detected before they reach a codec.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version byte = 1
	hdrLen       = 4 + 1 + 1 + 4
)

// Codec tags. A record written with one codec is never handed to another.
const (
	CodecOther   byte = 0
	CodecCBOR    byte = 1
	CodecMsgpack byte = 2
	CodecJSON    byte = 3
)

var (
	ErrCorrupt = errors.New("tilecache: corrupt record")
	// ErrCodec means the frame is intact but was written by a different codec.
	ErrCodec = errors.New("tilecache: record codec mismatch")

	magic4 = [...]byte{'T', 'C', 'H', 'R'}
)

// Encode frames payload:
//
//	magic(4) | ver(1) | codec(1) | vlen(u32 be) | payload(vlen)
func Encode(codec byte, payload []byte) []byte {
	out := make([]byte, hdrLen, hdrLen+len(payload))
	copy(out, magic4[:])
	out[4] = version
	out[5] = codec
	binary.BigEndian.PutUint32(out[6:hdrLen], uint32(len(payload)))
	return append(out, payload...)
}

// Decode returns the payload as a slice of b. The frame must fill b exactly.
func Decode(codec byte, b []byte) ([]byte, error) {
	if len(b) < hdrLen || !bytes.Equal(b[:4], magic4[:]) || b[4] != version {
		return nil, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[6:hdrLen]))
	if vlen != len(b)-hdrLen {
		return nil, ErrCorrupt
	}
	if b[5] != codec {
		return nil, ErrCodec
	}
	return b[hdrLen:], nil
}
