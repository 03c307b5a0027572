// Package tile defines slippy-map tile addressing (z/x/y in the XYZ scheme) and
// the sources tile bytes are loaded from.
package tile

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// MaxZoom is the deepest zoom level an ID may address.
const MaxZoom = 24

// ID addresses one tile. It is comparable and used directly as a map key.
type ID struct {
	Z uint8
	X uint32
	Y uint32
}

func New(z uint8, x, y uint32) ID {
	return ID{Z: z, X: x, Y: y}
}

// Span returns the number of tiles along one axis at zoom z.
func Span(z uint8) uint32 {
	return uint32(1) << z
}

// Valid reports whether x and y are inside [0, 2^z) and z <= MaxZoom.
func (id ID) Valid() bool {
	return id.Z <= MaxZoom && id.X < Span(id.Z) && id.Y < Span(id.Z)
}

func (id ID) String() string {
	return fmt.Sprintf("%d/%d/%d", id.Z, id.X, id.Y)
}

// Maptile converts the ID to an orb maptile.
func (id ID) Maptile() maptile.Tile {
	return maptile.New(id.X, id.Y, maptile.Zoom(id.Z))
}

// Bound returns the geographic extent covered by the tile.
func (id ID) Bound() orb.Bound {
	return id.Maptile().Bound()
}

// FromMaptile converts an orb maptile. Zoom levels beyond MaxZoom yield an invalid ID.
func FromMaptile(t maptile.Tile) ID {
	z := uint8(MaxZoom + 1)
	if t.Z <= MaxZoom {
		z = uint8(t.Z)
	}
	return ID{Z: z, X: t.X, Y: t.Y}
}
