package tilecache

import (
	"image"
	"time"

	"github.com/unkn0wn-root/tilecache/fetch"
	"github.com/unkn0wn-root/tilecache/tile"
)

// Tile is a decoded tile ready for upload to a texture.
type Tile struct {
	ID    tile.ID
	Image *image.NRGBA
}

func (t Tile) Width() int  { return t.Image.Rect.Dx() }
func (t Tile) Height() int { return t.Image.Rect.Dy() }

// Pix returns RGBA8 pixels with straight (non-premultiplied) alpha, row-major
// with stride 4*Width.
func (t Tile) Pix() []byte { return t.Image.Pix }

// State is what the cache knows about one tile. It is one of Absent, Pending,
// Ready or Failed; switch on the concrete type.
type State interface {
	state()
	String() string
}

// Absent means the cache holds nothing for the tile.
type Absent struct{}

// Pending means a fetch is in flight. Attempt identifies it.
type Pending struct {
	Since   time.Time
	Attempt uint64
}

// Ready holds the decoded tile. LastAccess is the cache's access tick at the
// most recent touch.
type Ready struct {
	Tile       Tile
	LastAccess uint64
}

// Failed records the last failure. Requests before RetryAt return it unchanged.
type Failed struct {
	Err     *fetch.Error
	RetryAt time.Time
}

func (Absent) state()  {}
func (Pending) state() {}
func (Ready) state()   {}
func (Failed) state()  {}

func (Absent) String() string  { return "absent" }
func (Pending) String() string { return "pending" }
func (Ready) String() string   { return "ready" }
func (Failed) String() string  { return "failed" }
