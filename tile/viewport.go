package tile

import (
	"math"

	"github.com/paulmach/orb"
)

// maxLatitude is the Web Mercator latitude limit; tiles are square up to it.
const maxLatitude = 85.05112877980659

// DefaultSize is the edge length of a standard raster tile in pixels.
const DefaultSize = 256

// MaxViewportTiles bounds the result of ForViewport and ForPixelViewport. A
// covering set larger than this is cut off after MaxViewportTiles IDs, in row
// order.
const MaxViewportTiles = 1 << 14

// ForViewport returns the minimal set of tiles at zoom covering bounds, ordered
// row by row. Latitudes are clamped to the Mercator limit and y indices to
// [0, 2^zoom). A bound whose Min longitude is east of its Max longitude crosses
// the antimeridian: x indices wrap modulo 2^zoom instead of being clamped.
// Bounds with a NaN or infinite coordinate cover nothing.
func ForViewport(bounds orb.Bound, zoom uint8) []ID {
	if !finite(bounds.Min[0], bounds.Min[1], bounds.Max[0], bounds.Max[1]) {
		return nil
	}
	if zoom > MaxZoom {
		zoom = MaxZoom
	}
	n := float64(Span(zoom))

	west := lonFraction(bounds.Min.Lon()) * n
	east := lonFraction(bounds.Max.Lon()) * n
	if bounds.Min.Lon() > bounds.Max.Lon() {
		east += n
	}
	north := latFraction(bounds.Max.Lat()) * n
	south := latFraction(bounds.Min.Lat()) * n

	return cover(first(west), last(west, east), first(north), last(north, south), zoom)
}

// ForPixelViewport returns the tiles covering a width x height pixel viewport
// centred on center at zoom, for tiles of tileSize pixels (DefaultSize if <= 0).
func ForPixelViewport(center orb.Point, zoom uint8, width, height, tileSize int) []ID {
	if !finite(center[0], center[1]) || width < 0 || height < 0 {
		return nil
	}
	if zoom > MaxZoom {
		zoom = MaxZoom
	}
	if tileSize <= 0 {
		tileSize = DefaultSize
	}
	n := float64(Span(zoom))
	ts := float64(tileSize)

	cx := lonFraction(center.Lon()) * n * ts
	cy := latFraction(center.Lat()) * n * ts
	halfW, halfH := float64(width)/2, float64(height)/2

	left, right := (cx-halfW)/ts, (cx+halfW)/ts
	top, bottom := (cy-halfH)/ts, (cy+halfH)/ts

	return cover(first(left), last(left, right), first(top), last(top, bottom), zoom)
}

// cover enumerates the tiles in the index rectangle [x0, x1] x [y0, y1].
// Columns wrap around the globe, rows are clamped. At most MaxViewportTiles
// IDs are returned.
func cover(x0, x1, y0, y1 int64, zoom uint8) []ID {
	n := int64(Span(zoom))

	y0 = clamp(y0, 0, n-1)
	y1 = clamp(y1, 0, n-1)

	cols := x1 - x0 + 1
	if cols >= n {
		x0, cols = 0, n
	}

	total := cols * (y1 - y0 + 1)
	if total > MaxViewportTiles {
		total = MaxViewportTiles
	}
	out := make([]ID, 0, total)
	for y := y0; y <= y1; y++ {
		for c := int64(0); c < cols; c++ {
			if int64(len(out)) == total {
				return out
			}
			x := mod(x0+c, n)
			out = append(out, ID{Z: zoom, X: uint32(x), Y: uint32(y)})
		}
	}
	return out
}

// lonFraction maps a longitude to [0, 1) west to east, for longitudes in
// [-180, 180). Values outside that range extend linearly and are wrapped later.
func lonFraction(lon float64) float64 {
	return (lon + 180) / 360
}

// latFraction maps a latitude to [0, 1] north to south in Web Mercator.
func latFraction(lat float64) float64 {
	lat = math.Max(-maxLatitude, math.Min(maxLatitude, lat))
	rad := lat * math.Pi / 180
	return (1 - math.Log(math.Tan(rad)+1/math.Cos(rad))/math.Pi) / 2
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// indexLimit keeps tile index arithmetic inside int64 for absurd coordinates.
const indexLimit = 1 << 53

func first(f float64) int64 {
	return int64(math.Floor(math.Max(-indexLimit, math.Min(indexLimit, f))))
}

// last returns the index of the tile holding the far edge. An edge lying exactly
// on a tile boundary does not pull in the next tile.
func last(from, to float64) int64 {
	i := int64(math.Ceil(math.Max(-indexLimit, math.Min(indexLimit, to)))) - 1
	if lo := first(from); i < lo {
		return lo
	}
	return i
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mod(v, n int64) int64 {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
