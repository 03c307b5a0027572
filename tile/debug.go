package tile

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Debug renders a labelled placeholder PNG for every valid tile. Useful while
// developing a map view without network access.
type Debug struct{}

var _ ByteSource = Debug{}

func (Debug) TileURL(id ID) string {
	return "debug://" + id.String()
}

func (Debug) ReadTile(_ context.Context, id ID) ([]byte, error) {
	if !id.Valid() {
		return nil, ErrNotFound
	}

	img := image.NewRGBA(image.Rect(0, 0, DefaultSize, DefaultSize))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.RGBA{200, 220, 255, 255}}, image.Point{}, draw.Src)
	drawLabel(img, id.String())

	border := &image.Uniform{color.RGBA{100, 100, 100, 255}}
	for _, r := range []image.Rectangle{
		image.Rect(0, 0, DefaultSize, 1),
		image.Rect(0, DefaultSize-1, DefaultSize, DefaultSize),
		image.Rect(0, 0, 1, DefaultSize),
		image.Rect(DefaultSize-1, 0, DefaultSize, DefaultSize),
	} {
		draw.Draw(img, r, border, image.Point{}, draw.Src)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawLabel(img *image.RGBA, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}

	w := d.MeasureString(text).Round()
	h := face.Metrics().Height.Round()
	mid := DefaultSize / 2
	pad := 10

	bg := image.Rect(mid-w/2-pad, mid-h/2-pad, mid+w/2+pad, mid+h/2+pad)
	draw.Draw(img, bg, &image.Uniform{color.RGBA{255, 255, 255, 220}}, image.Point{}, draw.Over)

	d.Dot = fixed.Point26_6{X: fixed.I(mid - w/2), Y: fixed.I(mid + h/2)}
	d.DrawString(text)
}
