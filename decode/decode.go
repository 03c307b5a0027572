// Package decode turns compressed raster tile bytes into tightly packed RGBA
// pixel buffers ready for texture upload. Alpha is straight, not
// premultiplied.
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"mime"
	"path"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// Format identifies a raster encoding. Values match the names reported by
// image.Decode.
type Format string

const (
	FormatUnknown Format = ""
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpeg"
	FormatWebP    Format = "webp"
)

// DefaultFormats are the encodings enabled when none are configured.
var DefaultFormats = []Format{FormatPNG, FormatJPEG}

var (
	ErrEmpty       = errors.New("decode: empty tile data")
	ErrUnsupported = errors.New("decode: unsupported image format")
)

// Error wraps a failure of the underlying image decoder.
type Error struct {
	Format Format
	Err    error
}

func (e *Error) Error() string {
	if e.Format == FormatUnknown {
		return fmt.Sprintf("decode: %v", e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Format, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ParseFormat accepts the common spellings of the supported formats.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	}
	return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupported, s)
}

// FormatFromContentType maps an HTTP Content-Type to a Format hint.
func FormatFromContentType(ct string) Format {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return FormatUnknown
	}
	switch mt {
	case "image/png":
		return FormatPNG
	case "image/jpeg", "image/jpg":
		return FormatJPEG
	case "image/webp":
		return FormatWebP
	}
	return FormatUnknown
}

// FormatFromURL guesses the format from the file extension of a tile URL.
func FormatFromURL(u string) Format {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	f, err := ParseFormat(strings.TrimPrefix(path.Ext(u), "."))
	if err != nil {
		return FormatUnknown
	}
	return f
}

// Decoder decodes the enabled formats. The zero value enables DefaultFormats.
type Decoder struct {
	formats map[Format]bool
}

func NewDecoder(formats ...Format) *Decoder {
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	d := &Decoder{formats: make(map[Format]bool, len(formats))}
	for _, f := range formats {
		d.formats[f] = true
	}
	return d
}

// Enabled reports whether f is decoded by d.
func (d *Decoder) Enabled(f Format) bool {
	if d == nil || d.formats == nil {
		return f == FormatPNG || f == FormatJPEG
	}
	return d.formats[f]
}

// Decode sniffs the encoding of data and decodes it to straight-alpha RGBA.
// The hint is used only when the bytes carry no recognisable signature.
func (d *Decoder) Decode(data []byte, hint Format) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	f := sniff(data)
	if f == FormatUnknown {
		f = hint
	}
	if f == FormatUnknown {
		return nil, ErrUnsupported
	}
	if !d.Enabled(f) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, f)
	}

	var (
		img image.Image
		err error
	)
	r := bytes.NewReader(data)
	switch f {
	case FormatPNG:
		img, err = png.Decode(r)
	case FormatJPEG:
		img, err = jpeg.Decode(r)
	case FormatWebP:
		img, err = webp.Decode(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, f)
	}
	if err != nil {
		return nil, &Error{Format: f, Err: err}
	}
	return toNRGBA(img), nil
}

func sniff(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return FormatPNG
	case bytes.HasPrefix(data, []byte{0xff, 0xd8}):
		return FormatJPEG
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return FormatWebP
	}
	return FormatUnknown
}

// toNRGBA returns img as a straight-alpha buffer with origin (0, 0) and stride
// 4*width. Translucent pixels are copied without passing through a
// premultiplied form, which would round their colour.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch src := img.(type) {
	case *image.NRGBA:
		if b.Min == (image.Point{}) && src.Stride == 4*w {
			return src
		}
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:(y+1)*dst.Stride], src.Pix[off:off+4*w])
		}
		return dst
	case *image.Paletted:
		pal := make([]color.NRGBA, len(src.Palette))
		for i, c := range src.Palette {
			pal[i] = color.NRGBAModel.Convert(c).(color.NRGBA)
		}
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.SetNRGBA(x, y, pal[src.ColorIndexAt(b.Min.X+x, b.Min.Y+y)])
			}
		}
		return dst
	}

	// Opaque pixels are identical premultiplied or not, so the fast RGBA
	// paths of draw apply.
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		rgba := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
		return &image.NRGBA{Pix: rgba.Pix, Stride: rgba.Stride, Rect: rgba.Rect}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}
