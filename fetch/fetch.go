// Package fetch turns a tile ID into decoded pixels: source lookup, HTTP
// retrieval through the response cache, then decode, all inside one task.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/unkn0wn-root/tilecache/decode"
	"github.com/unkn0wn-root/tilecache/tile"
)

const (
	tracerName = "github.com/unkn0wn-root/tilecache/fetch"

	DefaultUserAgent = "tilecache/1.0"

	// DefaultMaxBytes caps a tile response body.
	DefaultMaxBytes int64 = 8 << 20
)

type Options struct {
	Source  tile.Source // required
	Client  *http.Client
	Decoder *decode.Decoder

	UserAgent string
	MaxBytes  int64

	TracerProvider trace.TracerProvider
}

type Fetcher struct {
	src       tile.Source
	client    *http.Client
	dec       *decode.Decoder
	userAgent string
	maxBytes  int64
	tracer    trace.Tracer
}

func New(opts Options) (*Fetcher, error) {
	if opts.Source == nil {
		return nil, errors.New("fetch: Source is required")
	}
	f := &Fetcher{
		src:       opts.Source,
		client:    opts.Client,
		dec:       opts.Decoder,
		userAgent: opts.UserAgent,
		maxBytes:  opts.MaxBytes,
	}
	if f.client == nil {
		f.client = http.DefaultClient
	}
	if f.dec == nil {
		f.dec = decode.NewDecoder()
	}
	if f.userAgent == "" {
		f.userAgent = DefaultUserAgent
	}
	if f.maxBytes <= 0 {
		f.maxBytes = DefaultMaxBytes
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	f.tracer = tp.Tracer(tracerName)
	return f, nil
}

// Fetch retrieves and decodes one tile. Every non-nil error is a *Error.
func (f *Fetcher) Fetch(ctx context.Context, id tile.ID) (*image.NRGBA, error) {
	url := f.src.TileURL(id)
	ctx, span := f.tracer.Start(ctx, "tile.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int("tile.z", int(id.Z)),
			attribute.Int64("tile.x", int64(id.X)),
			attribute.Int64("tile.y", int64(id.Y)),
			semconv.URLFull(url),
		),
	)
	defer span.End()

	img, err := f.fetch(ctx, span, id, url)
	if err != nil {
		fe := AsError(err, url)
		span.SetAttributes(attribute.String("tile.error_kind", fe.Kind.String()))
		span.RecordError(fe)
		span.SetStatus(codes.Error, fe.Error())
		return nil, fe
	}
	span.SetStatus(codes.Ok, "")
	return img, nil
}

func (f *Fetcher) fetch(ctx context.Context, span trace.Span, id tile.ID, url string) (*image.NRGBA, error) {
	var (
		data []byte
		hint decode.Format
		err  error
	)
	if bs, ok := f.src.(tile.ByteSource); ok {
		data, err = bs.ReadTile(ctx, id)
		if errors.Is(err, tile.ErrNotFound) {
			return nil, &Error{Kind: KindHTTPStatus, URL: url, Status: http.StatusNotFound, Err: err}
		}
		if err != nil {
			return nil, &Error{Kind: KindNetwork, URL: url, Err: err}
		}
		hint = decode.FormatFromURL(url)
	} else {
		data, hint, err = f.get(ctx, span, url)
		if err != nil {
			return nil, err
		}
	}

	// Decode is CPU-bound; under js/wasm the render loop only runs when we yield.
	runtime.Gosched()

	img, err := f.dec.Decode(data, hint)
	if err != nil {
		return nil, &Error{Kind: KindDecode, URL: url, Err: err}
	}
	return img, nil
}

func (f *Fetcher) get(ctx context.Context, span trace.Span, url string) ([]byte, decode.Format, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, decode.FormatUnknown, &Error{Kind: KindMalformed, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, decode.FormatUnknown, &Error{Kind: KindNetwork, URL: url, Err: err}
	}
	defer resp.Body.Close()

	span.SetAttributes(
		semconv.HTTPResponseStatusCode(resp.StatusCode),
		attribute.Bool("http.from_cache", resp.Header.Get("X-From-Cache") == "1"),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, decode.FormatUnknown, &Error{Kind: KindHTTPStatus, URL: url, Status: resp.StatusCode}
	}

	if resp.ContentLength > f.maxBytes {
		return nil, decode.FormatUnknown, &Error{
			Kind: KindMalformed, URL: url,
			Err: fmt.Errorf("content length %d exceeds %d", resp.ContentLength, f.maxBytes),
		}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, decode.FormatUnknown, &Error{Kind: KindMalformed, URL: url, Err: err}
	}
	if int64(len(data)) > f.maxBytes {
		return nil, decode.FormatUnknown, &Error{Kind: KindMalformed, URL: url, Err: fmt.Errorf("body exceeds %d bytes", f.maxBytes)}
	}
	span.SetAttributes(attribute.Int("http.response.size", len(data)))

	hint := decode.FormatFromContentType(resp.Header.Get("Content-Type"))
	if hint == decode.FormatUnknown {
		hint = decode.FormatFromURL(url)
	}
	return data, hint, nil
}
