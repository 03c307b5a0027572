package tile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// ErrNotFound is returned by a ByteSource that has no data for a tile.
var ErrNotFound = errors.New("tile: not found")

// Source names where a tile comes from. Remote sources are fetched over HTTP
// from TileURL.
type Source interface {
	TileURL(id ID) string
}

// ByteSource serves tile bytes directly, without HTTP. TileURL is then only an
// identifier used in logs and traces.
type ByteSource interface {
	Source
	ReadTile(ctx context.Context, id ID) ([]byte, error)
}

// Template is a remote tile server addressed by a URL template with {z}, {x}
// and {y} placeholders. {s} is replaced by one of Subdomains, chosen per tile
// so neighbouring tiles spread across hosts.
type Template struct {
	URL        string
	Subdomains []string
}

// OpenStreetMap is the standard OSM raster tile server. Its usage policy
// requires an identifying User-Agent and honouring HTTP caching headers.
var OpenStreetMap = Template{URL: "https://tile.openstreetmap.org/{z}/{x}/{y}.png"}

var _ Source = Template{}

func (t Template) TileURL(id ID) string {
	s := ""
	if len(t.Subdomains) > 0 {
		s = t.Subdomains[int((uint64(id.X)+uint64(id.Y))%uint64(len(t.Subdomains)))]
	}
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(int(id.Z)),
		"{x}", strconv.FormatUint(uint64(id.X), 10),
		"{y}", strconv.FormatUint(uint64(id.Y), 10),
		"{s}", s,
	)
	return r.Replace(t.URL)
}

// Validate checks that the template addresses tiles.
func (t Template) Validate() error {
	if t.URL == "" {
		return errors.New("tile: empty url template")
	}
	for _, p := range []string{"{z}", "{x}", "{y}"} {
		if !strings.Contains(t.URL, p) {
			return fmt.Errorf("tile: url template %q lacks %s", t.URL, p)
		}
	}
	if strings.Contains(t.URL, "{s}") && len(t.Subdomains) == 0 {
		return fmt.Errorf("tile: url template %q uses {s} without subdomains", t.URL)
	}
	return nil
}

// Static is an in-memory ByteSource. Safe for concurrent use.
type Static struct {
	name  string
	mu    sync.RWMutex
	tiles map[ID][]byte
}

var _ ByteSource = (*Static)(nil)

func NewStatic(name string) *Static {
	return &Static{name: name, tiles: make(map[ID][]byte)}
}

// Put stores data for id, replacing any previous bytes.
func (s *Static) Put(id ID, data []byte) {
	s.mu.Lock()
	s.tiles[id] = data
	s.mu.Unlock()
}

func (s *Static) TileURL(id ID) string {
	return "static://" + s.name + "/" + id.String()
}

func (s *Static) ReadTile(_ context.Context, id ID) ([]byte, error) {
	s.mu.RLock()
	b, ok := s.tiles[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}
