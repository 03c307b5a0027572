package sloghook

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/tilecache/fetch"
	"github.com/unkn0wn-root/tilecache/tile"
)

func TestSampledEvictions(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := New(l, Options{EvictedEvery: 3})

	for i := 0; i < 9; i++ {
		h.Evicted(tile.New(2, 1, 1), "ready")
	}
	if got := strings.Count(buf.String(), "tilecache.evicted"); got != 3 {
		t.Fatalf("logged %d evictions, want 3", got)
	}
}

func TestFetchFailedFields(t *testing.T) {
	var buf bytes.Buffer
	h := New(slog.New(slog.NewTextHandler(&buf, nil)), Options{})

	h.FetchFailed(tile.New(1, 0, 1), &fetch.Error{Kind: fetch.KindHTTPStatus, Status: 404})
	out := buf.String()
	if !strings.Contains(out, "tile=1/0/1") || !strings.Contains(out, "kind=http_status") || !strings.Contains(out, "status=404") {
		t.Fatalf("log line %q", out)
	}
}

func TestStoreKeysRedacted(t *testing.T) {
	var buf bytes.Buffer
	h := New(slog.New(slog.NewTextHandler(&buf, nil)), Options{})
	h.StoreSelfHeal("http:tiles:secret", "corrupt")
	if strings.Contains(buf.String(), "secret") {
		t.Fatalf("store key leaked: %q", buf.String())
	}
}
