package util

import (
	"strings"
	"testing"
)

func TestStoreKey(t *testing.T) {
	a := StoreKey("http", "osm", "https://tile.openstreetmap.org/1/0/0.png")
	b := StoreKey("http", "osm", "https://tile.openstreetmap.org/1/0/1.png")
	if a == b {
		t.Fatalf("distinct keys collided")
	}
	if !strings.HasPrefix(a, "http:osm:") || len(a) != len("http:osm:")+32 {
		t.Fatalf("unexpected key shape %q", a)
	}
	if a != StoreKey("http", "osm", "https://tile.openstreetmap.org/1/0/0.png") {
		t.Fatalf("key not deterministic")
	}
}
