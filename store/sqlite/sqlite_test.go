package sqlite

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTest(t *testing.T, now *time.Time) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{
		Path: filepath.Join(t.TempDir(), "http.db"),
		Now:  func() time.Time { return *now },
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	s := openTest(t, &now)

	if _, ok, err := s.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("empty get ok=%v err=%v", ok, err)
	}
	if ok, err := s.Set(ctx, "k", []byte("v1"), 0, 0); !ok || err != nil {
		t.Fatalf("set ok=%v err=%v", ok, err)
	}
	if ok, err := s.Set(ctx, "k", []byte("v2"), 0, 0); !ok || err != nil {
		t.Fatalf("overwrite ok=%v err=%v", ok, err)
	}
	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || !bytes.Equal(got, []byte("v2")) {
		t.Fatalf("get=%q ok=%v err=%v", got, ok, err)
	}
	if err := s.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("key survived delete")
	}
}

func TestStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	s := openTest(t, &now)

	_, _ = s.Set(ctx, "short", []byte("a"), 0, time.Minute)
	_, _ = s.Set(ctx, "long", []byte("b"), 0, time.Hour)
	_, _ = s.Set(ctx, "forever", []byte("c"), 0, 0)

	now = now.Add(2 * time.Minute)
	if _, ok, _ := s.Get(ctx, "short"); ok {
		t.Fatalf("expired record returned")
	}
	if _, ok, _ := s.Get(ctx, "long"); !ok {
		t.Fatalf("live record missing")
	}

	now = now.Add(2 * time.Hour)
	n, err := s.Prune(ctx)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 1 {
		t.Fatalf("pruned %d, want 1", n)
	}
	if _, ok, _ := s.Get(ctx, "forever"); !ok {
		t.Fatalf("record without ttl was pruned")
	}
}

func TestOpenReappliesMigrations(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "http.db")

	s, err := Open(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, _ = s.Set(ctx, "k", []byte("v"), 0, 0)
	_ = s.Close(ctx)

	s, err = Open(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close(ctx)
	if _, ok, _ := s.Get(ctx, "k"); !ok {
		t.Fatalf("record lost across reopen")
	}
}
