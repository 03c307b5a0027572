package ristretto

import (
	"context"
	"testing"
	"time"
)

func TestSynchronousSetIsVisible(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Synchronous = true
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer p.Close(context.Background())

	ctx := context.Background()
	if ok, err := p.Set(ctx, "k", []byte("tile"), 0, time.Hour); !ok || err != nil {
		t.Fatalf("set ok=%v err=%v", ok, err)
	}
	got, ok, err := p.Get(ctx, "k")
	if err != nil || !ok || string(got) != "tile" {
		t.Fatalf("get=%q ok=%v err=%v", got, ok, err)
	}

	_ = p.Del(ctx, "k")
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatalf("key survived delete")
	}
}

func TestNewRejectsZeroConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for zero config")
	}
}
