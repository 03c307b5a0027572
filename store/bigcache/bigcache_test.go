package bigcache

import (
	"context"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	p, err := New(Config{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer p.Close(context.Background())

	ctx := context.Background()
	if _, ok, err := p.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("miss ok=%v err=%v", ok, err)
	}
	if ok, err := p.Set(ctx, "k", []byte("v"), 0, 0); !ok || err != nil {
		t.Fatalf("set ok=%v err=%v", ok, err)
	}
	got, ok, err := p.Get(ctx, "k")
	if err != nil || !ok || string(got) != "v" {
		t.Fatalf("get=%q ok=%v err=%v", got, ok, err)
	}
	if p.Len() != 1 {
		t.Fatalf("len=%d", p.Len())
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("second del: %v", err)
	}
}
