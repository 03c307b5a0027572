package zap

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/tilecache"
)

func TestLoggerWritesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := Logger{L: zap.New(core)}

	l.Warn("tile fetch failed", tilecache.Fields{"tile": "3/1/2", "err": errors.New("boom")})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["tile"] != "3/1/2" || ctx["err"] != "boom" {
		t.Fatalf("context=%v", ctx)
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("debug") != zap.DebugLevel || parseLevel("bogus") != zap.InfoLevel {
		t.Fatalf("unexpected level mapping")
	}
}
