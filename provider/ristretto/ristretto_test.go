package ristretto

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for zero config")
	}
}

func TestSynchronousSetIsVisible(t *testing.T) {
	ctx := context.Background()
	p, err := New(Config{NumCounters: 1000, MaxCost: 1 << 20, BufferItems: 64, Synchronous: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Close(ctx) })

	ok, err := p.Set(ctx, "k", []byte("v"), 1, time.Minute)
	if err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	b, ok, err := p.Get(ctx, "k")
	if err != nil || !ok || !bytes.Equal(b, []byte("v")) {
		t.Fatalf("Get right after synchronous Set: b=%q ok=%v err=%v", b, ok, err)
	}
	_ = p.Del(ctx, "k")
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatalf("key still present after Del")
	}
}
