package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestPacerSpacesCalls(t *testing.T) {
	p := NewPacer()
	ctx := context.Background()
	interval := 30 * time.Millisecond

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx, "provider", interval); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	elapsed := time.Since(start)

	// First call is immediate, the next two each wait one interval.
	if elapsed < 2*interval-5*time.Millisecond {
		t.Errorf("elapsed %v, want at least ~%v", elapsed, 2*interval)
	}
}

func TestPacerIndependentKeys(t *testing.T) {
	p := NewPacer()
	ctx := context.Background()

	start := time.Now()
	_ = p.Wait(ctx, "a", 50*time.Millisecond)
	_ = p.Wait(ctx, "b", 50*time.Millisecond)
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Errorf("different keys should not delay each other, took %v", elapsed)
	}
}

func TestPacerCancellation(t *testing.T) {
	p := NewPacer()
	_ = p.Wait(context.Background(), "k", time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := p.Wait(ctx, "k", time.Second); err == nil {
		t.Error("expected context error while waiting")
	}
}

func TestLimiterAllow(t *testing.T) {
	l := New()

	if !l.Allow("k", 2, 0) {
		t.Fatal("first token should be granted")
	}
	if !l.Allow("k", 2, 0) {
		t.Fatal("second token should be granted")
	}
	if l.Allow("k", 2, 0) {
		t.Error("bucket exhausted, expected denial")
	}
}
