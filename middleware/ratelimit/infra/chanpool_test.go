package infra

import (
	"context"
	"testing"
	"time"
)

func TestChanPool_BlocksWhenFull(t *testing.T) {
	p := NewChanPool(1)

	release, ok := p.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected first acquire to succeed")
	}
	if p.InFlight() != 1 {
		t.Fatalf("expected 1 in flight, got %d", p.InFlight())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, ok := p.Acquire(ctx); ok {
		t.Fatalf("expected acquire on full pool to fail")
	}

	release()
	release()
	if p.InFlight() != 0 {
		t.Fatalf("expected release to be idempotent, got %d in flight", p.InFlight())
	}
}
