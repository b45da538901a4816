package httpadmit

import (
	"testing"
	"time"
)

func TestGovernorAdmitsWithinCapacity(t *testing.T) {
	g := NewGovernor(2, 0, time.Second)
	if !g.Allow() {
		t.Fatal("expected first admission to succeed")
	}
	if !g.Allow() {
		t.Fatal("expected second admission to succeed")
	}
	if g.Shedding() {
		t.Fatal("expected governor not to be shedding yet")
	}
}

func TestGovernorShedsOnceCapacityExhausted(t *testing.T) {
	g := NewGovernor(1, 0, 500*time.Millisecond)
	if !g.Allow() {
		t.Fatal("expected first admission to succeed")
	}
	if g.Allow() {
		t.Fatal("expected second admission to be shed")
	}
	if !g.Shedding() {
		t.Fatal("expected governor to report shedding")
	}
	if g.RetryAfter() != 500*time.Millisecond {
		t.Fatalf("RetryAfter = %v, want 500ms", g.RetryAfter())
	}
}
