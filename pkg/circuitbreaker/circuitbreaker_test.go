package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errDown = errors.New("down")

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	t.Parallel()

	clk := &clock{t: time.Unix(0, 0)}
	b := New(Config{FailureThreshold: 3, SuccessThreshold: 1, Cooldown: time.Minute}).WithClock(clk.now)

	for i := 0; i < 3; i++ {
		if err := b.Execute(func() error { return errDown }); !errors.Is(err, errDown) {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	called := false
	if err := b.Execute(func() error { called = true; return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if called {
		t.Fatalf("fn ran while open")
	}
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	t.Parallel()

	b := New(Config{FailureThreshold: 2, Cooldown: time.Minute})
	_ = b.Execute(func() error { return errDown })
	_ = b.Execute(func() error { return nil })
	_ = b.Execute(func() error { return errDown })
	if b.State() != StateClosed {
		t.Fatalf("non-consecutive failures opened the breaker")
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	t.Parallel()

	clk := &clock{t: time.Unix(0, 0)}
	b := New(Config{FailureThreshold: 1, SuccessThreshold: 1, Cooldown: time.Minute}).WithClock(clk.now)
	_ = b.Execute(func() error { return errDown })

	clk.t = clk.t.Add(time.Minute)
	if err := b.Execute(func() error { return errDown }); !errors.Is(err, errDown) {
		t.Fatalf("probe not attempted: %v", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("failed probe should reopen, state = %v", b.State())
	}

	clk.t = clk.t.Add(time.Minute)
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("successful probe should close, state = %v", b.State())
	}
}
