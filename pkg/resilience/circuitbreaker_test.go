package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failingBreaker(t *testing.T, threshold int, reset time.Duration) *CircuitBreaker {
	t.Helper()
	return NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold:    threshold,
		ResetTimeout:        reset,
		HalfOpenMaxRequests: 1,
	})
}

func tripOpen(t *testing.T, cb *CircuitBreaker, failures int) {
	t.Helper()
	for i := 0; i < failures; i++ {
		if err := cb.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("failure %d: got %v, want errBoom", i, err)
		}
	}
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	cb := failingBreaker(t, 3, time.Minute)

	tripOpen(t, cb, 3)
	if got := cb.GetState(); got != StateOpen {
		t.Fatalf("state after %d failures = %v, want open", 3, got)
	}

	err := cb.Execute(func() error {
		t.Fatal("fn must not run while circuit is open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := failingBreaker(t, 3, time.Minute)

	tripOpen(t, cb, 2)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("success call returned %v", err)
	}
	// Two more failures stay below the threshold again.
	tripOpen(t, cb, 2)
	if got := cb.GetState(); got != StateClosed {
		t.Fatalf("state = %v, want closed", got)
	}
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := failingBreaker(t, 1, 10*time.Millisecond)

	tripOpen(t, cb, 1)
	time.Sleep(20 * time.Millisecond)

	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe returned %v", err)
	}
	if got := cb.GetState(); got != StateClosed {
		t.Fatalf("state after successful probe = %v, want closed", got)
	}
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	cb := failingBreaker(t, 1, 10*time.Millisecond)

	tripOpen(t, cb, 1)
	time.Sleep(20 * time.Millisecond)

	if err := cb.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
		t.Fatalf("probe returned %v, want errBoom", err)
	}
	if got := cb.GetState(); got != StateOpen {
		t.Fatalf("state after failed probe = %v, want open", got)
	}
}

func TestBreakerStateChangeCallback(t *testing.T) {
	var transitions []State
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold:    1,
		ResetTimeout:        10 * time.Millisecond,
		HalfOpenMaxRequests: 1,
		OnStateChange: func(name string, state State) {
			if name != "test" {
				t.Errorf("callback name = %q, want test", name)
			}
			transitions = append(transitions, state)
		},
	})

	tripOpen(t, cb, 1)
	time.Sleep(20 * time.Millisecond)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe returned %v", err)
	}

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transition %d = %v, want %v", i, transitions[i], want[i])
		}
	}
}

func TestBreakerReset(t *testing.T) {
	cb := failingBreaker(t, 1, time.Hour)

	tripOpen(t, cb, 1)
	cb.Reset()
	if got := cb.GetState(); got != StateClosed {
		t.Fatalf("state after reset = %v, want closed", got)
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("call after reset returned %v", err)
	}
}
