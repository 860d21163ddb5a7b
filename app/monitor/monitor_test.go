package monitor

import (
	"testing"
	"time"
)

func TestMonitorTickInvokesListeners(t *testing.T) {
	t.Parallel()

	m := New(time.Minute)

	var first, second int
	m.Register(func(time.Duration) { first++ })
	m.Register(func(time.Duration) { second++ })

	m.Tick()
	m.Tick()

	if first != 2 || second != 2 {
		t.Fatalf("expected both listeners invoked twice, got %d and %d", first, second)
	}
}

func TestMonitorTickElapsedGrows(t *testing.T) {
	t.Parallel()

	m := New(time.Minute)

	var seen []time.Duration
	m.Register(func(elapsed time.Duration) { seen = append(seen, elapsed) })

	m.Tick()
	time.Sleep(5 * time.Millisecond)
	m.Tick()

	if len(seen) != 2 {
		t.Fatalf("expected 2 ticks, got %d", len(seen))
	}
	if seen[1] <= seen[0] {
		t.Fatalf("expected elapsed to grow, got %v then %v", seen[0], seen[1])
	}
}
