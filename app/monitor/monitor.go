// Package monitor runs the single process-wide metrics timer. Workers
// register listeners; every tick each listener reads and resets its
// counters and reports them to the telemetry sink.
package monitor

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Listener is invoked on every monitor tick with the elapsed wall-clock
// time since the monitor started.
type Listener func(elapsed time.Duration)

// Monitor broadcasts a periodic tick to registered listeners. One monitor
// is shared by all workers rather than each running its own timer.
type Monitor struct {
	interval time.Duration
	started  time.Time

	mu        sync.Mutex
	listeners []Listener
}

// New builds a monitor with the given tick interval.
func New(interval time.Duration) *Monitor {
	return &Monitor{
		interval: interval,
		started:  time.Now(),
	}
}

// Register attaches a listener. Listeners are invoked sequentially per
// tick, in registration order.
func (m *Monitor) Register(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Run ticks until context cancellation.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

// Tick runs one monitor cycle immediately. Run invokes it on every
// interval.
func (m *Monitor) Tick() {
	elapsed := time.Since(m.started)
	log.WithField("running_time", elapsed.Round(time.Millisecond).String()).Debug("monitor tick")

	m.mu.Lock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, l := range listeners {
		l(elapsed)
	}
}
