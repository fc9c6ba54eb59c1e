package metrics

import (
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// CheckoutStats groups the order-flow counters served by the management
// stats endpoint.
type CheckoutStats struct {
	Succeeded Counter
	Rejected  Counter
	Conflicts Counter
}

func (s *CheckoutStats) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"checkout_succeeded": s.Succeeded.Load(),
		"checkout_rejected":  s.Rejected.Load(),
		"checkout_conflicts": s.Conflicts.Load(),
	}
}
