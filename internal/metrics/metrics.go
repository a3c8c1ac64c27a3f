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

// Calls tracks outbound calls to one dependency.
type Calls struct {
	total    Counter
	failed   Counter
	rejected Counter
	nanos    Counter
}

// Observe records a finished call. Rejected calls never reached the wire.
func (c *Calls) Observe(d time.Duration, err error, rejected bool) {
	c.total.Inc()
	c.nanos.Add(uint64(d))
	switch {
	case rejected:
		c.rejected.Inc()
	case err != nil:
		c.failed.Inc()
	}
}

// CallsSnapshot is a point-in-time copy of Calls.
type CallsSnapshot struct {
	Total      uint64        `json:"total"`
	Failed     uint64        `json:"failed"`
	Rejected   uint64        `json:"rejected"`
	AvgLatency time.Duration `json:"avgLatencyNs"`
}

func (c *Calls) Snapshot() CallsSnapshot {
	s := CallsSnapshot{
		Total:    c.total.Load(),
		Failed:   c.failed.Load(),
		Rejected: c.rejected.Load(),
	}
	if s.Total > 0 {
		s.AvgLatency = time.Duration(c.nanos.Load() / s.Total)
	}
	return s
}
