package periph

import (
	"sync/atomic"
	"time"

	"fortio.org/safecast"

	"irqsim/internal/hw"
)

// SysTick asserts the system tick interrupt line at a fixed interval and
// counts the ticks it emitted. It is the only periodic event source on
// the board; the Timer service turns its vector into a timebase.
type SysTick struct {
	line     hw.Line
	interval time.Duration
	count    atomic.Int64
	stop     chan struct{}
}

// NewSysTick creates the tick source but does not start it.
func NewSysTick(line hw.Line, interval time.Duration) *SysTick {
	return &SysTick{
		line:     line,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins asserting the tick line at the configured interval.
func (s *SysTick) Start() {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.count.Add(1)
				s.line.Assert()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop signals the tick source to stop asserting.
func (s *SysTick) Stop() {
	close(s.stop)
}

// Count returns the number of ticks emitted so far.
func (s *SysTick) Count() int64 {
	return s.count.Load()
}

// TickInterval converts a tick period in microseconds to a duration,
// falling back to one millisecond on overflow.
func TickInterval(us uint32) time.Duration {
	ns, err := safecast.Conv[int64](uint64(us) * 1000)
	if err != nil {
		return time.Millisecond
	}
	return time.Duration(ns) * time.Nanosecond
}
