package periph

import (
	"github.com/emirpasic/gods/trees/redblacktree"

	"irqsim/internal/exec"
)

// Instant is a timestamp in microseconds since boot. It wraps after 2^32
// microseconds, about 71 minutes; comparisons stay correct as long as two
// compared instants are less than half the range apart.
type Instant uint32

// IsBefore reports whether i is at or before other in wrapped time.
func (i Instant) IsBefore(other Instant) bool {
	return other-i <= 0x8000_0000
}

// Add returns the instant us microseconds later, wrapping.
func (i Instant) Add(us uint32) Instant {
	return Instant(uint32(i) + us)
}

// Timer is the board timebase. Its ISR runs on the systick vector,
// advances the current instant by one tick and fires every delay whose
// deadline has passed. Pending delays are kept ordered in a red-black
// tree keyed by (deadline, sequence), so worst-case fire order is
// deterministic even for equal deadlines.
//
// All methods run in CPU context.
type Timer struct {
	tickUS uint32
	now    Instant
	seq    uint64
	tree   *redblacktree.Tree
}

// NewTimer creates a timebase advancing tickUS microseconds per tick.
func NewTimer(tickUS uint32) *Timer {
	return &Timer{
		tickUS: tickUS,
		tree:   redblacktree.NewWith(deadlineCmp),
	}
}

// ISR is the systick interrupt handler: advance time, fire expired delays.
func (t *Timer) ISR() {
	t.now = t.now.Add(t.tickUS)
	t.fire()
}

// Now returns the current instant.
func (t *Timer) Now() Instant {
	return t.now
}

// Delay returns a future that completes at least us microseconds from now.
func (t *Timer) Delay(us uint32) *Delay {
	return t.DelayUntil(t.now.Add(us))
}

// DelayUntil returns a future that completes once the timebase reaches at.
func (t *Timer) DelayUntil(at Instant) *Delay {
	return &Delay{
		t:   t,
		at:  at,
		irq: exec.NewInterrupt("timer-delay"),
	}
}

func (t *Timer) fire() {
	for {
		node := t.tree.Left()
		if node == nil {
			return
		}
		key := node.Key.(deadlineKey)
		if !key.at.IsBefore(t.now) {
			// earliest deadline is still in the future
			return
		}
		d := node.Value.(*Delay)
		t.tree.Remove(key)
		d.linked = false
		d.irq.Notify()
	}
}

// deadlineKey orders the delay tree.
type deadlineKey struct {
	at  Instant
	seq uint64
}

func deadlineCmp(a, b any) int {
	ka, kb := a.(deadlineKey), b.(deadlineKey)
	if ka.at != kb.at {
		if ka.at.IsBefore(kb.at) {
			return -1
		}
		return 1
	}
	switch {
	case ka.seq < kb.seq:
		return -1
	case ka.seq > kb.seq:
		return 1
	default:
		return 0
	}
}

// Delay suspends a task until its deadline. Losing a race or being
// cancelled removes the node from the deadline tree, so an abandoned
// delay can never fire.
type Delay struct {
	t      *Timer
	at     Instant
	key    deadlineKey
	linked bool
	irq    *exec.Interrupt
}

func (d *Delay) Poll(cx *exec.Context) exec.Outcome {
	if cx.Cancelled() {
		d.unlink()
		d.irq.Clear(cx)
		return exec.Cancelled
	}
	if d.at.IsBefore(d.t.now) {
		d.unlink()
		return exec.Done
	}
	d.irq.Subscribe(cx)
	d.link()
	return exec.Pending
}

// Detach unlinks the delay from the timebase.
func (d *Delay) Detach(cx *exec.Context) {
	d.unlink()
	d.irq.Clear(cx)
}

// Deadline returns the instant the delay fires at.
func (d *Delay) Deadline() Instant { return d.at }

func (d *Delay) link() {
	if d.linked {
		return
	}
	d.t.seq++
	d.key = deadlineKey{at: d.at, seq: d.t.seq}
	d.t.tree.Put(d.key, d)
	d.linked = true
}

func (d *Delay) unlink() {
	if !d.linked {
		return
	}
	d.t.tree.Remove(d.key)
	d.linked = false
}
