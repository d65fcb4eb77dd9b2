package hw

import (
	"context"
	"fmt"
	"sync/atomic"

	"irqsim/internal/trace"
)

// Vector numbers an interrupt line. NumVectors bounds the table so the
// pending state fits one machine word.
type Vector uint8

const NumVectors = 32

// Priority orders vectors: lower values are more urgent, as on Cortex-M.
type Priority uint8

// PriorityLowest is the default priority for unconfigured vectors.
const PriorityLowest Priority = 255

// priorityNone is the execution priority of thread mode: everything
// preempts it.
const priorityNone = 256

// Controller simulates a nested vectored interrupt controller plus the
// processor's sleep state. Handlers run on the one goroutine that called
// Run ("the CPU"); that goroutine is the only place executor and
// peripheral state may be touched, which is what stands in for the
// hardware guarantee that same-priority handlers never preempt each
// other.
//
// Pends from CPU context (task code, handlers) dispatch a strictly
// higher-priority vector immediately, nesting like real preemption.
// Pends from other goroutines go through Line.Assert and are taken at
// the next handler boundary or WFI, the closest a host process gets to
// asynchronous interrupt entry.
type Controller struct {
	names    [NumVectors]string
	prio     [NumVectors]Priority
	handlers [NumVectors]func()
	attached [NumVectors]bool

	pending atomic.Uint32

	// CPU-context state: the active handler stack and the BASEPRI-style
	// mask. Never touched by feeder goroutines.
	active [NumVectors]Priority
	depth  int
	mask   Priority

	doorbell chan struct{}
	started  bool
	sink     trace.Sink
}

// NewController creates a controller with all vectors at PriorityLowest.
func NewController(sink trace.Sink) *Controller {
	c := &Controller{
		doorbell: make(chan struct{}, 1),
		sink:     sink,
	}
	for i := range c.prio {
		c.prio[i] = PriorityLowest
	}
	return c
}

// Configure assigns a vector's name and priority. Priorities are static
// configuration: changing them after Run has started panics.
func (c *Controller) Configure(v Vector, name string, p Priority) {
	c.checkVector(v)
	if c.started {
		panic(fmt.Sprintf("hw: configure of vector %d after start", v))
	}
	c.names[v] = name
	c.prio[v] = p
}

// Attach installs the interrupt handler for a vector. Each vector takes
// exactly one handler; a second attach is a wiring bug and panics.
func (c *Controller) Attach(v Vector, isr func()) {
	c.checkVector(v)
	if c.started {
		panic(fmt.Sprintf("hw: attach on vector %d after start", v))
	}
	if c.attached[v] {
		panic(fmt.Sprintf("hw: vector %d (%s) already has a handler", v, c.names[v]))
	}
	c.handlers[v] = isr
	c.attached[v] = true
}

// Pend marks the vector pending from CPU context and dispatches it
// immediately if it preempts the current execution priority. Otherwise it
// stays pending and is taken when the current handler chain unwinds far
// enough, or at the next WFI.
//
// Pending a vector that is already pending coalesces: hardware keeps one
// bit per line.
func (c *Controller) Pend(v Vector) {
	c.checkAttached(v)
	c.setPending(v)
	trace.Emit(c.sink, trace.KindPend, int(v), -1, c.names[v])
	c.dispatch()
}

// Line returns the interrupt line for a vector, the only handle hardware
// feeder goroutines may hold. The line exists independently of a handler;
// an assert on an unattached vector stays pending until one is attached.
func (c *Controller) Line(v Vector) Line {
	c.checkVector(v)
	return Line{c: c, v: v}
}

// SetMask raises or lowers the execution priority floor and returns the
// previous value. While the mask is m (m > 0), vectors with priority >= m
// stay pending. Mask(0) disables masking. Lowering the mask dispatches
// anything that became eligible, so the critical section ends exactly at
// the SetMask call.
//
// Callers bracket cross-priority data touches with
//
//	old := c.SetMask(p)
//	defer c.SetMask(old)
func (c *Controller) SetMask(p Priority) Priority {
	old := c.mask
	c.mask = p
	trace.Emit(c.sink, trace.KindMask, -1, -1, fmt.Sprintf("mask %d -> %d", old, p))
	c.dispatch()
	return old
}

// Pending reports whether the vector is pended and not yet dispatched.
func (c *Controller) Pending(v Vector) bool {
	c.checkVector(v)
	return c.pending.Load()&(1<<v) != 0
}

// Run parks the CPU in its sleep-dispatch loop until ctx is done. Every
// step of execution from here on is an interrupt firing.
func (c *Controller) Run(ctx context.Context) error {
	c.started = true
	for {
		c.dispatch()
		select {
		case <-ctx.Done():
			return nil
		case <-c.doorbell:
			// an interrupt line was asserted; fall through and dispatch
		}
	}
}

// dispatch runs every eligible pending vector, highest priority first,
// tail-chaining until nothing preempts the current execution priority.
func (c *Controller) dispatch() {
	for {
		v, ok := c.takeNext()
		if !ok {
			return
		}
		trace.Emit(c.sink, trace.KindDispatch, int(v), -1, c.names[v])

		c.active[c.depth] = c.prio[v]
		c.depth++
		c.handlers[v]()
		c.depth--
	}
}

// takeNext selects and claims the most urgent eligible pending vector.
// Ties go to the lower vector number, as hardware resolves them.
func (c *Controller) takeNext() (Vector, bool) {
	limit := c.execPriority()
	if c.mask != 0 && int(c.mask) < limit {
		limit = int(c.mask)
	}

	bits := c.pending.Load()
	best := -1
	for v := 0; v < NumVectors; v++ {
		if bits&(1<<v) == 0 || !c.attached[v] {
			continue
		}
		if int(c.prio[v]) >= limit {
			continue
		}
		if best < 0 || c.prio[v] < c.prio[best] {
			best = v
		}
	}
	if best < 0 {
		return 0, false
	}
	c.clearPending(Vector(best))
	return Vector(best), true
}

// execPriority is the priority of the innermost active handler, or
// priorityNone in thread mode.
func (c *Controller) execPriority() int {
	if c.depth == 0 {
		return priorityNone
	}
	return int(c.active[c.depth-1])
}

func (c *Controller) setPending(v Vector) {
	for {
		old := c.pending.Load()
		if old&(1<<v) != 0 {
			return
		}
		if c.pending.CompareAndSwap(old, old|1<<v) {
			return
		}
	}
}

func (c *Controller) clearPending(v Vector) {
	for {
		old := c.pending.Load()
		if c.pending.CompareAndSwap(old, old&^(1<<v)) {
			return
		}
	}
}

func (c *Controller) checkVector(v Vector) {
	if int(v) >= NumVectors {
		panic(fmt.Sprintf("hw: vector %d out of range", v))
	}
}

func (c *Controller) checkAttached(v Vector) {
	c.checkVector(v)
	if !c.attached[v] {
		panic(fmt.Sprintf("hw: vector %d has no handler", v))
	}
}

// Line is the goroutine-safe face of one interrupt line. Peripheral
// simulations hold a Line and assert it when their event occurs; they
// never call handlers directly.
type Line struct {
	c *Controller
	v Vector
}

// Assert pends the vector and wakes the CPU if it is sleeping. Safe to
// call from any goroutine.
func (l Line) Assert() {
	l.c.setPending(l.v)
	trace.Emit(l.c.sink, trace.KindAssert, int(l.v), -1, l.c.names[l.v])
	select {
	case l.c.doorbell <- struct{}{}:
	default:
	}
}

// Vector returns the line's vector number.
func (l Line) Vector() Vector { return l.v }
