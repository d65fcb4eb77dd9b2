package exec

import (
	"fmt"

	"irqsim/internal/trace"
)

// MaxEvents is the size of the software event space.
const MaxEvents = 16

// Event identifies one software-pended wake source: a virtual interrupt
// raised by task code instead of hardware.
type Event uint8

// SoftPend is the software half of the wake registry. Raised events are
// queued in arrival order and drained by one dispatch vector, so two
// tasks woken by two events resume in the order the events were raised,
// exactly like two same-priority hardware interrupts.
//
// Unlike hardware vectors, software events support fan-out: several tasks
// may wait on the same event and are resumed in registration order.
//
// All methods run in CPU context (task code or interrupt handlers); the
// fields need no atomics.
type SoftPend struct {
	pending [MaxEvents]bool
	seq     [MaxEvents]uint32

	// raised events in arrival order; pending[] dedups entries, so the
	// queue can never hold more than MaxEvents
	queue [MaxEvents]Event
	head  int
	count int

	waiters [MaxEvents][MaxTasks]Waker
	nwait   [MaxEvents]int

	doorbell func()
	sink     trace.Sink
}

// NewSoftPend wires the queue to its dispatch vector: doorbell must pend
// the vector whose handler calls Dispatch.
func NewSoftPend(doorbell func(), sink trace.Sink) *SoftPend {
	return &SoftPend{doorbell: doorbell, sink: sink}
}

// Raise marks the event pending and rings the dispatch vector. Raising an
// event that is already pending coalesces into the pending one, the same
// way a level-held interrupt line does.
func (sp *SoftPend) Raise(ev Event) {
	sp.check(ev)
	trace.Emit(sp.sink, trace.KindRaise, -1, -1, fmt.Sprintf("event %d", ev))
	if !sp.pending[ev] {
		sp.pending[ev] = true
		sp.queue[(sp.head+sp.count)%MaxEvents] = ev
		sp.count++
	}
	if sp.doorbell != nil {
		sp.doorbell()
	}
}

// Dispatch drains the events queued at entry, in arrival order, waking
// each event's waiters in registration order. An event's pending flag is
// cleared before its waiters resume, so a re-raise from inside a resumed
// task queues a fresh entry that is honored on the next firing of the
// dispatch vector, never in this invocation.
func (sp *SoftPend) Dispatch() {
	n := sp.count
	for ; n > 0; n-- {
		ev := sp.queue[sp.head]
		sp.head = (sp.head + 1) % MaxEvents
		sp.count--

		sp.pending[ev] = false
		sp.seq[ev]++

		nw := sp.nwait[ev]
		var ws [MaxTasks]Waker
		copy(ws[:nw], sp.waiters[ev][:nw])
		sp.nwait[ev] = 0
		for i := 0; i < nw; i++ {
			ws[i].Wake()
		}
	}
}

// Pending reports whether the event is raised but not yet dispatched.
func (sp *SoftPend) Pending(ev Event) bool {
	sp.check(ev)
	return sp.pending[ev]
}

// Wait returns a future that completes at the next dispatch of ev after
// its first poll.
func (sp *SoftPend) Wait(ev Event) *EventWait {
	sp.check(ev)
	return &EventWait{sp: sp, ev: ev}
}

func (sp *SoftPend) check(ev Event) {
	if int(ev) >= MaxEvents {
		panic(fmt.Sprintf("exec: software event %d out of range", ev))
	}
}

func (sp *SoftPend) subscribe(ev Event, w Waker) {
	for i := 0; i < sp.nwait[ev]; i++ {
		if sp.waiters[ev][i] == w {
			return
		}
	}
	sp.waiters[ev][sp.nwait[ev]] = w
	sp.nwait[ev]++
}

func (sp *SoftPend) unsubscribe(ev Event, w Waker) {
	for i := 0; i < sp.nwait[ev]; i++ {
		if sp.waiters[ev][i] == w {
			copy(sp.waiters[ev][i:sp.nwait[ev]-1], sp.waiters[ev][i+1:sp.nwait[ev]])
			sp.nwait[ev]--
			sp.waiters[ev][sp.nwait[ev]] = Waker{}
			return
		}
	}
}

// EventWait suspends a task until its event is next dispatched. The wait
// is edge-triggered from the first poll: a dispatch that happened before
// the task started waiting does not count.
type EventWait struct {
	sp    *SoftPend
	ev    Event
	armed bool
	start uint32
}

func (w *EventWait) Poll(cx *Context) Outcome {
	if cx.Cancelled() {
		w.sp.unsubscribe(w.ev, cx.Waker())
		return Cancelled
	}
	if !w.armed {
		w.armed = true
		w.start = w.sp.seq[w.ev]
	}
	if w.sp.seq[w.ev] != w.start {
		return Done
	}
	w.sp.subscribe(w.ev, cx.Waker())
	return Pending
}

// Detach withdraws the waiter registration.
func (w *EventWait) Detach(cx *Context) {
	w.sp.unsubscribe(w.ev, cx.Waker())
}
