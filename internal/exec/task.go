package exec

import (
	"fmt"

	"irqsim/internal/trace"
)

// MaxTasks is the size of the task arena. Slots are allocated at spawn
// time and reused after a task dies; there is no dynamic growth, so the
// worst-case footprint is fixed at bring-up.
const MaxTasks = 16

// taskState tracks where a slot is in its poll lifecycle.
//
// statePollingPending records a wake that arrived while the task was
// already mid-poll: the poll loop runs one more time before the slot goes
// back to idle, so the wake is deferred instead of lost and the poll
// driver never recurses into a task.
type taskState uint8

const (
	stateDead taskState = iota
	stateIdle
	statePolling
	statePollingPending
)

// Result records how a dead task finished.
type Result int

const (
	ResultNone Result = iota
	ResultDone
	ResultCancelled
)

func (r Result) String() string {
	switch r {
	case ResultNone:
		return "None"
	case ResultDone:
		return "Done"
	case ResultCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

type taskSlot struct {
	state  taskState
	gen    uint32
	fut    Future
	cancel bool
	result Result
	name   string
}

// Handle refers to one spawned task instance: a slot index plus a
// generation. A handle to a slot that has since been reused compares
// against the wrong generation and is inert.
type Handle struct {
	idx int
	gen uint32
}

// Index returns the arena slot of the handle, mainly for trace output.
func (h Handle) Index() int { return h.idx }

// Executor owns the task arena and drives polls. It has no run loop of
// its own: every poll happens inside an interrupt handler via a Waker, or
// inside a synchronous Cancel.
//
// All methods must be called from the CPU goroutine. The executor holds
// no locks; serialization is the interrupt controller's job.
type Executor struct {
	slots [MaxTasks]taskSlot
	sink  trace.Sink
}

// New creates an executor reporting to the given trace sink (nil for none).
func New(sink trace.Sink) *Executor {
	return &Executor{sink: sink}
}

// Spawn installs the future in a free slot and polls it once immediately,
// so the task runs to its first suspension point before Spawn returns.
// It panics when the arena is full: task count is a static property of
// the system, not a runtime condition.
func (e *Executor) Spawn(name string, fut Future) Handle {
	for i := range e.slots {
		if e.slots[i].state == stateDead {
			return e.spawnInto(i, name, fut)
		}
	}
	panic(fmt.Sprintf("exec: task arena full (MaxTasks=%d)", MaxTasks))
}

// Restart cancels the task instance behind h, if still live, and spawns
// the new future into the same slot. The handle must belong to the slot's
// current instance.
func (e *Executor) Restart(h Handle, fut Future) Handle {
	s := e.slot(h.idx)
	if s.gen != h.gen {
		panic(fmt.Sprintf("exec: restart with stale handle for slot %d", h.idx))
	}
	if s.state != stateDead {
		e.Cancel(h)
	}
	return e.spawnInto(h.idx, s.name, fut)
}

func (e *Executor) spawnInto(idx int, name string, fut Future) Handle {
	s := &e.slots[idx]
	s.gen++
	s.state = stateIdle
	s.fut = fut
	s.cancel = false
	s.result = ResultNone
	s.name = name

	h := Handle{idx: idx, gen: s.gen}
	trace.Emit(e.sink, trace.KindSpawn, -1, idx, name)
	e.poll(idx, s.gen)
	return h
}

// Cancel requests cancellation and synchronously drives the target
// through its unwind path. When Cancel returns the target is dead and its
// resources are released; the caller may immediately reclaim anything the
// target held. Cancelling a dead or stale handle is a no-op.
//
// Cancelling a task that is currently mid-poll is a programming error:
// the run-to-completion rule means only the task's own poll could do
// that, and a task cannot cancel itself synchronously.
func (e *Executor) Cancel(h Handle) {
	s := e.slot(h.idx)
	if s.gen != h.gen || s.state == stateDead {
		return
	}
	if s.state == statePolling || s.state == statePollingPending {
		panic(fmt.Sprintf("exec: cannot cancel task %q while it is being polled", s.name))
	}

	s.cancel = true
	trace.Emit(e.sink, trace.KindCancelReq, -1, h.idx, s.name)
	e.poll(h.idx, h.gen)
}

// Running reports whether the handle's task instance is still live.
func (e *Executor) Running(h Handle) bool {
	s := e.slot(h.idx)
	return s.gen == h.gen && s.state != stateDead
}

// Result returns how the handle's task instance finished, or ResultNone
// while it is still live or when the handle is stale.
func (e *Executor) Result(h Handle) Result {
	s := e.slot(h.idx)
	if s.gen != h.gen || s.state != stateDead {
		return ResultNone
	}
	return s.result
}

func (e *Executor) slot(idx int) *taskSlot {
	if idx < 0 || idx >= MaxTasks {
		panic(fmt.Sprintf("exec: task index %d out of range", idx))
	}
	return &e.slots[idx]
}

// poll advances one task from its current suspension point. Stale wakes
// (dead slot or old generation) are dropped; a wake for a task already
// mid-poll is deferred via statePollingPending.
func (e *Executor) poll(idx int, gen uint32) {
	s := &e.slots[idx]
	if s.gen != gen || s.state == stateDead {
		return
	}
	if s.state == statePolling || s.state == statePollingPending {
		s.state = statePollingPending
		return
	}

	cx := Context{ex: e, idx: idx, gen: gen}
	for {
		s.state = statePolling
		trace.Emit(e.sink, trace.KindResume, -1, idx, s.name)

		switch out := s.fut.Poll(&cx); out {
		case Done:
			if s.cancel {
				panic(fmt.Sprintf("exec: task %q completed instead of unwinding on cancellation", s.name))
			}
			e.finish(s, idx, ResultDone)
			return
		case Cancelled:
			if !s.cancel {
				panic(fmt.Sprintf("exec: task %q reported cancellation without a request", s.name))
			}
			s.cancel = false // token consumed
			e.finish(s, idx, ResultCancelled)
			return
		case Pending:
			if s.cancel {
				panic(fmt.Sprintf("exec: task %q ignored a cancellation request", s.name))
			}
			if s.state == statePollingPending {
				// woken again during the poll: run once more
				continue
			}
			s.state = stateIdle
			trace.Emit(e.sink, trace.KindSuspend, -1, idx, s.name)
			return
		default:
			panic(fmt.Sprintf("exec: task %q returned invalid outcome %d", s.name, out))
		}
	}
}

func (e *Executor) finish(s *taskSlot, idx int, res Result) {
	s.state = stateDead
	s.fut = nil
	s.result = res

	kind := trace.KindComplete
	if res == ResultCancelled {
		kind = trace.KindCancelled
	}
	trace.Emit(e.sink, kind, -1, idx, s.name)
}

// Context is passed into every poll. It identifies the task being polled
// and exposes its cancellation token.
type Context struct {
	ex  *Executor
	idx int
	gen uint32
}

// Cancelled reports whether cancellation of this task has been requested.
func (cx *Context) Cancelled() bool {
	s := &cx.ex.slots[cx.idx]
	return s.gen == cx.gen && s.cancel
}

// Waker returns a waker that resumes this task instance when invoked.
func (cx *Context) Waker() Waker {
	return Waker{ex: cx.ex, idx: cx.idx, gen: cx.gen}
}

// Executor returns the executor polling this task, e.g. to spawn peers.
func (cx *Context) Executor() *Executor { return cx.ex }

// Handle returns the handle of the task being polled.
func (cx *Context) Handle() Handle {
	return Handle{idx: cx.idx, gen: cx.gen}
}

// Waker resumes one task instance. Waking a task whose instance has died
// or whose slot was reused is a silent no-op, so stale registrations can
// never cause a spurious resume.
//
// Wake must be called from the CPU goroutine, normally from inside an
// interrupt handler. Hardware feeder goroutines pend a vector instead.
type Waker struct {
	ex  *Executor
	idx int
	gen uint32
}

// Wake polls the task synchronously. The zero Waker does nothing.
func (w Waker) Wake() {
	if w.ex != nil {
		w.ex.poll(w.idx, w.gen)
	}
}
