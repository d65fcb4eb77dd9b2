package trace

import (
	"sync/atomic"
	"time"
)

// Kind represents the type of executor trace event.
type Kind int

const (
	KindSpawn Kind = iota
	KindResume
	KindSuspend
	KindComplete
	KindCancelReq
	KindCancelled
	KindPend
	KindAssert
	KindDispatch
	KindRaise
	KindMask
)

func (k Kind) String() string {
	switch k {
	case KindSpawn:
		return "Spawn"
	case KindResume:
		return "Resume"
	case KindSuspend:
		return "Suspend"
	case KindComplete:
		return "Complete"
	case KindCancelReq:
		return "CancelReq"
	case KindCancelled:
		return "Cancelled"
	case KindPend:
		return "Pend"
	case KindAssert:
		return "Assert"
	case KindDispatch:
		return "Dispatch"
	case KindRaise:
		return "Raise"
	case KindMask:
		return "Mask"
	default:
		return "Unknown"
	}
}

// Event is emitted on every scheduling action: pends, dispatches, task
// resumptions and completions. Vector and Task are -1 when not applicable.
type Event struct {
	Time   time.Time
	Seq    uint64
	Kind   Kind
	Vector int
	Task   int
	Note   string
}

// Sink receives trace events. Implementations must be safe for use from
// the CPU goroutine and from hardware feeder goroutines.
type Sink interface {
	Emit(ev Event)
}

var seq atomic.Uint64

// NextSeq returns a process-wide monotonic event sequence number.
func NextSeq() uint64 {
	return seq.Add(1)
}

// Emit stamps and forwards an event, tolerating a nil sink.
func Emit(s Sink, kind Kind, vector, task int, note string) {
	if s == nil {
		return
	}
	s.Emit(Event{
		Time:   time.Now(),
		Seq:    NextSeq(),
		Kind:   kind,
		Vector: vector,
		Task:   task,
		Note:   note,
	})
}

// Multi fans one event out to several sinks.
type Multi []Sink

func (m Multi) Emit(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}
