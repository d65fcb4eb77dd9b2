package board

import (
	"testing"

	"irqsim/internal/exec"
	"irqsim/internal/hw"
	"irqsim/internal/scenario"
)

// evWaiter parks on one software event and records when it resumes.
type evWaiter struct {
	sp   *exec.SoftPend
	ev   exec.Event
	name string
	rec  *[]string
	wait *exec.EventWait
}

func (w *evWaiter) Poll(cx *exec.Context) exec.Outcome {
	if cx.Cancelled() {
		if w.wait != nil {
			w.wait.Detach(cx)
		}
		return exec.Cancelled
	}
	if w.wait == nil {
		w.wait = w.sp.Wait(w.ev)
	}
	out := w.wait.Poll(cx)
	if out == exec.Done {
		*w.rec = append(*w.rec, w.name)
	}
	return out
}

// The test goroutine is the CPU here: interrupts fire via Ctl.Pend, never
// through Run.

func TestUARTInterruptResumesWaitingTask(t *testing.T) {
	b := New(Load(""), nil)

	r := b.HW.UART.ReadByte()
	h := b.Handoff("reader", func(_ *exec.Executor, _ *Hardware) exec.Future {
		return r
	})
	if !b.Exec.Running(h) {
		t.Fatalf("reader completed before any byte arrived")
	}

	b.HW.UART.Feed([]byte{'#'})
	b.Ctl.Pend(VecUART)

	if b.Exec.Running(h) {
		t.Fatalf("reader still parked after its interrupt fired")
	}
	if got := b.Exec.Result(h); got != exec.ResultDone {
		t.Fatalf("result = %v, want done", got)
	}
	if r.Byte() != '#' {
		t.Fatalf("read %q, want '#'", r.Byte())
	}
}

func TestBatchedSoftEventsResumeInRaiseOrder(t *testing.T) {
	b := New(Load(""), nil)
	var rec []string

	b.Handoff("w1", func(_ *exec.Executor, _ *Hardware) exec.Future {
		return &evWaiter{sp: b.Soft, ev: 1, name: "w1", rec: &rec}
	})
	b.Exec.Spawn("w2", &evWaiter{sp: b.Soft, ev: 2, name: "w2", rec: &rec})

	// hold the dispatch vector so both raises pend before either fires
	old := b.Ctl.SetMask(hw.Priority(Load("").SoftPriority))
	b.Soft.Raise(2)
	b.Soft.Raise(1)
	if len(rec) != 0 {
		t.Fatalf("events dispatched under mask: %v", rec)
	}
	b.Ctl.SetMask(old)

	if len(rec) != 2 || rec[0] != "w2" || rec[1] != "w1" {
		t.Fatalf("resume order = %v, want raise order [w2 w1]", rec)
	}
}

func TestCancelUnwindsBeforeCancellerContinues(t *testing.T) {
	b := New(Load(""), nil)
	const pin = 4

	holder := scenario.NewPinHolder(b.HW.Pins, pin, b.Soft, 7)
	hh := b.Handoff("holder", func(_ *exec.Executor, _ *Hardware) exec.Future {
		return holder
	})
	if holder.Err() != nil {
		t.Fatalf("holder claim: %v", holder.Err())
	}
	if !b.HW.Pins.Pin(pin) {
		t.Fatalf("holder did not drive its pin high")
	}

	canc := scenario.NewCanceller(b.HW.Timer, 2000, hh, b.HW.Pins)
	b.Exec.Spawn("canceller", canc)

	// two ticks reach the canceller's deadline; the cancel, the unwind
	// and the reclaim all happen inside the second handler
	b.Ctl.Pend(VecSysTick)
	b.Ctl.Pend(VecSysTick)

	if got := b.Exec.Result(hh); got != exec.ResultCancelled {
		t.Fatalf("holder result = %v, want cancelled", got)
	}
	if b.HW.Pins.Pin(pin) {
		t.Fatalf("pin still high after unwind")
	}
	if err := canc.Err(); err != nil {
		t.Fatalf("reclaim inside cancel poll: %v", err)
	}
	if !canc.Reclaimed() {
		t.Fatalf("canceller could not reclaim the port its target held")
	}
	if b.HW.Pins.Held() {
		t.Fatalf("port left claimed after scenario")
	}
}

func TestHandoffIsOneShot(t *testing.T) {
	b := New(Load(""), nil)
	b.Handoff("main", func(_ *exec.Executor, _ *Hardware) exec.Future {
		return nopFuture{}
	})
	defer func() {
		if recover() == nil {
			t.Fatalf("second handoff did not panic")
		}
	}()
	b.Handoff("again", func(_ *exec.Executor, _ *Hardware) exec.Future {
		return nopFuture{}
	})
}

type nopFuture struct{}

func (nopFuture) Poll(cx *exec.Context) exec.Outcome {
	if cx.Cancelled() {
		return exec.Cancelled
	}
	return exec.Done
}
