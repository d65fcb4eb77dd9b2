package periph

import (
	"testing"

	"irqsim/internal/exec"
)

// onDone wraps a future and records its name when it completes.
type onDone struct {
	f    exec.Future
	name string
	rec  *[]string
}

func (o *onDone) Poll(cx *exec.Context) exec.Outcome {
	out := o.f.Poll(cx)
	if out == exec.Done {
		*o.rec = append(*o.rec, o.name)
	}
	return out
}

func TestDelayFiresAtDeadlineNotBefore(t *testing.T) {
	tm := NewTimer(1000)
	ex := exec.New(nil)

	d := tm.Delay(2500)
	h := ex.Spawn("delay", d)

	tm.ISR() // now = 1000
	tm.ISR() // now = 2000
	if !ex.Running(h) {
		t.Fatalf("delay completed at t=2000us, deadline is 2500us")
	}

	tm.ISR() // now = 3000
	if ex.Running(h) {
		t.Fatalf("delay still pending at t=3000us")
	}
	if got := ex.Result(h); got != exec.ResultDone {
		t.Fatalf("result = %v, want done", got)
	}
}

func TestEqualDeadlinesFireInCreationOrder(t *testing.T) {
	tm := NewTimer(1000)
	ex := exec.New(nil)
	var rec []string

	at := tm.Now().Add(1000)
	ex.Spawn("a", &onDone{f: tm.DelayUntil(at), name: "a", rec: &rec})
	ex.Spawn("b", &onDone{f: tm.DelayUntil(at), name: "b", rec: &rec})

	tm.ISR()

	if len(rec) != 2 || rec[0] != "a" || rec[1] != "b" {
		t.Fatalf("fire order = %v, want [a b]", rec)
	}
}

func TestInstantWraparound(t *testing.T) {
	near := Instant(0xFFFF_FF00)
	past := near.Add(0x200)
	if past != Instant(0x100) {
		t.Fatalf("Add did not wrap: got %#x", uint32(past))
	}
	if !near.IsBefore(past) {
		t.Fatalf("pre-wrap instant must order before post-wrap instant")
	}
	if past.IsBefore(near) {
		t.Fatalf("post-wrap instant must not order before pre-wrap instant")
	}
	if !near.IsBefore(near) {
		t.Fatalf("IsBefore is inclusive of the equal instant")
	}
}

func TestCancelledDelayNeverFires(t *testing.T) {
	tm := NewTimer(1000)
	ex := exec.New(nil)

	h := ex.Spawn("delay", tm.Delay(5000))
	tm.ISR() // deadline still far out

	ex.Cancel(h)
	if got := ex.Result(h); got != exec.ResultCancelled {
		t.Fatalf("result = %v, want cancelled", got)
	}

	// deadline passes; the unlinked node must not resurface
	for i := 0; i < 10; i++ {
		tm.ISR()
	}
	if ex.Running(h) {
		t.Fatalf("cancelled delay came back to life")
	}
}
