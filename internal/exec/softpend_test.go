package exec

import "testing"

// eventTask waits on one software event and records its resume order.
type eventTask struct {
	sp     *SoftPend
	ev     Event
	name   string
	record *[]string
	wait   *EventWait
	rounds int
	again  bool // re-raise own event once after the first wake
}

func (f *eventTask) Poll(cx *Context) Outcome {
	if cx.Cancelled() {
		if f.wait != nil {
			f.wait.Detach(cx)
		}
		return Cancelled
	}
	for {
		if f.wait == nil {
			f.wait = f.sp.Wait(f.ev)
		}
		switch f.wait.Poll(cx) {
		case Pending:
			return Pending
		case Cancelled:
			return Cancelled
		case Done:
			f.rounds++
			*f.record = append(*f.record, f.name)
			if f.again {
				f.again = false
				f.sp.Raise(f.ev)
				f.wait = nil
				continue
			}
			return Done
		}
	}
}

func TestSoftPendResumesInArrivalOrder(t *testing.T) {
	ex := New(nil)
	rings := 0
	sp := NewSoftPend(func() { rings++ }, nil)
	var record []string

	ex.Spawn("x", &eventTask{sp: sp, ev: 1, name: "x", record: &record})
	ex.Spawn("y", &eventTask{sp: sp, ev: 2, name: "y", record: &record})

	// both events pended before either fires
	sp.Raise(1)
	sp.Raise(2)
	if rings == 0 {
		t.Fatalf("doorbell never rang")
	}
	sp.Dispatch()

	if len(record) != 2 || record[0] != "x" || record[1] != "y" {
		t.Fatalf("resume order = %v, want [x y]", record)
	}
}

func TestSoftPendReverseArrivalOrder(t *testing.T) {
	ex := New(nil)
	sp := NewSoftPend(func() {}, nil)
	var record []string

	ex.Spawn("x", &eventTask{sp: sp, ev: 1, name: "x", record: &record})
	ex.Spawn("y", &eventTask{sp: sp, ev: 2, name: "y", record: &record})

	sp.Raise(2)
	sp.Raise(1)
	sp.Dispatch()

	if len(record) != 2 || record[0] != "y" || record[1] != "x" {
		t.Fatalf("resume order = %v, want [y x]", record)
	}
}

func TestSoftPendCoalescesDuplicateRaises(t *testing.T) {
	ex := New(nil)
	sp := NewSoftPend(func() {}, nil)
	var record []string

	loop := &eventTask{sp: sp, ev: 3, name: "x", record: &record}
	ex.Spawn("x", loop)

	sp.Raise(3)
	sp.Raise(3)
	if !sp.Pending(3) {
		t.Fatalf("event should be pending")
	}
	sp.Dispatch()

	if loop.rounds != 1 {
		t.Fatalf("rounds = %d, want 1 (duplicate raise must coalesce)", loop.rounds)
	}
	if sp.Pending(3) {
		t.Fatalf("pending flag not cleared by dispatch")
	}
}

func TestRePendDuringDispatchHonoredNextFiring(t *testing.T) {
	ex := New(nil)
	rings := 0
	sp := NewSoftPend(func() { rings++ }, nil)
	var record []string

	loop := &eventTask{sp: sp, ev: 4, name: "x", record: &record, again: true}
	ex.Spawn("x", loop)

	sp.Raise(4)
	sp.Dispatch()
	if loop.rounds != 1 {
		t.Fatalf("rounds = %d after first dispatch, want 1", loop.rounds)
	}
	if !sp.Pending(4) {
		t.Fatalf("re-raise from inside dispatch must queue for the next firing")
	}

	sp.Dispatch()
	if loop.rounds != 2 {
		t.Fatalf("rounds = %d after second dispatch, want 2", loop.rounds)
	}
}

func TestSoftPendFanOutRegistrationOrder(t *testing.T) {
	ex := New(nil)
	sp := NewSoftPend(func() {}, nil)
	var record []string

	// both wait on the same broadcast event; fan-out is legal here
	ex.Spawn("first", &eventTask{sp: sp, ev: 5, name: "first", record: &record})
	ex.Spawn("second", &eventTask{sp: sp, ev: 5, name: "second", record: &record})

	sp.Raise(5)
	sp.Dispatch()

	if len(record) != 2 || record[0] != "first" || record[1] != "second" {
		t.Fatalf("fan-out order = %v, want [first second]", record)
	}
}
