package exec

import "testing"

func TestUntilChecksConditionBeforeSubscribing(t *testing.T) {
	ex := New(nil)
	irq := NewInterrupt("rx")

	// the event fires before anyone waits; the notify is dropped
	ready := true
	irq.Notify()

	h := ex.Spawn("waiter", irq.Until(func() bool { return ready }))
	if ex.Running(h) {
		t.Fatalf("condition already held, Until must complete on first poll")
	}
	if irq.Armed() {
		t.Fatalf("completed wait left a registration behind")
	}
}

func TestUntilWakesOnNotify(t *testing.T) {
	ex := New(nil)
	irq := NewInterrupt("rx")
	ready := false

	h := ex.Spawn("waiter", irq.Until(func() bool { return ready }))
	if !ex.Running(h) {
		t.Fatalf("Until completed before its condition held")
	}

	// spurious notify: condition still false, task must re-subscribe
	irq.Notify()
	if !ex.Running(h) || !irq.Armed() {
		t.Fatalf("spurious wake must leave the task waiting and re-armed")
	}

	ready = true
	irq.Notify()
	if ex.Running(h) {
		t.Fatalf("task still waiting after its condition held")
	}
	if got := ex.Result(h); got != ResultDone {
		t.Fatalf("result = %v, want Done", got)
	}
	if irq.Armed() {
		t.Fatalf("completed wait left a registration behind")
	}
}

func TestUntilCancelClearsRegistration(t *testing.T) {
	ex := New(nil)
	irq := NewInterrupt("rx")

	h := ex.Spawn("waiter", irq.Until(func() bool { return false }))
	ex.Cancel(h)

	if got := ex.Result(h); got != ResultCancelled {
		t.Fatalf("result = %v, want Cancelled", got)
	}
	if irq.Armed() {
		t.Fatalf("cancelled wait left a registration behind")
	}
	// a stale notify after the slot died must be harmless
	irq.Notify()
}
