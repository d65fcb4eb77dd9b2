package exec

import "fmt"

// Interrupt routes one hardware wake event to at most one waiting task.
// A driver owns one Interrupt per event its peripheral can raise and
// calls Notify from the interrupt handler for that vector.
//
// The stored waker is taken on Notify, so a future must re-subscribe on
// every poll that suspends. Hardware vectors do not support fan-out:
// subscribing a second task while another task's waker is armed is a
// programming error reported here, at registration time.
type Interrupt struct {
	name  string
	waker Waker
	armed bool
}

// NewInterrupt names the wake source for conflict diagnostics.
func NewInterrupt(name string) *Interrupt {
	return &Interrupt{name: name}
}

// Subscribe arms the calling task's waker. Re-subscribing the same task
// is idempotent; a different task panics.
func (i *Interrupt) Subscribe(cx *Context) {
	w := cx.Waker()
	if i.armed && i.waker != w {
		panic(fmt.Sprintf("exec: wake source %q already has a waiter", i.name))
	}
	i.waker = w
	i.armed = true
}

// Clear drops the waker if it belongs to the calling task. Futures call
// this from their unwind and detach paths.
func (i *Interrupt) Clear(cx *Context) {
	if i.armed && i.waker == cx.Waker() {
		i.armed = false
		i.waker = Waker{}
	}
}

// Notify takes the armed waker, if any, and resumes its task. Called from
// interrupt handler context. A notify with no waiter is dropped: drivers
// wait with Until, so the condition re-check at the next subscribe
// absorbs events that fired while nobody was waiting.
func (i *Interrupt) Notify() {
	if !i.armed {
		return
	}
	w := i.waker
	i.armed = false
	i.waker = Waker{}
	w.Wake()
}

// Armed reports whether a waiter is currently registered.
func (i *Interrupt) Armed() bool { return i.armed }

// Until returns a future that completes once cond() holds. The condition
// is checked before subscribing, so an event that fired before the first
// poll is not lost.
func (i *Interrupt) Until(cond func() bool) *Until {
	return &Until{irq: i, cond: cond}
}

// Until waits on an Interrupt for a condition over peripheral state.
type Until struct {
	irq  *Interrupt
	cond func() bool
}

func (u *Until) Poll(cx *Context) Outcome {
	if cx.Cancelled() {
		u.irq.Clear(cx)
		return Cancelled
	}
	if u.cond() {
		return Done
	}
	u.irq.Subscribe(cx)
	return Pending
}

// Detach withdraws the registration, e.g. when this wait loses a Race.
func (u *Until) Detach(cx *Context) {
	u.irq.Clear(cx)
}
