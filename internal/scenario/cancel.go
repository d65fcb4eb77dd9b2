package scenario

import (
	"irqsim/internal/exec"
	"irqsim/internal/periph"
)

const (
	holdClaim = iota
	holdArm
	holdWait
)

// PinHolder claims the pin port, drives its pin high, and then waits on a
// software event that normally never fires. It exists to be cancelled:
// the unwind path drives the pin back to its disabled value and releases
// the port before the cancel call returns.
type PinHolder struct {
	pins *periph.GPIO
	pin  uint8
	sp   *exec.SoftPend
	ev   exec.Event

	pc      int
	claimed bool
	wait    *exec.EventWait
	err     error
}

// NewPinHolder holds pin high until ev is dispatched or the task is
// cancelled.
func NewPinHolder(pins *periph.GPIO, pin uint8, sp *exec.SoftPend, ev exec.Event) *PinHolder {
	return &PinHolder{pins: pins, pin: pin, sp: sp, ev: ev}
}

func (p *PinHolder) Poll(cx *exec.Context) exec.Outcome {
	if cx.Cancelled() {
		return p.unwind(cx)
	}
	for {
		switch p.pc {
		case holdClaim:
			if p.err = p.pins.Claim(); p.err != nil {
				return exec.Done
			}
			p.claimed = true
			p.pins.DirSet(p.pin)
			p.pins.Set(p.pin)
			p.pc = holdArm

		case holdArm:
			p.wait = p.sp.Wait(p.ev)
			p.pc = holdWait

		case holdWait:
			switch p.wait.Poll(cx) {
			case exec.Pending:
				return exec.Pending
			case exec.Cancelled:
				return p.unwind(cx)
			case exec.Done:
				p.pins.Clear(p.pin)
				p.pins.Release()
				p.claimed = false
				return exec.Done
			}
		}
	}
}

func (p *PinHolder) unwind(cx *exec.Context) exec.Outcome {
	if p.wait != nil {
		p.wait.Detach(cx)
	}
	if p.claimed {
		p.pins.Clear(p.pin)
		p.pins.Release()
		p.claimed = false
	}
	return exec.Cancelled
}

// Err returns the claim error, if any.
func (p *PinHolder) Err() error { return p.err }

const (
	cancelDelay = iota
	cancelWait
)

// Canceller sleeps, then cancels its target and immediately reclaims the
// pin port the target held, proving the synchronous-unwind guarantee: the
// claim happens in the same poll as the cancel.
type Canceller struct {
	timer   *periph.Timer
	delayUS uint32
	target  exec.Handle
	pins    *periph.GPIO

	pc        int
	wait      *periph.Delay
	reclaimed bool
	err       error
}

// NewCanceller cancels target after delayUS microseconds.
func NewCanceller(timer *periph.Timer, delayUS uint32, target exec.Handle, pins *periph.GPIO) *Canceller {
	return &Canceller{timer: timer, delayUS: delayUS, target: target, pins: pins}
}

func (c *Canceller) Poll(cx *exec.Context) exec.Outcome {
	if cx.Cancelled() {
		if c.wait != nil {
			c.wait.Detach(cx)
		}
		return exec.Cancelled
	}
	for {
		switch c.pc {
		case cancelDelay:
			c.wait = c.timer.Delay(c.delayUS)
			c.pc = cancelWait

		case cancelWait:
			switch c.wait.Poll(cx) {
			case exec.Pending:
				return exec.Pending
			case exec.Cancelled:
				return exec.Cancelled
			case exec.Done:
				cx.Executor().Cancel(c.target)
				if c.err = c.pins.Claim(); c.err == nil {
					c.reclaimed = true
					c.pins.Release()
				}
				return exec.Done
			}
		}
	}
}

// Reclaimed reports whether the port was free right after the cancel.
func (c *Canceller) Reclaimed() bool { return c.reclaimed }

// Err returns the reclaim error, if any.
func (c *Canceller) Err() error { return c.err }
