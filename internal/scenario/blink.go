// Package scenario provides the demo tasks the simulator runs. Each task
// is a hand-written resumable state machine: a program counter plus the
// locals that live across suspension points, advanced by Poll.
package scenario

import (
	"irqsim/internal/exec"
	"irqsim/internal/periph"
)

const (
	blinkClaim = iota
	blinkSchedule
	blinkWait
)

// Blink claims the pin port and toggles one pin a fixed number of times,
// sleeping between toggles. Its unwind path drives the pin low and
// releases the port.
type Blink struct {
	pins    *periph.GPIO
	timer   *periph.Timer
	pin     uint8
	period  uint32
	toggles int

	pc      int
	done    int
	claimed bool
	wait    *periph.Delay
	err     error
}

// NewBlink toggles pin every periodUS microseconds, toggles times.
func NewBlink(pins *periph.GPIO, timer *periph.Timer, pin uint8, periodUS uint32, toggles int) *Blink {
	return &Blink{pins: pins, timer: timer, pin: pin, period: periodUS, toggles: toggles}
}

func (b *Blink) Poll(cx *exec.Context) exec.Outcome {
	if cx.Cancelled() {
		return b.unwind(cx)
	}
	for {
		switch b.pc {
		case blinkClaim:
			if b.err = b.pins.Claim(); b.err != nil {
				return exec.Done
			}
			b.claimed = true
			b.pins.DirSet(b.pin)
			b.pc = blinkSchedule

		case blinkSchedule:
			if b.done >= b.toggles {
				b.pins.Clear(b.pin)
				b.pins.Release()
				b.claimed = false
				return exec.Done
			}
			b.wait = b.timer.Delay(b.period)
			b.pc = blinkWait

		case blinkWait:
			switch b.wait.Poll(cx) {
			case exec.Pending:
				return exec.Pending
			case exec.Cancelled:
				return b.unwind(cx)
			case exec.Done:
				b.pins.Toggle(b.pin)
				b.done++
				b.pc = blinkSchedule
			}
		}
	}
}

func (b *Blink) unwind(cx *exec.Context) exec.Outcome {
	if b.wait != nil {
		b.wait.Detach(cx)
	}
	if b.claimed {
		b.pins.Clear(b.pin)
		b.pins.Release()
		b.claimed = false
	}
	return exec.Cancelled
}

// Toggles reports how many toggles completed.
func (b *Blink) Toggles() int { return b.done }

// Err returns the claim error, if the port was already owned.
func (b *Blink) Err() error { return b.err }
