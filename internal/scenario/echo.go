package scenario

import (
	"irqsim/internal/exec"
	"irqsim/internal/periph"
)

const (
	echoClaim = iota
	echoRead
	echoWait
)

// Echo claims the UART and echoes received bytes back until a newline
// arrives. Its unwind path disables the UART and releases it.
type Echo struct {
	uart *periph.UART

	pc      int
	claimed bool
	rd      *periph.ReadByte
	err     error
}

// NewEcho echoes on the given UART.
func NewEcho(uart *periph.UART) *Echo {
	return &Echo{uart: uart}
}

func (e *Echo) Poll(cx *exec.Context) exec.Outcome {
	if cx.Cancelled() {
		return e.unwind(cx)
	}
	for {
		switch e.pc {
		case echoClaim:
			if e.err = e.uart.Claim(); e.err != nil {
				return exec.Done
			}
			e.claimed = true
			e.pc = echoRead

		case echoRead:
			e.rd = e.uart.ReadByte()
			e.pc = echoWait

		case echoWait:
			switch e.rd.Poll(cx) {
			case exec.Pending:
				return exec.Pending
			case exec.Cancelled:
				return e.unwind(cx)
			case exec.Done:
				b := e.rd.Byte()
				if err := e.uart.WriteByte(b); err != nil {
					e.err = err
					e.uart.Release()
					e.claimed = false
					return exec.Done
				}
				if b == '\n' {
					e.uart.Release()
					e.claimed = false
					return exec.Done
				}
				e.pc = echoRead
			}
		}
	}
}

func (e *Echo) unwind(cx *exec.Context) exec.Outcome {
	if e.rd != nil {
		e.rd.Detach(cx)
	}
	if e.claimed {
		e.uart.Disable()
		e.uart.Release()
		e.claimed = false
	}
	return exec.Cancelled
}

// Err returns the claim or transmit error, if any.
func (e *Echo) Err() error { return e.err }

const (
	towClaim = iota
	towArm
	towWait
)

// ReadWithTimeout races one UART read against a timer delay: whichever
// fires first wins, and the loser's wake registration is withdrawn.
type ReadWithTimeout struct {
	uart      *periph.UART
	timer     *periph.Timer
	timeoutUS uint32

	pc      int
	claimed bool
	rd      *periph.ReadByte
	race    *exec.Race

	b        byte
	got      bool
	timedOut bool
	err      error
}

// NewReadWithTimeout reads one byte or gives up after timeoutUS.
func NewReadWithTimeout(uart *periph.UART, timer *periph.Timer, timeoutUS uint32) *ReadWithTimeout {
	return &ReadWithTimeout{uart: uart, timer: timer, timeoutUS: timeoutUS}
}

func (r *ReadWithTimeout) Poll(cx *exec.Context) exec.Outcome {
	if cx.Cancelled() {
		return r.unwind(cx)
	}
	for {
		switch r.pc {
		case towClaim:
			if r.err = r.uart.Claim(); r.err != nil {
				return exec.Done
			}
			r.claimed = true
			r.pc = towArm

		case towArm:
			r.rd = r.uart.ReadByte()
			r.race = exec.NewRace(r.rd, r.timer.Delay(r.timeoutUS))
			r.pc = towWait

		case towWait:
			switch r.race.Poll(cx) {
			case exec.Pending:
				return exec.Pending
			case exec.Cancelled:
				return r.unwind(cx)
			case exec.Done:
				if r.race.Winner() == 1 {
					r.b = r.rd.Byte()
					r.got = true
				} else {
					r.timedOut = true
				}
				r.uart.Release()
				r.claimed = false
				return exec.Done
			}
		}
	}
}

func (r *ReadWithTimeout) unwind(cx *exec.Context) exec.Outcome {
	if r.race != nil {
		r.race.Detach(cx)
	}
	if r.claimed {
		r.uart.Release()
		r.claimed = false
	}
	return exec.Cancelled
}

// Byte returns the byte read, valid when Got reports true.
func (r *ReadWithTimeout) Byte() byte { return r.b }

// Got reports whether a byte arrived before the timeout.
func (r *ReadWithTimeout) Got() bool { return r.got }

// TimedOut reports whether the delay won the race.
func (r *ReadWithTimeout) TimedOut() bool { return r.timedOut }

// Err returns the claim error, if any.
func (r *ReadWithTimeout) Err() error { return r.err }
