package periph

import (
	"fmt"
	"sync/atomic"

	"irqsim/internal/exec"
	"irqsim/internal/hw"
)

const rxSlots = 64

// CtrlEnable is the enable bit of the UART control register.
const CtrlEnable uint32 = 1 << 0

// UART simulates a serial port. The receive side is a fixed-slot ring
// written by the host feeder goroutine (the "wire") and drained in CPU
// context by the owning task; head and tail are atomics because producer
// and consumer live on different goroutines. Each Feed asserts the
// receive interrupt line.
//
// The transmit side collects bytes synchronously for inspection by tests
// and demos.
type UART struct {
	hw.Exclusive

	line  hw.Line
	rxIRQ *exec.Interrupt

	head  atomic.Uint32
	tail  atomic.Uint32
	slots [rxSlots]byte

	ctrl atomic.Uint32
	tx   []byte
}

// NewUART creates an enabled UART asserting the given line on receive.
func NewUART(label string, line hw.Line) *UART {
	u := &UART{
		Exclusive: hw.MakeExclusive(label),
		line:      line,
		rxIRQ:     exec.NewInterrupt(label + "-rx"),
	}
	u.ctrl.Store(CtrlEnable)
	return u
}

// Feed pushes bytes onto the receive ring from the host side and asserts
// the receive interrupt. Bytes beyond the ring capacity are dropped, as a
// real receiver overruns; the count actually accepted is returned.
func (u *UART) Feed(p []byte) int {
	fed := 0
	for _, b := range p {
		head := u.head.Load()
		if head-u.tail.Load() >= rxSlots {
			break
		}
		u.slots[head%rxSlots] = b
		u.head.Store(head + 1)
		fed++
	}
	if fed > 0 {
		u.line.Assert()
	}
	return fed
}

// ISR is the receive interrupt handler: wake the waiting reader, if any.
func (u *UART) ISR() {
	u.rxIRQ.Notify()
}

// ReadByte returns a future completing with the next received byte.
func (u *UART) ReadByte() *ReadByte {
	return &ReadByte{u: u}
}

// WriteByte transmits one byte. The UART must be enabled.
func (u *UART) WriteByte(b byte) error {
	if !u.Enabled() {
		return fmt.Errorf("periph: %s is disabled", u.Label())
	}
	u.tx = append(u.tx, b)
	return nil
}

// WriteString transmits a string.
func (u *UART) WriteString(s string) error {
	for i := 0; i < len(s); i++ {
		if err := u.WriteByte(s[i]); err != nil {
			return err
		}
	}
	return nil
}

// TxString returns everything transmitted so far.
func (u *UART) TxString() string {
	return string(u.tx)
}

// Enable sets the control register's enable bit.
func (u *UART) Enable() {
	u.ctrl.Store(CtrlEnable)
}

// Disable clears the control register, the peripheral's inert state.
// Unwind paths call this before releasing the capability.
func (u *UART) Disable() {
	u.ctrl.Store(0)
}

// Enabled reports whether the enable bit is set.
func (u *UART) Enabled() bool {
	return u.ctrl.Load()&CtrlEnable != 0
}

// Ctrl reads back the control register.
func (u *UART) Ctrl() uint32 {
	return u.ctrl.Load()
}

func (u *UART) tryPop() (byte, bool) {
	tail := u.tail.Load()
	if tail == u.head.Load() {
		return 0, false
	}
	b := u.slots[tail%rxSlots]
	u.tail.Store(tail + 1)
	return b, true
}

// ReadByte waits for one received byte. The ring is checked before
// subscribing, so bytes that arrived while nobody was waiting are not
// lost.
type ReadByte struct {
	u *UART
	b byte
}

func (r *ReadByte) Poll(cx *exec.Context) exec.Outcome {
	if cx.Cancelled() {
		r.u.rxIRQ.Clear(cx)
		return exec.Cancelled
	}
	if b, ok := r.u.tryPop(); ok {
		r.b = b
		return exec.Done
	}
	r.u.rxIRQ.Subscribe(cx)
	return exec.Pending
}

// Detach withdraws the reader's registration.
func (r *ReadByte) Detach(cx *exec.Context) {
	r.u.rxIRQ.Clear(cx)
}

// Byte returns the received byte once the future is done.
func (r *ReadByte) Byte() byte { return r.b }
