package periph

import (
	"fmt"
	"sync/atomic"

	"irqsim/internal/hw"
)

// GPIO simulates a 32-pin port with direction and output registers. The
// registers are atomics only so tests and host code can read them back
// from outside the CPU goroutine; mutation happens in CPU context by the
// owning task.
type GPIO struct {
	hw.Exclusive

	out atomic.Uint32
	dir atomic.Uint32
}

// NewGPIO creates a port with all pins as inputs, driven low.
func NewGPIO(label string) *GPIO {
	return &GPIO{Exclusive: hw.MakeExclusive(label)}
}

// DirSet configures a pin as output.
func (g *GPIO) DirSet(pin uint8) {
	checkPin(pin)
	for {
		old := g.dir.Load()
		if g.dir.CompareAndSwap(old, old|1<<pin) {
			return
		}
	}
}

// Set drives a pin high.
func (g *GPIO) Set(pin uint8) {
	checkPin(pin)
	for {
		old := g.out.Load()
		if g.out.CompareAndSwap(old, old|1<<pin) {
			return
		}
	}
}

// Clear drives a pin low, its inert state.
func (g *GPIO) Clear(pin uint8) {
	checkPin(pin)
	for {
		old := g.out.Load()
		if g.out.CompareAndSwap(old, old&^(1<<pin)) {
			return
		}
	}
}

// Toggle inverts a pin.
func (g *GPIO) Toggle(pin uint8) {
	checkPin(pin)
	for {
		old := g.out.Load()
		if g.out.CompareAndSwap(old, old^1<<pin) {
			return
		}
	}
}

// Pin reads back one output pin.
func (g *GPIO) Pin(pin uint8) bool {
	checkPin(pin)
	return g.out.Load()&(1<<pin) != 0
}

// Out reads back the whole output register.
func (g *GPIO) Out() uint32 {
	return g.out.Load()
}

// Dir reads back the direction register.
func (g *GPIO) Dir() uint32 {
	return g.dir.Load()
}

func checkPin(pin uint8) {
	if pin >= 32 {
		panic(fmt.Sprintf("periph: pin %d out of range", pin))
	}
}
