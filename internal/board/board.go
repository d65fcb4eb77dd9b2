// Package board performs the one-time hardware handoff: it configures
// interrupt priorities, constructs every capability object exactly once,
// hands them to the top-level task, and then parks the CPU in its
// sleep-dispatch loop. After bring-up the package plays no part in
// scheduling.
package board

import (
	"context"

	"irqsim/internal/exec"
	"irqsim/internal/hw"
	"irqsim/internal/periph"
	"irqsim/internal/trace"
)

// Interrupt vector assignment. Static, like a real vector table.
const (
	VecSysTick hw.Vector = 1
	VecUART    hw.Vector = 2
	VecSoft    hw.Vector = 3
)

// Hardware aggregates the board's capability objects. It is handed to the
// top-level task constructor once; each peripheral is claimed by whichever
// task ends up owning it.
type Hardware struct {
	Timer *periph.Timer
	UART  *periph.UART
	Pins  *periph.GPIO
}

// Board wires the controller, executor and peripherals together.
type Board struct {
	Ctl  *hw.Controller
	Exec *exec.Executor
	Soft *exec.SoftPend
	HW   *Hardware

	tick      *periph.SysTick
	handedOff bool
}

// New builds the board from configuration. Nothing fires yet: the tick
// source starts in Run, after the handoff.
func New(cfg Config, sink trace.Sink) *Board {
	ctl := hw.NewController(sink)
	ctl.Configure(VecSysTick, "systick", hw.Priority(cfg.SysTickPriority))
	ctl.Configure(VecUART, "uart0-rx", hw.Priority(cfg.UARTPriority))
	ctl.Configure(VecSoft, "softpend", hw.Priority(cfg.SoftPriority))

	ex := exec.New(sink)
	soft := exec.NewSoftPend(func() { ctl.Pend(VecSoft) }, sink)
	ctl.Attach(VecSoft, soft.Dispatch)

	timer := periph.NewTimer(uint32(cfg.TickUS))
	ctl.Attach(VecSysTick, timer.ISR)

	uart := periph.NewUART("uart0", ctl.Line(VecUART))
	ctl.Attach(VecUART, uart.ISR)

	return &Board{
		Ctl:  ctl,
		Exec: ex,
		Soft: soft,
		HW: &Hardware{
			Timer: timer,
			UART:  uart,
			Pins:  periph.NewGPIO("port0"),
		},
		tick: periph.NewSysTick(ctl.Line(VecSysTick), periph.TickInterval(uint32(cfg.TickUS))),
	}
}

// Handoff invokes the top-level task constructor with the capability
// aggregate and spawns the result, running it to its first suspension
// point. It may be called exactly once, before Run.
func (b *Board) Handoff(name string, main func(ex *exec.Executor, hw *Hardware) exec.Future) exec.Handle {
	if b.handedOff {
		panic("board: handoff already performed")
	}
	b.handedOff = true
	return b.Exec.Spawn(name, main(b.Exec, b.HW))
}

// Run starts the tick source and parks the CPU until ctx is done.
func (b *Board) Run(ctx context.Context) error {
	b.tick.Start()
	defer b.tick.Stop()
	return b.Ctl.Run(ctx)
}
