package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"irqsim/internal/board"
	"irqsim/internal/exec"
	"irqsim/internal/scenario"
	"irqsim/internal/trace"
)

var scenarios = map[string]string{
	"blink":   "toggle a pin ten times on a timer",
	"echo":    "echo UART input back until a newline",
	"timeout": "race a UART read against a timer delay",
	"cancel":  "cancel a pin-holding task and reclaim its port",
}

var (
	flagConfig   string
	flagDuration time.Duration
	flagColor    bool
	flagQuiet    bool
)

var runCmd = &cobra.Command{
	Use:   "run <scenario>",
	Short: "Run a demo scenario on the simulated board",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScenario(args[0])
	},
}

func init() {
	runCmd.Flags().StringVar(&flagConfig, "config", "", "board config file (YAML), empty for defaults")
	runCmd.Flags().DurationVar(&flagDuration, "duration", 2*time.Second, "how long to run the board")
	runCmd.Flags().BoolVar(&flagColor, "color", true, "colorize trace output")
	runCmd.Flags().BoolVar(&flagQuiet, "quiet", false, "suppress console trace")
}

func runScenario(name string) error {
	if _, ok := scenarios[name]; !ok {
		return fmt.Errorf("unknown scenario %q (try: %s)", name, strings.Join(scenarioNames(), ", "))
	}

	cfg := board.Load(flagConfig)

	var sinks trace.Multi
	var closers []io.Closer
	if !flagQuiet {
		sinks = append(sinks, trace.NewConsoleSink(os.Stdout, flagColor))
	}
	if cfg.TraceCSV != "" {
		s, err := trace.NewCSVSink(cfg.TraceCSV)
		if err != nil {
			return err
		}
		sinks = append(sinks, s)
		closers = append(closers, s)
	}
	if cfg.TraceDump != "" {
		s, err := trace.NewDumpSink(cfg.TraceDump)
		if err != nil {
			return err
		}
		sinks = append(sinks, s)
		closers = append(closers, s)
	}

	b := board.New(cfg, sinks)
	var feeder func(ctx context.Context) error

	switch name {
	case "blink":
		b.Handoff("blink", func(_ *exec.Executor, hw *board.Hardware) exec.Future {
			return scenario.NewBlink(hw.Pins, hw.Timer, 0, 100_000, 10)
		})

	case "echo":
		b.Handoff("echo", func(_ *exec.Executor, hw *board.Hardware) exec.Future {
			return scenario.NewEcho(hw.UART)
		})
		feeder = func(ctx context.Context) error {
			for _, chunk := range []string{"hel", "lo", "\n"} {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(50 * time.Millisecond):
				}
				b.HW.UART.Feed([]byte(chunk))
			}
			return nil
		}

	case "timeout":
		// nothing feeds the UART, so the delay wins
		b.Handoff("timeout", func(_ *exec.Executor, hw *board.Hardware) exec.Future {
			return scenario.NewReadWithTimeout(hw.UART, hw.Timer, 500_000)
		})

	case "cancel":
		victim := b.Handoff("pin-holder", func(_ *exec.Executor, hw *board.Hardware) exec.Future {
			return scenario.NewPinHolder(hw.Pins, 4, b.Soft, 0)
		})
		b.Exec.Spawn("canceller", scenario.NewCanceller(b.HW.Timer, 250_000, victim, b.HW.Pins))
	}

	ctx, cancel := context.WithTimeout(context.Background(), flagDuration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Run(ctx) })
	if feeder != nil {
		g.Go(func() error { return feeder(ctx) })
	}
	err := g.Wait()

	for _, c := range closers {
		c.Close()
	}
	return err
}

func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
