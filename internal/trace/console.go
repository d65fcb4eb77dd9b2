package trace

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// ConsoleSink prints one formatted line per event.
type ConsoleSink struct {
	mu  sync.Mutex
	w   io.Writer
	col bool
}

// NewConsoleSink writes events to w, colorized when col is set.
func NewConsoleSink(w io.Writer, col bool) *ConsoleSink {
	return &ConsoleSink{w: w, col: col}
}

var kindColors = map[Kind]*color.Color{
	KindSpawn:     color.New(color.FgGreen),
	KindResume:    color.New(color.FgCyan),
	KindSuspend:   color.New(color.FgBlue),
	KindComplete:  color.New(color.FgGreen, color.Bold),
	KindCancelReq: color.New(color.FgYellow),
	KindCancelled: color.New(color.FgRed),
	KindPend:      color.New(color.FgMagenta),
	KindAssert:    color.New(color.FgMagenta),
	KindDispatch:  color.New(color.FgWhite),
	KindRaise:     color.New(color.FgMagenta),
	KindMask:      color.New(color.FgYellow),
}

func (s *ConsoleSink) Emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind := center(ev.Kind.String(), 11)
	if s.col {
		if c, ok := kindColors[ev.Kind]; ok {
			kind = c.Sprint(kind)
		}
	}

	loc := "-"
	if ev.Vector >= 0 {
		loc = fmt.Sprintf("v%02d", ev.Vector)
	}
	task := "-"
	if ev.Task >= 0 {
		task = fmt.Sprintf("t%02d", ev.Task)
	}

	fmt.Fprintf(s.w, "%s #%06d [%s] %3s %3s %s\n",
		ev.Time.Format("15:04:05.000"),
		ev.Seq,
		kind,
		loc,
		task,
		ev.Note,
	)
}

// center pads str so the label sits in the middle of the column.
func center(str string, width int) string {
	if len(str) >= width {
		return str
	}
	spaces := (width - len(str)) / 2
	return strings.Repeat(" ", spaces) + str + strings.Repeat(" ", width-(spaces+len(str)))
}
