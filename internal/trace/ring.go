package trace

import "sync"

// RingSink keeps the last N events in memory. It is mainly used by tests
// that assert on dispatch and resume ordering.
type RingSink struct {
	mu     sync.Mutex
	events []Event
	head   int
	full   bool
}

// NewRingSink creates a ring holding up to capacity events.
func NewRingSink(capacity int) *RingSink {
	if capacity <= 0 {
		capacity = 1024
	}
	return &RingSink{events: make([]Event, capacity)}
}

func (s *RingSink) Emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[s.head] = ev
	s.head = (s.head + 1) % len(s.events)
	if s.head == 0 {
		s.full = true
	}
}

// Snapshot returns the stored events in emit order.
func (s *RingSink) Snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Event
	if s.full {
		out = append(out, s.events[s.head:]...)
	}
	out = append(out, s.events[:s.head]...)
	return out
}

// Kinds returns the event kinds in emit order, filtered to the given set.
// An empty set keeps everything.
func (s *RingSink) Kinds(keep ...Kind) []Kind {
	var out []Kind
	for _, ev := range s.Snapshot() {
		if len(keep) == 0 {
			out = append(out, ev.Kind)
			continue
		}
		for _, k := range keep {
			if ev.Kind == k {
				out = append(out, ev.Kind)
				break
			}
		}
	}
	return out
}
