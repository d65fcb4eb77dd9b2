package trace

import (
	"os"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// DumpSink streams events to a msgpack file for offline replay.
type DumpSink struct {
	mu   sync.Mutex
	file *os.File
	enc  *msgpack.Encoder
}

// NewDumpSink creates the dump file.
func NewDumpSink(path string) (*DumpSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &DumpSink{file: f, enc: msgpack.NewEncoder(f)}, nil
}

func (s *DumpSink) Emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// encode errors are ignored here; a broken dump surfaces at replay
	_ = s.enc.Encode(&ev)
}

// Close closes the underlying file.
func (s *DumpSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// ReadDump decodes every event from a dump file, in emit order.
func ReadDump(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Event
	dec := msgpack.NewDecoder(f)
	for {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			break
		}
		out = append(out, ev)
	}
	return out, nil
}
