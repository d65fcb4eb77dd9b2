package trace

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"time"
)

// CSVSink appends one CSV record per event.
type CSVSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVSink creates the file and writes the header row.
func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)

	// write header
	w.Write([]string{"timestamp", "seq", "event", "vector", "task", "note"})
	w.Flush()
	return &CSVSink{file: f, writer: w}, nil
}

func (s *CSVSink) Emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := []string{
		ev.Time.Format(time.RFC3339Nano),
		strconv.FormatUint(ev.Seq, 10),
		ev.Kind.String(),
		strconv.Itoa(ev.Vector),
		strconv.Itoa(ev.Task),
		ev.Note,
	}
	s.writer.Write(rec)
	s.writer.Flush()
}

// Close flushes and closes the underlying file.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer.Flush()
	return s.file.Close()
}
