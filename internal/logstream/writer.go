package logstream

import (
	"bytes"
	"io"
	"sync"

	"github.com/google/uuid"
)

// StreamWriter writes to a buffer and publishes each complete line to the
// broker. A trailing partial line is held until its newline arrives or
// Flush is called.
type StreamWriter struct {
	jobID   uuid.UUID
	broker  *LogBroker
	buffer  io.Writer
	mu      sync.Mutex
	partial []byte
}

// NewStreamWriter creates a writer that broadcasts to the broker and writes to a buffer
func NewStreamWriter(jobID uuid.UUID, broker *LogBroker, buffer io.Writer) *StreamWriter {
	return &StreamWriter{
		jobID:  jobID,
		broker: broker,
		buffer: buffer,
	}
}

// Write implements io.Writer interface
func (w *StreamWriter) Write(p []byte) (n int, err error) {
	n, err = w.buffer.Write(p)
	if err != nil {
		return n, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.partial = append(w.partial, p...)
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		w.broker.Publish(w.jobID, string(w.partial[:i]))
		w.partial = w.partial[i+1:]
	}
	return n, nil
}

// Flush publishes a pending partial line
func (w *StreamWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.partial) > 0 {
		w.broker.Publish(w.jobID, string(w.partial))
		w.partial = nil
	}
}
