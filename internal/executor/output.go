package executor

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
)

// lineWriter adapts command output to the structured logger, one log record
// per line. It is safe for the concurrent writes os/exec may perform.
type lineWriter struct {
	logger *slog.Logger
	stream string

	mu  sync.Mutex
	buf bytes.Buffer
}

func newLineWriter(logger *slog.Logger, stream string) *lineWriter {
	return &lineWriter{logger: logger, stream: stream}
}

// Write implements io.Writer.
func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(w.buf.Next(i + 1))
		w.logLine(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

// Flush logs any trailing output that did not end in a newline.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() > 0 {
		w.logLine(strings.TrimRight(w.buf.String(), "\r\n"))
		w.buf.Reset()
	}
}

func (w *lineWriter) logLine(line string) {
	w.logger.Info(line, "stream", w.stream)
}
