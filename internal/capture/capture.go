// Package capture keeps an append-only copy of every raw capture line fed
// through a decode run, so a session can be replayed later.
package capture

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// fileTimeFormat names capture files by their creation time.
const fileTimeFormat = "20060102_150405"

// ErrClosed is returned when writing to a closed log.
var ErrClosed = errors.New("capture: log closed")

// Log is an append-only text file of raw capture lines.
// All methods are safe for concurrent use.
type Log struct {
	mu    sync.Mutex
	file  *os.File
	w     *bufio.Writer
	path  string
	lines int
}

// FileName returns the capture file name for a run started at t.
func FileName(t time.Time) string {
	return t.Format(fileTimeFormat) + ".txt"
}

// Open creates dir if needed and starts a new, empty capture file in it
// named after started.
//
// Parameters:
//   - dir: Output directory
//   - started: Run start time, used for the file name
//
// Returns:
//   - *Log: Open log ready for Write
//   - error: If the directory or file cannot be created
func Open(dir string, started time.Time) (*Log, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating capture directory: %w", err)
	}

	path := filepath.Join(dir, FileName(started))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // Path built from operator configuration
	if err != nil {
		return nil, fmt.Errorf("creating capture file: %w", err)
	}

	return &Log{file: f, w: bufio.NewWriter(f), path: path}, nil
}

// Write appends one raw line. A trailing line ending is normalised to a
// single "\n".
func (l *Log) Write(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return ErrClosed
	}

	line = strings.TrimRight(line, "\r\n")
	if _, err := l.w.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("writing capture line: %w", err)
	}
	l.lines++
	return nil
}

// Flush writes buffered lines to the file.
func (l *Log) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return ErrClosed
	}
	return l.w.Flush()
}

// Path returns the capture file path.
func (l *Log) Path() string {
	return l.path
}

// Lines returns the number of lines written.
func (l *Log) Lines() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lines
}

// Close flushes and closes the file. Closing twice is a no-op.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	flushErr := l.w.Flush()
	closeErr := l.file.Close()
	l.file = nil

	if flushErr != nil {
		return fmt.Errorf("flushing capture file: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing capture file: %w", closeErr)
	}
	return nil
}
