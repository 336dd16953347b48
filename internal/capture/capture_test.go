package capture

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLogWritesLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	started := time.Date(2025, 11, 13, 17, 2, 22, 0, time.Local)

	l, err := Open(dir, started)
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}

	if want := filepath.Join(dir, "20251113_170222.txt"); l.Path() != want {
		t.Errorf("Path() = %q, want %q", l.Path(), want)
	}

	for _, line := range []string{"[0x40W+0x8B+\n", "[0x40R+0x34+0x5B-\r\n", "no newline"} {
		if err := l.Write(line); err != nil {
			t.Fatalf("Write() unexpected error: %v", err)
		}
	}
	if l.Lines() != 3 {
		t.Errorf("Lines() = %d, want 3", l.Lines())
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}

	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatal(err)
	}
	want := "[0x40W+0x8B+\n[0x40R+0x34+0x5B-\nno newline\n"
	if string(data) != want {
		t.Errorf("file = %q, want %q", data, want)
	}
}

func TestLogStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	started := time.Now()
	path := filepath.Join(dir, FileName(started))
	if err := os.WriteFile(path, []byte("stale\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	l, err := Open(dir, started)
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	_ = l.Close()

	data, _ := os.ReadFile(path)
	if len(data) != 0 {
		t.Errorf("file = %q, want empty", data)
	}
}

func TestLogClosed(t *testing.T) {
	l, err := Open(t.TempDir(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
	if err := l.Write("x"); !errors.Is(err, ErrClosed) {
		t.Errorf("Write() after Close error = %v, want ErrClosed", err)
	}
	if err := l.Flush(); !errors.Is(err, ErrClosed) {
		t.Errorf("Flush() after Close error = %v, want ErrClosed", err)
	}
}
