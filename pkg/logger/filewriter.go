package logger

import (
	"fmt"
	"os"
	"sync"
)

// FileWriter is an append-only log sink that can be reopened, so an external
// rotator may move the file out from under it.
type FileWriter struct {
	mu   sync.Mutex // close/reopen/write must not interleave
	f    *os.File
	mode os.FileMode
	name string
}

// NewFileWriter opens (creating if needed) name for appending.
func NewFileWriter(name string) (*FileWriter, error) {
	return NewFileWriterMode(name, 0o600)
}

// NewFileWriterMode opens a FileWriter with a specific permission mode.
func NewFileWriterMode(name string, mode os.FileMode) (*FileWriter, error) {
	w := &FileWriter{name: name, mode: mode}

	err := w.reopen()
	if err != nil {
		return nil, err
	}

	return w, nil
}

// Write implements io.Writer.
func (w *FileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return 0, fmt.Errorf("write to closed log file %s", w.name)
	}

	return w.f.Write(p)
}

// Reopen closes and reopens the underlying file.
func (w *FileWriter) Reopen() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.reopen()
}

// Close closes the underlying file. Writes after Close fail.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return nil
	}

	err := w.f.Close()
	w.f = nil

	return err
}

// mutex-free; callers hold w.mu.
func (w *FileWriter) reopen() error {
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}

	f, err := os.OpenFile(w.name, os.O_WRONLY|os.O_APPEND|os.O_CREATE, w.mode)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	w.f = f

	return nil
}
