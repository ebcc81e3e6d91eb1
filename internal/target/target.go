// Package target defines the output artifact abstraction consumed by tasks
// and the executor. Constructing a target never touches the filesystem; a
// target only materializes when a writer opened through OpenWrite is closed.
package target

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Target is an opaque handle to a task's output artifact.
type Target interface {
	// Path returns the concrete identifier of the artifact.
	Path() string
	// Exists reports whether the artifact has been fully written.
	Exists() bool
	// OpenRead opens the artifact for reading.
	OpenRead() (io.ReadCloser, error)
	// OpenWrite opens the artifact for writing. The artifact must not be
	// visible at Path until the returned writer is closed successfully.
	OpenWrite() (io.WriteCloser, error)
}

// Constructor builds a Target for a resolved path. Implementations close
// over any extra construction options their target type needs.
type Constructor func(path string) Target

// Local is a file-backed Target. Writes go through a temporary file in the
// destination directory and are renamed into place on Close, so a partially
// written artifact never counts as existing.
type Local struct {
	path string
}

// NewLocal returns a Local target for the given path. No I/O is performed.
func NewLocal(path string) *Local {
	return &Local{path: path}
}

// LocalConstructor adapts NewLocal to the Constructor signature.
func LocalConstructor(path string) Target {
	return NewLocal(path)
}

// Path returns the file path of the target.
func (t *Local) Path() string {
	return t.path
}

// Exists reports whether the target file is present.
func (t *Local) Exists() bool {
	info, err := os.Stat(t.path)
	return err == nil && !info.IsDir()
}

// OpenRead opens the target file for reading.
func (t *Local) OpenRead() (io.ReadCloser, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open target '%s' for reading: %w", t.path, err)
	}
	return f, nil
}

// OpenWrite opens the target for writing via a temporary file. Closing the
// returned writer atomically publishes the artifact at Path.
func (t *Local) OpenWrite() (io.WriteCloser, error) {
	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create target directory '%s': %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(t.path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file for target '%s': %w", t.path, err)
	}

	return &atomicWriter{file: tmp, dest: t.path}, nil
}

// atomicWriter renames the temp file over the destination on Close. A
// writer that saw a failed Write never publishes; Close is idempotent so
// deferred and explicit closes can coexist.
type atomicWriter struct {
	file     *os.File
	dest     string
	writeErr error
	closed   bool
}

func (w *atomicWriter) Write(p []byte) (int, error) {
	n, err := w.file.Write(p)
	if err != nil && w.writeErr == nil {
		w.writeErr = err
	}
	return n, err
}

func (w *atomicWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.writeErr != nil {
		w.file.Close()
		os.Remove(w.file.Name())
		return fmt.Errorf("failed to write target '%s': %w", w.dest, w.writeErr)
	}
	if err := w.file.Close(); err != nil {
		os.Remove(w.file.Name())
		return fmt.Errorf("failed to close temporary file for target '%s': %w", w.dest, err)
	}
	if err := os.Rename(w.file.Name(), w.dest); err != nil {
		os.Remove(w.file.Name())
		return fmt.Errorf("failed to publish target '%s': %w", w.dest, err)
	}
	return nil
}
