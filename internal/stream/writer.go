package stream

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Writer writes records to a temporary file beside the destination and only
// renames it into place on Commit, so a half-written output never carries the
// final name.
type Writer struct {
	path    string
	tmp     *os.File
	gz      *gzip.Writer
	bw      *bufio.Writer
	enc     *json.Encoder
	written int
	done    bool
}

// Create prepares a writer for path, creating parent directories as needed.
func Create(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	w := &Writer{path: path, tmp: tmp}
	w.bw = bufio.NewWriterSize(tmp, 1<<20)
	if IsGzip(path) {
		w.gz = gzip.NewWriter(w.bw)
		w.enc = json.NewEncoder(w.gz)
	} else {
		w.enc = json.NewEncoder(w.bw)
	}
	w.enc.SetEscapeHTML(false)
	return w, nil
}

// Encode writes v as one JSON line.
func (w *Writer) Encode(v any) error {
	if err := w.enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	w.written++
	return nil
}

// WriteLine writes raw as-is followed by a newline. raw must not contain one.
func (w *Writer) WriteLine(raw []byte) error {
	var err error
	if w.gz != nil {
		if _, err = w.gz.Write(raw); err == nil {
			_, err = w.gz.Write([]byte{'\n'})
		}
	} else {
		if _, err = w.bw.Write(raw); err == nil {
			err = w.bw.WriteByte('\n')
		}
	}
	if err != nil {
		return fmt.Errorf("failed to write line: %w", err)
	}
	w.written++
	return nil
}

// Written returns the number of records written so far.
func (w *Writer) Written() int { return w.written }

// Commit flushes, syncs, and moves the temp file onto the destination path.
func (w *Writer) Commit() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.flush(); err != nil {
		w.tmp.Close()
		os.Remove(w.tmp.Name())
		return err
	}
	if err := w.tmp.Close(); err != nil {
		os.Remove(w.tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(w.tmp.Name(), w.path); err != nil {
		os.Remove(w.tmp.Name())
		return fmt.Errorf("failed to finalize %s: %w", w.path, err)
	}
	return nil
}

// Abort discards everything written. Safe to call after Commit.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.tmp.Close()
	os.Remove(w.tmp.Name())
}

func (w *Writer) flush() error {
	if w.gz != nil {
		if err := w.gz.Close(); err != nil {
			return fmt.Errorf("failed to finish gzip stream: %w", err)
		}
	}
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	if err := w.tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync output: %w", err)
	}
	return nil
}
