// Package stream reads and writes newline-delimited JSON record files,
// gzip-compressed when the path ends in ".gz".
package stream

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rewired-gh/finsent/internal/logger"
	"github.com/rewired-gh/finsent/internal/models"
)

// IsGzip reports whether path follows the ".gz" convention.
func IsGzip(path string) bool {
	return strings.HasSuffix(path, ".gz")
}

// Reader yields complete lines from a record file. A trailing fragment left
// by a truncated or corrupt stream is never returned.
type Reader struct {
	path string
	file *os.File
	gz   *gzip.Reader
	br   *bufio.Reader
	line int
}

// Open opens path for reading. A missing file is an error, not an empty stream.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	r := &Reader{path: path, file: f}
	var src io.Reader = f
	if IsGzip(path) {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %s is not a gzip stream: %v", models.ErrIOFailure, path, err)
		}
		r.gz = gz
		src = gz
	}
	r.br = bufio.NewReaderSize(src, 1<<20)
	return r, nil
}

// Path returns the file the reader was opened on.
func (r *Reader) Path() string { return r.path }

// Line returns the 1-based number of the last line returned by Next.
func (r *Reader) Line() int { return r.line }

// Next returns the next line without its terminator. It returns io.EOF at a
// clean end of stream and an ErrIOFailure-wrapped error when the underlying
// stream breaks; the partial line in that case is discarded.
func (r *Reader) Next() ([]byte, error) {
	data, err := r.br.ReadBytes('\n')
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		if len(data) == 0 {
			return nil, io.EOF
		}
		// final line without a newline
	default:
		return nil, fmt.Errorf("%w: %s after line %d: %v", models.ErrIOFailure, r.path, r.line, err)
	}
	r.line++
	return bytes.TrimRight(data, "\r\n"), nil
}

// Close releases the file and decompressor.
func (r *Reader) Close() error {
	if r.gz != nil {
		r.gz.Close()
	}
	return r.file.Close()
}

// Counts tallies what a read pass saw.
type Counts struct {
	Read      int
	Malformed int
	Truncated bool
}

// Each decodes every non-blank line of r into a T and hands it to fn together
// with its raw bytes. Lines that fail to decode are logged, counted as
// malformed, and skipped. An error from fn stops the pass. On a broken stream
// Each returns the counts so far along with the ErrIOFailure error.
func Each[T any](r *Reader, fn func(rec T, raw []byte) error) (Counts, error) {
	var c Counts
	for {
		line, err := r.Next()
		if errors.Is(err, io.EOF) {
			return c, nil
		}
		if err != nil {
			c.Truncated = true
			return c, err
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(line, &rec); err != nil {
			c.Malformed++
			rerr := models.NewRecordError(models.ErrMalformedRecord, "", r.Line(), string(line), err)
			logger.Warn("Skipping %s: %v (%s)", r.path, rerr, rerr.Excerpt)
			continue
		}
		c.Read++
		if err := fn(rec, line); err != nil {
			return c, err
		}
	}
}

// ReadAll decodes a whole file into memory.
func ReadAll[T any](path string) ([]T, Counts, error) {
	r, err := Open(path)
	if err != nil {
		return nil, Counts{}, err
	}
	defer r.Close()
	var out []T
	c, err := Each(r, func(rec T, _ []byte) error {
		out = append(out, rec)
		return nil
	})
	return out, c, err
}
