// Package zip writes flat archives entry by entry without buffering the
// whole archive in memory.
package zip

import (
	"archive/zip"
	"compress/flate"
	"errors"
	"fmt"
	"io"
	"time"
)

// Writer streams deflate-compressed entries into an underlying writer.
type Writer struct {
	zw      *zip.Writer
	names   map[string]struct{}
	modTime time.Time
	closed  bool
}

// NewWriter wraps w. Entries use the best compression level.
func NewWriter(w io.Writer) *Writer {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})
	return &Writer{zw: zw, names: make(map[string]struct{}), modTime: time.Now()}
}

// Add copies r into a new entry called name. Names must be unique.
func (w *Writer) Add(name string, r io.Reader) (int64, error) {
	if w.closed {
		return 0, errors.New("zip: writer closed")
	}
	if name == "" {
		return 0, errors.New("zip: entry name is required")
	}
	if _, dup := w.names[name]; dup {
		return 0, fmt.Errorf("zip: duplicate entry %q", name)
	}
	entry, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: w.modTime,
	})
	if err != nil {
		return 0, fmt.Errorf("zip: create %s: %w", name, err)
	}
	n, err := io.Copy(entry, r)
	if err != nil {
		return n, fmt.Errorf("zip: write %s: %w", name, err)
	}
	w.names[name] = struct{}{}
	return n, nil
}

// Len returns the number of entries written so far.
func (w *Writer) Len() int {
	return len(w.names)
}

// Close writes the central directory. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.zw.Close()
}
