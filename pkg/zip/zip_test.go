package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if _, err := w.Add("photo0.jpg", strings.NewReader("first")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := w.Add("photo1.jpg", strings.NewReader("second")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if w.Len() != 2 {
		t.Fatalf("Len = %d, want 2", w.Len())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	want := map[string]string{"photo0.jpg": "first", "photo1.jpg": "second"}
	if len(zr.File) != len(want) {
		t.Fatalf("entries = %d, want %d", len(zr.File), len(want))
	}
	for i, f := range zr.File {
		if f.Method != zip.Deflate {
			t.Fatalf("entry %d method = %d, want deflate", i, f.Method)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if string(data) != want[f.Name] {
			t.Fatalf("%s = %q, want %q", f.Name, data, want[f.Name])
		}
	}
}

func TestWriterRejectsDuplicateAndEmptyNames(t *testing.T) {
	w := NewWriter(io.Discard)
	if _, err := w.Add("", strings.NewReader("x")); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := w.Add("a.jpg", strings.NewReader("x")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := w.Add("a.jpg", strings.NewReader("y")); err == nil {
		t.Fatal("expected error for duplicate name")
	}
	_ = w.Close()
	if _, err := w.Add("b.jpg", strings.NewReader("z")); err == nil {
		t.Fatal("expected error after close")
	}
}
