// Package writer persists extraction results as timestamp-named JSON files.
package writer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"inventory-extractor/internal/extractor"
)

// timestampLayout qualifies output filenames down to the second.
const timestampLayout = "20060102_150405"

// WriteError is fatal: extraction succeeded but the result could not be
// persisted.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write output %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Result is the extraction output, owned by the writer until persisted.
type Result struct {
	Records    []extractor.Record
	CapturedAt time.Time
}

// Writer serializes results into a directory.
type Writer struct {
	dir string
}

// New returns a writer targeting dir.
func New(dir string) *Writer {
	return &Writer{dir: dir}
}

// Filename returns the timestamp-qualified output name for a capture time.
func Filename(capturedAt time.Time) string {
	return fmt.Sprintf("product_data_%s.json", capturedAt.Format(timestampLayout))
}

// Write serializes the records as a JSON array and returns the file path.
// An empty extraction writes a literal []. The file must not already exist:
// two captures within the same second would otherwise silently clobber each
// other.
func (w *Writer) Write(result Result) (string, error) {
	path := filepath.Join(w.dir, Filename(result.CapturedAt))

	if err := ensureDir(path); err != nil {
		return "", &WriteError{Path: path, Err: err}
	}

	records := result.Records
	if records == nil {
		records = []extractor.Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", &WriteError{Path: path, Err: err}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", &WriteError{Path: path, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", &WriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &WriteError{Path: path, Err: err}
	}

	return path, nil
}

// Validate ensures the written file exists and is non-empty.
func (w *Writer) Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat output file: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("output file %s is empty", path)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
