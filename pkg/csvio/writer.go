package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Writer emits rows of one table. Write is safe for concurrent use; the rows
// of a single call stay contiguous and in order.
type Writer[T any] struct {
	mu     sync.Mutex
	table  Table[T]
	csv    *csv.Writer
	closer io.Closer
	rows   int64
}

// NewWriter writes the table's header row to w.
func NewWriter[T any](w io.Writer, table Table[T]) (*Writer[T], error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Columns); err != nil {
		return nil, fmt.Errorf("csvio: %s: write header: %w", table.Name, err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("csvio: %s: write header: %w", table.Name, err)
	}
	return &Writer[T]{table: table, csv: cw}, nil
}

// CreateFile creates (or truncates) the table's file in dir.
func CreateFile[T any](dir string, table Table[T]) (*Writer[T], error) {
	return CreatePath(filepath.Join(dir, table.File), table)
}

// CreatePath is CreateFile with an explicit file path.
func CreatePath[T any](path string, table Table[T]) (*Writer[T], error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csvio: %s: %w", table.Name, err)
	}
	w, err := NewWriter(f, table)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

func (w *Writer[T]) Write(rows ...T) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, row := range rows {
		if err := w.csv.Write(w.table.Encode(row)); err != nil {
			return fmt.Errorf("csvio: %s: %w", w.table.Name, err)
		}
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("csvio: %s: %w", w.table.Name, err)
	}
	w.rows += int64(len(rows))
	return nil
}

// Rows is the number of data rows written so far.
func (w *Writer[T]) Rows() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// Close flushes and closes the underlying file, if the writer owns one.
func (w *Writer[T]) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.csv.Flush()
	err := w.csv.Error()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
		w.closer = nil
	}
	return err
}
