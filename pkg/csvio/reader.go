package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Reader decodes rows of one table. The header has been validated by the
// time NewReader returns.
type Reader[T any] struct {
	table  Table[T]
	csv    *csv.Reader
	width  int
	line   int
	closer io.Closer
}

// NewReader reads and validates the header row. A header that differs from
// the table's columns yields a *SchemaMismatchError.
func NewReader[T any](r io.Reader, table Table[T]) (*Reader[T], error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &SchemaMismatchError{Table: table.Name, Expected: table.Columns}
	}
	if err != nil {
		return nil, fmt.Errorf("csvio: %s: read header: %w", table.Name, err)
	}

	got := make([]string, len(header))
	for i, h := range header {
		got[i] = strings.TrimSpace(h)
	}
	if len(got) > 0 {
		got[0] = strings.TrimPrefix(got[0], "\ufeff")
	}
	if !headerMatches(table, got) {
		return nil, &SchemaMismatchError{Table: table.Name, Expected: table.Columns, Got: got}
	}

	return &Reader[T]{table: table, csv: cr, width: len(got), line: 1}, nil
}

func headerMatches[T any](table Table[T], got []string) bool {
	if len(got) < table.minColumns() || len(got) > len(table.Columns) {
		return false
	}
	for i, col := range got {
		if col != table.Columns[i] {
			return false
		}
	}
	return true
}

// OpenFile opens the table's file in dir. The caller closes the reader.
func OpenFile[T any](dir string, table Table[T]) (*Reader[T], error) {
	f, err := os.Open(filepath.Join(dir, table.File))
	if err != nil {
		return nil, fmt.Errorf("csvio: %s: %w", table.Name, err)
	}
	r, err := NewReader(f, table)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Read returns the next row, or io.EOF after the last one.
func (r *Reader[T]) Read() (T, error) {
	var zero T

	for {
		fields, err := r.csv.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return zero, io.EOF
			}
			return zero, &DecodeError{Table: r.table.Name, Line: r.line + 1, Err: err}
		}
		r.line++

		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			continue
		}
		if len(fields) != r.width {
			return zero, &DecodeError{
				Table: r.table.Name,
				Line:  r.line,
				Err:   fmt.Errorf("expected %d fields, got %d", r.width, len(fields)),
			}
		}

		d := &decoder{columns: r.table.Columns, fields: fields}
		row := r.table.Decode(d)
		if d.err != nil {
			d.err.Table, d.err.Line = r.table.Name, r.line
			return zero, d.err
		}
		return row, nil
	}
}

// ReadAll drains the reader.
func (r *Reader[T]) ReadAll() ([]T, error) {
	var rows []T
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// Line is the 1-based line of the last row read; the header is line 1.
func (r *Reader[T]) Line() int {
	return r.line
}

func (r *Reader[T]) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// ReadFile reads every row of the table's file in dir.
func ReadFile[T any](dir string, table Table[T]) ([]T, error) {
	r, err := OpenFile(dir, table)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ReadAll()
}

// CheckHeader opens the table's file in dir and validates only its header.
func CheckHeader[T any](dir string, table Table[T]) error {
	r, err := OpenFile(dir, table)
	if err != nil {
		return err
	}
	return r.Close()
}
