package csvio

import (
	"fmt"
	"strings"
)

// SchemaMismatchError means a CSV header does not match the destination
// table's declared columns.
type SchemaMismatchError struct {
	Table    string
	Expected []string
	Got      []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("csvio: %s: header mismatch: expected [%s], got [%s]",
		e.Table, strings.Join(e.Expected, ","), strings.Join(e.Got, ","))
}

// DecodeError points at the line and column of a field that could not be
// decoded.
type DecodeError struct {
	Table  string
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("csvio: %s line %d: %v", e.Table, e.Line, e.Err)
	}
	return fmt.Sprintf("csvio: %s line %d column %s: value %q: %v", e.Table, e.Line, e.Column, e.Value, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
