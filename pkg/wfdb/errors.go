package wfdb

import "fmt"

// ParseError reports a malformed or truncated header. Record is always set,
// Segment only when the failure is inside a segment header.
type ParseError struct {
	Record  string
	Segment string
	Line    int
	Msg     string
	Err     error
}

func (e *ParseError) Error() string {
	where := e.Record
	if e.Segment != "" {
		where = fmt.Sprintf("%s segment %s", e.Record, e.Segment)
	}
	if e.Line > 0 {
		where = fmt.Sprintf("%s line %d", where, e.Line)
	}
	if e.Err != nil {
		return fmt.Sprintf("wfdb: parse %s: %s: %v", where, e.Msg, e.Err)
	}
	return fmt.Sprintf("wfdb: parse %s: %s", where, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
