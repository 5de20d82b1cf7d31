package resolver

import (
	"fmt"
	"strings"
)

// DuplicateKeyError means a natural key occurs more than once in a batch.
type DuplicateKeyError struct {
	Table string
	Key   string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("resolver: %s: duplicate key %s", e.Table, e.Key)
}

// OrphanReferenceError lists child rows whose parent key has no match. The
// batch it belongs to must not be loaded.
type OrphanReferenceError struct {
	Table  string
	Parent string
	Keys   []string
}

const maxListedKeys = 10

func (e *OrphanReferenceError) Error() string {
	keys := e.Keys
	more := ""
	if len(keys) > maxListedKeys {
		more = fmt.Sprintf(" and %d more", len(keys)-maxListedKeys)
		keys = keys[:maxListedKeys]
	}
	return fmt.Sprintf("resolver: %s: %d rows reference missing %s: %s%s",
		e.Table, len(e.Keys), e.Parent, strings.Join(keys, ", "), more)
}

// CountMismatchError means a record's declared segment count differs from the
// segment rows present for it.
type CountMismatchError struct {
	RecordID string
	Declared int
	Actual   int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("resolver: record %s declares %d segments, %d present", e.RecordID, e.Declared, e.Actual)
}
