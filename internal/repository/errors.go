// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios instead of
// collapsing every failure into "no result".
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a lookup by id matches no row.  The more
// specific not-found errors below wrap it so callers may test either.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write collides with existing state, such
// as a duplicate unique key.
var ErrConflict = errors.New("conflict")

// isDuplicateKey recognises unique-key violations from both MySQL (1062)
// and SQLite ("UNIQUE constraint failed").
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") || strings.Contains(msg, "unique constraint failed")
}
