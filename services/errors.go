// Package services holds the post, comment and taxonomy rules shared by the
// admin and public handlers.
package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound reports a missing (or, for readers, invisible) record.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports an operation blocked by dependent records.
	ErrConflict = errors.New("conflict")
	// ErrUnauthenticated reports a missing caller identity.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError carries one message per offending input field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// AsValidation extracts a ValidationError from err.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
