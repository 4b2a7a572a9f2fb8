package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// sentinel errors shared between the repository, the media pipeline and
// the HTTP layer. handlers translate these into status codes
var (
	ErrNotFound         = errors.New("record not found")
	ErrConflict         = errors.New("duplicate unique key")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrTagMismatch      = errors.New("ear tag does not match photo URL")
)

// ValidationError aggregates per-field constraint violations. it is
// produced at the record-construction boundary and returned verbatim to
// the caller
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a violation for the given field, keeping the first
// message if the field was already flagged
func (e *ValidationError) Add(field, message string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// ErrOrNil returns the error itself when any field was flagged, nil
// otherwise. callers can return the result directly
func (e *ValidationError) ErrOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsValidationError unwraps err into a *ValidationError if possible
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
