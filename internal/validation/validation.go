package validation

import (
	"fmt"
	"sort"
	"strings"
)

// Error collects field-level validation failures for a single entity.
// Causes holds the underlying sentinel errors, if any, so callers can match
// them with errors.Is.
type Error struct {
	Fields map[string]string
	Causes []error
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, field := range keys {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether field failed validation.
func (e *Error) Has(field string) bool {
	_, ok := e.Fields[field]
	return ok
}

func (e *Error) Unwrap() []error {
	return e.Causes
}
