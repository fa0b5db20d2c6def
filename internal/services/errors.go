package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/uptrace/bun/driver/pgdriver"
)

// ValidationError collects per-field messages and is rendered as a 400 with
// the {"field": ["message"]} body.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

// FieldError builds a ValidationError holding a single message.
func FieldError(field, format string, args ...any) *ValidationError {
	v := NewValidationError()
	v.Add(field, fmt.Sprintf(format, args...))
	return v
}

func (v *ValidationError) Add(field, msg string) {
	v.Fields[field] = append(v.Fields[field], msg)
}

// Err returns nil when nothing was added, so callers can `return v.Err()`.
func (v *ValidationError) Err() error {
	if len(v.Fields) == 0 {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(v.Fields[k], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// ErrForbidden is returned when the caller may not perform a write.
var ErrForbidden = errors.New("forbidden")

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func pgCode(err error) string {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C')
	}
	return ""
}

func isUniqueViolation(err error) bool { return pgCode(err) == pgUniqueViolation }

func isForeignKeyViolation(err error) bool { return pgCode(err) == pgForeignKeyViolation }

// constraintError turns integrity violations into validation errors on
// field and passes anything else through.
func constraintError(err error, field string) error {
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return FieldError(field, "already exists")
	case isForeignKeyViolation(err):
		return FieldError(field, "references an object that does not exist")
	default:
		return err
	}
}
