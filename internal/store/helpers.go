package store

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity or relation does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a create would overwrite an existing row.
	ErrConflict = errors.New("conflict")
)

// now returns the current UTC time formatted as an ISO-8601 timestamp.
func now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// nowMillis returns the current time as Unix milliseconds, the unit used for
// attribute update timestamps.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// placeholders returns "?, ?, ?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
