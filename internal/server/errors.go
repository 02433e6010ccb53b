package server

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"gorm.io/gorm"
)

// ValidationError reports a request rejected before it reached the database:
// malformed payload or missing required fields.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ConnectivityError wraps a failure to reach the database. It fails the
// whole invocation: once the connection is gone, remaining batch records
// cannot be processed either.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string { return "database unreachable: " + e.Err.Error() }
func (e *ConnectivityError) Unwrap() error { return e.Err }

// ConstraintError wraps a row rejected by the schema (e.g. a status value
// outside the check constraint). It fails only the record that carried the
// bad value.
type ConstraintError struct {
	Err error
}

func (e *ConstraintError) Error() string { return "constraint violated: " + e.Err.Error() }
func (e *ConstraintError) Unwrap() error { return e.Err }

// classifyDBError maps a storage error onto the taxonomy above. Errors that
// match neither class pass through unchanged and are treated as record-level
// failures by the caller.
func classifyDBError(err error) error {
	if err == nil {
		return nil
	}

	// sentinels gorm produces with TranslateError enabled
	if errors.Is(err, gorm.ErrCheckConstraintViolated) ||
		errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) {
		return &ConstraintError{Err: err}
	}

	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return &ConnectivityError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &ConnectivityError{Err: err}
	}

	// drivers that translate neither way: fall back to message matching
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "constraint"), strings.Contains(msg, "sqlstate 23"):
		return &ConstraintError{Err: err}
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "bad connection"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "i/o timeout"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "failed to connect"),
		strings.Contains(msg, "database is closed"),
		strings.Contains(msg, "closed pool"):
		return &ConnectivityError{Err: err}
	}
	return err
}
