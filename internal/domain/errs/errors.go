package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Violation is one rule a payload failed.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (v Violation) String() string {
	if v.Field == "" {
		return v.Reason
	}
	return v.Field + ": " + v.Reason
}

// ValidationError means the payload was rejected and nothing was applied.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.String())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Invalid builds a ValidationError with a single violation.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Violations: []Violation{{Field: field, Reason: fmt.Sprintf(format, args...)}}}
}

// ConflictError is returned for a stale update. Current holds the winning
// server-side record so the client can re-merge.
type ConflictError struct {
	Entity  string
	ID      string
	Current any
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s %s was modified on the server after the change was made", e.Entity, e.ID)
}

// NotFoundError covers both missing rows and rows outside the caller's agency.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// TransactionError wraps a storage failure that aborted a transaction.
// The whole operation is safe to retry.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction failed during %s: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// Tx wraps err as a TransactionError unless it is nil or already typed.
func Tx(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsValidation(err) || IsConflict(err) || IsNotFound(err) || IsTransaction(err) {
		return err
	}
	return &TransactionError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

func IsTransaction(err error) bool {
	var t *TransactionError
	return errors.As(err, &t)
}

// Field returns the first violated field of a ValidationError, if any.
func Field(err error) string {
	var v *ValidationError
	if errors.As(err, &v) && len(v.Violations) > 0 {
		return v.Violations[0].Field
	}
	return ""
}
