// Package apperr defines the error kinds every mutation and query can fail with and their
// mapping to gRPC status codes.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError reports invalid input. Nothing was written.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid input"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return strings.Join(parts, "; ")
}

// Field returns the message recorded for field, or "".
func (e *ValidationError) Field(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

// UnauthorizedError means the caller is authenticated but lacks the role (or policy) for the action.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	if e.Reason == "" {
		return "unauthorized"
	}
	return "unauthorized: " + e.Reason
}

// UnauthenticatedError means no valid principal could be resolved.
type UnauthenticatedError struct{}

func (e *UnauthenticatedError) Error() string { return "unauthenticated" }

// NotFoundError means the entity does not exist, is soft-deleted or belongs to another organization.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError means the write would violate a uniqueness or state rule.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// StorageError wraps a failure of the relational store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e.Op == "" {
		return "storage: " + e.Err.Error()
	}
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

// Unauthorized returns an UnauthorizedError with reason.
func Unauthorized(reason string) error { return &UnauthorizedError{Reason: reason} }

// NotFound returns a NotFoundError for entity and id.
func NotFound(entity, id string) error { return &NotFoundError{Entity: entity, ID: id} }

// Conflict returns a ConflictError with a formatted message.
func Conflict(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// Storage wraps err as a StorageError unless it already is an application error.
// Postgres unique violations become ConflictError.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsAppError(err) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &ConflictError{Message: "already exists"}
	}
	return &StorageError{Op: op, Err: err}
}

// IsAppError reports whether err is one of the kinds defined in this package.
func IsAppError(err error) bool {
	var (
		v  *ValidationError
		u  *UnauthorizedError
		ua *UnauthenticatedError
		nf *NotFoundError
		c  *ConflictError
		s  *StorageError
	)
	return errors.As(err, &v) || errors.As(err, &u) || errors.As(err, &ua) ||
		errors.As(err, &nf) || errors.As(err, &c) || errors.As(err, &s)
}

// IsUnauthorized reports whether err is an UnauthorizedError.
func IsUnauthorized(err error) bool {
	var u *UnauthorizedError
	return errors.As(err, &u)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// Validator collects field errors. The zero value is ready to use.
type Validator struct {
	fields map[string]string
	order  []string
}

// Check records message for field when ok is false. The first message per field wins.
func (v *Validator) Check(ok bool, field, message string) {
	if ok {
		return
	}
	v.Add(field, message)
}

// Add records message for field unconditionally.
func (v *Validator) Add(field, message string) {
	if v.fields == nil {
		v.fields = make(map[string]string)
	}
	if _, exists := v.fields[field]; exists {
		return
	}
	v.fields[field] = message
	v.order = append(v.order, field)
}

// Merge adds the fields of a *ValidationError. Any other error is ignored.
func (v *Validator) Merge(err error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		for _, f := range ve.Fields {
			v.Add(f.Field, f.Message)
		}
	}
}

// Err returns a *ValidationError, or nil when nothing was recorded.
func (v *Validator) Err() error {
	if len(v.order) == 0 {
		return nil
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(v.order))}
	for _, f := range v.order {
		out.Fields = append(out.Fields, FieldError{Field: f, Message: v.fields[f]})
	}
	return out
}

// Fields returns the recorded field names sorted, for tests and logs.
func (v *Validator) Fields() []string {
	out := append([]string(nil), v.order...)
	sort.Strings(out)
	return out
}
