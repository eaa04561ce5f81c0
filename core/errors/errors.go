// Package errors provides the error types shared by the tailoring engine.
//
// Every typed error unwraps to one of the sentinels below so callers can
// branch with errors.Is without knowing the concrete type.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a block, part or session entry was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates unreadable or malformed input
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal indicates a broken engine invariant
	ErrInternal = errors.New("internal error")
	// ErrUnsupported indicates an unsupported container or operation
	ErrUnsupported = errors.New("unsupported")
	// ErrSerialize indicates the container could not be re-encoded
	ErrSerialize = errors.New("serialization failed")
)

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "block", "part")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation (may be redacted)
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError is returned when a container or its primary text part cannot be
// decoded. It aborts the patch pass.
type ParseError struct {
	Format  string // Format being parsed (e.g., "docx", "XML", "edit requests")
	Path    string // Part or file path, if applicable
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return errors.Join(ErrInvalidInput, e.Err)
	}
	return ErrInvalidInput
}

// SerializeError is returned when a mutated document cannot be re-encoded.
// No partial output accompanies it.
type SerializeError struct {
	Part string // Container part being written
	Err  error  // Underlying error
}

func (e *SerializeError) Error() string {
	if e.Part != "" {
		return fmt.Sprintf("failed to serialize %s: %v", e.Part, e.Err)
	}
	return fmt.Sprintf("failed to serialize: %v", e.Err)
}

func (e *SerializeError) Unwrap() error {
	if e.Err != nil {
		return errors.Join(ErrSerialize, e.Err)
	}
	return ErrSerialize
}

// InvariantError reports an engine logic fault, such as a block being
// rewritten twice in one pass. It is never expected at runtime.
type InvariantError struct {
	Invariant string // Short name of the broken rule
	Detail    string // What was observed
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated (%s): %s", e.Invariant, e.Detail)
}

func (e *InvariantError) Unwrap() error {
	return ErrInternal
}

// UnsupportedError represents an unsupported feature or format
type UnsupportedError struct {
	Feature string // Feature or format that is unsupported
	Reason  string // Why it's not supported
	Err     error  // Underlying error, if any
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnsupported
}

// Helper functions for creating common errors

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewParse creates a ParseError
func NewParse(format, path, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Path:    path,
		Message: message,
	}
}

// NewSerialize creates a SerializeError
func NewSerialize(part string, err error) *SerializeError {
	return &SerializeError{
		Part: part,
		Err:  err,
	}
}

// NewInvariant creates an InvariantError
func NewInvariant(invariant, format string, args ...interface{}) *InvariantError {
	return &InvariantError{
		Invariant: invariant,
		Detail:    fmt.Sprintf(format, args...),
	}
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{
		Feature: feature,
		Reason:  reason,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
