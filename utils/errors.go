package utils

import (
	"fmt"

	"github.com/pkg/errors"
)

// EmptyInputError is returned when a stage is handed no points to process.
type EmptyInputError struct {
	Stage string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s: no points to process", e.Stage)
}

// NewEmptyInputError is used when a stage receives an empty point set.
func NewEmptyInputError(stage string) error {
	return errors.WithStack(&EmptyInputError{Stage: stage})
}

// DegenerateModelError is returned when a model fit is underdetermined or the
// parameters of a fit are inconsistent with each other.
type DegenerateModelError struct {
	Model  string
	Reason string
}

func (e *DegenerateModelError) Error() string {
	return fmt.Sprintf("degenerate %s model: %s", e.Model, e.Reason)
}

// NewDegenerateModelError is used when a model cannot be fit.
func NewDegenerateModelError(model, format string, args ...interface{}) error {
	return errors.WithStack(&DegenerateModelError{Model: model, Reason: fmt.Sprintf(format, args...)})
}

// NoClusterFoundError is returned when no cluster survives the size filter.
type NoClusterFoundError struct {
	MinClusterSize int
}

func (e *NoClusterFoundError) Error() string {
	return fmt.Sprintf("no cluster with at least %d points found", e.MinClusterSize)
}

// NewNoClusterFoundError is used when cluster extraction yields an empty partition.
func NewNoClusterFoundError(minClusterSize int) error {
	return errors.WithStack(&NoClusterFoundError{MinClusterSize: minClusterSize})
}

// IOError wraps failures at the artifact boundary. It never originates in the
// geometric stages.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("io: %v", e.Err)
	}
	return fmt.Sprintf("io %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError wraps err as an IOError for the given path. A nil err yields nil.
func NewIOError(path string, err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&IOError{Path: path, Err: err})
}

// NewUnexpectedTypeError is used when there is a type mismatch.
func NewUnexpectedTypeError(expected interface{}, actual interface{}) error {
	return errors.Errorf("expected %T but got %T", expected, actual)
}

// NewConfigValidationError returns a config validation error
// occurring at a given path.
func NewConfigValidationError(path string, err error) error {
	if path == "" {
		return errors.Wrap(err, "error validating")
	}
	return errors.Wrapf(err, "error validating %q", path)
}

// NewConfigValidationFieldRequiredError returns a config validation
// error for a field missing at a given path.
func NewConfigValidationFieldRequiredError(path, field string) error {
	return NewConfigValidationError(path, errors.Errorf("%q is required", field))
}
