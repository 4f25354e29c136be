package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrRendererFailure = errors.New("renderer failure")
)

// ValidationError rejects a request at submission, before a job exists.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

// RenderErrorKind classifies renderer failures for retry decisions.
type RenderErrorKind string

const (
	RenderErrValidation RenderErrorKind = "validation"
	RenderErrInternal   RenderErrorKind = "internal"
	RenderErrTimeout    RenderErrorKind = "timeout"
)

// RenderError is returned by rendering collaborators. Only timeouts are
// considered retryable.
type RenderError struct {
	Kind    RenderErrorKind
	Message string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %s", e.Kind, e.Message)
}

func (e *RenderError) Retryable() bool { return e.Kind == RenderErrTimeout }

func (e *RenderError) Unwrap() error { return ErrRendererFailure }
