package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals malformed input rejected before any backend call.
	ErrValidation = errors.New("validation failed")
	// ErrUpstream signals an unreachable or failing index backend.
	ErrUpstream = errors.New("index backend error")
	// ErrConfiguration signals an invalid configuration operation.
	ErrConfiguration = errors.New("configuration error")
	// ErrData signals a missing or incompatible evaluation data record.
	ErrData = errors.New("data error")

	// ErrModelNotFound signals a missing scoring model.
	ErrModelNotFound = errors.New("scoring model not found")
	// ErrModelExists signals a duplicate scoring model id.
	ErrModelExists = errors.New("scoring model already exists")
	// ErrActiveModelDelete signals an attempt to delete the active scoring model.
	ErrActiveModelDelete = errors.New("active scoring model cannot be deleted")
	// ErrNoActiveModel signals that no scoring model is currently active.
	ErrNoActiveModel = errors.New("no active scoring model")
	// ErrTestCaseNotFound signals a missing query test case.
	ErrTestCaseNotFound = errors.New("query test case not found")
	// ErrUnknownFacetType signals a facet type outside the supported set.
	ErrUnknownFacetType = errors.New("unknown facet type")
	// ErrUnknownLanguage signals a language code without a registered config.
	ErrUnknownLanguage = errors.New("unknown language")
)

// UpstreamError wraps ErrUpstream with the backend operation that failed.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrUpstream.Error(), e.Op, e.Err.Error())
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// NewUpstream creates an upstream error for a backend operation.
func NewUpstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}
