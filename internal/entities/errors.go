package entities

import (
	"errors"
	"fmt"
)

var (
	ErrCacheMiss  = errors.New("cache miss")
	ErrValidation = errors.New("validation failed")
	ErrUpstream   = errors.New("upstream failure")
)

// CacheMissError is returned when a cache-only read finds no cache file
type CacheMissError struct {
	Dataset string
	Path    string
}

func (e *CacheMissError) Error() string {
	return fmt.Sprintf("cache miss for dataset %s: %s does not exist", e.Dataset, e.Path)
}

func (e *CacheMissError) Is(target error) bool { return target == ErrCacheMiss }

// ValidationError is returned when scraped or derived data fails a sanity check
type ValidationError struct {
	Dataset string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for dataset %s: %s", e.Dataset, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func NewValidationError(dataset, format string, args ...any) *ValidationError {
	return &ValidationError{Dataset: dataset, Message: fmt.Sprintf(format, args...)}
}

// UpstreamError wraps a network or parse failure of an external collaborator
type UpstreamError struct {
	Source  string
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream error from %s: %s: %v", e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("upstream error from %s: %s", e.Source, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

func NewUpstreamError(source, message string, err error) *UpstreamError {
	return &UpstreamError{Source: source, Message: message, Err: err}
}
