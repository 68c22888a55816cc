package apperr

import (
	"errors"
	"fmt"
)

// Kind is the error category reported to the frontend.
type Kind string

const (
	KindDimensionMismatch       Kind = "DimensionMismatch"
	KindUninitializedVocabulary Kind = "UninitializedVocabulary"
	KindUninitializedContext    Kind = "UninitializedContext"
	KindMetricComputation       Kind = "MetricComputationError"
	KindInvalidSelection        Kind = "InvalidSelection"
	KindInvalidPayload          Kind = "InvalidPayload"
	KindInvalidRequest          Kind = "InvalidRequest"
	KindUnknownEndpoint         Kind = "UnknownEndpoint"
	KindInternal                Kind = "Internal"
)

var (
	// ErrDimensionMismatch: probability vector length differs from the vocabulary length.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrUninitializedVocabulary: the vocabulary was not loaded before use.
	ErrUninitializedVocabulary = errors.New("vocabulary not initialized")
	// ErrUninitializedContext: the generation context was not set before use.
	ErrUninitializedContext = errors.New("context not initialized")
	// ErrInvalidSelection: the client posted a value outside the offered set.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrInvalidPayload: an element payload violates its shape invariant.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrInvalidRequest: the request body could not be decoded or validated.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnknownEndpoint: no component registered the requested route.
	ErrUnknownEndpoint = errors.New("unknown endpoint")
)

// Error attaches the offending field to a sentinel.
type Error struct {
	Err     error
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error around one of the package sentinels.
func New(sentinel error, field, format string, args ...any) *Error {
	return &Error{Err: sentinel, Field: field, Message: fmt.Sprintf(format, args...)}
}

// DimensionMismatch reports probs/vocab length disagreement.
func DimensionMismatch(probs, vocab int) *Error {
	return New(ErrDimensionMismatch, "probs", "got %d probabilities for a vocabulary of %d", probs, vocab)
}

// InvalidSelection reports a client value outside the offered set.
func InvalidSelection(field string, value any) *Error {
	return New(ErrInvalidSelection, field, "%v is not one of the offered values", value)
}

// MetricComputationError is raised by one metric on one candidate.
type MetricComputationError struct {
	Metric    string
	Candidate int
	Err       error
}

func (e *MetricComputationError) Error() string {
	return fmt.Sprintf("metric %q failed on candidate %d: %v", e.Metric, e.Candidate, e.Err)
}

func (e *MetricComputationError) Unwrap() error { return e.Err }

// KindOf classifies err using sentinels and error types only.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var merr *MetricComputationError
	switch {
	case errors.As(err, &merr):
		return KindMetricComputation
	case errors.Is(err, ErrDimensionMismatch):
		return KindDimensionMismatch
	case errors.Is(err, ErrUninitializedVocabulary):
		return KindUninitializedVocabulary
	case errors.Is(err, ErrUninitializedContext):
		return KindUninitializedContext
	case errors.Is(err, ErrInvalidSelection):
		return KindInvalidSelection
	case errors.Is(err, ErrInvalidPayload):
		return KindInvalidPayload
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrUnknownEndpoint):
		return KindUnknownEndpoint
	}
	return KindInternal
}

// FieldOf returns the offending field recorded on err, if any.
func FieldOf(err error) string {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Field
	}
	var merr *MetricComputationError
	if errors.As(err, &merr) {
		return merr.Metric
	}
	return ""
}
