// Package asyncerrors defines the structured error model that is
// persisted on a Job: a code, a message, and an optional flattened cause
// chain, plus the classifier that buckets a Go error into
// Transient/Permanent/Unknown for the retry policy.
package asyncerrors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Code enumerates the error kinds named in spec.md §7.
type Code string

const (
	CodeInvalidJob            Code = "INVALID_JOB"
	CodeInvalidJobID          Code = "INVALID_JOB_ID"
	CodeDuplicateJob          Code = "DUPLICATE_JOB"
	CodeNotFound              Code = "NOT_FOUND"
	CodeConcurrencyConflict   Code = "CONCURRENCY_CONFLICT"
	CodeHandlerNotFound       Code = "HANDLER_NOT_FOUND"
	CodeDeserializationFailed Code = "DESERIALIZATION_FAILED"
	CodeSerializationFailed   Code = "SERIALIZATION_FAILED"
	CodeStoreError            Code = "STORE_ERROR"
	CodeClaimConflict         Code = "CLAIM_CONFLICT"
	CodeCanceled              Code = "CANCELED"
	CodeMaxRetriesExceeded    Code = "MAX_RETRIES_EXCEEDED"
	CodeHandlerFailed         Code = "HANDLER_FAILED"
)

// Cause is a flattened description of a thrown/returned error, captured
// once at the origin. It is opaque to the core beyond logging and
// serialization.
type Cause struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
	Inner   *Cause `json:"inner,omitempty"`
}

// Error is the structured, serializable error persisted on a Job's
// `error` field.
type Error struct {
	Code           Code           `json:"code"`
	Message        string         `json:"message"`
	Cause          *Cause         `json:"cause,omitempty"`
	Classification Classification `json:"classification,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds an Error with no cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap flattens a Go error into an Error, preserving the original as a
// Cause chain (one Cause per %w-wrapped level, following them via
// errors.Unwrap the way the teacher's fmt.Errorf("...: %w", err) chains
// are built up, except here the chain is captured instead of re-wrapped).
func Wrap(code Code, message string, err error) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{Code: code, Message: message, Cause: flatten(err)}
}

func flatten(err error) *Cause {
	if err == nil {
		return nil
	}
	c := &Cause{
		Type:    fmt.Sprintf("%T", err),
		Message: err.Error(),
	}
	if inner := errors.Unwrap(err); inner != nil {
		c.Inner = flatten(inner)
	}
	return c
}

// Classification buckets a handler-originated error for the retry
// policy (spec.md §4.4). The policy itself treats Transient and Unknown
// identically; Permanent is carried for implementations that choose the
// spec's permitted refinement of skipping retries on it.
type Classification string

const (
	Transient Classification = "TRANSIENT"
	Permanent Classification = "PERMANENT"
	Unknown   Classification = "UNKNOWN"
)

// Classifiable is implemented by handler errors that know their own
// classification, letting handler authors opt out of the default
// heuristic entirely.
type Classifiable interface {
	Classification() Classification
}

// Classifier maps a Go error returned by a handler to a Classification.
// The zero value is ready to use.
type Classifier struct{}

// Classify applies spec.md §4.4's heuristic: context cancellation/
// deadline and net.Error timeouts are Transient; anything implementing
// Classifiable reports its own bucket; everything else is Unknown.
func (Classifier) Classify(err error) Classification {
	if err == nil {
		return Unknown
	}

	var classifiable Classifiable
	if errors.As(err, &classifiable) {
		return classifiable.Classification()
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Transient
	}

	return Unknown
}

// ExceededMaxRetries returns the canonical error for a job that has
// exhausted its retry budget. redisstore's recovery script writes the
// same code and message format directly in Lua; manager.ProcessJobFailure
// records the handler's own error instead.
func ExceededMaxRetries(retryCount, maxRetries int) *Error {
	return Newf(CodeMaxRetriesExceeded, "exceeded maximum retries: retry_count=%d max_retries=%d", retryCount, maxRetries)
}
