// Package asyncresult provides a generic success/failure sum type, the
// Go realization of spec.md §2's "Result type": success carrying a
// value, or failure carrying a structured error. Grounded on the
// teacher's queue.Result{MessageID,Success,Error} shape
// (internal/queue/database.go), made generic over the handler response
// type.
package asyncresult

import "github.com/kaushik2901/async-endpoints/internal/asyncerrors"

// Result is either a success carrying a T, or a failure carrying an
// *asyncerrors.Error. Exactly one of the two is meaningful; callers must
// check IsOk before reading Value.
type Result[T any] struct {
	value T
	err   *asyncerrors.Error
	ok    bool
}

// Ok builds a successful Result.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value, ok: true}
}

// Err builds a failed Result.
func Err[T any](err *asyncerrors.Error) Result[T] {
	return Result[T]{err: err, ok: false}
}

// IsOk reports whether the Result is a success.
func (r Result[T]) IsOk() bool { return r.ok }

// Value returns the success value. Only meaningful when IsOk().
func (r Result[T]) Value() T { return r.value }

// Error returns the failure error. Only meaningful when !IsOk().
func (r Result[T]) Error() *asyncerrors.Error { return r.err }

// Unwrap returns (value, error) in the idiomatic Go shape, for callers
// that would rather not branch on IsOk directly.
func (r Result[T]) Unwrap() (T, *asyncerrors.Error) {
	return r.value, r.err
}
