// Package service defines the Query/Command contract and the invalidation
// bus that lets active queries refresh after writes.
//
// A Query is a reactive read: subscribing emits current state immediately,
// then re-emits after each invalidation of its resource. A Command is a
// single-shot write returning a Result: full success advances the bus, any
// failure leaves it untouched. There is nothing in between.
package service

import gwerr "github.com/randalmurphal/gangway/pkg/gangway/errors"

// Failure is a typed command failure. It crosses the service boundary as a
// value, never as a panic.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Err converts the failure into a *errors.HandlerError for the router's
// status mapping.
func (f *Failure) Err() error {
	return &gwerr.HandlerError{Code: f.Code, Message: f.Message}
}

// Result is success-with-value or typed failure.
type Result[T any] struct {
	value   T
	failure *Failure
}

// Ok creates a successful result.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Fail creates a failed result.
func Fail[T any](code, message string) Result[T] {
	return Result[T]{failure: &Failure{Code: code, Message: message}}
}

// FailErr creates a failed result from an error, reusing the code of a
// *errors.HandlerError when the error carries one.
func FailErr[T any](err error) Result[T] {
	if herr, ok := err.(*gwerr.HandlerError); ok {
		return Result[T]{failure: &Failure{Code: herr.Code, Message: herr.Message}}
	}
	return Result[T]{failure: &Failure{Code: "failed", Message: err.Error()}}
}

// OK reports whether the result is a success.
func (r Result[T]) OK() bool {
	return r.failure == nil
}

// Value returns the success value. Only meaningful when OK.
func (r Result[T]) Value() T {
	return r.value
}

// Failure returns the typed failure, or nil on success.
func (r Result[T]) Failure() *Failure {
	return r.failure
}
