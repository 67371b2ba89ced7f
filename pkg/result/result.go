// Package result provides a tagged success/failure value for passing engine
// outcomes across a process or sandbox boundary without relying on panics.
//
// A Result holds exactly one of an Ok payload or an Err error. Construction is
// always explicit: Ok, Err, or From for the (value, error) pairs returned by
// ordinary Go calls. A payload that happens to implement error is still Ok
// when built with Ok.
package result

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNilError is stored when Err is called with a nil error, so that an Err
// result never carries an empty failure.
var ErrNilError = errors.New("result: Err constructed with nil error")

// ErrMalformed is returned when a wire-encoded Result carries both or neither
// of the ok and err members.
var ErrMalformed = errors.New("result: malformed wire value")

// Result is either Ok(value) or Err(error). The zero value is Err(ErrNilError).
type Result[T any] struct {
	value T
	err   error
	ok    bool
}

// Ok wraps a success value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Err wraps a failure. A nil err is replaced by ErrNilError.
func Err[T any](err error) Result[T] {
	if err == nil {
		err = ErrNilError
	}
	return Result[T]{err: err}
}

// From builds a Result from a conventional (value, error) pair. A non-nil
// err wins over the value.
func From[T any](v T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(v)
}

// IsSome reports whether r is Ok.
func (r Result[T]) IsSome() bool { return r.ok }

// IsNone reports whether r is Err.
func (r Result[T]) IsNone() bool { return !r.ok }

// Err returns the wrapped error, or nil for an Ok result.
func (r Result[T]) Err() error {
	if r.ok {
		return nil
	}
	if r.err == nil {
		return ErrNilError
	}
	return r.err
}

// Unwrap returns the Ok payload, or the zero value and the wrapped error.
// Callers surface the error at the point where they are ready to report it.
func (r Result[T]) Unwrap() (T, error) {
	if r.ok {
		return r.value, nil
	}
	var zero T
	return zero, r.Err()
}

// Must returns the Ok payload and panics with the wrapped error otherwise.
func (r Result[T]) Must() T {
	v, err := r.Unwrap()
	if err != nil {
		panic(err)
	}
	return v
}

// UnwrapOr returns the payload, or fallback when r is Err.
func (r Result[T]) UnwrapOr(fallback T) T {
	if r.ok {
		return r.value
	}
	return fallback
}

// String renders Ok(v) or Err(msg) for diagnostics.
func (r Result[T]) String() string {
	if r.ok {
		return fmt.Sprintf("Ok(%v)", r.value)
	}
	return fmt.Sprintf("Err(%v)", r.Err())
}

// Map applies fn to the payload of an Ok result. An Err result is returned
// with the same error and fn is not called.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if !r.ok {
		return Err[U](r.Err())
	}
	return Ok(fn(r.value))
}

// MapOr returns fn(payload) for Ok and fallback for Err.
func MapOr[T, U any](r Result[T], fallback U, fn func(T) U) U {
	if !r.ok {
		return fallback
	}
	return fn(r.value)
}

// AndThen chains a fallible step onto an Ok result.
func AndThen[T, U any](r Result[T], fn func(T) Result[U]) Result[U] {
	if !r.ok {
		return Err[U](r.Err())
	}
	return fn(r.value)
}

// wire is the JSON shape of a Result: exactly one of ok or err is set.
type wire[T any] struct {
	Ok  *T      `json:"ok,omitempty"`
	Err *string `json:"err,omitempty"`
}

// MarshalJSON encodes Ok(v) as {"ok": v} and Err(e) as {"err": "message"}.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.ok {
		v := r.value
		return json.Marshal(wire[T]{Ok: &v})
	}
	msg := r.Err().Error()
	return json.Marshal(wire[T]{Err: &msg})
}

// UnmarshalJSON decodes the form written by MarshalJSON. A decoded failure
// becomes a *RemoteError carrying the message.
func (r *Result[T]) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	okRaw, hasOk := raw["ok"]
	errRaw, hasErr := raw["err"]
	if hasOk == hasErr {
		return ErrMalformed
	}
	if hasErr {
		var msg string
		if err := json.Unmarshal(errRaw, &msg); err != nil {
			return fmt.Errorf("decode result err: %w", err)
		}
		*r = Err[T](&RemoteError{Message: msg})
		return nil
	}
	var v T
	if err := json.Unmarshal(okRaw, &v); err != nil {
		return fmt.Errorf("decode result ok: %w", err)
	}
	*r = Ok(v)
	return nil
}

// RemoteError is a failure reported by the other side of a boundary.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return e.Message }
