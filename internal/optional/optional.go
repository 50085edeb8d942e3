// Package optional holds values that may be absent without overloading
// the zero value of their type to mean "not set".
package optional

import (
	"fmt"
	"reflect"

	"github.com/leapcode/vpnprov/internal/runtimex"
)

// Value is an optional value. The zero value of this structure
// is equivalent to the one you get when calling [None].
type Value[T any] struct {
	value T
	ok    bool
}

// None constructs an empty value.
func None[T any]() Value[T] {
	return Value[T]{}
}

// Some constructs a some value unless T is a pointer, map, slice or
// interface holding nil, in which case [Some] is equivalent to [None].
func Some[T any](value T) Value[T] {
	if isNil(value) {
		return None[T]()
	}
	return Value[T]{value: value, ok: true}
}

func isNil(value any) bool {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// IsNone returns whether this [Value] is empty.
func (v Value[T]) IsNone() bool {
	return !v.ok
}

// Unwrap returns the underlying value or panics.
func (v Value[T]) Unwrap() T {
	runtimex.Assert(v.ok, "optional: unwrap of none value")
	return v.value
}

// UnwrapOr returns the fallback if the [Value] is empty.
func (v Value[T]) UnwrapOr(fallback T) T {
	if v.IsNone() {
		return fallback
	}
	return v.value
}

// Any returns the underlying value as an untyped interface, or a nil
// interface when empty. Template engines see the latter as "not set".
func (v Value[T]) Any() any {
	if v.IsNone() {
		return nil
	}
	return v.value
}

// String implements fmt.Stringer.
func (v Value[T]) String() string {
	if v.IsNone() {
		return "none"
	}
	return fmt.Sprintf("some(%v)", v.value)
}
