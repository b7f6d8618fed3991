package di

import (
	"errors"
	"reflect"
	"strconv"
)

var (
	// ErrNilArgument is the sentinel wrapped by ArgumentNilError.
	ErrNilArgument = errors.New("di: nil argument")

	// ErrServiceNotFound is the sentinel wrapped by ServiceNotFoundError.
	ErrServiceNotFound = errors.New("di: service not registered")

	// ErrInvalidDescriptor is returned by Build when a descriptor cannot be
	// resolved (no service type, or neither instance nor factory).
	ErrInvalidDescriptor = errors.New("di: invalid descriptor")

	// ErrProviderClosed is returned when resolving from a closed provider or scope.
	ErrProviderClosed = errors.New("di: provider closed")
)

// ArgumentNilError is returned when a required argument is nil.
// Param names the offending parameter.
type ArgumentNilError struct{ Param string }

// Error implements the error interface.
func (e ArgumentNilError) Error() string {
	// Example: di: argument "builder" cannot be nil
	return "di: argument " + strconv.Quote(e.Param) + " cannot be nil"
}

// Unwrap allows errors.Is(err, ErrNilArgument).
func (e ArgumentNilError) Unwrap() error { return ErrNilArgument }

// ServiceNotFoundError is returned when no descriptor is registered for Type.
type ServiceNotFoundError struct{ Type reflect.Type }

// Error implements the error interface.
func (e ServiceNotFoundError) Error() string {
	return "di: no service registered for " + typeName(e.Type)
}

// Unwrap allows errors.Is(err, ErrServiceNotFound).
func (e ServiceNotFoundError) Unwrap() error { return ErrServiceNotFound }

// WrongTypeError is returned by the generic resolvers when the resolved value
// is not assignable to the requested type.
type WrongTypeError struct {
	Type    reflect.Type
	GotType string
}

// Error implements the error interface.
func (e WrongTypeError) Error() string {
	return "di: service " + typeName(e.Type) + " resolved to wrong type (" + e.GotType + ")"
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
