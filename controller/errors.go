package controller

import (
	"errors"
	"fmt"
)

// Sentinel errors for each ErrorKind. Use errors.Is to classify results from Route, Reset and Start
var (
	ErrConfiguration   = errors.New("configuration error")
	ErrUnknownCategory = errors.New("unknown category")
	ErrStall           = errors.New("stall")
	ErrSensorRead      = errors.New("home sensor read failed")
	ErrHardware        = errors.New("hardware error")
	ErrBusy            = errors.New("controller busy")
	ErrFaulted         = errors.New("controller faulted")
	ErrClosed          = errors.New("controller shut down")
)

// ErrorKind is a coarse-grained categorization for errors
type ErrorKind string

const (
	KindConfiguration   ErrorKind = "configuration"
	KindUnknownCategory ErrorKind = "unknown_category"
	KindStall           ErrorKind = "stall"
	KindSensorRead      ErrorKind = "sensor_read"
	KindHardware        ErrorKind = "hardware"
	KindBusy            ErrorKind = "busy"
	KindFaulted         ErrorKind = "faulted"
	KindClosed          ErrorKind = "closed"
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindUnknownCategory:
		return ErrUnknownCategory
	case KindStall:
		return ErrStall
	case KindSensorRead:
		return ErrSensorRead
	case KindHardware:
		return ErrHardware
	case KindBusy:
		return ErrBusy
	case KindFaulted:
		return ErrFaulted
	case KindClosed:
		return ErrClosed
	default:
		return nil
	}
}

// Error wraps an underlying error with the operation that produced it and its kind
type Error struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the sentinel for the error's Kind
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	s := e.Kind.sentinel()
	return s != nil && s == target
}

// IsKind reports whether any error in err's chain is an *Error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func newError(op string, kind ErrorKind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// recoverable reports whether an un-jam pulse might clear the failure
func recoverable(err error) bool {
	return errors.Is(err, ErrStall) || errors.Is(err, ErrSensorRead)
}
