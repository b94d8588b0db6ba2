package inspection

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes inspection errors.
type ErrorCode string

const (
	// ErrCodeStorageFault indicates the medium could not complete a read or write.
	ErrCodeStorageFault ErrorCode = "STORAGE_FAULT"

	// ErrCodeInvalidArgument indicates a parameter violated its contract.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
)

// Error is returned at component boundaries of the store, query and state layers.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the operation that failed (e.g. "insert", "query latest").
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewStorageFault wraps a driver or I/O error for the given operation.
func NewStorageFault(op string, err error) *Error {
	return &Error{
		Code:    ErrCodeStorageFault,
		Op:      op,
		Message: "storage fault",
		Err:     err,
	}
}

// NewInvalidArgument reports a rejected parameter for the given operation.
func NewInvalidArgument(op, message string) *Error {
	return &Error{
		Code:    ErrCodeInvalidArgument,
		Op:      op,
		Message: message,
	}
}

// IsStorageFault reports whether err is, or wraps, a storage fault.
func IsStorageFault(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeStorageFault
	}
	return false
}

// IsInvalidArgument reports whether err is, or wraps, an invalid argument error.
func IsInvalidArgument(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeInvalidArgument
	}
	return false
}
