package utils

import (
	"errors"
	"fmt"
)

// Error codes for the failure categories the daemon distinguishes.
const (
	CodeInputFormat       = 1 // malformed square or move token
	CodeBoundaryViolation = 2 // computed point outside the calibrated rectangle
	CodeTransportFailure  = 3 // remote call did not complete successfully
	CodeGestureRefusal    = 4 // host declined to perform a tap
)

type CustomError struct {
	Code    int
	Message string
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("Code: %d, Message: %s", e.Code, e.Message)
}

func New(code int, message string) error {
	return &CustomError{
		Code:    code,
		Message: message,
	}
}

func Newf(code int, format string, args ...interface{}) error {
	return New(code, fmt.Sprintf(format, args...))
}

// CodeOf returns the error code carried by err, or 0 for foreign errors.
func CodeOf(err error) int {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return 0
}
