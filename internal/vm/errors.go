package vm

import (
	"errors"
	"fmt"
)

// ErrModuleNotPublished matches any ExecError with CodeModuleNotPublished.
var ErrModuleNotPublished = errors.New("module not published")

// ErrSessionFinished is returned by any session call after Finish.
var ErrSessionFinished = errors.New("session already finished")

// ExecErrorCode categorizes execution failures.
type ExecErrorCode string

const (
	// CodeModuleNotPublished indicates the function's module is absent
	// from both the view and the session.
	CodeModuleNotPublished ExecErrorCode = "MODULE_NOT_PUBLISHED"

	// CodeFunctionNotFound indicates no native implements the function.
	CodeFunctionNotFound ExecErrorCode = "FUNCTION_NOT_FOUND"

	// CodeAborted indicates the function ran and returned an error.
	CodeAborted ExecErrorCode = "ABORTED"

	// CodeInvalidPublish indicates a module bundle was rejected.
	CodeInvalidPublish ExecErrorCode = "INVALID_PUBLISH"
)

// ExecError reports a failed Execute or PublishModuleBundle call.
type ExecError struct {
	Code     ExecErrorCode
	Function string
	Message  string
	Err      error
}

func (e *ExecError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Function != "" {
		return fmt.Sprintf("%s: %s (function=%s)", e.Code, msg, e.Function)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *ExecError) Unwrap() error { return e.Err }

func (e *ExecError) Is(target error) bool {
	return target == ErrModuleNotPublished && e.Code == CodeModuleNotPublished
}

// IsAborted reports whether err is a native abort.
// Uses errors.As to handle wrapped errors.
func IsAborted(err error) bool {
	var ee *ExecError
	if errors.As(err, &ee) {
		return ee.Code == CodeAborted
	}
	return false
}
