package syserr

import (
	"errors"
	"fmt"
)

const (
	// Unauthorized indicates that the caller failed the password check for a destructive operation
	Unauthorized Type = 1

	// PreconditionFailed indicates that a pre-flight check for the operation hasn't been fulfilled
	PreconditionFailed Type = 2

	// Conflict indicates that another exclusive operation is already in progress
	Conflict Type = 3

	// NotFound indicates that a required object (release, install, script) wasn't found
	NotFound Type = 4

	// Internal indicates some generic internal error
	Internal Type = 5

	// BadRequest indicates a malformed request from the caller
	BadRequest Type = 6
)

// Type is a type of the Error
type Type int32

// Error is an internal error
type Error struct {
	ErrorType Type
	Message   string
}

// Type returns the Type of the error
func (e *Error) Type() Type {
	return e.ErrorType
}

// Error is an error string
func (e *Error) Error() string {
	return e.Message
}

// Errorf returns Error(ErrorType, fmt.Sprintf(format, a...)).
func Errorf(errorType Type, format string, a ...interface{}) error {
	return &Error{
		ErrorType: errorType,
		Message:   fmt.Sprintf(format, a...),
	}
}

// FromError returns Error, true if the provided error is of type of Error. nil, false otherwise
func FromError(err error) (s *Error, ok bool) {
	if err == nil {
		return nil, true
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// NewResolutionError creates a new Error with Internal type for an unreachable or malformed release endpoint
func NewResolutionError(err error) error {
	return Errorf(Internal, "failed to resolve latest release: %s", err)
}

// NewScriptMissingError creates a new Error with NotFound type for a release without an update script
func NewScriptMissingError() error {
	return Errorf(NotFound, "no update script found")
}

// NewScriptExecutionError creates a new Error with Internal type for a failed update script run
func NewScriptExecutionError(err error) error {
	return Errorf(Internal, "update script execution failed: %s", err)
}

// NewAuthorizationError creates a new Error with Unauthorized type for a failed password check
func NewAuthorizationError() error {
	return Errorf(Unauthorized, "invalid password")
}

// NewPreflightError creates a new Error with PreconditionFailed type for a failed migration pre-flight check
func NewPreflightError(format string, a ...interface{}) error {
	return Errorf(PreconditionFailed, format, a...)
}

// NewStateConflictError creates a new Error with Conflict type for an exclusive operation
// attempted while another one is already running
func NewStateConflictError(current string) error {
	return Errorf(Conflict, "another exclusive operation is in progress: %s", current)
}
