package models

import (
	"errors"
	"fmt"
)

// Kind identifies the class of failure that aborted a top-level operation
type Kind string

const (
	KindConfigUnavailable  Kind = "ConfigUnavailable"
	KindCommandFailed      Kind = "CommandFailed"
	KindBackupFailed       Kind = "BackupFailed"
	KindRestoreUnavailable Kind = "RestoreUnavailable"
	KindRestoreFailed      Kind = "RestoreFailed"
	KindReadinessTimeout   Kind = "ReadinessTimeout"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrConfigUnavailable  = &Error{Kind: KindConfigUnavailable}
	ErrCommandFailed      = &Error{Kind: KindCommandFailed}
	ErrBackupFailed       = &Error{Kind: KindBackupFailed}
	ErrRestoreUnavailable = &Error{Kind: KindRestoreUnavailable}
	ErrRestoreFailed      = &Error{Kind: KindRestoreFailed}
	ErrReadinessTimeout   = &Error{Kind: KindReadinessTimeout}
)

// Error is a fatal orchestration error. Code is the exit code of the
// external command that caused it, 0 when no command was involved.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

// NewError builds an error of the given kind
func NewError(kind Kind, code int, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an error of the given kind around a cause
func WrapError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (exit code %d)", msg, e.Code)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// ExitCode returns the process exit status for err: the originating
// command's exit code when known, 1 for any other error and 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) && e.Code > 0 {
		return e.Code
	}
	return 1
}
