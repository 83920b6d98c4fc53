package notification

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a notification subsystem failure. Only permission
// errors are allowed past the manager boundary; everything else is logged
// and absorbed.
type ErrorKind string

const (
	KindPermission ErrorKind = "permission"
	KindValidation ErrorKind = "validation"
	KindStorage    ErrorKind = "storage"
)

// Error is a classified notification error.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("notification: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("notification: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func permissionError(msg string) *Error {
	return &Error{Kind: KindPermission, Msg: msg}
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func storageError(msg string, err error) *Error {
	return &Error{Kind: KindStorage, Msg: msg, Err: err}
}

// IsPermissionDenied reports whether err is a classified permission error.
func IsPermissionDenied(err error) bool {
	var nerr *Error
	return errors.As(err, &nerr) && nerr.Kind == KindPermission
}
