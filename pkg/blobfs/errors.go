package blobfs

import (
	"context"
	"errors"
	"io/fs"

	"github.com/marmos91/blobfs/pkg/store"
)

// Code is the filesystem error taxonomy. Values are the POSIX errno names.
type Code string

const (
	NotFound       Code = "ENOENT"
	AlreadyExists  Code = "EEXIST"
	NotEmpty       Code = "ENOTEMPTY"
	Aborted        Code = "EINTR"
	NotImplemented Code = "ENOSYS"
	Unknown        Code = "UNKNOWN"
)

func (c Code) message() string {
	switch c {
	case NotFound:
		return "no such file or directory"
	case AlreadyExists:
		return "file already exists"
	case NotEmpty:
		return "directory not empty"
	case Aborted:
		return "interrupted system call"
	case NotImplemented:
		return "function not implemented"
	default:
		return "unknown error"
	}
}

// Error is the single error type returned by every FS operation.
type Error struct {
	Code Code
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Code.message()
	if e.Op != "" {
		msg = e.Op + " " + e.Path + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errno returns the POSIX name of the error code.
func (e *Error) Errno() string {
	return string(e.Code)
}

// Is matches errors carrying the same code, plus the matching io/fs
// sentinels so callers can test with fs.ErrNotExist and fs.ErrExist.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.Code == e.Code
	}
	switch target {
	case fs.ErrNotExist:
		return e.Code == NotFound
	case fs.ErrExist:
		return e.Code == AlreadyExists
	}
	return false
}

// Sentinels for errors.Is.
var (
	ErrNotFound       = &Error{Code: NotFound}
	ErrExist          = &Error{Code: AlreadyExists}
	ErrNotEmpty       = &Error{Code: NotEmpty}
	ErrAborted        = &Error{Code: Aborted}
	ErrNotImplemented = &Error{Code: NotImplemented}
	ErrUnknown        = &Error{Code: Unknown}
)

func newError(code Code, op, path string) *Error {
	return &Error{Code: code, Op: op, Path: path}
}

// mapError translates a backend error into the filesystem taxonomy. Errors
// that already are *Error pass through untouched.
func mapError(op, path string, err error) error {
	if err == nil {
		return nil
	}

	var fsErr *Error
	if errors.As(err, &fsErr) {
		return fsErr
	}

	code := Unknown
	switch {
	case errors.Is(err, store.ErrObjectNotFound):
		code = NotFound
	case errors.Is(err, store.ErrObjectExists):
		code = AlreadyExists
	case errors.Is(err, store.ErrNotSupported):
		code = NotImplemented
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = Aborted
	}
	return &Error{Code: code, Op: op, Path: path, Err: err}
}

// codeOf returns the code of err, or "" for nil.
func codeOf(err error) Code {
	if err == nil {
		return ""
	}
	var fsErr *Error
	if errors.As(err, &fsErr) {
		return fsErr.Code
	}
	return Unknown
}
