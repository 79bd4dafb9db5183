package cityfs

import "errors"

// Error is a filesystem error returned by FS operations.
//
// Adapters translate the Code to their own vocabulary (errno for FUSE,
// os errors for WebDAV).
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the virtual path the operation was called with
	Path string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// Is matches another *Error with the same Code, so callers can write
// errors.Is(err, cityfs.NotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ErrorCode represents the category of a filesystem error.
type ErrorCode int

const (
	// ErrNotFound indicates the path does not name an entry
	ErrNotFound ErrorCode = iota

	// ErrPermissionDenied indicates an open requested write access
	ErrPermissionDenied

	// ErrIsDirectory indicates a file operation on a directory
	ErrIsDirectory

	// ErrNotDirectory indicates a directory operation on a file
	ErrNotDirectory

	// ErrInvalidArgument indicates invalid parameters, such as a negative offset
	ErrInvalidArgument

	// ErrIO indicates an unexpected internal failure
	ErrIO
)

// String returns the metrics label of the code.
func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not_found"
	case ErrPermissionDenied:
		return "permission_denied"
	case ErrIsDirectory:
		return "is_directory"
	case ErrNotDirectory:
		return "not_directory"
	case ErrInvalidArgument:
		return "invalid_argument"
	default:
		return "io_error"
	}
}

// Targets for errors.Is.
var (
	NotFound         = &Error{Code: ErrNotFound, Message: "no such file or directory"}
	PermissionDenied = &Error{Code: ErrPermissionDenied, Message: "permission denied"}
	IsDirectory      = &Error{Code: ErrIsDirectory, Message: "is a directory"}
	NotDirectory     = &Error{Code: ErrNotDirectory, Message: "not a directory"}
	InvalidArgument  = &Error{Code: ErrInvalidArgument, Message: "invalid argument"}
	IOError          = &Error{Code: ErrIO, Message: "input/output error"}
)

func newError(code ErrorCode, message, path string) *Error {
	return &Error{Code: code, Message: message, Path: path}
}

// CodeOf returns the code of err, or ErrIO if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrIO
}
