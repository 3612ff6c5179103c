package cleaner

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrorKind names the class of a failure recorded in a CleanReport.
type ErrorKind string

const (
	KindNotFound   ErrorKind = "not_found"
	KindPermission ErrorKind = "permission"
	KindIO         ErrorKind = "io"
)

var (
	// ErrNotScanned is returned by Clean when the engine has no completed
	// scan, or when the result passed in is not the engine's latest scan.
	ErrNotScanned = errors.New("clean requires a completed scan")

	// ErrBusy is returned when a scan or clean is already running.
	ErrBusy = errors.New("engine is busy")

	// ErrNotDirectory is wrapped in an IOError when the scan root is a file.
	ErrNotDirectory = errors.New("not a directory")
)

// NotFoundError reports a path that does not exist.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: no such file or directory", e.Path)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// PermissionError reports a path that cannot be read or removed.
type PermissionError struct {
	Path string
	Err  error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s: permission denied", e.Path)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// IOError reports any other filesystem failure, typically transient.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Classify wraps err in the taxonomy type matching its cause, attaching
// path. Errors that are already classified are returned unchanged.
func Classify(path string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" {
		return err
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &NotFoundError{Path: path, Err: err}
	case errors.Is(err, fs.ErrPermission):
		return &PermissionError{Path: path, Err: err}
	default:
		return &IOError{Path: path, Err: err}
	}
}

// KindOf returns the ErrorKind of a classified error, or "" when err is nil
// or unclassified.
func KindOf(err error) ErrorKind {
	var nf *NotFoundError
	var pe *PermissionError
	var ioe *IOError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &nf):
		return KindNotFound
	case errors.As(err, &pe):
		return KindPermission
	case errors.As(err, &ioe):
		return KindIO
	}
	return ""
}

// PathOf returns the path attached to a classified error.
func PathOf(err error) string {
	var nf *NotFoundError
	var pe *PermissionError
	var ioe *IOError
	switch {
	case errors.As(err, &nf):
		return nf.Path
	case errors.As(err, &pe):
		return pe.Path
	case errors.As(err, &ioe):
		return ioe.Path
	}
	return ""
}
