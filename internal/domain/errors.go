package domain

import (
	"errors"
	"fmt"
)

// ErrUnknownSource is returned when a run targets a source that is not registered.
var ErrUnknownSource = errors.New("unknown source")

// FetchError reports a transport failure, timeout or non-2xx answer for one page.
type FetchError struct {
	Source     string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s page %s: status %d", e.Source, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s page %s: %v", e.Source, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a payload whose structure could not be read.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s page: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageOp tells read failures apart from write failures.
type StorageOp string

const (
	StorageRead  StorageOp = "read"
	StorageWrite StorageOp = "write"
)

// StorageError wraps a failure of the persistent collection behind a source.
type StorageError struct {
	Op         StorageOp
	Collection string
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageOp reports whether err carries a StorageError for op.
func IsStorageOp(err error, op StorageOp) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Op == op
}
