package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexMissing is returned when a notebook's index or chunk blob is absent or
	// cannot be decoded. The only repair is a full delete-and-rebuild.
	ErrIndexMissing = errors.New("index missing or unreadable")
	// ErrRebuildIncomplete is returned when the last rebuild of a notebook started
	// but never committed.
	ErrRebuildIncomplete = errors.New("rebuild did not complete")
)

// WriteError reports a blob write that failed on both the first attempt and the retry.
type WriteError struct {
	Path  string
	First error
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s after retry: %v (first attempt: %v)", e.Path, e.Err, e.First)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
