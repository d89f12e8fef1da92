package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentNotFound means the user has no document at all, as opposed
	// to a document holding zero todos.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrMissingIdentity is returned when no user id is available.
	ErrMissingIdentity = errors.New("missing user identity")
	// ErrFetchFailed matches every FetchError.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrPersistFailed matches every PersistError.
	ErrPersistFailed = errors.New("persist failed")
)

// FetchError wraps a failed read of a user's document.
type FetchError struct {
	UserID string
	Err    error
}

func (e *FetchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("fetch %s/%s: %v", Collection, e.UserID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

// PersistError wraps a failed write of a user's document.
type PersistError struct {
	UserID string
	Err    error
}

func (e *PersistError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("persist %s/%s: %v", Collection, e.UserID, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

func (e *PersistError) Is(target error) bool { return target == ErrPersistFailed }
