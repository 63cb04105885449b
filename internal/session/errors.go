package session

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownToken is returned when a token is absent from the registry.
	ErrUnknownToken = errors.New("unknown session token")
	// ErrNotFound is returned when a session directory or file does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExpired is returned when a session has aged past its TTL.
	ErrExpired = errors.New("session expired")
	// ErrInvalidName is returned for filenames that fail validation.
	// Rejected names are never sanitized and retried.
	ErrInvalidName = errors.New("invalid filename")
	// ErrPayloadTooLarge is returned when a file exceeds the configured cap.
	ErrPayloadTooLarge = errors.New("file exceeds maximum allowed size")
)

// StorageError wraps an OS-level filesystem failure (mkdir, write, delete).
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageFault reports whether err is an OS-level storage failure.
func IsStorageFault(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
