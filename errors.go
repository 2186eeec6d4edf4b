package regs

import (
	"errors"
	"fmt"
)

// Common errors returned by the regs client.
var (
	// ErrNotFound is returned when a record is not in the local collection.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidCategory is returned when an unknown category is provided.
	ErrInvalidCategory = errors.New("invalid record category")

	// ErrEmptyTitle is returned when a record title is empty.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrInvalidTimestamp is returned when a display timestamp has no usable date or hour.
	ErrInvalidTimestamp = errors.New("invalid record timestamp")

	// ErrUnknownMeasurement is returned when a measurement is outside the category schema.
	ErrUnknownMeasurement = errors.New("measurement not in category schema")

	// ErrInvalidFilter is returned when a filter option is not recognized.
	ErrInvalidFilter = errors.New("invalid filter option")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("store is closed")
)

// ValidationError is returned when configuration or parameter validation fails.
// Extractable via errors.As().
type ValidationError struct {
	Field   string
	Message string
	Err     error // sentinel, if one applies
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// LocalStorageError is returned when the local record store cannot be read or written.
// It is the only error class that surfaces from sync and lifecycle operations.
type LocalStorageError struct {
	Op  string
	Err error
}

func (e *LocalStorageError) Error() string {
	return fmt.Sprintf("local storage: %s: %v", e.Op, e.Err)
}

func (e *LocalStorageError) Unwrap() error { return e.Err }

// RemoteError is returned by remote store transports with request details.
// Extractable via errors.As(). Supports Unwrap().
type RemoteError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("remote: %s failed: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("remote: %s failed (status %d): %v", e.Operation, e.StatusCode, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// RemoteWriteError wraps a failed upsert or delete against the remote store.
type RemoteWriteError struct {
	Op  string
	ID  string
	Err error
}

func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("remote write: %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *RemoteWriteError) Unwrap() error { return e.Err }

// RemoteReadError wraps a failed owner query against the remote store.
type RemoteReadError struct {
	Owner string
	Err   error
}

func (e *RemoteReadError) Error() string {
	return fmt.Sprintf("remote read: owner %s: %v", e.Owner, e.Err)
}

func (e *RemoteReadError) Unwrap() error { return e.Err }

// IsRemoteError reports whether err came from the remote store.
func IsRemoteError(err error) bool {
	var (
		re *RemoteError
		we *RemoteWriteError
		rr *RemoteReadError
	)
	return errors.As(err, &re) || errors.As(err, &we) || errors.As(err, &rr)
}
