package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy surfaced by the submission pipeline and the sync engine.
var (
	// ErrNetworkUnavailable means the request never completed with the server.
	// Recovered locally: the story is queued or retried on the next drain.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrGuestOfflineUnsupported means a guest submission could not go online
	// and guest submissions are never queued.
	ErrGuestOfflineUnsupported = errors.New("guest submissions cannot be saved offline")

	// ErrRemoteRejected means the server answered with a rejection. Not retried.
	ErrRemoteRejected = errors.New("remote rejected")

	// ErrStorageFailure means the local store failed the operation.
	ErrStorageFailure = errors.New("local storage failure")

	// ErrValidation means the input was refused before any I/O.
	ErrValidation = errors.New("validation failed")

	// ErrAuthRequired means guest submissions are disabled and no credential exists.
	ErrAuthRequired = errors.New("authentication required")

	ErrNotFound      = errors.New("not found")
	ErrAlreadySynced = errors.New("story already synced")

	// ErrSyncInProgress means the record is being submitted by another caller.
	ErrSyncInProgress = errors.New("story sync already in progress")
)

// ErrApplicationRejected is the same category as ErrRemoteRejected.
var ErrApplicationRejected = ErrRemoteRejected

// ValidationError describes one refused field.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StorageError wraps a failure of the local store backend.
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

// Unwrap exposes both the category and the backend cause to errors.Is/As.
func (e *StorageError) Unwrap() []error { return []error{ErrStorageFailure, e.Err} }

// RemoteRejectedError carries the server's message for a refused write.
type RemoteRejectedError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteRejectedError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("remote rejected (status %d): %s", e.StatusCode, e.Message)
	}
	return "remote rejected: " + e.Message
}

func (e *RemoteRejectedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRemoteRejected}
	}
	return []error{ErrRemoteRejected, e.Err}
}
