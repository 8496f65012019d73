package service

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrUpdateInProgress is returned while another update job is pending
	// or running.
	ErrUpdateInProgress = errors.New("an update is already in progress")
)

// ValidationError rejects a request (HTTP 400). Field names the offending
// input when there is one.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError reports a uniqueness clash (HTTP 409)
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }
