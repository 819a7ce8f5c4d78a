package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrStateConflict     = errors.New("state conflict")
	ErrBatchFull         = errors.New("batch is full")
	ErrTransientIO       = errors.New("transient io failure")
	ErrRemoteJob         = errors.New("remote job failed")
	ErrUnrecognizedInput = errors.New("unrecognized input")
	ErrInvalidTransition = errors.New("invalid transition")
)

// StateConflictError reports an operation attempted while the user's status
// forbids it. No state is changed when it is returned.
type StateConflictError struct {
	Op     string
	Status Status
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s: %s while status is %s", e.Op, ErrStateConflict, e.Status)
}

func (e *StateConflictError) Is(target error) bool {
	return target == ErrStateConflict
}

// Conflict builds a StateConflictError.
func Conflict(op string, status Status) error {
	return &StateConflictError{Op: op, Status: status}
}

// JobKind names the two remote job classes.
type JobKind string

const (
	JobKindTrain    JobKind = "train"
	JobKindGenerate JobKind = "generate"
)

// RemoteJobError reports a remote job that reached a failed terminal state,
// timed out, or could not be submitted.
type RemoteJobError struct {
	Kind      JobKind
	RequestID string
	Err       error
}

func (e *RemoteJobError) Error() string {
	if e.RequestID == "" {
		return fmt.Sprintf("%s job: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s job %s: %v", e.Kind, e.RequestID, e.Err)
}

func (e *RemoteJobError) Unwrap() error {
	return e.Err
}

func (e *RemoteJobError) Is(target error) bool {
	return target == ErrRemoteJob
}
