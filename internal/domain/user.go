package domain

import "time"

// Status enumerates the onboarding lifecycle of a bot user.
type Status string

const (
	StatusNew        Status = "new"
	StatusCollecting Status = "collecting"
	StatusTraining   Status = "training"
	StatusReady      Status = "ready"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusCollecting, StatusTraining, StatusReady:
		return true
	default:
		return false
	}
}

// AcceptsImages reports whether a user in status s may still submit photos.
func (s Status) AcceptsImages() bool {
	return s == StatusNew || s == StatusCollecting
}

// User is the durable per-user record. ModelRef is non-empty exactly when
// Status is StatusReady.
type User struct {
	ID         int64
	Status     Status
	DatasetRef string
	ModelRef   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasModel reports whether the user finished training.
func (u User) HasModel() bool {
	return u.Status == StatusReady && u.ModelRef != ""
}

// Transition describes a compare-and-set status change. The update only
// applies while the stored status equals From.
type Transition struct {
	From       Status
	To         Status
	DatasetRef string
	ModelRef   string
	// ClearRefs wipes both references; used by the explicit reset policy.
	ClearRefs bool
}

var allowedTransitions = map[Status][]Status{
	StatusNew:        {StatusCollecting},
	StatusCollecting: {StatusTraining, StatusNew},
	StatusTraining:   {StatusReady, StatusCollecting, StatusNew},
	StatusReady:      {StatusNew},
}

// Validate checks t against the lifecycle graph: the happy path
// new → collecting → training → ready, the failure reset training →
// collecting, and the operator reset back to new.
func (t Transition) Validate() error {
	if !t.From.Valid() || !t.To.Valid() {
		return ErrInvalidTransition
	}
	for _, next := range allowedTransitions[t.From] {
		if next != t.To {
			continue
		}
		if t.To == StatusReady && t.ModelRef == "" {
			return ErrInvalidTransition
		}
		if t.To != StatusReady && t.ModelRef != "" {
			return ErrInvalidTransition
		}
		if t.From == StatusReady && !t.ClearRefs {
			return ErrInvalidTransition
		}
		return nil
	}
	return ErrInvalidTransition
}
