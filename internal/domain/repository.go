package domain

import "context"

// UserRepository is the durable store of bot users. Status changes go
// through Transition only.
type UserRepository interface {
	// Ensure creates the user in StatusNew when absent and returns the stored record.
	Ensure(ctx context.Context, id int64) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	// Transition applies t atomically. It returns a *StateConflictError
	// carrying the current status when the stored status is not t.From,
	// and ErrNotFound for unknown users.
	Transition(ctx context.Context, id int64, t Transition) (*User, error)
	// ResetStatus moves every user in from to to and returns their ids.
	ResetStatus(ctx context.Context, from, to Status) ([]int64, error)
}
