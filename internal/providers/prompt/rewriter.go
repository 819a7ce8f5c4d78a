// Package prompt turns free-form user requests into generation prompts.
package prompt

import (
	"context"
	"errors"
)

// Rewriter converts a user's free-form request into an English generation
// prompt that carries the trigger token.
type Rewriter interface {
	Rewrite(ctx context.Context, request string) (string, error)
}

var (
	// ErrEmptyRequest is returned for blank input.
	ErrEmptyRequest = errors.New("prompt: request is empty")
	// ErrEmptyRewrite is returned when the model answers with nothing usable.
	ErrEmptyRewrite = errors.New("prompt: empty rewrite")
)
