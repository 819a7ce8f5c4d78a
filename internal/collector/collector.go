// Package collector accumulates the photos a user sends before training.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"portraitbot/internal/domain"
	"portraitbot/internal/infra"
)

// Receipt reports the outcome of a single Submit call.
type Receipt struct {
	Accepted bool
	Count    int
}

// Full reports whether the batch reached the training threshold.
func (r Receipt) Full() bool {
	return r.Count >= domain.BatchSize
}

// Collector keeps pending batches in memory keyed by user id. Batches are
// lost on restart; the lifecycle resets interrupted users accordingly.
type Collector struct {
	users  domain.UserRepository
	logger infra.Logger

	mu      sync.Mutex
	batches map[int64][]string
}

func New(users domain.UserRepository, logger *infra.Logger) *Collector {
	return &Collector{
		users:   users,
		logger:  infra.LoggerOrDiscard(logger),
		batches: make(map[int64][]string),
	}
}

// Submit appends imageRef to the user's pending batch. The first accepted
// image of a new user moves it to collecting. A full batch yields
// ErrBatchFull and the image is dropped.
func (c *Collector) Submit(ctx context.Context, userID int64, imageRef string) (Receipt, error) {
	if imageRef == "" {
		return Receipt{}, errors.New("collector: image reference is required")
	}
	user, err := c.users.GetByID(ctx, userID)
	if err != nil {
		return Receipt{}, err
	}
	if !user.Status.AcceptsImages() {
		return Receipt{Count: c.Count(userID)}, domain.Conflict("submit image", user.Status)
	}

	c.mu.Lock()
	batch := c.batches[userID]
	if len(batch) >= domain.BatchSize {
		c.mu.Unlock()
		return Receipt{Count: len(batch)}, fmt.Errorf("%w: %w", domain.Conflict("submit image", user.Status), domain.ErrBatchFull)
	}
	c.mu.Unlock()

	if user.Status == domain.StatusNew {
		if _, err := c.users.Transition(ctx, userID, domain.Transition{From: domain.StatusNew, To: domain.StatusCollecting}); err != nil {
			// A concurrent first image may already have moved the user on.
			var conflict *domain.StateConflictError
			if !errors.As(err, &conflict) || conflict.Status != domain.StatusCollecting {
				return Receipt{Count: c.Count(userID)}, err
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	batch = c.batches[userID]
	if len(batch) >= domain.BatchSize {
		return Receipt{Count: len(batch)}, fmt.Errorf("%w: %w", domain.Conflict("submit image", domain.StatusCollecting), domain.ErrBatchFull)
	}
	batch = append(batch, imageRef)
	c.batches[userID] = batch
	c.logger.Debug().Int64("user_id", userID).Int("count", len(batch)).Msg("image collected")
	return Receipt{Accepted: true, Count: len(batch)}, nil
}

// Take detaches and returns the user's batch, leaving it empty.
func (c *Collector) Take(userID int64) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch := c.batches[userID]
	delete(c.batches, userID)
	return batch
}

// Clear drops any pending images for the user.
func (c *Collector) Clear(userID int64) {
	c.mu.Lock()
	delete(c.batches, userID)
	c.mu.Unlock()
}

// Count returns the number of pending images for the user.
func (c *Collector) Count(userID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches[userID])
}
