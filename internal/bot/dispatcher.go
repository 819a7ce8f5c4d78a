package bot

import (
	"context"
	"sync"

	"portraitbot/internal/infra"
)

// Dispatcher runs one worker per user with pending updates. A user's updates
// are handled in arrival order; different users proceed in parallel.
type Dispatcher struct {
	handle func(context.Context, Update)
	logger infra.Logger

	mu     sync.Mutex
	queues map[int64][]Update
	wg     sync.WaitGroup
}

func NewDispatcher(handle func(context.Context, Update), logger *infra.Logger) *Dispatcher {
	return &Dispatcher{handle: handle, logger: infra.LoggerOrDiscard(logger), queues: make(map[int64][]Update)}
}

// Dispatch enqueues u and starts the user's worker if it is idle.
func (d *Dispatcher) Dispatch(ctx context.Context, u Update) {
	d.mu.Lock()
	queue, running := d.queues[u.UserID]
	d.queues[u.UserID] = append(queue, u)
	d.mu.Unlock()
	if running {
		return
	}
	d.wg.Add(1)
	go d.run(ctx, u.UserID)
}

func (d *Dispatcher) run(ctx context.Context, userID int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		queue := d.queues[userID]
		if len(queue) == 0 {
			delete(d.queues, userID)
			d.mu.Unlock()
			return
		}
		next := queue[0]
		d.queues[userID] = queue[1:]
		d.mu.Unlock()

		d.handleOne(ctx, next)
	}
}

// handleOne runs the handler for a single update. A panic is logged and the
// worker moves on to the user's next update.
func (d *Dispatcher) handleOne(ctx context.Context, u Update) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Int64("user_id", u.UserID).Interface("panic", r).Msg("update handler panicked")
		}
	}()
	d.handle(ctx, u)
}

// Wait blocks until every worker has drained its queue.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
