package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portraitbot/internal/domain"
	"portraitbot/internal/infra"
	"portraitbot/internal/providers/fal"
)

// Queue is the subset of the fal client the poller needs.
type Queue interface {
	Submit(ctx context.Context, app string, input any) (*fal.Request, error)
	Status(ctx context.Context, req *fal.Request) (*fal.Status, error)
	Result(ctx context.Context, req *fal.Request, out any) error
	Cancel(ctx context.Context, req *fal.Request) error
}

// PollerOptions configures polling cadence and log buffering.
type PollerOptions struct {
	Interval          time.Duration
	LogBuffer         int
	MaxStatusFailures int
	CancelTimeout     time.Duration
	Logger            *infra.Logger
}

// Poller submits jobs and watches them until a terminal state.
type Poller struct {
	queue             Queue
	interval          time.Duration
	logBuffer         int
	maxStatusFailures int
	cancelTimeout     time.Duration
	logger            infra.Logger
}

func NewPoller(queue Queue, opts PollerOptions) *Poller {
	p := &Poller{
		queue:             queue,
		interval:          opts.Interval,
		logBuffer:         opts.LogBuffer,
		maxStatusFailures: opts.MaxStatusFailures,
		cancelTimeout:     opts.CancelTimeout,
		logger:            infra.LoggerOrDiscard(opts.Logger),
	}
	if p.interval <= 0 {
		p.interval = 5 * time.Second
	}
	if p.logBuffer <= 0 {
		p.logBuffer = 64
	}
	if p.maxStatusFailures <= 0 {
		p.maxStatusFailures = 3
	}
	if p.cancelTimeout <= 0 {
		p.cancelTimeout = 10 * time.Second
	}
	return p
}

// Definition describes a job: where to submit it, what to send, and how to turn
// the decoded output O into the caller's result T.
type Definition[O, T any] struct {
	Kind    domain.JobKind
	App     string
	Input   any
	Timeout time.Duration
	Extract func(O) (T, error)
}

// Submit enqueues the job and starts watching it in the background. A
// non-positive Timeout means no deadline beyond ctx.
func Submit[O, T any](ctx context.Context, p *Poller, def Definition[O, T]) (*Handle[T], error) {
	req, err := p.queue.Submit(ctx, def.App, def.Input)
	if err != nil {
		return nil, &domain.RemoteJobError{Kind: def.Kind, Err: err}
	}
	h := newHandle[T](req.ID, p.logBuffer)

	var (
		watchCtx context.Context
		cancel   context.CancelFunc
	)
	if def.Timeout > 0 {
		watchCtx, cancel = context.WithTimeout(ctx, def.Timeout)
	} else {
		watchCtx, cancel = context.WithCancel(ctx)
	}
	go func() {
		defer cancel()
		result, err := watch(watchCtx, p, req, def, h)
		if dropped := h.Dropped(); dropped > 0 {
			p.logger.Warn().Str("request_id", req.ID).Int64("dropped", dropped).Msg("job logs dropped for slow reader")
		}
		h.finish(result, err)
	}()
	return h, nil
}

func watch[O, T any](ctx context.Context, p *Poller, req *fal.Request, def Definition[O, T], h *Handle[T]) (T, error) {
	var zero T
	fail := func(err error) (T, error) {
		return zero, &domain.RemoteJobError{Kind: def.Kind, RequestID: req.ID, Err: err}
	}
	log := p.logger.With().Str("job_kind", string(def.Kind)).Str("request_id", req.ID).Logger()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	seen, failures := 0, 0
	for {
		st, err := p.queue.Status(ctx, req)
		switch {
		case err != nil && ctx.Err() != nil:
			p.cancelRemote(req, log)
			return fail(ctx.Err())
		case err != nil:
			failures++
			log.Warn().Err(err).Int("failures", failures).Msg("job status poll failed")
			if failures >= p.maxStatusFailures {
				return fail(err)
			}
		default:
			failures = 0
			// Status returns the cumulative log list on every poll.
			if len(st.Logs) < seen {
				seen = 0
			}
			for _, entry := range st.Logs[seen:] {
				h.emit(LogLine{Message: entry.Message, Timestamp: entry.Timestamp})
			}
			seen = len(st.Logs)
			if st.Error != "" {
				return fail(errors.New(st.Error))
			}
			if st.Completed() {
				return fetch(ctx, p, req, def)
			}
		}

		select {
		case <-ctx.Done():
			p.cancelRemote(req, log)
			return fail(ctx.Err())
		case <-ticker.C:
		}
	}
}

func fetch[O, T any](ctx context.Context, p *Poller, req *fal.Request, def Definition[O, T]) (T, error) {
	var (
		zero T
		out  O
	)
	if err := p.queue.Result(ctx, req, &out); err != nil {
		return zero, &domain.RemoteJobError{Kind: def.Kind, RequestID: req.ID, Err: err}
	}
	result, err := def.Extract(out)
	if err != nil {
		return zero, &domain.RemoteJobError{Kind: def.Kind, RequestID: req.ID, Err: err}
	}
	return result, nil
}

func (p *Poller) cancelRemote(req *fal.Request, log infra.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cancelTimeout)
	defer cancel()
	if err := p.queue.Cancel(ctx, req); err != nil {
		log.Warn().Err(err).Msg("cancel remote job")
		return
	}
	log.Info().Msg("remote job cancelled")
}

// ErrEmptyResult is returned when a completed job carries no usable output.
var ErrEmptyResult = errors.New("empty result")

func requireURL(kind, url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("%s: %w", kind, ErrEmptyResult)
	}
	return url, nil
}
