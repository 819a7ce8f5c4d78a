// Package jobs runs remote queue jobs to completion and exposes their
// progress logs and results through per-job handles.
package jobs

import (
	"context"
	"sync/atomic"
)

// LogLine is one progress message reported by a remote job.
type LogLine struct {
	Message   string
	Timestamp string
}

// Handle tracks one remote job. Its log channel belongs to this job only and
// is closed when the job reaches a terminal state, just before Done closes.
type Handle[T any] struct {
	requestID string
	logs      chan LogLine
	done      chan struct{}
	dropped   atomic.Int64

	result T
	err    error
}

func newHandle[T any](requestID string, buffer int) *Handle[T] {
	return &Handle[T]{
		requestID: requestID,
		logs:      make(chan LogLine, buffer),
		done:      make(chan struct{}),
	}
}

// RequestID returns the remote request identifier.
func (h *Handle[T]) RequestID() string {
	return h.requestID
}

// Logs streams progress lines. Lines are dropped rather than blocking the
// poller when the reader falls behind.
func (h *Handle[T]) Logs() <-chan LogLine {
	return h.logs
}

// Done is closed once the result is available.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.done
}

// Dropped returns the number of log lines discarded for a slow reader.
func (h *Handle[T]) Dropped() int64 {
	return h.dropped.Load()
}

// Wait blocks until the job finishes or ctx ends. Cancelling ctx here does
// not stop the job; cancel the context passed to Submit for that.
func (h *Handle[T]) Wait(ctx context.Context) (T, error) {
	// A finished job reports its own outcome even if ctx ended too.
	select {
	case <-h.done:
		return h.result, h.err
	default:
	}
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (h *Handle[T]) emit(line LogLine) {
	select {
	case h.logs <- line:
	default:
		h.dropped.Add(1)
	}
}

func (h *Handle[T]) finish(result T, err error) {
	h.result, h.err = result, err
	close(h.logs)
	close(h.done)
}
