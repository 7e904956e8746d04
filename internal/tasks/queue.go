// Package tasks runs fire-and-forget background work. Every accepted task
// starts immediately on its own goroutine; there is no retry, no result
// channel and no backpressure. Outcomes are logged and optionally reported
// to a Recorder.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned by Schedule after Drain has been called.
var ErrClosed = errors.New("tasks: queue is closed")

// Func is the body of a background task. The context is never canceled.
type Func func(ctx context.Context) error

// Handle identifies a scheduled task. It carries no result.
type Handle struct {
	ID          string    `json:"id"`
	Op          string    `json:"op"`
	Target      string    `json:"target"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Outcome is the terminal state of a task as seen by a Recorder.
type Outcome struct {
	Handle
	FinishedAt time.Time
	Err        error
}

// Succeeded reports whether the task returned without error.
func (o Outcome) Succeeded() bool { return o.Err == nil }

// Recorder receives task lifecycle events. Implementations must be safe for
// concurrent use. Recorder errors are logged and otherwise ignored.
type Recorder interface {
	TaskScheduled(ctx context.Context, h Handle) error
	TaskFinished(ctx context.Context, o Outcome) error
}

// Queue schedules background tasks.
type Queue struct {
	logger   *slog.Logger
	recorder Recorder
	nowFunc  func() time.Time

	mu     sync.Mutex
	closed bool
	group  errgroup.Group
}

// Option configures a Queue.
type Option func(*Queue)

// WithRecorder reports task lifecycle events to r.
func WithRecorder(r Recorder) Option {
	return func(q *Queue) { q.recorder = r }
}

// NewQueue returns an open queue.
func NewQueue(logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}

	q := &Queue{logger: logger, nowFunc: time.Now}
	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Schedule starts fn in the background and returns at once. op names the
// kind of work ("upload", "delete", ...) and target the item it acts on;
// both are used only for logging and recording.
func (q *Queue) Schedule(op, target string, fn Func) (Handle, error) {
	h := Handle{
		ID:          uuid.NewString(),
		Op:          op,
		Target:      target,
		ScheduledAt: q.nowFunc().UTC(),
	}

	// Tasks outlive the request that scheduled them.
	ctx := context.Background()

	// Only the closed check and group.Go share the lock with Drain; recorder
	// I/O runs on the task goroutine, ahead of fn.
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return Handle{}, ErrClosed
	}

	q.group.Go(func() error {
		q.record(func() error { return q.recorder.TaskScheduled(ctx, h) }, h)
		q.run(ctx, h, fn)

		return nil
	})
	q.mu.Unlock()

	q.logger.Info("task scheduled",
		slog.String("task_id", h.ID),
		slog.String("op", op),
		slog.String("target", target),
	)

	return h, nil
}

// Drain stops accepting new tasks and waits for in-flight ones to finish or
// for ctx to be done, whichever comes first.
func (q *Queue) Drain(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})

	go func() {
		_ = q.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("task queue drained")
		return nil
	case <-ctx.Done():
		q.logger.Warn("task queue drain interrupted, tasks still running",
			slog.String("error", ctx.Err().Error()),
		)

		return fmt.Errorf("tasks: draining queue: %w", ctx.Err())
	}
}

func (q *Queue) run(ctx context.Context, h Handle, fn Func) {
	start := q.nowFunc()
	err := safeCall(ctx, fn)

	o := Outcome{Handle: h, FinishedAt: q.nowFunc().UTC(), Err: err}
	elapsed := o.FinishedAt.Sub(start.UTC())

	if err != nil {
		q.logger.Error("task failed",
			slog.String("task_id", h.ID),
			slog.String("op", h.Op),
			slog.String("target", h.Target),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()),
		)
	} else {
		q.logger.Info("task done",
			slog.String("task_id", h.ID),
			slog.String("op", h.Op),
			slog.String("target", h.Target),
			slog.Duration("elapsed", elapsed),
		)
	}

	q.record(func() error { return q.recorder.TaskFinished(ctx, o) }, h)
}

func (q *Queue) record(call func() error, h Handle) {
	if q.recorder == nil {
		return
	}

	if err := call(); err != nil {
		q.logger.Warn("task recorder failed",
			slog.String("task_id", h.ID),
			slog.String("error", err.Error()),
		)
	}
}

// safeCall runs fn, converting a panic into an error so one bad task does
// not take the server down.
func safeCall(ctx context.Context, fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tasks: panic: %v", r)
		}
	}()

	return fn(ctx)
}
