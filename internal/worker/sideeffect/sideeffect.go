package sideeffect

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

type job struct {
	ctx  context.Context
	name string
	run  func(ctx context.Context) error
}

// Queue runs fire-and-forget side effects on a fixed pool of workers.
type Queue struct {
	jobs    chan job
	workers int
	timeout time.Duration
	g       errgroup.Group

	mu     sync.RWMutex
	closed bool

	submitted metric.Int64Counter
	failed    metric.Int64Counter
	dropped   metric.Int64Counter
}

// MustNewQueue reads sideeffects.* keys.
func MustNewQueue() *Queue {
	return NewQueue(
		viper.GetInt("sideeffects.workers"),
		viper.GetInt("sideeffects.queue_size"),
		time.Duration(viper.GetInt("sideeffects.task_timeout_seconds"))*time.Second,
	)
}

func NewQueue(workers, size int, timeout time.Duration) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if size < 0 {
		size = 0
	}

	meter := otel.GetMeterProvider().Meter("commerce.sideeffects")
	submitted, _ := meter.Int64Counter("sideeffects_submitted_total",
		metric.WithDescription("Side-effect tasks accepted by the queue"))
	failed, _ := meter.Int64Counter("sideeffects_failed_total",
		metric.WithDescription("Side-effect tasks that returned an error"))
	dropped, _ := meter.Int64Counter("sideeffects_dropped_total",
		metric.WithDescription("Side-effect tasks dropped because the queue was full or closed"))

	return &Queue{
		jobs:      make(chan job, size),
		workers:   workers,
		timeout:   timeout,
		submitted: submitted,
		failed:    failed,
		dropped:   dropped,
	}
}

// Start launches the workers.
func (q *Queue) Start() {
	for i := 0; i < q.workers; i++ {
		q.g.Go(func() error {
			for j := range q.jobs {
				q.run(j)
			}

			return nil
		})
	}

	slog.Info("Side-effect queue started", "workers", q.workers, "capacity", cap(q.jobs))
}

// Submit never blocks. The task inherits ctx values but not its cancellation; its error is
// logged and counted, never returned. Submit reports whether the task was accepted.
func (q *Queue) Submit(ctx context.Context, name string, task func(ctx context.Context) error) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	attrs := metric.WithAttributes(attribute.String("task", name))
	if q.closed {
		q.dropped.Add(ctx, 1, attrs)
		slog.Warn("Side-effect queue closed, task dropped", "task", name)

		return false
	}

	select {
	case q.jobs <- job{ctx: context.WithoutCancel(ctx), name: name, run: task}:
		q.submitted.Add(ctx, 1, attrs)

		return true
	default:
		q.dropped.Add(ctx, 1, attrs)
		slog.Warn("Side-effect queue full, task dropped", "task", name)

		return false
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()

		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	_ = q.g.Wait()
	slog.Info("Side-effect queue drained")
}

func (q *Queue) run(j job) {
	ctx := j.ctx
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	ctx, span := otel.Tracer("sideeffect").Start(ctx, "SideEffect."+j.name)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			q.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("task", j.name)))
			slog.Error("Side-effect task panicked", "task", j.name, "panic", r)
		}
	}()

	start := time.Now()
	if err := j.run(ctx); err != nil {
		q.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("task", j.name)))
		span.RecordError(err)
		slog.Error("Side-effect task failed", "task", j.name, "duration", time.Since(start), "error", err)

		return
	}

	slog.Debug("Side-effect task done", "task", j.name, "duration", time.Since(start))
}
