package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of background catalog maintenance work, identified by its
// kind (cache warm-up, export cleanup).
type Task struct {
	ID         string
	Kind       string
	Attempt    int
	EnqueuedAt time.Time
}

// HandlerFunc processes tasks of a single kind.
type HandlerFunc func(context.Context, Task) error

// Config tunes the worker pool.
type Config struct {
	Workers     int
	Buffer      int
	MaxAttempts int
	RetryDelay  time.Duration
	Logger      *zap.Logger
}

// Queue dispatches maintenance tasks to kind-specific handlers on a fixed
// worker pool. Handlers are registered before Start; recurring tasks
// re-enqueue themselves on a ticker until the queue stops.
type Queue struct {
	name     string
	handlers map[string]HandlerFunc

	workers     int
	maxAttempts int
	retryDelay  time.Duration
	logger      *zap.Logger

	tasks   chan Task
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewQueue builds an empty queue; register handlers with Handle before Start.
func NewQueue(name string, cfg Config) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = cfg.Workers * 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:        name,
		handlers:    map[string]HandlerFunc{},
		workers:     cfg.Workers,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		logger:      cfg.Logger,
		tasks:       make(chan Task, cfg.Buffer),
	}
}

// Handle registers the handler for a task kind. Must be called before Start.
func (q *Queue) Handle(kind string, fn HandlerFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[kind] = fn
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Sugar().Infow("maintenance queue started", "queue", q.name, "workers", q.workers)
}

// Stop cancels workers and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Sugar().Infow("maintenance queue stopped", "queue", q.name)
}

// Enqueue pushes a task onto the queue.
func (q *Queue) Enqueue(task Task) error {
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.tasks <- task:
		return nil
	}
}

// Every enqueues the task now and again each interval until the queue stops.
// Call after Start.
func (q *Queue) Every(interval time.Duration, task Task) {
	if interval <= 0 {
		interval = time.Hour
	}
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()
	if !started {
		return
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if err := q.Enqueue(task); err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case task := <-q.tasks:
			q.dispatch(task)
		}
	}
}

func (q *Queue) dispatch(task Task) {
	q.mu.Lock()
	fn, ok := q.handlers[task.Kind]
	q.mu.Unlock()
	if !ok {
		q.logger.Sugar().Errorw("no handler for task kind", "queue", q.name, "kind", task.Kind)
		return
	}
	if err := fn(q.ctx, task); err != nil {
		q.handleFailure(task, err)
	}
}

func (q *Queue) handleFailure(task Task, err error) {
	task.Attempt++
	if task.Attempt >= q.maxAttempts {
		q.logger.Sugar().Errorw("task exceeded retries", "queue", q.name, "kind", task.Kind, "task_id", task.ID, "error", err)
		return
	}
	q.logger.Sugar().Warnw("task failed, retrying", "queue", q.name, "kind", task.Kind, "task_id", task.ID, "attempt", task.Attempt, "error", err)

	go func(t Task) {
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
			if err := q.Enqueue(t); err != nil {
				q.logger.Sugar().Errorw("failed to requeue task", "queue", q.name, "kind", t.Kind, "error", err)
			}
		}
	}(task)
}
