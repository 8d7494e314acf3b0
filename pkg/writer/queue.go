package writer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/rtkit/pkg/async"
	"github.com/dmitrymomot/rtkit/pkg/storage"
)

const (
	// DefaultWorkers is the worker pool size used when none is configured.
	DefaultWorkers = 4
	// DefaultBuffer is the task channel capacity used when none is
	// configured.
	DefaultBuffer = 256
)

// Task is one storage write to execute.
type Task struct {
	ID         uuid.UUID
	Op         storage.Operation
	Collection string
	Document   storage.Document
}

type job struct {
	ctx   context.Context
	task  Task
	reply chan outcome
}

type outcome struct {
	result storage.Result
	err    error
}

// Queue runs storage writes asynchronously and reports each outcome through
// a future.
type Queue struct {
	engine storage.Engine
	log    *slog.Logger

	workers int
	buffer  int

	jobs   chan job
	closed chan struct{}

	mu       sync.RWMutex
	closing  bool
	workerWG sync.WaitGroup
	once     sync.Once
}

// Option configures a Queue before its workers start.
type Option func(*Queue)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithBuffer sets the pending-task channel capacity.
func WithBuffer(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.buffer = n
		}
	}
}

// WithLogger sets the logger used for write failures.
func WithLogger(log *slog.Logger) Option {
	return func(q *Queue) {
		if log != nil {
			q.log = log
		}
	}
}

// New creates the queue and starts its workers. Panics on a nil engine so
// that miswiring fails at startup.
func New(engine storage.Engine, opts ...Option) *Queue {
	if engine == nil {
		panic(ErrNilEngine)
	}
	q := &Queue{
		engine:  engine,
		log:     slog.Default(),
		workers: DefaultWorkers,
		buffer:  DefaultBuffer,
		closed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan job, q.buffer)

	q.workerWG.Add(q.workers)
	for range q.workers {
		go q.worker()
	}
	return q
}

// Enqueue submits a task and returns a future for its outcome. A zero task
// ID is assigned automatically.
func (q *Queue) Enqueue(ctx context.Context, task Task) *async.Future[storage.Result] {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}

	return async.Async(ctx, task, func(ctx context.Context, t Task) (storage.Result, error) {
		q.mu.RLock()
		if q.closing {
			q.mu.RUnlock()
			return storage.Result{}, ErrQueueClosed
		}

		j := job{ctx: ctx, task: t, reply: make(chan outcome, 1)}
		select {
		case q.jobs <- j:
			q.mu.RUnlock()
		case <-q.closed:
			q.mu.RUnlock()
			return storage.Result{}, ErrQueueClosed
		case <-ctx.Done():
			q.mu.RUnlock()
			return storage.Result{}, ctx.Err()
		}

		select {
		case out := <-j.reply:
			return out.result, out.err
		case <-ctx.Done():
			return storage.Result{}, ctx.Err()
		}
	})
}

// Close stops accepting tasks, waits for in-flight writes to finish and
// fails any still-pending tasks with ErrQueueClosed.
func (q *Queue) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closing = true
		q.mu.Unlock()

		close(q.closed)
		q.workerWG.Wait()

		// Workers are gone; whatever is still buffered never ran.
		for {
			select {
			case j := <-q.jobs:
				j.reply <- outcome{err: ErrQueueClosed}
			default:
				return
			}
		}
	})
}

func (q *Queue) worker() {
	defer q.workerWG.Done()
	for {
		select {
		case j := <-q.jobs:
			q.execute(j)
		case <-q.closed:
			// Drain tasks already accepted before shutting down.
			for {
				select {
				case j := <-q.jobs:
					q.execute(j)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) execute(j job) {
	result, err := q.engine.Write(j.ctx, j.task.Op, j.task.Collection, j.task.Document)
	if err != nil {
		q.log.ErrorContext(j.ctx, "storage write failed",
			slog.String("task_id", j.task.ID.String()),
			slog.String("operation", string(j.task.Op)),
			slog.String("collection", j.task.Collection),
			slog.Any("error", err),
		)
	}
	j.reply <- outcome{result: result, err: err}
}
