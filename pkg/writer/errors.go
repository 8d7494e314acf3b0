package writer

import "errors"

var (
	// ErrQueueClosed is returned for tasks enqueued after Close.
	ErrQueueClosed = errors.New("writer: queue is closed")

	// ErrNilEngine is returned when the queue is constructed without a
	// storage engine.
	ErrNilEngine = errors.New("writer: storage engine cannot be nil")
)
