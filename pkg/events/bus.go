package events

import (
	"sync"
	"sync/atomic"
)

// Bus dispatches payloads of type T to handlers registered under event kinds
// of type K. The zero value is not usable; construct with New.
type Bus[K comparable, T any] struct {
	mu       sync.RWMutex
	handlers map[K][]*handler[T]
	nextID   uint64
	onPanic  func(kind K, recovered any)
}

type handler[T any] struct {
	id    uint64
	fn    func(T)
	once  bool
	fired atomic.Bool
}

// Subscription is the cancellation handle returned by On and Once.
// Cancel is idempotent and safe to call concurrently with Emit.
type Subscription struct {
	cancel   func()
	once     sync.Once
	canceled atomic.Bool
}

// Cancel removes the handler from the bus. Handlers already snapshotted by
// an in-flight Emit may still run once after Cancel returns.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.canceled.Store(true)
		s.cancel()
	})
}

// Canceled reports whether the subscription has been canceled (including
// once-handlers that already fired).
func (s *Subscription) Canceled() bool {
	return s.canceled.Load()
}

// Option configures a Bus.
type Option[K comparable, T any] func(*Bus[K, T])

// WithPanicHandler installs a callback invoked with the recovered value when
// a handler panics during dispatch.
func WithPanicHandler[K comparable, T any](fn func(kind K, recovered any)) Option[K, T] {
	return func(b *Bus[K, T]) {
		if fn != nil {
			b.onPanic = fn
		}
	}
}

// New creates an empty bus.
func New[K comparable, T any](opts ...Option[K, T]) *Bus[K, T] {
	b := &Bus[K, T]{handlers: make(map[K][]*handler[T])}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// On registers a handler for every future emission of kind.
func (b *Bus[K, T]) On(kind K, fn func(T)) *Subscription {
	return b.add(kind, fn, false)
}

// Once registers a handler that runs for at most one emission of kind and is
// then removed.
func (b *Bus[K, T]) Once(kind K, fn func(T)) *Subscription {
	return b.add(kind, fn, true)
}

func (b *Bus[K, T]) add(kind K, fn func(T), once bool) *Subscription {
	b.mu.Lock()
	b.nextID++
	h := &handler[T]{id: b.nextID, fn: fn, once: once}
	b.handlers[kind] = append(b.handlers[kind], h)
	b.mu.Unlock()

	return &Subscription{cancel: func() { b.remove(kind, h.id) }}
}

func (b *Bus[K, T]) remove(kind K, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.handlers[kind]
	for i, h := range list {
		if h.id == id {
			b.handlers[kind] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(b.handlers[kind]) == 0 {
		delete(b.handlers, kind)
	}
}

// Emit dispatches payload synchronously to every handler currently
// registered for kind, in registration order. All handlers run before Emit
// returns; handler panics are recovered per handler.
func (b *Bus[K, T]) Emit(kind K, payload T) {
	b.mu.RLock()
	snapshot := make([]*handler[T], len(b.handlers[kind]))
	copy(snapshot, b.handlers[kind])
	b.mu.RUnlock()

	var spent []uint64
	for _, h := range snapshot {
		if h.once {
			if !h.fired.CompareAndSwap(false, true) {
				continue
			}
			spent = append(spent, h.id)
		}
		b.dispatch(kind, h.fn, payload)
	}

	for _, id := range spent {
		b.remove(kind, id)
	}
}

func (b *Bus[K, T]) dispatch(kind K, fn func(T), payload T) {
	defer func() {
		if r := recover(); r != nil && b.onPanic != nil {
			b.onPanic(kind, r)
		}
	}()
	fn(payload)
}

// HandlerCount reports the number of handlers registered for kind.
func (b *Bus[K, T]) HandlerCount(kind K) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[kind])
}
