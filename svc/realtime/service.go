package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/rtkit/pkg/filters"
	"github.com/dmitrymomot/rtkit/pkg/indexcache"
	"github.com/dmitrymomot/rtkit/pkg/storage"
	"github.com/dmitrymomot/rtkit/pkg/transport"
	"github.com/dmitrymomot/rtkit/pkg/writer"
)

// Config tunes the service's internals. Load it with config.Load to pick
// the values up from the environment.
type Config struct {
	WriteWorkers        int `env:"RTKIT_WRITE_WORKERS" envDefault:"4"`
	WriteBuffer         int `env:"RTKIT_WRITE_BUFFER" envDefault:"256"`
	DeliveryConcurrency int `env:"RTKIT_DELIVERY_CONCURRENCY" envDefault:"16"`
	IndexCacheCapacity  int `env:"RTKIT_INDEX_CACHE_CAPACITY" envDefault:"1024"`
}

func defaultConfig() Config {
	return Config{
		WriteWorkers:        writer.DefaultWorkers,
		WriteBuffer:         writer.DefaultBuffer,
		DeliveryConcurrency: DefaultDeliveryConcurrency,
		IndexCacheCapacity:  indexcache.DefaultCapacity,
	}
}

// Service composes the matcher, registry, notifier and router behind one
// facade. It owns the write queue; call Close on shutdown.
type Service struct {
	cfg Config
	log *slog.Logger

	matcher    *filters.Matcher
	registry   *Registry
	notifier   *Notifier
	router     *Router
	queue      *writer.Queue
	bus        *Bus
	indexCache *indexcache.Cache
}

// Option configures the service before its internals are built.
type Option func(*Service)

// WithConfig overrides the default tuning values.
func WithConfig(cfg Config) Option {
	return func(s *Service) { s.cfg = cfg }
}

// WithLogger sets the logger shared by all internals.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithBus installs a pre-populated hook bus so lifecycle subscribers can be
// registered before the first request flows.
func WithBus(bus *Bus) Option {
	return func(s *Service) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// New builds a service over the storage engine and transport.
func New(engine storage.Engine, hub transport.Transport, opts ...Option) *Service {
	s := &Service{
		cfg: defaultConfig(),
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bus == nil {
		s.bus = NewBus()
	}

	s.matcher = filters.NewMatcher()
	s.queue = writer.New(engine,
		writer.WithWorkers(s.cfg.WriteWorkers),
		writer.WithBuffer(s.cfg.WriteBuffer),
		writer.WithLogger(s.log),
	)
	s.registry = NewRegistry(s.matcher, hub, s.log)
	s.notifier = NewNotifier(hub, s.registry, s.matcher, s.log, s.cfg.DeliveryConcurrency)
	s.indexCache = indexcache.New(s.cfg.IndexCacheCapacity)
	s.router = NewRouter(s.queue, s.notifier, s.indexCache, s.bus, s.log)
	return s
}

// Close drains the write queue. Subscriptions need no teardown beyond the
// transport's own lifecycle.
func (s *Service) Close() {
	s.queue.Close()
}

// Events exposes the lifecycle hook bus.
func (s *Service) Events() *Bus { return s.bus }

// Subscribe binds the request's connection to a room. The body is either a
// filter expression or {"roomId": ...} referencing an existing room. Every
// other subscriber of the room receives an "on" membership notification;
// an already-subscribed connection gets its existing room back with no
// side effects.
func (s *Service) Subscribe(ctx context.Context, req *Request) (SubscriptionResult, error) {
	if req == nil {
		return SubscriptionResult{}, errNilRequest
	}
	req.ensureID()
	if req.ConnectionID == "" {
		return SubscriptionResult{}, fmt.Errorf("%w: connection id is empty", ErrValidation)
	}

	s.bus.Emit(EventSubscribeOn, req)

	var (
		res SubscriptionResult
		err error
	)
	if roomID, ok := req.roomIDRef(); ok {
		res, err = s.registry.SubscribeRoom(ctx, roomID, req.ConnectionID)
	} else {
		res, err = s.registry.Subscribe(ctx, req.Collection, req.Body, req.ConnectionID)
	}
	if err != nil {
		return SubscriptionResult{}, err
	}

	if !res.AlreadySubscribed {
		s.notifier.NotifyRoom(ctx, res.RoomID,
			membershipNotification(res.RoomID, res.Collection, ActionOn, res.Count),
			req.ConnectionID,
		)
	}
	return res, nil
}

// Unsubscribe removes the request's connection from a room named either by
// body roomId or by the filter it was subscribed with. Remaining
// subscribers receive an "off" notification carrying the new count.
func (s *Service) Unsubscribe(ctx context.Context, req *Request) (UnsubscribeResult, error) {
	if req == nil {
		return UnsubscribeResult{}, errNilRequest
	}
	req.ensureID()
	if req.ConnectionID == "" {
		return UnsubscribeResult{}, fmt.Errorf("%w: connection id is empty", ErrValidation)
	}

	roomID, ok := req.roomIDRef()
	if !ok {
		if req.Body == nil {
			return UnsubscribeResult{}, fmt.Errorf("%w: neither room id nor filter provided", ErrValidation)
		}
		expr, err := filters.Parse(req.Body)
		if err != nil {
			return UnsubscribeResult{}, fmt.Errorf("%w: %w", ErrMatcher, err)
		}
		roomID = filters.RoomID(req.Collection, expr)
	}

	s.bus.Emit(EventSubscribeOff, req)

	res, err := s.registry.Unsubscribe(ctx, roomID, req.ConnectionID)
	if err != nil {
		return UnsubscribeResult{}, err
	}
	if res.Remaining > 0 {
		s.notifier.NotifyRoom(ctx, res.RoomID,
			membershipNotification(res.RoomID, res.Collection, ActionOff, res.Remaining),
		)
	}
	return res, nil
}

// Disconnect drops every subscription of a connection, notifying each room
// it leaves. Invoked by transport layers when a client goes away.
func (s *Service) Disconnect(ctx context.Context, connectionID string) error {
	departures, err := s.registry.RemoveCustomer(ctx, connectionID)
	if err != nil {
		return err
	}
	for _, dep := range departures {
		if dep.Remaining > 0 {
			s.notifier.NotifyRoom(ctx, dep.RoomID,
				membershipNotification(dep.RoomID, dep.Collection, ActionOff, dep.Remaining),
			)
		}
	}
	return nil
}

// CountSubscription reports a room's current subscriber count.
func (s *Service) CountSubscription(roomID string) (int, error) {
	return s.registry.Count(roomID)
}

// ResolveRoom computes the room id a filter would subscribe to, without
// registering anything.
func (s *Service) ResolveRoom(collection string, filter map[string]any) (string, error) {
	expr, err := filters.Parse(filter)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMatcher, err)
	}
	return filters.RoomID(collection, expr), nil
}

// Create persists a new document and notifies matching rooms.
func (s *Service) Create(ctx context.Context, req *Request) (*Response, error) {
	return s.router.Create(ctx, req)
}

// CreateOrReplace upserts a document and notifies matching rooms.
func (s *Service) CreateOrReplace(ctx context.Context, req *Request) (*Response, error) {
	return s.router.CreateOrReplace(ctx, req)
}

// Update applies a partial update and notifies matching rooms.
func (s *Service) Update(ctx context.Context, req *Request) (*Response, error) {
	return s.router.Update(ctx, req)
}

// Replace overwrites a document and notifies matching rooms.
func (s *Service) Replace(ctx context.Context, req *Request) (*Response, error) {
	return s.router.Replace(ctx, req)
}

// Delete removes a document and notifies matching rooms.
func (s *Service) Delete(ctx context.Context, req *Request) (*Response, error) {
	return s.router.Delete(ctx, req)
}

// DeleteByQuery removes matching documents and notifies matching rooms.
func (s *Service) DeleteByQuery(ctx context.Context, req *Request) (*Response, error) {
	return s.router.DeleteByQuery(ctx, req)
}

// Publish delivers a volatile document event without persisting anything.
func (s *Service) Publish(ctx context.Context, req *Request) (*Response, error) {
	return s.router.Publish(ctx, req)
}

// CreateCollection creates a collection and registers it with the index
// cache.
func (s *Service) CreateCollection(ctx context.Context, req *Request) (*Response, error) {
	return s.router.CreateCollection(ctx, req)
}

// Apply dispatches a persistence operation by its storage name.
func (s *Service) Apply(ctx context.Context, op storage.Operation, req *Request) (*Response, error) {
	return s.router.Apply(ctx, op, req)
}

// KnownCollection reports whether the collection has been registered with
// the index cache by a createCollection or createOrReplace.
func (s *Service) KnownCollection(collection string) bool {
	return s.indexCache.Exists(collection)
}
