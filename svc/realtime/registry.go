package realtime

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sort"
	"sync"

	"github.com/dmitrymomot/rtkit/pkg/filters"
	"github.com/dmitrymomot/rtkit/pkg/transport"
)

const stripeCount = 128

// stripeSet serializes mutations per room and per connection. There is no
// global mutation lock; each operation locks only the stripes of the keys
// it touches, always in ascending index order.
type stripeSet struct {
	locks [stripeCount]sync.Mutex
}

func stripeIndex(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % stripeCount)
}

// lock acquires the stripes covering keys and returns the matching unlock.
func (s *stripeSet) lock(keys ...string) func() {
	var seen [stripeCount]bool
	idx := make([]int, 0, len(keys))
	for _, k := range keys {
		i := stripeIndex(k)
		if !seen[i] {
			seen[i] = true
			idx = append(idx, i)
		}
	}
	sort.Ints(idx)
	for _, i := range idx {
		s.locks[i].Lock()
	}
	return func() {
		for j := len(idx) - 1; j >= 0; j-- {
			s.locks[idx[j]].Unlock()
		}
	}
}

type room struct {
	collection string
	members    map[string]struct{}
}

type customer struct {
	rooms map[string]struct{}
	// closing blocks new bindings while disconnection cleanup drains the
	// existing ones.
	closing bool
}

// SubscriptionResult reports the outcome of a subscribe call.
type SubscriptionResult struct {
	RoomID     string
	Collection string
	// Count is the room's subscriber count after the call.
	Count int
	// AlreadySubscribed is true when the binding existed before the call;
	// no side effects were triggered.
	AlreadySubscribed bool
}

// UnsubscribeResult reports the outcome of removing one binding.
type UnsubscribeResult struct {
	RoomID     string
	Collection string
	// Remaining is the room's subscriber count after removal. Zero means
	// the room and its filters were torn down.
	Remaining int
}

// Registry tracks which connections subscribe to which rooms and keeps the
// matcher and transport in sync with that state. Rooms and customer records
// exist exactly as long as they have at least one binding.
type Registry struct {
	matcher *filters.Matcher
	hub     transport.Transport
	log     *slog.Logger

	stripes stripeSet

	mu        sync.RWMutex
	rooms     map[string]*room
	customers map[string]*customer
}

// NewRegistry wires a registry over the matcher and transport. A nil logger
// falls back to slog.Default.
func NewRegistry(matcher *filters.Matcher, hub transport.Transport, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		matcher:   matcher,
		hub:       hub,
		log:       log,
		rooms:     make(map[string]*room),
		customers: make(map[string]*customer),
	}
}

// Subscribe binds the connection to the room identified by the filter,
// creating the room and registering the filter on first use. Re-subscribing
// with a semantically identical filter is idempotent.
func (r *Registry) Subscribe(ctx context.Context, collection string, filter map[string]any, connectionID string) (SubscriptionResult, error) {
	if connectionID == "" {
		return SubscriptionResult{}, fmt.Errorf("%w: connection id is empty", ErrValidation)
	}
	expr, err := filters.Parse(filter)
	if err != nil {
		return SubscriptionResult{}, fmt.Errorf("%w: %w", ErrMatcher, err)
	}
	roomID := filters.RoomID(collection, expr)

	unlock := r.stripes.lock(roomID, connectionID)
	defer unlock()

	if res, done, err := r.checkExisting(roomID, connectionID); done {
		return res, err
	}

	// Filter registration happens before the binding becomes visible so a
	// room never has members the matcher does not know about. Both steps
	// sit inside the room's stripe lock, so a concurrent last-unsubscribe
	// cannot tear the room down in between.
	if _, err := r.matcher.Register(collection, expr); err != nil {
		return SubscriptionResult{}, fmt.Errorf("%w: %w", ErrMatcher, err)
	}
	count := r.bind(roomID, collection, connectionID)

	if err := r.hub.Join(ctx, connectionID, roomID); err != nil {
		r.log.WarnContext(ctx, "transport join failed",
			slog.String("room_id", roomID),
			slog.String("connection_id", connectionID),
			slog.Any("error", err),
		)
	}
	return SubscriptionResult{RoomID: roomID, Collection: collection, Count: count}, nil
}

// SubscribeRoom binds the connection to an already-existing room by id.
func (r *Registry) SubscribeRoom(ctx context.Context, roomID, connectionID string) (SubscriptionResult, error) {
	if connectionID == "" {
		return SubscriptionResult{}, fmt.Errorf("%w: connection id is empty", ErrValidation)
	}

	unlock := r.stripes.lock(roomID, connectionID)
	defer unlock()

	r.mu.RLock()
	rm := r.rooms[roomID]
	r.mu.RUnlock()
	if rm == nil {
		return SubscriptionResult{}, fmt.Errorf("%w: room %q", ErrRoomNotFound, roomID)
	}
	collection := rm.collection

	if res, done, err := r.checkExisting(roomID, connectionID); done {
		return res, err
	}

	count := r.bind(roomID, collection, connectionID)

	if err := r.hub.Join(ctx, connectionID, roomID); err != nil {
		r.log.WarnContext(ctx, "transport join failed",
			slog.String("room_id", roomID),
			slog.String("connection_id", connectionID),
			slog.Any("error", err),
		)
	}
	return SubscriptionResult{RoomID: roomID, Collection: collection, Count: count}, nil
}

// checkExisting reports whether the subscribe call can return without
// binding: the connection is already in the room, or is being torn down.
// Must be called with the relevant stripes held.
func (r *Registry) checkExisting(roomID, connectionID string) (SubscriptionResult, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := r.customers[connectionID]
	if c == nil {
		return SubscriptionResult{}, false, nil
	}
	if c.closing {
		return SubscriptionResult{}, true, fmt.Errorf("%w: connection %q is disconnecting", ErrCustomerNotFound, connectionID)
	}
	if _, bound := c.rooms[roomID]; bound {
		rm := r.rooms[roomID]
		return SubscriptionResult{
			RoomID:            roomID,
			Collection:        rm.collection,
			Count:             len(rm.members),
			AlreadySubscribed: true,
		}, true, nil
	}
	return SubscriptionResult{}, false, nil
}

// bind records the room/connection binding and returns the room's new
// subscriber count. Must be called with the relevant stripes held.
func (r *Registry) bind(roomID, collection, connectionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.rooms[roomID]
	if rm == nil {
		rm = &room{collection: collection, members: make(map[string]struct{})}
		r.rooms[roomID] = rm
	}
	rm.members[connectionID] = struct{}{}

	c := r.customers[connectionID]
	if c == nil {
		c = &customer{rooms: make(map[string]struct{})}
		r.customers[connectionID] = c
	}
	c.rooms[roomID] = struct{}{}

	return len(rm.members)
}

// Unsubscribe removes the binding between the connection and the room. The
// last departure deletes the room and unregisters its filters. State is
// untouched when the customer, room or binding does not exist.
func (r *Registry) Unsubscribe(ctx context.Context, roomID, connectionID string) (UnsubscribeResult, error) {
	unlock := r.stripes.lock(roomID, connectionID)
	defer unlock()

	r.mu.Lock()
	c := r.customers[connectionID]
	if c == nil {
		r.mu.Unlock()
		return UnsubscribeResult{}, fmt.Errorf("%w: connection %q", ErrCustomerNotFound, connectionID)
	}
	rm := r.rooms[roomID]
	if rm == nil {
		r.mu.Unlock()
		return UnsubscribeResult{}, fmt.Errorf("%w: room %q", ErrRoomNotFound, roomID)
	}
	if _, bound := c.rooms[roomID]; !bound {
		r.mu.Unlock()
		return UnsubscribeResult{}, fmt.Errorf("%w: room %q", ErrNotSubscribed, roomID)
	}

	delete(rm.members, connectionID)
	delete(c.rooms, roomID)
	collection := rm.collection
	remaining := len(rm.members)
	roomGone := remaining == 0
	if roomGone {
		delete(r.rooms, roomID)
	}
	if len(c.rooms) == 0 && !c.closing {
		delete(r.customers, connectionID)
	}
	r.mu.Unlock()

	if roomGone {
		if err := r.matcher.Unregister(roomID); err != nil {
			r.log.ErrorContext(ctx, "filter unregister failed",
				slog.String("room_id", roomID),
				slog.Any("error", err),
			)
		}
	}
	if err := r.hub.Leave(ctx, connectionID, roomID); err != nil {
		r.log.WarnContext(ctx, "transport leave failed",
			slog.String("room_id", roomID),
			slog.String("connection_id", connectionID),
			slog.Any("error", err),
		)
	}
	return UnsubscribeResult{RoomID: roomID, Collection: collection, Remaining: remaining}, nil
}

// RemoveCustomer drops every binding of a disconnected connection and
// returns one result per room left. Safe to run concurrently with
// subscribes for the same connection; the connection ends up unbound either
// way.
func (r *Registry) RemoveCustomer(ctx context.Context, connectionID string) ([]UnsubscribeResult, error) {
	unlock := r.stripes.lock(connectionID)
	r.mu.Lock()
	c := r.customers[connectionID]
	if c == nil {
		r.mu.Unlock()
		unlock()
		return nil, fmt.Errorf("%w: connection %q", ErrCustomerNotFound, connectionID)
	}
	c.closing = true
	roomIDs := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		roomIDs = append(roomIDs, id)
	}
	r.mu.Unlock()
	unlock()

	sort.Strings(roomIDs)
	departures := make([]UnsubscribeResult, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		res, err := r.Unsubscribe(ctx, roomID, connectionID)
		if err != nil {
			r.log.WarnContext(ctx, "disconnect cleanup unsubscribe failed",
				slog.String("room_id", roomID),
				slog.String("connection_id", connectionID),
				slog.Any("error", err),
			)
			continue
		}
		departures = append(departures, res)
	}

	r.mu.Lock()
	delete(r.customers, connectionID)
	r.mu.Unlock()
	return departures, nil
}

// Members returns the connection ids subscribed to a room, sorted. Nil for
// an unknown room.
func (r *Registry) Members(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm := r.rooms[roomID]
	if rm == nil {
		return nil
	}
	out := make([]string, 0, len(rm.members))
	for id := range rm.members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Count returns the current subscriber count of a room.
func (r *Registry) Count(roomID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm := r.rooms[roomID]
	if rm == nil {
		return 0, fmt.Errorf("%w: room %q", ErrRoomNotFound, roomID)
	}
	return len(rm.members), nil
}

// Rooms returns the room ids a connection is bound to, sorted.
func (r *Registry) Rooms(connectionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := r.customers[connectionID]
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RoomCount reports how many rooms currently exist.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// CustomerCount reports how many connections currently hold subscriptions.
func (r *Registry) CustomerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.customers)
}
