package realtime

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/rtkit/pkg/events"
)

// Request carries one client operation through the service. The same
// instance flows from validation through lifecycle hooks to execution, so
// hook subscribers observe and may enrich the exact object the operation
// runs with.
type Request struct {
	// ID identifies the request across logs and hook invocations. Assigned
	// automatically when empty.
	ID string

	Controller string
	Action     string
	Collection string

	// Body is the operation payload: a document for writes, a filter
	// expression or {"roomId": ...} reference for subscriptions.
	Body map[string]any

	// ConnectionID names the originating client connection. Required for
	// subscription operations, informational for writes.
	ConnectionID string

	// Metadata is opaque caller context echoed into notifications' volatile
	// data by transport layers. The service never interprets it.
	Metadata map[string]any
}

// NewRequest builds a request with a fresh id.
func NewRequest(collection string, body map[string]any) *Request {
	return &Request{
		ID:         uuid.NewString(),
		Collection: collection,
		Body:       body,
	}
}

func (r *Request) ensureID() {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
}

// requireBody rejects requests whose payload is absent or empty.
func (r *Request) requireBody() error {
	if len(r.Body) == 0 {
		return fmt.Errorf("%w: request body is empty", ErrValidation)
	}
	return nil
}

// roomIDRef extracts an explicit room reference from the body, if present.
func (r *Request) roomIDRef() (string, bool) {
	if r.Body == nil {
		return "", false
	}
	id, ok := r.Body["roomId"].(string)
	return id, ok && id != ""
}

// EventKind names a lifecycle hook emitted by the service.
type EventKind string

// Pre-action events for write operations. Each fires after validation and
// before the write is enqueued; subscribers receive the live request.
const (
	EventDataCreate           EventKind = "data:create"
	EventDataCreateOrReplace  EventKind = "data:createOrReplace"
	EventDataUpdate           EventKind = "data:update"
	EventDataReplace          EventKind = "data:replace"
	EventDataDelete           EventKind = "data:delete"
	EventDataDeleteByQuery    EventKind = "data:deleteByQuery"
	EventDataPublish          EventKind = "data:publish"
	EventDataCreateCollection EventKind = "data:createCollection"
)

// Subscription lifecycle events.
const (
	EventSubscribeOn  EventKind = "subscribe:on"
	EventSubscribeOff EventKind = "subscribe:off"
)

// Bus is the hook bus requests are announced on.
type Bus = events.Bus[EventKind, *Request]

// NewBus creates a hook bus with panic isolation suited for untrusted hook
// code.
func NewBus() *Bus {
	return events.New[EventKind, *Request]()
}

var errNilRequest = errors.New("realtime: nil request")
