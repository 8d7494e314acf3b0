package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/rtkit/pkg/filters"
	"github.com/dmitrymomot/rtkit/pkg/indexcache"
	"github.com/dmitrymomot/rtkit/pkg/storage"
	"github.com/dmitrymomot/rtkit/pkg/writer"
)

// Router turns validated write and publish requests into storage tasks and
// notifications. Every operation follows the same shape: validate, announce
// the pre-action hook with the live request, persist (except publish),
// notify matching rooms only on success.
type Router struct {
	queue      *writer.Queue
	notifier   *Notifier
	indexCache *indexcache.Cache
	bus        *Bus
	log        *slog.Logger
}

// NewRouter wires a router over the write queue, notifier, index cache and
// hook bus. A nil logger falls back to slog.Default.
func NewRouter(queue *writer.Queue, notifier *Notifier, indexCache *indexcache.Cache, bus *Bus, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		queue:      queue,
		notifier:   notifier,
		indexCache: indexCache,
		bus:        bus,
		log:        log,
	}
}

type operation struct {
	event       EventKind
	action      string
	requireBody bool
	// trackIndex registers the collection with the index cache on success.
	trackIndex bool
}

var operations = map[storage.Operation]operation{
	storage.OpCreate:           {event: EventDataCreate, action: ActionCreate, requireBody: true},
	storage.OpCreateOrReplace:  {event: EventDataCreateOrReplace, action: ActionCreateOrReplace, requireBody: true, trackIndex: true},
	storage.OpUpdate:           {event: EventDataUpdate, action: ActionUpdate, requireBody: true},
	storage.OpReplace:          {event: EventDataReplace, action: ActionReplace, requireBody: true},
	storage.OpDelete:           {event: EventDataDelete, action: ActionDelete, requireBody: true},
	storage.OpDeleteByQuery:    {event: EventDataDeleteByQuery, action: ActionDeleteByQuery, requireBody: true},
	storage.OpCreateCollection: {event: EventDataCreateCollection, action: ActionCreateCollection, trackIndex: true},
}

// Create persists a new document and notifies matching rooms.
func (r *Router) Create(ctx context.Context, req *Request) (*Response, error) {
	return r.persist(ctx, req, storage.OpCreate)
}

// CreateOrReplace upserts a document, registers its collection with the
// index cache and notifies matching rooms.
func (r *Router) CreateOrReplace(ctx context.Context, req *Request) (*Response, error) {
	return r.persist(ctx, req, storage.OpCreateOrReplace)
}

// Update applies a partial update and notifies matching rooms.
func (r *Router) Update(ctx context.Context, req *Request) (*Response, error) {
	return r.persist(ctx, req, storage.OpUpdate)
}

// Replace overwrites an existing document and notifies matching rooms.
func (r *Router) Replace(ctx context.Context, req *Request) (*Response, error) {
	return r.persist(ctx, req, storage.OpReplace)
}

// Delete removes a document and notifies matching rooms.
func (r *Router) Delete(ctx context.Context, req *Request) (*Response, error) {
	return r.persist(ctx, req, storage.OpDelete)
}

// DeleteByQuery removes every document matching the body query and notifies
// matching rooms.
func (r *Router) DeleteByQuery(ctx context.Context, req *Request) (*Response, error) {
	return r.persist(ctx, req, storage.OpDeleteByQuery)
}

// CreateCollection creates the collection, registers it with the index
// cache and notifies matching rooms. Idempotent.
func (r *Router) CreateCollection(ctx context.Context, req *Request) (*Response, error) {
	return r.persist(ctx, req, storage.OpCreateCollection)
}

// Apply dispatches a persistence operation by name.
func (r *Router) Apply(ctx context.Context, op storage.Operation, req *Request) (*Response, error) {
	if _, known := operations[op]; !known {
		return nil, fmt.Errorf("%w: unknown operation %q", ErrValidation, op)
	}
	return r.persist(ctx, req, op)
}

// Publish delivers the body as a volatile document event. Nothing is
// persisted; the response carries only the notified-room count.
func (r *Router) Publish(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errNilRequest
	}
	req.ensureID()
	if err := req.requireBody(); err != nil {
		return errorResponse(req, ActionPublish, err), err
	}

	r.bus.Emit(EventDataPublish, req)
	rooms := r.notifier.NotifyDocumentEvent(ctx, req.Collection, req.Body, ActionPublish, 1)
	return newResponse(req, ActionPublish, storage.Result{Collection: req.Collection}, len(rooms)), nil
}

func (r *Router) persist(ctx context.Context, req *Request, op storage.Operation) (*Response, error) {
	if req == nil {
		return nil, errNilRequest
	}
	spec := operations[op]
	req.ensureID()
	if spec.requireBody {
		if err := req.requireBody(); err != nil {
			return errorResponse(req, spec.action, err), err
		}
	}

	r.bus.Emit(spec.event, req)

	res, err := r.queue.Enqueue(ctx, writer.Task{
		Op:         op,
		Collection: req.Collection,
		Document:   req.Body,
	}).Await()
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrStorage, err)
		return errorResponse(req, spec.action, err), err
	}

	if spec.trackIndex && r.indexCache != nil {
		r.indexCache.Add(req.Collection)
	}

	rooms := r.notifier.NotifyDocumentEvent(ctx, req.Collection, r.matchable(req, res), spec.action, res.Count)
	return newResponse(req, spec.action, res, len(rooms)), nil
}

// matchable picks the document to run filters against: the stored document
// when the engine returns one, otherwise the request body. Deletions have
// no stored form, so the body describes what disappeared.
func (r *Router) matchable(req *Request, res storage.Result) filters.Document {
	if res.Document != nil {
		return res.Document
	}
	return req.Body
}
