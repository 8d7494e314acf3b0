package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/rtkit/pkg/filters"
	"github.com/dmitrymomot/rtkit/pkg/transport"
)

// DefaultDeliveryConcurrency bounds parallel sends per notification.
const DefaultDeliveryConcurrency = 16

// RecipientSource resolves a room id to its current subscribers.
type RecipientSource interface {
	Members(roomID string) []string
}

// Notifier delivers notifications to room subscribers. A failed delivery to
// one recipient is logged and never blocks or fails delivery to the rest.
type Notifier struct {
	hub         transport.Transport
	recipients  RecipientSource
	matcher     *filters.Matcher
	log         *slog.Logger
	concurrency int
}

// NewNotifier wires a notifier over the transport, registry and matcher.
// A nil logger falls back to slog.Default.
func NewNotifier(hub transport.Transport, recipients RecipientSource, matcher *filters.Matcher, log *slog.Logger, concurrency int) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = DefaultDeliveryConcurrency
	}
	return &Notifier{
		hub:         hub,
		recipients:  recipients,
		matcher:     matcher,
		log:         log,
		concurrency: concurrency,
	}
}

// NotifyRoom sends the notification to every subscriber of the room except
// those listed in exclude. Returns the number of attempted deliveries.
func (n *Notifier) NotifyRoom(ctx context.Context, roomID string, note Notification, exclude ...string) int {
	members := n.recipients.Members(roomID)
	if len(exclude) > 0 {
		members = slices.DeleteFunc(slices.Clone(members), func(id string) bool {
			return slices.Contains(exclude, id)
		})
	}
	if len(members) == 0 {
		return 0
	}

	payload, err := json.Marshal(note)
	if err != nil {
		n.log.ErrorContext(ctx, "notification marshal failed",
			slog.String("room_id", roomID),
			slog.Any("error", err),
		)
		return 0
	}

	g := new(errgroup.Group)
	g.SetLimit(n.concurrency)
	for _, connectionID := range members {
		g.Go(func() error {
			if err := n.hub.Send(ctx, connectionID, payload); err != nil {
				n.log.WarnContext(ctx, "notification delivery failed",
					slog.String("room_id", roomID),
					slog.String("connection_id", connectionID),
					slog.Any("error", err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
	return len(members)
}

// NotifyDocumentEvent matches the document against the collection's
// registered filters and notifies every matching room. Returns the ids of
// the rooms notified; empty when nothing matched.
func (n *Notifier) NotifyDocumentEvent(ctx context.Context, collection string, doc filters.Document, action string, count int64) []string {
	rooms := n.matcher.Test(collection, doc)
	for _, roomID := range rooms {
		n.NotifyRoom(ctx, roomID, documentNotification(roomID, collection, action, count))
	}
	return rooms
}
