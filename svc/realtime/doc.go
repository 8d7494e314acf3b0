// Package realtime implements the content-based publish/subscribe core of
// the backend: the room registry binding connections to filters, the
// notifier fanning events out to subscribers, and the write/publish router
// orchestrating persistence, matching and notification.
//
// Clients subscribe with a declarative filter over a collection's documents.
// Semantically identical filters resolve to the same room; a room lives
// exactly as long as it has subscribers. When a document is created,
// updated, deleted or published, the matcher determines which rooms match
// and only their subscribers are notified.
//
//	svc := realtime.New(engine, hub)
//	defer svc.Close()
//
//	sub, err := svc.Subscribe(ctx, &realtime.Request{
//		Collection:   "users",
//		Body:         map[string]any{"term": map[string]any{"firstName": "Ada"}},
//		ConnectionID: "conn-1",
//	})
//
//	resp, err := svc.Create(ctx, &realtime.Request{
//		Collection: "users",
//		Body:       map[string]any{"firstName": "Ada"},
//	})
//
// The subscription registry is in-memory and process-scoped; durability and
// cross-node delivery belong to the storage and transport collaborators.
package realtime
