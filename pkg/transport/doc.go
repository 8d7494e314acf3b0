// Package transport abstracts the session layer that delivers realtime
// notifications to connected clients.
//
// The realtime engine only needs three operations: join a connection into a
// room, remove it, and send an opaque payload to a single connection. Two
// implementations are provided:
//
//   - Memory: an in-process hub with per-connection buffered mailboxes,
//     suitable for single-node deployments and tests. Slow consumers are
//     reported as delivery errors instead of blocking the sender.
//   - Redis: publishes payloads to per-connection Pub/Sub channels and
//     mirrors room membership in Redis sets, so delivery works across nodes
//     while the subscription registry stays node-local.
//
// Delivery failures are per-recipient: the notifier logs them and continues
// with the remaining recipients.
package transport
