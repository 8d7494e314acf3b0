package transport

import "context"

// Transport is the narrow session-layer interface the realtime engine
// depends on. Implementations must be safe for concurrent use.
type Transport interface {
	// Join binds a connection to a room on the session layer.
	Join(ctx context.Context, connectionID, roomID string) error

	// Leave removes a connection from a room on the session layer.
	Leave(ctx context.Context, connectionID, roomID string) error

	// Send delivers an opaque payload to a single connection. A failure
	// concerns that recipient only.
	Send(ctx context.Context, connectionID string, payload []byte) error
}
