package transport

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	redisconn "github.com/dmitrymomot/rtkit/pkg/redis"
)

const (
	connChannelPrefix = "rtkit:conn:"
	roomSetPrefix     = "rtkit:room:"
)

// Redis delivers payloads through Redis Pub/Sub, one channel per connection,
// and mirrors room membership in Redis sets. It lets a gateway node bridge
// its local websocket sessions to notifications produced on any node.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis wraps an already-connected client.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// ConnectRedis dials the server described by cfg with retry and wraps the
// resulting client.
func ConnectRedis(ctx context.Context, cfg redisconn.Config) (*Redis, error) {
	client, err := redisconn.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewRedis(client), nil
}

// ConnChannel returns the Pub/Sub channel name payloads for a connection are
// published to. Gateways subscribe to it to bridge delivery to the socket.
func ConnChannel(connectionID string) string {
	return connChannelPrefix + connectionID
}

// RoomSet returns the Redis key of the set mirroring a room's members.
func RoomSet(roomID string) string {
	return roomSetPrefix + roomID
}

// Join implements Transport.
func (r *Redis) Join(ctx context.Context, connectionID, roomID string) error {
	if err := r.client.SAdd(ctx, RoomSet(roomID), connectionID).Err(); err != nil {
		return fmt.Errorf("transport: join room %s: %w", roomID, err)
	}
	return nil
}

// Leave implements Transport. Redis drops the set automatically once its
// last member is removed.
func (r *Redis) Leave(ctx context.Context, connectionID, roomID string) error {
	if err := r.client.SRem(ctx, RoomSet(roomID), connectionID).Err(); err != nil {
		return fmt.Errorf("transport: leave room %s: %w", roomID, err)
	}
	return nil
}

// Send implements Transport by publishing the payload to the connection's
// channel. A publish with zero receivers is not an error: the gateway holding
// the socket may be draining or the client already gone, which per-recipient
// failure isolation tolerates.
func (r *Redis) Send(ctx context.Context, connectionID string, payload []byte) error {
	if err := r.client.Publish(ctx, ConnChannel(connectionID), payload).Err(); err != nil {
		return fmt.Errorf("transport: send to connection %s: %w", connectionID, err)
	}
	return nil
}

// Listen subscribes to a connection's channel and returns the Pub/Sub handle;
// callers receive payloads via handle.Channel() and must Close it when the
// socket goes away.
func (r *Redis) Listen(ctx context.Context, connectionID string) *redis.PubSub {
	return r.client.Subscribe(ctx, ConnChannel(connectionID))
}
