package transport_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rtkit/pkg/transport"
)

func TestMemory_SendAndReceive(t *testing.T) {
	t.Parallel()

	hub := transport.NewMemory(4)
	ctx := context.Background()

	conn := hub.Connect("c1")
	require.NoError(t, hub.Send(ctx, "c1", []byte("hello")))

	msg := <-conn.Messages()
	assert.Equal(t, "hello", string(msg))
}

func TestMemory_SendToUnknownConnection(t *testing.T) {
	t.Parallel()

	hub := transport.NewMemory(4)
	err := hub.Send(context.Background(), "ghost", []byte("x"))

	var notFound transport.ErrConnectionNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.ID)
}

func TestMemory_SlowConsumerDrops(t *testing.T) {
	t.Parallel()

	hub := transport.NewMemory(1)
	ctx := context.Background()
	hub.Connect("c1")

	require.NoError(t, hub.Send(ctx, "c1", []byte("first")))
	err := hub.Send(ctx, "c1", []byte("second"))

	var slow transport.ErrSlowConsumer
	assert.ErrorAs(t, err, &slow)
}

func TestMemory_JoinLeave(t *testing.T) {
	t.Parallel()

	hub := transport.NewMemory(4)
	ctx := context.Background()
	hub.Connect("c1")
	hub.Connect("c2")

	require.NoError(t, hub.Join(ctx, "c1", "room"))
	require.NoError(t, hub.Join(ctx, "c2", "room"))
	assert.ElementsMatch(t, []string{"c1", "c2"}, hub.Members("room"))

	require.NoError(t, hub.Leave(ctx, "c1", "room"))
	assert.Equal(t, []string{"c2"}, hub.Members("room"))

	// Leaving a room you are not in is a no-op.
	require.NoError(t, hub.Leave(ctx, "c1", "room"))
}

func TestMemory_JoinUnknownConnection(t *testing.T) {
	t.Parallel()

	hub := transport.NewMemory(4)
	err := hub.Join(context.Background(), "ghost", "room")

	var notFound transport.ErrConnectionNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestMemory_Disconnect(t *testing.T) {
	t.Parallel()

	hub := transport.NewMemory(4)
	ctx := context.Background()
	conn := hub.Connect("c1")
	require.NoError(t, hub.Join(ctx, "c1", "room"))

	hub.Disconnect("c1")

	_, open := <-conn.Messages()
	assert.False(t, open)
	assert.Empty(t, hub.Members("room"))

	var closedOrGone error = hub.Send(ctx, "c1", []byte("x"))
	assert.Error(t, closedOrGone)
}

func TestMemory_ConnectIsIdempotent(t *testing.T) {
	t.Parallel()

	hub := transport.NewMemory(4)
	first := hub.Connect("c1")
	second := hub.Connect("c1")
	assert.Same(t, first, second)
}

func TestMemory_ConcurrentSendAndDisconnect(t *testing.T) {
	t.Parallel()

	hub := transport.NewMemory(8)
	ctx := context.Background()
	hub.Connect("c1")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 200 {
			_ = hub.Send(ctx, "c1", []byte("x"))
		}
	}()
	go func() {
		defer wg.Done()
		hub.Disconnect("c1")
	}()
	wg.Wait()
}
