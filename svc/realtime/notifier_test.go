package realtime_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rtkit/pkg/filters"
	"github.com/dmitrymomot/rtkit/svc/realtime"
)

// captureHub records sends and can be told to fail for chosen connections.
type captureHub struct {
	mu    sync.Mutex
	sends map[string][][]byte
	fail  map[string]error
}

func newCaptureHub() *captureHub {
	return &captureHub{sends: make(map[string][][]byte), fail: make(map[string]error)}
}

func (h *captureHub) Join(context.Context, string, string) error  { return nil }
func (h *captureHub) Leave(context.Context, string, string) error { return nil }

func (h *captureHub) Send(_ context.Context, connectionID string, payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail[connectionID]; err != nil {
		return err
	}
	h.sends[connectionID] = append(h.sends[connectionID], payload)
	return nil
}

func (h *captureHub) sent(connectionID string) [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sends[connectionID]
}

// staticRooms is a fixed room membership table.
type staticRooms map[string][]string

func (s staticRooms) Members(roomID string) []string { return s[roomID] }

func decodeNotification(t *testing.T, payload []byte) realtime.Notification {
	t.Helper()
	var n realtime.Notification
	require.NoError(t, json.Unmarshal(payload, &n))
	return n
}

func TestNotifier_NotifyRoom(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("delivers to every subscriber", func(t *testing.T) {
		t.Parallel()
		hub := newCaptureHub()
		n := realtime.NewNotifier(hub, staticRooms{"r1": {"c1", "c2", "c3"}}, filters.NewMatcher(), nil, 0)

		note := realtime.Notification{Result: realtime.NotificationResult{
			RoomID: "r1", Count: 3, Action: realtime.ActionOn, Collection: "users",
		}}
		delivered := n.NotifyRoom(ctx, "r1", note)
		assert.Equal(t, 3, delivered)

		for _, id := range []string{"c1", "c2", "c3"} {
			msgs := hub.sent(id)
			require.Len(t, msgs, 1, "connection %s", id)
			got := decodeNotification(t, msgs[0])
			assert.Nil(t, got.Error)
			assert.Equal(t, "r1", got.Result.RoomID)
			assert.EqualValues(t, 3, got.Result.Count)
			assert.Equal(t, realtime.ActionOn, got.Result.Action)
			assert.Equal(t, "users", got.Result.Collection)
		}
	})

	t.Run("excluded connections are skipped", func(t *testing.T) {
		t.Parallel()
		hub := newCaptureHub()
		n := realtime.NewNotifier(hub, staticRooms{"r1": {"c1", "c2"}}, filters.NewMatcher(), nil, 0)

		delivered := n.NotifyRoom(ctx, "r1", realtime.Notification{}, "c1")
		assert.Equal(t, 1, delivered)
		assert.Empty(t, hub.sent("c1"))
		assert.Len(t, hub.sent("c2"), 1)
	})

	t.Run("one failed delivery does not block the rest", func(t *testing.T) {
		t.Parallel()
		hub := newCaptureHub()
		hub.fail["c2"] = assert.AnError
		n := realtime.NewNotifier(hub, staticRooms{"r1": {"c1", "c2", "c3"}}, filters.NewMatcher(), nil, 0)

		delivered := n.NotifyRoom(ctx, "r1", realtime.Notification{})
		assert.Equal(t, 3, delivered)
		assert.Len(t, hub.sent("c1"), 1)
		assert.Empty(t, hub.sent("c2"))
		assert.Len(t, hub.sent("c3"), 1)
	})

	t.Run("unknown room delivers nothing", func(t *testing.T) {
		t.Parallel()
		hub := newCaptureHub()
		n := realtime.NewNotifier(hub, staticRooms{}, filters.NewMatcher(), nil, 0)
		assert.Equal(t, 0, n.NotifyRoom(ctx, "ghost", realtime.Notification{}))
	})
}

func TestNotifier_NotifyDocumentEvent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	matcher := filters.NewMatcher()
	adaExpr, err := filters.Parse(map[string]any{"term": map[string]any{"name": "Ada"}})
	require.NoError(t, err)
	adaRoom, err := matcher.Register("users", adaExpr)
	require.NoError(t, err)
	graceExpr, err := filters.Parse(map[string]any{"term": map[string]any{"name": "Grace"}})
	require.NoError(t, err)
	graceRoom, err := matcher.Register("users", graceExpr)
	require.NoError(t, err)

	hub := newCaptureHub()
	rooms := staticRooms{adaRoom: {"ada-fan"}, graceRoom: {"grace-fan"}}
	n := realtime.NewNotifier(hub, rooms, matcher, nil, 0)

	t.Run("only matching rooms are notified", func(t *testing.T) {
		notified := n.NotifyDocumentEvent(ctx, "users", filters.Document{"name": "Ada"}, realtime.ActionCreate, 1)
		assert.Equal(t, []string{adaRoom}, notified)

		msgs := hub.sent("ada-fan")
		require.Len(t, msgs, 1)
		got := decodeNotification(t, msgs[0])
		assert.Equal(t, realtime.ActionCreate, got.Result.Action)
		assert.Equal(t, adaRoom, got.Result.RoomID)
		assert.EqualValues(t, 1, got.Result.Count)
		assert.Empty(t, hub.sent("grace-fan"))
	})

	t.Run("zero matches means zero deliveries", func(t *testing.T) {
		notified := n.NotifyDocumentEvent(ctx, "users", filters.Document{"name": "Alan"}, realtime.ActionCreate, 1)
		assert.Empty(t, notified)
	})

	t.Run("other collections never match", func(t *testing.T) {
		notified := n.NotifyDocumentEvent(ctx, "archive", filters.Document{"name": "Ada"}, realtime.ActionCreate, 1)
		assert.Empty(t, notified)
	})
}
