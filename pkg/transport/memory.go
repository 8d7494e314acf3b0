package transport

import (
	"context"
	"sync"
)

// DefaultBufferSize is the per-connection mailbox capacity used when none is
// configured.
const DefaultBufferSize = 64

// Memory is an in-process session hub. Each connection owns a buffered
// mailbox channel; room membership is tracked so tests and single-node
// deployments can introspect it.
type Memory struct {
	mu         sync.RWMutex
	conns      map[string]*Conn
	rooms      map[string]map[string]struct{}
	bufferSize int
}

// Conn is one connected client registered with the Memory hub.
type Conn struct {
	id       string
	mu       sync.RWMutex
	messages chan []byte
	closed   bool
}

// ID returns the connection identifier.
func (c *Conn) ID() string { return c.id }

// Messages returns the connection's mailbox. The channel is closed when the
// connection disconnects.
func (c *Conn) Messages() <-chan []byte { return c.messages }

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.messages)
	}
}

// send delivers without blocking; the lock serializes against close so the
// mailbox channel is never written after it is closed.
func (c *Conn) send(payload []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrConnectionClosed{ID: c.id}
	}
	select {
	case c.messages <- payload:
		return nil
	default:
		return ErrSlowConsumer{ID: c.id}
	}
}

// NewMemory creates an empty hub. A non-positive bufferSize falls back to
// DefaultBufferSize.
func NewMemory(bufferSize int) *Memory {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Memory{
		conns:      make(map[string]*Conn),
		rooms:      make(map[string]map[string]struct{}),
		bufferSize: bufferSize,
	}
}

// Connect registers a connection and returns its mailbox handle. Connecting
// an id that is already connected returns the existing handle.
func (m *Memory) Connect(connectionID string) *Conn {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conn, ok := m.conns[connectionID]; ok {
		return conn
	}
	conn := &Conn{
		id:       connectionID,
		messages: make(chan []byte, m.bufferSize),
	}
	m.conns[connectionID] = conn
	return conn
}

// Disconnect closes a connection's mailbox and removes it from every room.
func (m *Memory) Disconnect(connectionID string) {
	m.mu.Lock()
	conn, ok := m.conns[connectionID]
	if ok {
		delete(m.conns, connectionID)
		for roomID, members := range m.rooms {
			delete(members, connectionID)
			if len(members) == 0 {
				delete(m.rooms, roomID)
			}
		}
	}
	m.mu.Unlock()

	if ok {
		conn.close()
	}
}

// Join implements Transport.
func (m *Memory) Join(_ context.Context, connectionID, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conns[connectionID]; !ok {
		return ErrConnectionNotFound{ID: connectionID}
	}
	members, ok := m.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		m.rooms[roomID] = members
	}
	members[connectionID] = struct{}{}
	return nil
}

// Leave implements Transport. Leaving a room the connection is not in is a
// no-op.
func (m *Memory) Leave(_ context.Context, connectionID, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if members, ok := m.rooms[roomID]; ok {
		delete(members, connectionID)
		if len(members) == 0 {
			delete(m.rooms, roomID)
		}
	}
	return nil
}

// Send implements Transport. The payload is delivered to the connection's
// mailbox without blocking; a full mailbox drops the payload for that
// recipient and reports ErrSlowConsumer.
func (m *Memory) Send(_ context.Context, connectionID string, payload []byte) error {
	m.mu.RLock()
	conn, ok := m.conns[connectionID]
	m.mu.RUnlock()

	if !ok {
		return ErrConnectionNotFound{ID: connectionID}
	}
	return conn.send(payload)
}

// Members returns the connections currently joined to a room.
func (m *Memory) Members(roomID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	members := make([]string, 0, len(m.rooms[roomID]))
	for id := range m.rooms[roomID] {
		members = append(members, id)
	}
	return members
}
