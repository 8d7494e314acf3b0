package transport

import "fmt"

// ErrConnectionNotFound is returned when sending to or joining an unknown
// connection.
type ErrConnectionNotFound struct {
	ID string
}

func (e ErrConnectionNotFound) Error() string {
	return fmt.Sprintf("transport: connection %s not found", e.ID)
}

// ErrSlowConsumer is returned when a connection's mailbox is full and the
// payload was dropped for that recipient.
type ErrSlowConsumer struct {
	ID string
}

func (e ErrSlowConsumer) Error() string {
	return fmt.Sprintf("transport: connection %s is too slow, payload dropped", e.ID)
}

// ErrConnectionClosed is returned when sending to a connection that has
// disconnected.
type ErrConnectionClosed struct {
	ID string
}

func (e ErrConnectionClosed) Error() string {
	return fmt.Sprintf("transport: connection %s is closed", e.ID)
}
