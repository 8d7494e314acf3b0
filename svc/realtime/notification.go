package realtime

import "errors"

// Notification actions, published verbatim to subscribers.
const (
	// ActionOn announces a new subscriber joining a room.
	ActionOn = "on"
	// ActionOff announces a subscriber leaving a room.
	ActionOff = "off"

	ActionCreate           = "create"
	ActionCreateOrReplace  = "createOrReplace"
	ActionUpdate           = "update"
	ActionReplace          = "replace"
	ActionDelete           = "delete"
	ActionDeleteByQuery    = "deleteByQuery"
	ActionPublish          = "publish"
	ActionCreateCollection = "createCollection"
)

// NotificationResult is the data half of a notification payload.
type NotificationResult struct {
	// RoomID names the room the notification concerns.
	RoomID string `json:"roomId"`
	// Count is the room's subscriber count for membership events, or the
	// number of documents affected for document events.
	Count int64 `json:"count"`
	// Action tells subscribers what happened.
	Action string `json:"action"`
	// Collection scopes the event.
	Collection string `json:"collection"`
}

// Notification is the wire payload delivered to every subscriber of a
// matching room. Error is null on the happy path so clients can branch on
// it uniformly.
type Notification struct {
	Error  *ErrorDescriptor   `json:"error"`
	Result NotificationResult `json:"result"`
}

// ErrorDescriptor is the serializable form of a service error.
type ErrorDescriptor struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// describeError maps a service error to its wire descriptor.
func describeError(err error) *ErrorDescriptor {
	if err == nil {
		return nil
	}
	code := "internal_error"
	switch {
	case errors.Is(err, ErrValidation):
		code = "validation_error"
	case errors.Is(err, ErrMatcher):
		code = "matcher_error"
	case errors.Is(err, ErrNotFound):
		code = "not_found"
	case errors.Is(err, ErrStorage):
		code = "storage_error"
	}
	return &ErrorDescriptor{Message: err.Error(), Code: code}
}

// membershipNotification builds an "on"/"off" payload for a room whose
// subscriber count just changed.
func membershipNotification(roomID, collection, action string, count int) Notification {
	return Notification{
		Result: NotificationResult{
			RoomID:     roomID,
			Count:      int64(count),
			Action:     action,
			Collection: collection,
		},
	}
}

// documentNotification builds the payload for a document event that matched
// a room.
func documentNotification(roomID, collection, action string, count int64) Notification {
	return Notification{
		Result: NotificationResult{
			RoomID:     roomID,
			Count:      count,
			Action:     action,
			Collection: collection,
		},
	}
}
