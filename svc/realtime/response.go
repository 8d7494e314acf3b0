package realtime

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/rtkit/pkg/storage"
)

// Response is the envelope returned to the caller of a write or publish
// operation.
type Response struct {
	RequestID  string           `json:"requestId,omitempty"`
	Status     int              `json:"status"`
	Action     string           `json:"action"`
	Collection string           `json:"collection"`
	Error      *ErrorDescriptor `json:"error"`

	// Result holds the storage outcome for persistence operations. Zero for
	// publish, which writes nothing.
	Result storage.Result `json:"result"`

	// NotifiedRooms is the number of rooms whose subscribers received a
	// notification for this operation.
	NotifiedRooms int `json:"notifiedRoomCount"`
}

func newResponse(req *Request, action string, res storage.Result, notified int) *Response {
	return &Response{
		RequestID:     req.ID,
		Status:        http.StatusOK,
		Action:        action,
		Collection:    req.Collection,
		Result:        res,
		NotifiedRooms: notified,
	}
}

// errorResponse wraps a failure in the response envelope. Callers get both
// the Go error and, when they need to forward it, the serializable form.
func errorResponse(req *Request, action string, err error) *Response {
	return &Response{
		RequestID:  req.ID,
		Status:     statusFromError(err),
		Action:     action,
		Collection: req.Collection,
		Error:      describeError(err),
	}
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrMatcher):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
