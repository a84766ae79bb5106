package devicelink

import (
	"time"

	"github.com/nerrad567/gray-logic-notify/internal/notification"
)

// PollRequest is published by a device to claim its messages.
// Topic: graylogic/notify/poll/{target}
//
// The payload may be empty; the link then generates a request ID.
type PollRequest struct {
	// RequestID is echoed in the response for correlation.
	RequestID string `json:"request_id,omitempty"`
}

// DeliveryResponse carries the outcome of a poll.
// Topic: graylogic/notify/delivery/{target}
type DeliveryResponse struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`

	// Messages are the claimed messages, oldest first. Once published they
	// are delivered as far as the queue is concerned.
	Messages []notification.Delivery `json:"messages"`
	Count    int                     `json:"count"`

	Error *ResponseError `json:"error,omitempty"`
}

// ResponseError describes a failed poll.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes in ResponseError.Code.
const (
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeDeviceNotFound   = "device_not_found"
	ErrCodeStoreUnavailable = "store_unavailable"
	ErrCodeInternal         = "internal_error"
)

// PendingNotice tells a device that it has messages waiting.
// Topic: graylogic/notify/pending/{device_id}
//
// It carries no payload; the device still has to poll.
type PendingNotice struct {
	DeviceID    string    `json:"device_id"`
	MessageType string    `json:"message_type"`
	Timestamp   time.Time `json:"timestamp"`
}
