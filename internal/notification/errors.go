package notification

import "errors"

// Domain errors for the notification package.
//
//	if errors.Is(err, notification.ErrStoreUnavailable) {
//	    // the caller cannot know whether the message was stored; retry
//	}
var (
	// ErrStoreUnavailable wraps every storage failure during enqueue, claim,
	// lookup or purge.
	ErrStoreUnavailable = errors.New("notification: store unavailable")

	// ErrMessageNotFound is returned by the repository when a message id
	// does not exist. Service.Status reports it as found=false instead.
	ErrMessageNotFound = errors.New("notification: message not found")

	// ErrTypeDisabled is returned when the type policy refuses a message type.
	ErrTypeDisabled = errors.New("notification: message type disabled")

	// ErrInvalidTTL is returned for a negative purge TTL.
	ErrInvalidTTL = errors.New("notification: invalid TTL")

	// ErrInvalidMessage is returned when a send request is missing its type.
	ErrInvalidMessage = errors.New("notification: invalid message")
)
