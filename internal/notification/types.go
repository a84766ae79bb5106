package notification

import "time"

// Status is the delivery state of a message.
// It only ever moves from StatusPending to StatusDelivered.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusDelivered
}

// Message is a queued notification as stored.
//
// SendTime is nil exactly while Status is StatusPending.
type Message struct {
	ID         int64      `json:"id"`
	DeviceID   string     `json:"device_id"`
	Type       string     `json:"type"`
	Payload    string     `json:"payload"`
	Status     Status     `json:"status"`
	CreateTime time.Time  `json:"create_time"`
	SendTime   *time.Time `json:"send_time,omitempty"`
}

// Delivery is the device-facing view of a claimed message: type and
// payload only.
type Delivery struct {
	Type    string `json:"type"`
	Payload string `json:"payload"`
}

// PurgeResult describes one purge sweep.
type PurgeResult struct {
	PendingDeleted   int64
	DeliveredDeleted int64

	// Cutoffs are inclusive: a pending message created at or before
	// PendingCutoff was deleted, likewise for delivered messages and
	// their send time.
	PendingCutoff   time.Time
	DeliveredCutoff time.Time
}

// Total returns the number of deleted messages.
func (r PurgeResult) Total() int64 {
	return r.PendingDeleted + r.DeliveredDeleted
}

// Stats is a snapshot of the queue.
type Stats struct {
	Pending   int64 `json:"pending"`
	Delivered int64 `json:"delivered"`

	// OldestPending is the create time of the oldest unclaimed message,
	// nil when nothing is pending.
	OldestPending *time.Time `json:"oldest_pending,omitempty"`
}

// toMillis and fromMillis convert between time.Time and the epoch
// milliseconds stored in the database.
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
