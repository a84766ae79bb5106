package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-notify/internal/device"
)

// Logger defines the logging interface used by the notification package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Notifier is told after a message has been committed so a connected
// device can poll early. It never carries the payload.
type Notifier interface {
	NotifyPending(ctx context.Context, deviceID, messageType string) error
}

// MetricsWriter receives queue metrics. influxdb.Client satisfies it.
type MetricsWriter interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]any)
}

// Metric names written by the service.
const (
	measurementQueue = "notification_queue"
	measurementPurge = "notification_purge"
)

// ServiceConfig holds the collaborators of a Service.
type ServiceConfig struct {
	// Repository is the message store. Required.
	Repository Repository

	// Resolver maps device targets (id, number, legacy number) to device
	// IDs. Required.
	Resolver device.Resolver

	// Policy gates message types. Default: AllowAll.
	Policy TypePolicy

	// Notifier is the optional enqueue doorbell.
	Notifier Notifier

	// Metrics is the optional metrics sink.
	Metrics MetricsWriter

	// Now is the clock. Default: time.Now.
	Now func() time.Time
}

// Service implements the producer-facing, device-facing and maintenance
// operations of the queue: Send, ClaimPending, Status, Message and Purge.
//
// Store operations run detached from the caller's cancellation: once
// started, an enqueue, claim or purge finishes (bounded by the database
// lock timeout) even if the caller gives up, so the store never holds a
// half-applied operation. A caller that times out must assume the
// operation may have completed.
//
// All methods are safe for concurrent use.
type Service struct {
	repo     Repository
	resolver device.Resolver
	policy   TypePolicy
	notifier Notifier
	metrics  MetricsWriter
	now      func() time.Time

	logger   Logger
	loggerMu sync.RWMutex
}

// NewService creates a Service. It panics if Repository or Resolver is nil,
// which is a wiring bug.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Repository == nil || cfg.Resolver == nil {
		panic("notification: NewService requires Repository and Resolver")
	}
	s := &Service{
		repo:     cfg.Repository,
		resolver: cfg.Resolver,
		policy:   cfg.Policy,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		now:      cfg.Now,
		logger:   noopLogger{},
	}
	if s.policy == nil {
		s.policy = AllowAll{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

func (s *Service) log() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

// Send enqueues a message for the device addressed by target and returns
// its id. The payload is stored as given.
//
// Errors: device.ErrDeviceNotFound for an unknown target, ErrTypeDisabled
// when the policy refuses messageType, ErrStoreUnavailable when the alias
// lookup or the insert failed (nothing was stored).
func (s *Service) Send(ctx context.Context, target, messageType, payload string) (int64, error) {
	if messageType == "" {
		return 0, fmt.Errorf("%w: type is required", ErrInvalidMessage)
	}
	if !s.policy.Allowed(messageType) {
		return 0, fmt.Errorf("%w: %q", ErrTypeDisabled, messageType)
	}

	deviceID, err := s.resolve(ctx, target)
	if err != nil {
		return 0, err
	}

	m := &Message{
		DeviceID:   deviceID,
		Type:       messageType,
		Payload:    payload,
		CreateTime: s.now(),
	}
	if err := s.repo.Insert(context.WithoutCancel(ctx), m); err != nil {
		s.log().Error("enqueue failed", "device_id", deviceID, "type", messageType, "error", err)
		return 0, err
	}

	s.log().Debug("message enqueued", "id", m.ID, "device_id", deviceID, "type", messageType)
	s.writeMetric(measurementQueue,
		map[string]string{"event": "enqueued", "type": messageType},
		map[string]any{"count": 1})

	if s.notifier != nil {
		if err := s.notifier.NotifyPending(ctx, deviceID, messageType); err != nil {
			s.log().Warn("pending notification failed", "device_id", deviceID, "error", err)
		}
	}

	return m.ID, nil
}

// resolve maps target to a device ID. Any failure other than an unknown
// device is a storage failure of the alias store.
func (s *Service) resolve(ctx context.Context, target string) (string, error) {
	deviceID, err := s.resolver.Resolve(context.WithoutCancel(ctx), target)
	if err == nil {
		return deviceID, nil
	}
	if errors.Is(err, device.ErrDeviceNotFound) {
		return "", err
	}
	s.log().Error("device resolution failed", "target", target, "error", err)
	return "", storeErr("resolving device", err)
}

// ClaimPending atomically takes every pending message for the device
// addressed by target, oldest first, and marks them delivered. The result
// is empty (not nil) when nothing is pending.
//
// Messages whose type is disabled by the policy are left pending.
func (s *Service) ClaimPending(ctx context.Context, target string) ([]Delivery, error) {
	deviceID, err := s.resolve(ctx, target)
	if err != nil {
		return nil, err
	}

	deliveries, err := s.repo.ClaimPending(context.WithoutCancel(ctx), deviceID, s.now(), s.policy.Allowed)
	if err != nil {
		s.log().Error("claim failed", "device_id", deviceID, "target", target, "error", err)
		return nil, err
	}

	if len(deliveries) > 0 {
		s.log().Debug("messages claimed", "device_id", deviceID, "target", target, "count", len(deliveries))
		s.writeMetric(measurementQueue,
			map[string]string{"event": "claimed"},
			map[string]any{"count": len(deliveries)})
	}
	return deliveries, nil
}

// Status reports the delivery status of message id. found is false when
// the message does not exist (never created or already purged); err is
// set only for storage failures.
func (s *Service) Status(ctx context.Context, id int64) (status Status, found bool, err error) {
	status, err = s.repo.GetStatus(ctx, id)
	if errors.Is(err, ErrMessageNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return status, true, nil
}

// Message returns the full stored record, or ErrMessageNotFound.
func (s *Service) Message(ctx context.Context, id int64) (*Message, error) {
	return s.repo.Get(ctx, id)
}

// Stats returns counts by status.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx)
}

// Purge deletes pending messages at least pendingTTL old and delivered
// messages whose claim is at least deliveredTTL old. A TTL of zero expires
// everything in that state; a negative TTL is rejected with ErrInvalidTTL.
//
// Purge is idempotent and safe to run concurrently with itself, with
// claims and with enqueues.
func (s *Service) Purge(ctx context.Context, pendingTTL, deliveredTTL time.Duration) (PurgeResult, error) {
	if pendingTTL < 0 || deliveredTTL < 0 {
		return PurgeResult{}, fmt.Errorf("%w: pending %v, delivered %v", ErrInvalidTTL, pendingTTL, deliveredTTL)
	}

	now := s.now()
	started := time.Now()
	result, err := s.repo.Purge(context.WithoutCancel(ctx), now.Add(-pendingTTL), now.Add(-deliveredTTL))
	if err != nil {
		return result, err
	}

	s.writeMetric(measurementPurge, nil, map[string]any{
		"pending_deleted":   result.PendingDeleted,
		"delivered_deleted": result.DeliveredDeleted,
		"duration_ms":       time.Since(started).Milliseconds(),
	})
	return result, nil
}

func (s *Service) writeMetric(measurement string, tags map[string]string, fields map[string]any) {
	if s.metrics == nil {
		return
	}
	s.metrics.WritePoint(measurement, tags, fields)
}
