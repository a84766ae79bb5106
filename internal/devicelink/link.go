package devicelink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-notify/internal/device"
	"github.com/nerrad567/gray-logic-notify/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-notify/internal/notification"
)

// Broker is the MQTT surface the link needs. *mqtt.Client implements it.
type Broker interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	PublishJSON(topic string, v any, qos byte) error
}

// Claimer claims a device's pending messages. *notification.Service
// implements it.
type Claimer interface {
	ClaimPending(ctx context.Context, target string) ([]notification.Delivery, error)
}

// Logger defines the logging interface used by the link.
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

// Config holds configuration for the link.
type Config struct {
	Broker  Broker
	Claimer Claimer

	// QoS for the poll subscription and every publish.
	QoS byte

	// Now is the clock for message timestamps. Default: time.Now.
	Now func() time.Time
}

// Link is the MQTT endpoint through which devices claim their messages.
// It also implements notification.Notifier, publishing a doorbell on the
// device's pending topic after each enqueue.
type Link struct {
	broker  Broker
	claimer Claimer
	qos     byte
	now     func() time.Time
	topics  mqtt.Topics

	mu      sync.Mutex
	ctx     context.Context
	started bool

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a link. Call Start to subscribe.
func New(cfg Config) *Link {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Link{
		broker:  cfg.Broker,
		claimer: cfg.Claimer,
		qos:     cfg.QoS,
		now:     now,
		ctx:     context.Background(),
		logger:  noopLogger{},
	}
}

// SetClaimer sets the claimer when it could not be supplied to New, as when
// the claimer itself is built with the link as its notifier. Call before
// Start.
func (l *Link) SetClaimer(c Claimer) {
	l.mu.Lock()
	l.claimer = c
	l.mu.Unlock()
}

// SetLogger sets the logger for the link.
func (l *Link) SetLogger(logger Logger) {
	l.loggerMu.Lock()
	l.logger = logger
	l.loggerMu.Unlock()
}

func (l *Link) log() Logger {
	l.loggerMu.RLock()
	defer l.loggerMu.RUnlock()
	return l.logger
}

// Start subscribes to device polls. ctx is passed to claims made on behalf
// of devices.
func (l *Link) Start(ctx context.Context) error {
	l.mu.Lock()
	l.ctx = ctx
	l.mu.Unlock()

	topic := l.topics.AllPolls()
	if err := l.broker.Subscribe(topic, l.qos, l.handlePoll); err != nil {
		return fmt.Errorf("subscribe to polls: %w", err)
	}

	l.mu.Lock()
	l.started = true
	l.mu.Unlock()

	l.log().Info("device link started", "topic", topic, "qos", l.qos)
	return nil
}

// Stop unsubscribes from device polls. Safe to call more than once.
func (l *Link) Stop() error {
	l.mu.Lock()
	started := l.started
	l.started = false
	l.mu.Unlock()

	if !started {
		return nil
	}
	if err := l.broker.Unsubscribe(l.topics.AllPolls()); err != nil {
		return fmt.Errorf("unsubscribe from polls: %w", err)
	}
	l.log().Info("device link stopped")
	return nil
}

// Run starts the link and blocks until ctx is cancelled.
func (l *Link) Run(ctx context.Context) error {
	if err := l.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	if err := l.Stop(); err != nil && !errors.Is(err, mqtt.ErrNotConnected) {
		return err
	}
	return nil
}

// NotifyPending implements notification.Notifier.
func (l *Link) NotifyPending(_ context.Context, deviceID, messageType string) error {
	if err := mqtt.ValidateSegment(deviceID); err != nil {
		return err
	}
	return l.broker.PublishJSON(l.topics.Pending(deviceID), PendingNotice{
		DeviceID:    deviceID,
		MessageType: messageType,
		Timestamp:   l.now().UTC(),
	}, l.qos)
}

// handlePoll claims for the device named in the topic and publishes the
// result on the matching delivery topic.
func (l *Link) handlePoll(topic string, payload []byte) error {
	target, ok := l.topics.PollTarget(topic)
	if !ok {
		return fmt.Errorf("%w: not a poll topic: %s", mqtt.ErrInvalidTopic, topic)
	}

	var req PollRequest
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return l.respondError(target, uuid.NewString(), ErrCodeInvalidRequest, fmt.Sprintf("invalid poll payload: %v", err))
		}
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	l.mu.Lock()
	ctx, claimer := l.ctx, l.claimer
	l.mu.Unlock()

	if claimer == nil {
		return l.respondError(target, req.RequestID, ErrCodeInternal, "device link has no claimer")
	}

	deliveries, err := claimer.ClaimPending(ctx, target)
	if err != nil {
		code := ErrCodeInternal
		switch {
		case errors.Is(err, device.ErrDeviceNotFound):
			code = ErrCodeDeviceNotFound
		case errors.Is(err, notification.ErrStoreUnavailable):
			code = ErrCodeStoreUnavailable
		}
		l.log().Warn("poll claim failed", "target", target, "request_id", req.RequestID, "error", err)
		return l.respondError(target, req.RequestID, code, err.Error())
	}

	if deliveries == nil {
		deliveries = []notification.Delivery{}
	}

	resp := DeliveryResponse{
		RequestID: req.RequestID,
		Timestamp: l.now().UTC(),
		Success:   true,
		Messages:  deliveries,
		Count:     len(deliveries),
	}
	if err := l.broker.PublishJSON(l.topics.Delivery(target), resp, l.qos); err != nil {
		// The messages are already marked delivered; the device has to
		// treat a missing response as possibly consumed.
		l.log().Error("delivery publish failed after claim",
			"target", target,
			"request_id", req.RequestID,
			"count", len(deliveries),
			"error", err,
		)
		return err
	}

	l.log().Debug("poll served", "target", target, "request_id", req.RequestID, "count", len(deliveries))
	return nil
}

func (l *Link) respondError(target, requestID, code, message string) error {
	resp := DeliveryResponse{
		RequestID: requestID,
		Timestamp: l.now().UTC(),
		Success:   false,
		Messages:  []notification.Delivery{},
		Error:     &ResponseError{Code: code, Message: message},
	}
	if err := l.broker.PublishJSON(l.topics.Delivery(target), resp, l.qos); err != nil {
		return fmt.Errorf("publishing error response: %w", err)
	}
	return nil
}
