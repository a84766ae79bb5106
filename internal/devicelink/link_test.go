package devicelink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-notify/internal/device"
	"github.com/nerrad567/gray-logic-notify/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-notify/internal/notification"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type published struct {
	topic string
	body  []byte
	qos   byte
}

// fakeBroker records subscriptions and publishes.
type fakeBroker struct {
	mu           sync.Mutex
	handlers     map[string]mqtt.MessageHandler
	published    []published
	subscribeErr error
	publishErr   error
	unsubscribed []string
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{handlers: make(map[string]mqtt.MessageHandler)}
}

func (b *fakeBroker) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribeErr != nil {
		return b.subscribeErr
	}
	b.handlers[topic] = handler
	return nil
}

func (b *fakeBroker) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, topic)
	b.unsubscribed = append(b.unsubscribed, topic)
	return nil
}

func (b *fakeBroker) PublishJSON(topic string, v any, qos byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.published = append(b.published, published{topic: topic, body: body, qos: qos})
	return nil
}

// deliver simulates an inbound message on topic.
func (b *fakeBroker) deliver(t *testing.T, topic string, payload []byte) error {
	t.Helper()
	b.mu.Lock()
	h, ok := b.handlers[(mqtt.Topics{}).AllPolls()]
	b.mu.Unlock()
	if !ok {
		t.Fatal("no poll subscription")
	}
	return h(topic, payload)
}

func (b *fakeBroker) last(t *testing.T) published {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.published) == 0 {
		t.Fatal("nothing published")
	}
	return b.published[len(b.published)-1]
}

type fakeClaimer struct {
	deliveries map[string][]notification.Delivery
	err        error
	targets    []string
}

func (c *fakeClaimer) ClaimPending(_ context.Context, target string) ([]notification.Delivery, error) {
	c.targets = append(c.targets, target)
	if c.err != nil {
		return nil, c.err
	}
	out := c.deliveries[target]
	delete(c.deliveries, target)
	return out, nil
}

func startLink(t *testing.T, broker *fakeBroker, claimer Claimer) *Link {
	t.Helper()
	l := New(Config{
		Broker:  broker,
		Claimer: claimer,
		QoS:     1,
		Now:     func() time.Time { return fixedNow },
	})
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = l.Stop() })
	return l
}

func decodeResponse(t *testing.T, p published) DeliveryResponse {
	t.Helper()
	var resp DeliveryResponse
	if err := json.Unmarshal(p.body, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return resp
}

func TestLink_PollDeliversClaimedMessages(t *testing.T) {
	broker := newFakeBroker()
	claimer := &fakeClaimer{deliveries: map[string][]notification.Delivery{
		"1001": {
			{Type: "alarm", Payload: "first"},
			{Type: "firmware", Payload: "second"},
		},
	}}
	startLink(t, broker, claimer)

	if err := broker.deliver(t, "graylogic/notify/poll/1001", []byte(`{"request_id":"req-1"}`)); err != nil {
		t.Fatalf("handlePoll() error = %v", err)
	}

	p := broker.last(t)
	if p.topic != "graylogic/notify/delivery/1001" {
		t.Errorf("topic = %q, want delivery topic for 1001", p.topic)
	}
	if p.qos != 1 {
		t.Errorf("qos = %d, want 1", p.qos)
	}

	resp := decodeResponse(t, p)
	if !resp.Success || resp.Error != nil {
		t.Fatalf("response = %+v, want success", resp)
	}
	if resp.RequestID != "req-1" {
		t.Errorf("RequestID = %q, want req-1", resp.RequestID)
	}
	if resp.Count != 2 || len(resp.Messages) != 2 {
		t.Fatalf("Count = %d, len(Messages) = %d, want 2", resp.Count, len(resp.Messages))
	}
	if resp.Messages[0].Type != "alarm" || resp.Messages[0].Payload != "first" {
		t.Errorf("Messages[0] = %+v, want alarm/first", resp.Messages[0])
	}
	if !resp.Timestamp.Equal(fixedNow) {
		t.Errorf("Timestamp = %v, want %v", resp.Timestamp, fixedNow)
	}
}

func TestLink_PollRequestID(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "empty payload", payload: nil},
		{name: "empty object", payload: []byte(`{}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broker := newFakeBroker()
			startLink(t, broker, &fakeClaimer{})

			if err := broker.deliver(t, "graylogic/notify/poll/dev-1", tt.payload); err != nil {
				t.Fatalf("handlePoll() error = %v", err)
			}

			p := broker.last(t)
			if !strings.Contains(string(p.body), `"messages":[]`) {
				t.Errorf("body = %s, want an empty messages array", p.body)
			}

			resp := decodeResponse(t, p)
			if resp.RequestID == "" {
				t.Error("RequestID should be generated when absent")
			}
			if !resp.Success || resp.Count != 0 {
				t.Errorf("response = %+v, want empty success", resp)
			}
			if resp.Messages == nil {
				t.Error("Messages should encode as an empty array, not null")
			}
		})
	}
}

func TestLink_PollErrors(t *testing.T) {
	tests := []struct {
		name     string
		payload  []byte
		claimErr error
		wantCode string
	}{
		{
			name:     "invalid json",
			payload:  []byte(`{not json`),
			wantCode: ErrCodeInvalidRequest,
		},
		{
			name:     "unknown device",
			claimErr: fmt.Errorf("%w: 9999", device.ErrDeviceNotFound),
			wantCode: ErrCodeDeviceNotFound,
		},
		{
			name:     "store unavailable",
			claimErr: fmt.Errorf("claim: %w", notification.ErrStoreUnavailable),
			wantCode: ErrCodeStoreUnavailable,
		},
		{
			name:     "other failure",
			claimErr: errors.New("boom"),
			wantCode: ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broker := newFakeBroker()
			startLink(t, broker, &fakeClaimer{err: tt.claimErr})

			if err := broker.deliver(t, "graylogic/notify/poll/9999", tt.payload); err != nil {
				t.Fatalf("handlePoll() error = %v", err)
			}

			p := broker.last(t)
			if p.topic != "graylogic/notify/delivery/9999" {
				t.Errorf("topic = %q, want delivery topic for 9999", p.topic)
			}
			resp := decodeResponse(t, p)
			if resp.Success {
				t.Error("Success = true, want false")
			}
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("Error = %+v, want code %q", resp.Error, tt.wantCode)
			}
			if resp.RequestID == "" {
				t.Error("error responses should carry a request ID")
			}
		})
	}
}

func TestLink_InvalidPayloadDoesNotClaim(t *testing.T) {
	broker := newFakeBroker()
	claimer := &fakeClaimer{}
	startLink(t, broker, claimer)

	_ = broker.deliver(t, "graylogic/notify/poll/1001", []byte(`[`))

	if len(claimer.targets) != 0 {
		t.Errorf("claim called for %v, want no claim on invalid payload", claimer.targets)
	}
}

func TestLink_PublishFailureAfterClaim(t *testing.T) {
	broker := newFakeBroker()
	claimer := &fakeClaimer{deliveries: map[string][]notification.Delivery{
		"1001": {{Type: "alarm", Payload: "x"}},
	}}
	startLink(t, broker, claimer)
	broker.publishErr = errors.New("broker gone")

	if err := broker.deliver(t, "graylogic/notify/poll/1001", nil); err == nil {
		t.Error("handlePoll() should return the publish error")
	}
}

func TestLink_NotifyPending(t *testing.T) {
	broker := newFakeBroker()
	l := New(Config{Broker: broker, QoS: 0, Now: func() time.Time { return fixedNow }})

	if err := l.NotifyPending(context.Background(), "dev-1", "alarm"); err != nil {
		t.Fatalf("NotifyPending() error = %v", err)
	}

	p := broker.last(t)
	if p.topic != "graylogic/notify/pending/dev-1" {
		t.Errorf("topic = %q, want pending topic for dev-1", p.topic)
	}
	var notice PendingNotice
	if err := json.Unmarshal(p.body, &notice); err != nil {
		t.Fatalf("unmarshal notice: %v", err)
	}
	if notice.DeviceID != "dev-1" || notice.MessageType != "alarm" {
		t.Errorf("notice = %+v", notice)
	}

	if err := l.NotifyPending(context.Background(), "bad/id", "alarm"); err == nil {
		t.Error("NotifyPending() should reject a device ID containing a topic separator")
	}
}

func TestLink_StartStop(t *testing.T) {
	broker := newFakeBroker()
	l := New(Config{Broker: broker, Claimer: &fakeClaimer{}})

	if err := l.Stop(); err != nil {
		t.Errorf("Stop() before Start error = %v", err)
	}
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := l.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := l.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
	if len(broker.unsubscribed) != 1 {
		t.Errorf("unsubscribed %d times, want 1", len(broker.unsubscribed))
	}

	failing := newFakeBroker()
	failing.subscribeErr = mqtt.ErrNotConnected
	if err := New(Config{Broker: failing}).Start(context.Background()); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("Start() error = %v, want ErrNotConnected", err)
	}
}

func TestLink_Run(t *testing.T) {
	broker := newFakeBroker()
	l := New(Config{Broker: broker, Claimer: &fakeClaimer{}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		broker.mu.Lock()
		n := len(broker.handlers)
		broker.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("link did not subscribe")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
