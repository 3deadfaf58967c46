package mqtt

import (
	"errors"
	"sync"
	"testing"
)

// These tests cover everything that does not need a live broker: input
// validation, topic builders, handler wrapping. Broker round-trips live in
// integration_test.go behind the integration build tag.

func TestCloseNil(t *testing.T) {
	client := &Client{}
	err := client.Close()
	if err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestPublishEmptyTopic(t *testing.T) {
	client := &Client{}

	err := client.Publish("", []byte("test"), 1, false)
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish() error = %v, want ErrInvalidTopic", err)
	}
}

func TestPublishInvalidQoS(t *testing.T) {
	client := &Client{}

	err := client.Publish("test/topic", []byte("test"), 3, false)
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish() error = %v, want ErrInvalidQoS", err)
	}
}

func TestSubscribeEmptyTopic(t *testing.T) {
	client := &Client{}

	err := client.Subscribe("", 1, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe() error = %v, want ErrInvalidTopic", err)
	}
}

func TestSubscribeNilHandler(t *testing.T) {
	client := &Client{}

	err := client.Subscribe("test/topic", 1, nil)
	if !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe() error = %v, want ErrSubscribeFailed", err)
	}
}

func TestUnsubscribeEmptyTopic(t *testing.T) {
	client := &Client{}

	err := client.Unsubscribe("")
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe() error = %v, want ErrInvalidTopic", err)
	}
}

func TestSubscriptionTracking(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}

	client.subscriptions["relaycore/device/+/command"] = subscription{
		topic: "relaycore/device/+/command",
		qos:   1,
	}

	if client.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", client.SubscriptionCount())
	}

	if !client.HasSubscription("relaycore/device/+/command") {
		t.Error("HasSubscription() = false for tracked topic")
	}

	if client.HasSubscription("relaycore/device/0/command") {
		t.Error("HasSubscription() = true for untracked topic (no pattern matching expected)")
	}
}

func TestSetLogger(t *testing.T) {
	client := &Client{}

	logger := &captureLogger{}
	client.SetLogger(logger)

	if client.getLogger() == nil {
		t.Error("getLogger() = nil after SetLogger()")
	}

	client.SetLogger(nil)
	if client.getLogger() != nil {
		t.Error("getLogger() should be nil after SetLogger(nil)")
	}
}

func TestTopics(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{
			name:     "device state",
			got:      topics.DeviceState(2),
			expected: "relaycore/device/2/state",
		},
		{
			name:     "device command",
			got:      topics.DeviceCommand(0),
			expected: "relaycore/device/0/command",
		},
		{
			name:     "system status",
			got:      topics.SystemStatus(),
			expected: "relaycore/system/status",
		},
		{
			name:     "all device states",
			got:      topics.AllDeviceStates(),
			expected: "relaycore/device/+/state",
		},
		{
			name:     "all device commands",
			got:      topics.AllDeviceCommands(),
			expected: "relaycore/device/+/command",
		},
		{
			name:     "all topics",
			got:      topics.AllTopics(),
			expected: "relaycore/#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

// captureLogger implements Logger for testing.
type captureLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *captureLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *captureLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}
