package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registeredPayload struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

func TestNewEvent_PopulatesEnvelope(t *testing.T) {
	payload := registeredPayload{UserID: 123, Email: "new@example.com"}

	event, err := NewEvent("user.registered", "123", "user", "auth-service", payload)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID, "a UUID is assigned")
	assert.Equal(t, "user.registered", event.EventType)
	assert.Equal(t, "123", event.AggregateID)
	assert.Equal(t, "user", event.AggregateType)
	assert.Equal(t, "auth-service", event.Source)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)
	assert.NotNil(t, event.Metadata)

	var got registeredPayload
	require.NoError(t, json.Unmarshal(event.Data, &got))
	assert.Equal(t, payload, got)
}

func TestNewEvent_UnserializableData(t *testing.T) {
	_, err := NewEvent("user.registered", "1", "user", "auth-service", make(chan int))
	require.Error(t, err, "channels cannot be marshaled")
}

func TestEvent_MarshalRoundTrip(t *testing.T) {
	original, err := NewEvent("user.logged_in", "456", "user", "auth-service", map[string]string{"email": "known@example.com"})
	require.NoError(t, err)
	original.WithCorrelationID("corr-abc").WithMetadata("client", "web")

	raw, err := original.Marshal()
	require.NoError(t, err)

	restored, err := UnmarshalEvent(raw)
	require.NoError(t, err)

	// Timestamps survive at serialization precision; compare the rest exactly.
	assert.WithinDuration(t, original.Timestamp, restored.Timestamp, time.Millisecond)
	original.Timestamp, restored.Timestamp = time.Time{}, time.Time{}
	assert.Equal(t, original, restored)
}

func TestUnmarshalEvent_RejectsBadInput(t *testing.T) {
	for name, raw := range map[string][]byte{
		"broken json": []byte(`{broken json`),
		"empty input": {},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := UnmarshalEvent(raw)
			require.Error(t, err)
		})
	}
}

func TestEvent_UnmarshalData(t *testing.T) {
	payload := registeredPayload{UserID: 789, Email: "someone@example.com"}
	event, err := NewEvent("user.registered", "789", "user", "auth-service", payload)
	require.NoError(t, err)

	var got registeredPayload
	require.NoError(t, event.UnmarshalData(&got))
	assert.Equal(t, payload, got)

	bad := &Event{Data: json.RawMessage(`not valid json`)}
	assert.Error(t, bad.UnmarshalData(&got))
}

func TestEvent_ChainingHelpers(t *testing.T) {
	event := &Event{EventID: "evt-1", EventType: "user.registered"}

	same := event.WithCorrelationID("corr-xyz").WithMetadata("key1", "value1").WithMetadata("key2", "value2")
	assert.Same(t, event, same, "helpers return the receiver for chaining")
	assert.Equal(t, "corr-xyz", event.CorrelationID)
	assert.Equal(t, "value1", event.Metadata["key1"])
	assert.Equal(t, "value2", event.Metadata["key2"])
}

func TestDefaultProducerConfig(t *testing.T) {
	brokers := []string{"kafka-1:9092", "kafka-2:9092"}
	cfg := DefaultProducerConfig(brokers)

	assert.Equal(t, brokers, cfg.Brokers)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 10*time.Millisecond, cfg.BatchTimeout)
	assert.False(t, cfg.Async, "synchronous by default so Publish reports broker errors")
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "guardkit", TopicPrefix)

	cases := []struct {
		domain, action, want string
	}{
		{"user", "registered", "guardkit.user.registered"},
		{"user", "logged_in", "guardkit.user.logged_in"},
		{"token", "refreshed", "guardkit.token.refreshed"},
		{"session", "revoked", "guardkit.session.revoked"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Topic(tc.domain, tc.action))
	}
}

func TestProducer_NewAndClose(t *testing.T) {
	// The writer dials lazily, so construction and Close work without a broker.
	p := NewProducer(DefaultProducerConfig([]string{"localhost:29092"}), nil)
	require.NotNil(t, p)
	assert.Equal(t, []string{"localhost:29092"}, p.brokers)
	assert.NoError(t, p.Close())
}

func TestPingBrokers_RequiresBrokers(t *testing.T) {
	for name, brokers := range map[string][]string{"nil": nil, "empty": {}} {
		t.Run(name, func(t *testing.T) {
			err := PingBrokers(t.Context(), brokers)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "no brokers configured")
		})
	}
}
