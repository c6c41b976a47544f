package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// TopicPrefix is the standard prefix for all guardkit Kafka topics.
const TopicPrefix = "guardkit"

// Topic constructs a fully-qualified topic name.
func Topic(domain, action string) string {
	return fmt.Sprintf("%s.%s.%s", TopicPrefix, domain, action)
}

// ProducerConfig selects the brokers and batching behavior of a Producer.
type ProducerConfig struct {
	Brokers      []string
	BatchSize    int           // messages per batch before a flush
	BatchTimeout time.Duration // max wait before a short batch flushes
	Async        bool          // fire-and-forget writes, losing per-message errors
}

// DefaultProducerConfig batches lightly and writes synchronously so Publish
// surfaces broker errors to the caller.
func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:      brokers,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// writer builds the kafka-go writer for this config. Hash partitioning keeps
// all events for one aggregate on one partition so consumers see them in
// order. RequireAll trades latency for durability; auth events must not be
// lost on broker failover.
func (cfg ProducerConfig) writer() *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		Async:        cfg.Async,
		RequiredAcks: kafka.RequireAll,
	}
}

// Producer wraps the kafka-go writer for publishing events.
type Producer struct {
	writer  *kafka.Writer
	logger  *slog.Logger
	brokers []string
}

// NewProducer creates a new Kafka producer. The underlying writer dials
// lazily, so construction never blocks on broker availability.
func NewProducer(cfg ProducerConfig, logger *slog.Logger) *Producer {
	return &Producer{
		writer:  cfg.writer(),
		logger:  logger,
		brokers: cfg.Brokers,
	}
}

// newMessage builds the wire message for an event. Partition key and routing
// headers come from the envelope itself.
func newMessage(topic string, event *Event, payload []byte) kafka.Message {
	return kafka.Message{
		Topic:   topic,
		Key:     event.key(),
		Value:   payload,
		Headers: event.wireHeaders(),
	}
}

// Publish sends an event to the specified Kafka topic. The current trace
// context is injected into the message headers for downstream consumers.
func (p *Producer) Publish(ctx context.Context, topic string, event *Event) error {
	payload, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := newMessage(topic, event, payload)
	otel.GetTextMapPropagator().Inject(ctx, NewKafkaHeaderCarrier(&msg.Headers))

	start := time.Now()
	err = p.writer.WriteMessages(ctx, msg)
	ProducerPublishDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())

	if err != nil {
		ProducerPublishErrors.WithLabelValues(topic).Inc()
		p.logger.LogAttrs(ctx, slog.LevelError, "publish failed",
			slog.String("topic", topic), slog.String("event_type", event.EventType), slog.String("error", err.Error()))
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	ProducerMessagesPublished.WithLabelValues(topic).Inc()
	p.logger.LogAttrs(ctx, slog.LevelDebug, "event published",
		slog.String("topic", topic), slog.String("event_type", event.EventType), slog.String("aggregate_id", event.AggregateID))
	return nil
}

// Ping reports whether at least one configured broker is reachable.
func (p *Producer) Ping(ctx context.Context) error {
	return PingBrokers(ctx, p.brokers)
}

// probeBroker dials one broker and asks for the cluster broker list, the
// cheapest round trip that proves the broker is actually serving.
func probeBroker(ctx context.Context, addr string) error {
	conn, err := kafka.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	_, err = conn.Brokers()
	return err
}

// PingBrokers probes the brokers in order and succeeds on the first one
// that answers.
func PingBrokers(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("kafka: no brokers configured")
	}

	var lastErr error
	for _, addr := range brokers {
		lastErr = probeBroker(ctx, addr)
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("kafka ping: no broker reachable: %w", lastErr)
}

// Close flushes buffered messages and releases the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
