// Package event publishes auth domain events to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/guardkit/guardkit/internal/domain"
	pkgkafka "github.com/guardkit/guardkit/pkg/kafka"
	"github.com/guardkit/guardkit/pkg/logger"
)

// TopicUserRegistered carries user.registered events.
var TopicUserRegistered = pkgkafka.Topic("user", "registered")

// Envelope constants: the aggregate is the user row, the source names this
// service for consumers stitching multi-service flows.
const (
	AggregateTypeUser = "user"
	SourceAuthService = "auth-service"
)

// UserRegisteredData is the user.registered payload, limited to what
// downstream consumers need to provision or greet the account.
type UserRegisteredData struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Producer wraps the shared Kafka producer with this service's event catalog.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer binds the event catalog to a Kafka producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishUserRegistered publishes a user.registered event. The request's
// correlation ID, when present, is carried on the event so downstream
// consumers can stitch the flow together.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{ID: user.ID, Email: user.Email}
	key := strconv.FormatInt(user.ID, 10)

	evt, err := pkgkafka.NewEvent(TopicUserRegistered, key, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("build user.registered event: %w", err)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		evt.WithCorrelationID(cid)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, evt); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.LogAttrs(ctx, slog.LevelDebug, "published user.registered event",
		slog.Int64("user_id", user.ID), slog.String("email", user.Email))
	return nil
}
