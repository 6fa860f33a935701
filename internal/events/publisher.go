package events

import (
	"context"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/disputedesk-backend/pkg/outbox/payloads"
)

// DisputeEvent is the message announced for dispute lifecycle changes.
type DisputeEvent = payloads.DisputeEvent

// Publisher delivers dispute events keyed by exchange and routing key.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, message DisputeEvent) error
}

// Attributes are the Pub/Sub message attributes shared by direct and relayed deliveries.
type Attributes struct {
	Exchange   string
	RoutingKey string
	EventID    string
	EventType  string
	OccurredAt time.Time
}

// NewMessage builds the broker message for data.
func NewMessage(data []byte, attrs Attributes) *gcppubsub.Message {
	attributes := map[string]string{
		"exchange":    attrs.Exchange,
		"routing_key": attrs.RoutingKey,
		"event_id":    attrs.EventID,
	}
	if attrs.EventType != "" {
		attributes["event_type"] = attrs.EventType
	}
	if !attrs.OccurredAt.IsZero() {
		attributes["occurred_at"] = attrs.OccurredAt.UTC().Format(time.RFC3339Nano)
	}
	return &gcppubsub.Message{Data: data, Attributes: attributes}
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, DisputeEvent) error {
	return nil
}
