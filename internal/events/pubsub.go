package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/disputedesk-backend/pkg/logger"
)

const defaultPublishTimeout = 5 * time.Second

type topicPublisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// PubSubPublisher publishes dispute events synchronously to a single topic.
type PubSubPublisher struct {
	topic   topicPublisher
	timeout time.Duration
	logg    *logger.Logger
}

// NewPubSubPublisher wraps a Pub/Sub topic publisher.
func NewPubSubPublisher(pub *gcppubsub.Publisher, timeout time.Duration, logg *logger.Logger) (*PubSubPublisher, error) {
	if pub == nil {
		return nil, errors.New("pubsub publisher required")
	}
	return newPubSubPublisher(&gcpTopic{Publisher: pub}, timeout, logg), nil
}

func newPubSubPublisher(topic topicPublisher, timeout time.Duration, logg *logger.Logger) *PubSubPublisher {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &PubSubPublisher{topic: topic, timeout: timeout, logg: logg}
}

// Publish blocks until the broker acknowledges the message or the timeout elapses.
func (p *PubSubPublisher) Publish(ctx context.Context, exchange, routingKey string, message DisputeEvent) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal dispute event: %w", err)
	}
	eventID := uuid.NewString()
	msg := NewMessage(data, Attributes{
		Exchange:   exchange,
		RoutingKey: routingKey,
		EventID:    eventID,
		OccurredAt: message.Timestamp,
	})

	publishCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result := p.topic.Publish(publishCtx, msg)
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	serverID, err := result.Get(publishCtx)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	if p.logg != nil {
		p.logg.Debug(p.logg.WithFields(ctx, map[string]any{
			"event_id":    eventID,
			"message_id":  serverID,
			"routing_key": routingKey,
			"dispute_id":  message.DisputeID,
		}), "dispute event published")
	}
	return nil
}

type gcpTopic struct {
	*gcppubsub.Publisher
}

func (t *gcpTopic) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if t == nil || t.Publisher == nil {
		return nil
	}
	return t.Publisher.Publish(ctx, msg)
}
