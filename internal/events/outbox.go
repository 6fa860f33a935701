package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/disputedesk-backend/pkg/enums"
	"github.com/angelmondragon/disputedesk-backend/pkg/outbox"
)

// OutboxPublisher persists dispute events for the outbox relay instead of
// publishing them inline. The row is written in its own transaction after the
// dispute change has committed, so enqueueing is durable but best-effort.
type OutboxPublisher struct {
	outbox *outbox.Service
}

func NewOutboxPublisher(svc *outbox.Service) (*OutboxPublisher, error) {
	if svc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &OutboxPublisher{outbox: svc}, nil
}

func (p *OutboxPublisher) Publish(ctx context.Context, exchange, routingKey string, message DisputeEvent) error {
	eventType, err := enums.OutboxEventForAction(enums.DisputeEventAction(message.Action))
	if err != nil {
		return err
	}
	aggregateID, err := uuid.Parse(message.DisputeID)
	if err != nil {
		return fmt.Errorf("invalid dispute id %q: %w", message.DisputeID, err)
	}

	actor := &outbox.ActorRef{UserID: message.RaisedBy}
	if strings.TrimSpace(message.ResolvedBy) != "" {
		actor = &outbox.ActorRef{UserID: message.ResolvedBy}
	}

	_, err = p.outbox.Emit(ctx, p.outbox.DB(), outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateDispute,
		AggregateID:   aggregateID,
		Exchange:      exchange,
		RoutingKey:    routingKey,
		Actor:         actor,
		Data:          message,
		OccurredAt:    message.Timestamp,
	})
	return err
}
