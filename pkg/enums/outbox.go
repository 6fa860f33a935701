package enums

import "fmt"

// OutboxAggregateType identifies the entity an outbox row belongs to.
type OutboxAggregateType string

const (
	AggregateDispute OutboxAggregateType = "dispute"
)

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateDispute
}

// OutboxEventType identifies the lifecycle event stored in an outbox row.
type OutboxEventType string

const (
	EventDisputeCreated       OutboxEventType = "dispute_created"
	EventDisputeResolved      OutboxEventType = "dispute_resolved"
	EventDisputeStatusUpdated OutboxEventType = "dispute_status_updated"
)

var outboxEventByAction = map[DisputeEventAction]OutboxEventType{
	DisputeEventCreated:       EventDisputeCreated,
	DisputeEventResolved:      EventDisputeResolved,
	DisputeEventStatusUpdated: EventDisputeStatusUpdated,
}

// IsValid reports whether the value matches a known outbox event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range outboxEventByAction {
		if candidate == e {
			return true
		}
	}
	return false
}

// OutboxEventForAction maps a dispute lifecycle action to its outbox event type.
func OutboxEventForAction(action DisputeEventAction) (OutboxEventType, error) {
	if eventType, ok := outboxEventByAction[action]; ok {
		return eventType, nil
	}
	return "", fmt.Errorf("no outbox event for action %q", action)
}
