package enums

import "fmt"

// DisputeStatus maps to the status column of the disputes table.
type DisputeStatus string

const (
	DisputeStatusPending     DisputeStatus = "Pending"
	DisputeStatusUnderReview DisputeStatus = "UnderReview"
	DisputeStatusResolved    DisputeStatus = "Resolved"
	DisputeStatusRejected    DisputeStatus = "Rejected"
)

var validDisputeStatuses = []DisputeStatus{
	DisputeStatusPending,
	DisputeStatusUnderReview,
	DisputeStatusResolved,
	DisputeStatusRejected,
}

// DisputeStatuses returns every status in lifecycle order.
func DisputeStatuses() []DisputeStatus {
	out := make([]DisputeStatus, len(validDisputeStatuses))
	copy(out, validDisputeStatuses)
	return out
}

// String implements fmt.Stringer.
func (s DisputeStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is one of the four dispute statuses.
func (s DisputeStatus) IsValid() bool {
	for _, candidate := range validDisputeStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s DisputeStatus) IsTerminal() bool {
	return s == DisputeStatusResolved || s == DisputeStatusRejected
}

// ParseDisputeStatus converts raw input into DisputeStatus.
func ParseDisputeStatus(value string) (DisputeStatus, error) {
	for _, candidate := range validDisputeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute status %q", value)
}

// DisputeEventAction is the lifecycle action carried by a dispute event.
type DisputeEventAction string

const (
	DisputeEventCreated       DisputeEventAction = "created"
	DisputeEventResolved      DisputeEventAction = "resolved"
	DisputeEventStatusUpdated DisputeEventAction = "status_updated"
)

// RoutingKey returns the broker routing key for the action.
func (a DisputeEventAction) RoutingKey() string {
	return "dispute." + string(a)
}

// IsValid reports whether the action is a known lifecycle action.
func (a DisputeEventAction) IsValid() bool {
	switch a {
	case DisputeEventCreated, DisputeEventResolved, DisputeEventStatusUpdated:
		return true
	}
	return false
}
