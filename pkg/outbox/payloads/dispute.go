package payloads

import "time"

// DisputeEvent is the message announced on every dispute lifecycle change.
type DisputeEvent struct {
	DisputeID       string    `json:"disputeId"`
	TransactionID   string    `json:"transactionId"`
	Status          string    `json:"status"`
	RaisedBy        string    `json:"raisedBy"`
	Action          string    `json:"action"`
	ResolvedBy      string    `json:"resolvedBy,omitempty"`
	ResolutionNotes string    `json:"resolutionNotes,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}
