package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/disputedesk-backend/pkg/enums"
)

const (
	DisputeReasonMaxLen          = 200
	DisputeDescriptionMaxLen     = 2000
	DisputeResolutionNotesMaxLen = 2000
)

// Dispute is a user-raised claim against a single marketplace transaction.
type Dispute struct {
	DisputeID       uuid.UUID           `gorm:"column:dispute_id;type:uuid;primaryKey" json:"dispute_id"`
	TransactionID   string              `gorm:"column:transaction_id;type:varchar(36);not null;uniqueIndex:ux_disputes_transaction_id" json:"transaction_id"`
	RaisedBy        string              `gorm:"column:raised_by;not null;index" json:"raised_by"`
	Reason          string              `gorm:"column:reason;type:varchar(200);not null" json:"reason"`
	Description     string              `gorm:"column:description;type:varchar(2000);not null" json:"description"`
	Status          enums.DisputeStatus `gorm:"column:status;type:varchar(20);not null;default:Pending;index" json:"status"`
	ResolutionNotes *string             `gorm:"column:resolution_notes;type:varchar(2000)" json:"resolution_notes"`
	ResolvedAt      *time.Time          `gorm:"column:resolved_at" json:"resolved_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Dispute) TableName() string { return "disputes" }

func (d *Dispute) BeforeCreate(*gorm.DB) error {
	if d.DisputeID == uuid.Nil {
		d.DisputeID = uuid.New()
	}
	if d.Status == "" {
		d.Status = enums.DisputeStatusPending
	}
	return nil
}

// ResolutionHours returns the hours between creation and resolution, or false when unresolved.
func (d Dispute) ResolutionHours() (float64, bool) {
	if d.ResolvedAt == nil || d.CreatedAt.IsZero() {
		return 0, false
	}
	return d.ResolvedAt.Sub(d.CreatedAt).Hours(), true
}
