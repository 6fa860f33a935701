package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/disputedesk-backend/pkg/enums"
)

const AdminActionDescriptionMaxLen = 1000

// ErrAdminActionImmutable is returned by any attempt to change a stored admin action.
var ErrAdminActionImmutable = errors.New("admin actions cannot be modified once created")

// AdminAction is one append-only audit record of an administrative operation.
type AdminAction struct {
	ActionID      uuid.UUID             `gorm:"column:action_id;type:uuid;primaryKey" json:"action_id"`
	AdminID       string                `gorm:"column:admin_id;not null;index" json:"admin_id"`
	ActionType    enums.AdminActionType `gorm:"column:action_type;type:varchar(40);not null;index" json:"action_type"`
	TargetID      string                `gorm:"column:target_id;not null;index" json:"target_id"`
	Description   string                `gorm:"column:description;type:varchar(1000);not null" json:"description"`
	ActionDetails datatypes.JSONMap     `gorm:"column:action_details;type:jsonb" json:"action_details"`
	IPAddress     *string               `gorm:"column:ip_address" json:"ip_address"`
	UserAgent     *string               `gorm:"column:user_agent" json:"user_agent"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

func (AdminAction) TableName() string { return "admin_actions" }

func (a *AdminAction) BeforeCreate(*gorm.DB) error {
	if a.ActionID == uuid.Nil {
		a.ActionID = uuid.New()
	}
	return nil
}

func (a *AdminAction) BeforeUpdate(*gorm.DB) error {
	return ErrAdminActionImmutable
}

func (a *AdminAction) BeforeDelete(*gorm.DB) error {
	return ErrAdminActionImmutable
}
