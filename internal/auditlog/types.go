package auditlog

import (
	"time"

	"github.com/angelmondragon/disputedesk-backend/pkg/db/models"
	"github.com/angelmondragon/disputedesk-backend/pkg/enums"
	"github.com/angelmondragon/disputedesk-backend/pkg/pagination"
)

const (
	DefaultRecentHours  = 24
	DefaultActivityDays = 30
)

// RecordInput describes one administrative action to append to the log.
type RecordInput struct {
	AdminID     string
	ActionType  enums.AdminActionType
	TargetID    string
	Description string
	Details     map[string]any
	IPAddress   string
	UserAgent   string
}

// Filters narrows ListActions, Statistics and Export.
type Filters struct {
	AdminID    string
	ActionType enums.AdminActionType
	Start      *time.Time
	End        *time.Time
}

// ListParams configures a paginated, sorted ListActions call.
type ListParams struct {
	Filters
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// ListResult wraps a page of admin actions.
type ListResult struct {
	Items      []models.AdminAction `json:"items"`
	TotalCount int64                `json:"total_count"`
	Pagination pagination.Meta      `json:"pagination"`
}

// TypeCount is the number of actions recorded for one action type.
type TypeCount struct {
	ActionType enums.AdminActionType `json:"action_type"`
	Count      int64                 `json:"count"`
}

// Period echoes the time window a summary was computed over.
type Period struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Statistics summarizes the log by action type.
type Statistics struct {
	TotalActions int64       `json:"total_actions"`
	ByType       []TypeCount `json:"by_type"`
	Period       Period      `json:"period"`
}

// DailyActivity counts one admin's actions of one type on one UTC day.
type DailyActivity struct {
	Date       string                `json:"date"`
	ActionType enums.AdminActionType `json:"action_type"`
	Count      int64                 `json:"count"`
}

// Activity is the per-day breakdown for a single admin.
type Activity struct {
	AdminID      string          `json:"admin_id"`
	Days         int             `json:"days"`
	TotalActions int64           `json:"total_actions"`
	Daily        []DailyActivity `json:"daily"`
}
