package auditlog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/disputedesk-backend/pkg/db/models"
	"github.com/angelmondragon/disputedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/disputedesk-backend/pkg/errors"
	"github.com/angelmondragon/disputedesk-backend/pkg/pagination"
)

// Service records and queries the administrative audit trail.
type Service interface {
	Record(ctx context.Context, input RecordInput) (*models.AdminAction, error)
	GetAction(ctx context.Context, actionID uuid.UUID) (*models.AdminAction, error)
	ListActions(ctx context.Context, params ListParams) (*ListResult, error)
	ListByAdmin(ctx context.Context, adminID string) ([]models.AdminAction, error)
	ListByType(ctx context.Context, actionType enums.AdminActionType) ([]models.AdminAction, error)
	ListByTarget(ctx context.Context, targetID string) ([]models.AdminAction, error)
	Recent(ctx context.Context, hours int) ([]models.AdminAction, error)
	Statistics(ctx context.Context, start, end *time.Time) (*Statistics, error)
	AdminActivity(ctx context.Context, adminID string, days int) (*Activity, error)
	Export(ctx context.Context, start, end *time.Time) ([]models.AdminAction, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

var sortColumns = map[string]string{
	"created_at":  "created_at",
	"createdat":   "created_at",
	"action_type": "action_type",
	"actiontype":  "action_type",
	"admin_id":    "admin_id",
	"adminid":     "admin_id",
	"target_id":   "target_id",
	"targetid":    "target_id",
}

// NewService wires the audit log repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "admin action repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) Record(ctx context.Context, input RecordInput) (*models.AdminAction, error) {
	adminID := strings.TrimSpace(input.AdminID)
	targetID := strings.TrimSpace(input.TargetID)
	description := strings.TrimSpace(input.Description)
	switch {
	case adminID == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id is required")
	case !input.ActionType.IsValid():
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid action type %q", input.ActionType)
	case targetID == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target id is required")
	case description == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	case len([]rune(description)) > models.AdminActionDescriptionMaxLen:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "description must be at most %d characters", models.AdminActionDescriptionMaxLen)
	}

	action := &models.AdminAction{
		AdminID:     adminID,
		ActionType:  input.ActionType,
		TargetID:    targetID,
		Description: description,
		IPAddress:   optionalString(input.IPAddress),
		UserAgent:   optionalString(input.UserAgent),
		CreatedAt:   s.now(),
	}
	if len(input.Details) > 0 {
		action.ActionDetails = datatypes.JSONMap(input.Details)
	}

	if err := s.repo.Create(ctx, action); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record admin action")
	}
	return action, nil
}

func (s *service) GetAction(ctx context.Context, actionID uuid.UUID) (*models.AdminAction, error) {
	if actionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action id is required")
	}
	action, err := s.repo.FindByID(ctx, actionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "admin action not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load admin action")
	}
	return action, nil
}

func (s *service) ListActions(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.ActionType != "" && !params.ActionType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid action type %q", params.ActionType)
	}
	if err := validateRange(params.Start, params.End); err != nil {
		return nil, err
	}
	order, err := pagination.ParseSortOrder(params.SortOrder)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort order")
	}

	page := pagination.Params{Page: params.Page, Limit: params.Limit}.Normalize()
	items, total, err := s.repo.List(ctx, listQuery{
		Filters: params.Filters,
		Page:    page,
		Sort:    pagination.ResolveSort(params.SortBy, order, sortColumns, "created_at"),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list admin actions")
	}
	if items == nil {
		items = []models.AdminAction{}
	}
	return &ListResult{
		Items:      items,
		TotalCount: total,
		Pagination: pagination.NewMeta(page, total),
	}, nil
}

func (s *service) ListByAdmin(ctx context.Context, adminID string) ([]models.AdminAction, error) {
	return s.listBy(ctx, "admin_id", adminID, "admin id")
}

func (s *service) ListByType(ctx context.Context, actionType enums.AdminActionType) ([]models.AdminAction, error) {
	if !actionType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid action type %q", actionType)
	}
	return s.listBy(ctx, "action_type", string(actionType), "action type")
}

func (s *service) ListByTarget(ctx context.Context, targetID string) ([]models.AdminAction, error) {
	return s.listBy(ctx, "target_id", targetID, "target id")
}

func (s *service) listBy(ctx context.Context, column, value, label string) ([]models.AdminAction, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s is required", label)
	}
	items, err := s.repo.ListByColumn(ctx, column, value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list admin actions by "+label)
	}
	return nonNil(items), nil
}

func (s *service) Recent(ctx context.Context, hours int) ([]models.AdminAction, error) {
	if hours <= 0 {
		hours = DefaultRecentHours
	}
	cutoff := s.now().Add(-time.Duration(hours) * time.Hour)
	items, err := s.repo.Find(ctx, Filters{Start: &cutoff})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recent admin actions")
	}
	return nonNil(items), nil
}

func (s *service) Statistics(ctx context.Context, start, end *time.Time) (*Statistics, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}
	counts, err := s.repo.CountByType(ctx, Filters{Start: start, End: end})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count admin actions")
	}

	stats := &Statistics{ByType: []TypeCount{}, Period: Period{Start: start, End: end}}
	for _, c := range counts {
		stats.TotalActions += c.Count
		stats.ByType = append(stats.ByType, c)
	}
	sort.SliceStable(stats.ByType, func(i, j int) bool {
		return stats.ByType[i].Count > stats.ByType[j].Count
	})
	return stats, nil
}

func (s *service) AdminActivity(ctx context.Context, adminID string, days int) (*Activity, error) {
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id is required")
	}
	if days <= 0 {
		days = DefaultActivityDays
	}
	cutoff := s.now().AddDate(0, 0, -days)
	items, err := s.repo.Find(ctx, Filters{AdminID: adminID, Start: &cutoff})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load admin activity")
	}

	type bucketKey struct {
		date       string
		actionType enums.AdminActionType
	}
	buckets := map[bucketKey]int64{}
	for _, item := range items {
		key := bucketKey{date: item.CreatedAt.UTC().Format(time.DateOnly), actionType: item.ActionType}
		buckets[key]++
	}

	activity := &Activity{
		AdminID:      adminID,
		Days:         days,
		TotalActions: int64(len(items)),
		Daily:        make([]DailyActivity, 0, len(buckets)),
	}
	for key, count := range buckets {
		activity.Daily = append(activity.Daily, DailyActivity{Date: key.date, ActionType: key.actionType, Count: count})
	}
	sort.Slice(activity.Daily, func(i, j int) bool {
		if activity.Daily[i].Date != activity.Daily[j].Date {
			return activity.Daily[i].Date > activity.Daily[j].Date
		}
		return activity.Daily[i].ActionType < activity.Daily[j].ActionType
	})
	return activity, nil
}

func (s *service) Export(ctx context.Context, start, end *time.Time) ([]models.AdminAction, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}
	items, err := s.repo.Find(ctx, Filters{Start: start, End: end})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "export admin actions")
	}
	return nonNil(items), nil
}

func validateRange(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end date must not be before start date")
	}
	return nil
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func nonNil(items []models.AdminAction) []models.AdminAction {
	if items == nil {
		return []models.AdminAction{}
	}
	return items
}
