package auditlog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/disputedesk-backend/internal/repo"
	"github.com/angelmondragon/disputedesk-backend/pkg/db/models"
	"github.com/angelmondragon/disputedesk-backend/pkg/pagination"
)

// Repository is append-only: it exposes no update or delete.
type Repository interface {
	Create(ctx context.Context, action *models.AdminAction) error
	FindByID(ctx context.Context, actionID uuid.UUID) (*models.AdminAction, error)
	List(ctx context.Context, query listQuery) ([]models.AdminAction, int64, error)
	ListByColumn(ctx context.Context, column, value string) ([]models.AdminAction, error)
	Find(ctx context.Context, filters Filters) ([]models.AdminAction, error)
	CountByType(ctx context.Context, filters Filters) ([]TypeCount, error)
}

type repositoryImpl struct {
	repo.Base
}

type listQuery struct {
	Filters Filters
	Page    pagination.Params
	Sort    pagination.Sort
}

// NewRepository returns an admin action repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

var errUnknownColumn = errors.New("unsupported admin action column")

var lookupColumns = map[string]struct{}{
	"admin_id":    {},
	"action_type": {},
	"target_id":   {},
}

func (r *repositoryImpl) Create(ctx context.Context, action *models.AdminAction) error {
	return r.DB(ctx).Create(action).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, actionID uuid.UUID) (*models.AdminAction, error) {
	var action models.AdminAction
	if err := r.DB(ctx).Where("action_id = ?", actionID).First(&action).Error; err != nil {
		return nil, err
	}
	return &action, nil
}

func (r *repositoryImpl) List(ctx context.Context, query listQuery) ([]models.AdminAction, int64, error) {
	base := applyFilters(r.Model(ctx, &models.AdminAction{}), query.Filters)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := query.Page.Normalize()
	var actions []models.AdminAction
	if err := base.Order(query.Sort.Clause()).
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&actions).Error; err != nil {
		return nil, 0, err
	}
	return actions, total, nil
}

func (r *repositoryImpl) ListByColumn(ctx context.Context, column, value string) ([]models.AdminAction, error) {
	if _, ok := lookupColumns[column]; !ok {
		return nil, errUnknownColumn
	}
	var actions []models.AdminAction
	err := r.DB(ctx).
		Where(column+" = ?", value).
		Order("created_at DESC").
		Find(&actions).Error
	return actions, err
}

func (r *repositoryImpl) Find(ctx context.Context, filters Filters) ([]models.AdminAction, error) {
	var actions []models.AdminAction
	err := applyFilters(r.DB(ctx), filters).
		Order("created_at DESC").
		Find(&actions).Error
	return actions, err
}

func (r *repositoryImpl) CountByType(ctx context.Context, filters Filters) ([]TypeCount, error) {
	var rows []TypeCount
	err := applyFilters(r.Model(ctx, &models.AdminAction{}), filters).
		Select("action_type, COUNT(*) AS count").
		Group("action_type").
		Order("count DESC").
		Order("action_type ASC").
		Scan(&rows).Error
	return rows, err
}

func applyFilters(query *gorm.DB, filters Filters) *gorm.DB {
	if filters.AdminID != "" {
		query = query.Where("admin_id = ?", filters.AdminID)
	}
	if filters.ActionType != "" {
		query = query.Where("action_type = ?", filters.ActionType)
	}
	if filters.Start != nil {
		query = query.Where("created_at >= ?", *filters.Start)
	}
	if filters.End != nil {
		query = query.Where("created_at <= ?", *filters.End)
	}
	return query
}
