package disputes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/disputedesk-backend/internal/repo"
	"github.com/angelmondragon/disputedesk-backend/pkg/db"
	"github.com/angelmondragon/disputedesk-backend/pkg/db/models"
	"github.com/angelmondragon/disputedesk-backend/pkg/enums"
	"github.com/angelmondragon/disputedesk-backend/pkg/pagination"
)

const (
	transactionUniqueIndex  = "ux_disputes_transaction_id"
	transactionUniqueColumn = "disputes.transaction_id"
)

// ErrDuplicateTransaction is returned when a dispute already exists for the transaction.
var ErrDuplicateTransaction = errors.New("dispute already exists for transaction")

// Repository persists disputes. Status changes are conditional on the expected current status.
type Repository interface {
	Create(ctx context.Context, dispute *models.Dispute) error
	FindByID(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error)
	ExistsForTransaction(ctx context.Context, transactionID string) (bool, error)
	List(ctx context.Context, query listQuery) ([]models.Dispute, int64, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]models.Dispute, error)
	ListByUser(ctx context.Context, userID string) ([]models.Dispute, error)
	UpdateStatusIf(ctx context.Context, disputeID uuid.UUID, expected enums.DisputeStatus, change statusChange) (bool, error)
	CountByStatus(ctx context.Context, window Period) ([]statusCount, error)
	ClosedTimestamps(ctx context.Context, window Period) ([]models.Dispute, error)
}

type repositoryImpl struct {
	repo.Base
}

type listQuery struct {
	Status   enums.DisputeStatus
	RaisedBy string
	Window   Period
	Page     pagination.Params
	Sort     pagination.Sort
}

type statusChange struct {
	Status          enums.DisputeStatus
	ResolutionNotes *string
	ResolvedAt      *time.Time
	UpdatedAt       time.Time
}

type statusCount struct {
	Status enums.DisputeStatus
	Count  int64
}

// NewRepository returns a dispute repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

func (r *repositoryImpl) Create(ctx context.Context, dispute *models.Dispute) error {
	err := r.DB(ctx).Create(dispute).Error
	if db.IsUniqueViolation(err, transactionUniqueIndex, transactionUniqueColumn) {
		return ErrDuplicateTransaction
	}
	return err
}

func (r *repositoryImpl) FindByID(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := r.DB(ctx).Where("dispute_id = ?", disputeID).First(&dispute).Error; err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repositoryImpl) ExistsForTransaction(ctx context.Context, transactionID string) (bool, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.Dispute{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error
	return count > 0, err
}

func (r *repositoryImpl) List(ctx context.Context, query listQuery) ([]models.Dispute, int64, error) {
	base := r.Model(ctx, &models.Dispute{})
	if query.Status != "" {
		base = base.Where("status = ?", query.Status)
	}
	if query.RaisedBy != "" {
		base = base.Where("raised_by = ?", query.RaisedBy)
	}
	base = applyWindow(base, query.Window)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := query.Page.Normalize()
	var disputes []models.Dispute
	if err := base.Order(query.Sort.Clause()).
		Order("dispute_id ASC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&disputes).Error; err != nil {
		return nil, 0, err
	}
	return disputes, total, nil
}

func (r *repositoryImpl) ListByTransaction(ctx context.Context, transactionID string) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.DB(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at DESC").
		Find(&disputes).Error
	return disputes, err
}

func (r *repositoryImpl) ListByUser(ctx context.Context, userID string) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.DB(ctx).
		Where("raised_by = ?", userID).
		Order("created_at DESC").
		Find(&disputes).Error
	return disputes, err
}

func (r *repositoryImpl) UpdateStatusIf(ctx context.Context, disputeID uuid.UUID, expected enums.DisputeStatus, change statusChange) (bool, error) {
	updates := map[string]any{
		"status":     change.Status,
		"updated_at": change.UpdatedAt,
	}
	if change.ResolutionNotes != nil {
		updates["resolution_notes"] = *change.ResolutionNotes
	}
	if change.ResolvedAt != nil {
		updates["resolved_at"] = *change.ResolvedAt
	}

	result := r.DB(ctx).
		Model(&models.Dispute{}).
		Where("dispute_id = ? AND status = ?", disputeID, expected).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) CountByStatus(ctx context.Context, window Period) ([]statusCount, error) {
	var rows []statusCount
	err := applyWindow(r.Model(ctx, &models.Dispute{}), window).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	return rows, err
}

func (r *repositoryImpl) ClosedTimestamps(ctx context.Context, window Period) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := applyWindow(r.DB(ctx), window).
		Select("dispute_id", "created_at", "resolved_at").
		Where("status IN ?", []string{string(enums.DisputeStatusResolved), string(enums.DisputeStatusRejected)}).
		Where("resolved_at IS NOT NULL").
		Find(&disputes).Error
	return disputes, err
}

func applyWindow(query *gorm.DB, window Period) *gorm.DB {
	if window.Start != nil {
		query = query.Where("created_at >= ?", *window.Start)
	}
	if window.End != nil {
		query = query.Where("created_at <= ?", *window.End)
	}
	return query
}
