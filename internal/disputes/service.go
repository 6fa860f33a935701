package disputes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/disputedesk-backend/internal/auditlog"
	"github.com/angelmondragon/disputedesk-backend/internal/events"
	"github.com/angelmondragon/disputedesk-backend/internal/lookup"
	"github.com/angelmondragon/disputedesk-backend/pkg/db/models"
	"github.com/angelmondragon/disputedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/disputedesk-backend/pkg/errors"
	"github.com/angelmondragon/disputedesk-backend/pkg/logger"
	"github.com/angelmondragon/disputedesk-backend/pkg/metrics"
	"github.com/angelmondragon/disputedesk-backend/pkg/pagination"
)

const (
	opCreate        = "create"
	opGet           = "get"
	opList          = "list"
	opListByTx      = "list_by_transaction"
	opListByUser    = "list_by_user"
	opUpdateStatus  = "update_status"
	opResolve       = "resolve"
	opDelete        = "delete"
	opStatistics    = "statistics"
	defaultExchange = "dispute.events"

	maxTransitionAttempts = 3
)

var sortColumns = map[string]string{
	"created_at":     "created_at",
	"createdat":      "created_at",
	"updated_at":     "updated_at",
	"updatedat":      "updated_at",
	"resolved_at":    "resolved_at",
	"resolvedat":     "resolved_at",
	"status":         "status",
	"reason":         "reason",
	"transaction_id": "transaction_id",
	"transactionid":  "transaction_id",
}

// AuditRecorder appends entries to the admin action log.
type AuditRecorder interface {
	Record(ctx context.Context, input auditlog.RecordInput) (*models.AdminAction, error)
}

// Service runs the dispute lifecycle.
type Service interface {
	CreateDispute(ctx context.Context, input CreateInput) (*DisputeView, error)
	GetDisputeByID(ctx context.Context, disputeID uuid.UUID, authToken string) (*DisputeView, error)
	GetAllDisputes(ctx context.Context, params ListParams) (*ListResult, error)
	GetDisputesByTransaction(ctx context.Context, transactionID string) ([]models.Dispute, error)
	GetDisputesByUser(ctx context.Context, userID string) ([]models.Dispute, error)
	UpdateDisputeStatus(ctx context.Context, input StatusUpdateInput) (*DisputeView, error)
	ResolveDispute(ctx context.Context, input ResolveInput) (*DisputeView, error)
	DeleteDispute(ctx context.Context, input DeleteInput) error
	GetDisputeStatistics(ctx context.Context, start, end *time.Time) (*Statistics, error)
}

// ServiceParams groups dependencies for the dispute service.
type ServiceParams struct {
	Repo         Repository
	Audit        AuditRecorder
	Transactions lookup.TransactionLookup
	Users        lookup.UserLookup
	Publisher    events.Publisher
	Exchange     string
	Metrics      *metrics.DisputeMetrics
	Logger       *logger.Logger
}

type service struct {
	repo         Repository
	audit        AuditRecorder
	transactions lookup.TransactionLookup
	users        lookup.UserLookup
	publisher    events.Publisher
	exchange     string
	metrics      *metrics.DisputeMetrics
	logg         *logger.Logger
	now          func() time.Time
}

// NewService builds a dispute service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dispute repository required")
	}
	if params.Audit == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "audit recorder required")
	}
	if params.Transactions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction lookup required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user lookup required")
	}
	publisher := params.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	exchange := strings.TrimSpace(params.Exchange)
	if exchange == "" {
		exchange = defaultExchange
	}
	return &service{
		repo:         params.Repo,
		audit:        params.Audit,
		transactions: params.Transactions,
		users:        params.Users,
		publisher:    publisher,
		exchange:     exchange,
		metrics:      params.Metrics,
		logg:         params.Logger,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CreateDispute(ctx context.Context, input CreateInput) (view *DisputeView, err error) {
	defer s.observe(opCreate, time.Now(), &err)

	transactionID, err := normalizeTransactionID(ctx, s.logg, input.TransactionID)
	if err != nil {
		return nil, err
	}
	reason, description, err := validateCreateInput(input)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsForTransaction(ctx, transactionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing dispute")
	}
	if exists {
		return nil, errDuplicateDispute()
	}

	found, err := s.transactions.Exists(ctx, transactionID, input.Meta.AuthToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unable to verify transaction")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}

	now := s.now()
	dispute := &models.Dispute{
		TransactionID: transactionID,
		RaisedBy:      strings.TrimSpace(input.RaisedBy),
		Reason:        reason,
		Description:   description,
		Status:        enums.DisputeStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, dispute); err != nil {
		if errors.Is(err, ErrDuplicateTransaction) {
			return nil, errDuplicateDispute()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create dispute")
	}

	ctx = s.withDispute(ctx, dispute.DisputeID)
	s.recordAudit(ctx, auditlog.RecordInput{
		AdminID:     dispute.RaisedBy,
		ActionType:  enums.AdminActionCreateDispute,
		TargetID:    dispute.DisputeID.String(),
		Description: fmt.Sprintf("Created dispute for transaction %s", transactionID),
		Details:     snapshot(*dispute),
		IPAddress:   input.Meta.IPAddress,
		UserAgent:   input.Meta.UserAgent,
	})
	s.publishEvent(ctx, enums.DisputeEventCreated, *dispute, "")

	return s.enrich(ctx, *dispute, input.Meta.AuthToken), nil
}

func (s *service) GetDisputeByID(ctx context.Context, disputeID uuid.UUID, authToken string) (view *DisputeView, err error) {
	defer s.observe(opGet, time.Now(), &err)

	dispute, err := s.load(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	return s.enrich(s.withDispute(ctx, disputeID), *dispute, authToken), nil
}

func (s *service) GetAllDisputes(ctx context.Context, params ListParams) (result *ListResult, err error) {
	defer s.observe(opList, time.Now(), &err)

	if params.Status != "" && !params.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid dispute status %q", params.Status)
	}
	if params.Start != nil && params.End != nil && params.End.Before(*params.Start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date must not be before start date")
	}
	order, err := pagination.ParseSortOrder(params.SortOrder)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort order")
	}

	page := pagination.Params{Page: params.Page, Limit: params.Limit}.Normalize()
	items, total, err := s.repo.List(ctx, listQuery{
		Status:   params.Status,
		RaisedBy: strings.TrimSpace(params.RaisedBy),
		Window:   Period{Start: params.Start, End: params.End},
		Page:     page,
		Sort:     pagination.ResolveSort(params.SortBy, order, sortColumns, "created_at"),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list disputes")
	}
	return &ListResult{
		Items:      nonNil(items),
		TotalCount: total,
		Pagination: pagination.NewMeta(page, total),
	}, nil
}

func (s *service) GetDisputesByTransaction(ctx context.Context, transactionID string) (items []models.Dispute, err error) {
	defer s.observe(opListByTx, time.Now(), &err)

	normalized, err := normalizeTransactionID(ctx, s.logg, transactionID)
	if err != nil {
		return nil, err
	}
	items, err = s.repo.ListByTransaction(ctx, normalized)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list disputes by transaction")
	}
	return nonNil(items), nil
}

func (s *service) GetDisputesByUser(ctx context.Context, userID string) (items []models.Dispute, err error) {
	defer s.observe(opListByUser, time.Now(), &err)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	items, err = s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list disputes by user")
	}
	return nonNil(items), nil
}

func (s *service) UpdateDisputeStatus(ctx context.Context, input StatusUpdateInput) (view *DisputeView, err error) {
	defer s.observe(opUpdateStatus, time.Now(), &err)

	if !input.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid dispute status %q", input.Status)
	}
	if err := requireActor(input.ActorID); err != nil {
		return nil, err
	}

	before, after, err := s.transition(ctx, input.DisputeID, func(current models.Dispute) (statusChange, error) {
		if current.Status.IsTerminal() {
			return statusChange{}, pkgerrors.New(pkgerrors.CodeValidation, "cannot change status of a resolved or rejected dispute")
		}
		now := s.now()
		change := statusChange{Status: input.Status, UpdatedAt: now}
		if input.Status.IsTerminal() {
			change.ResolvedAt = &now
		}
		return change, nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.withDispute(ctx, after.DisputeID)
	s.recordAudit(ctx, auditlog.RecordInput{
		AdminID:     input.ActorID,
		ActionType:  enums.AdminActionUpdateDisputeStatus,
		TargetID:    after.DisputeID.String(),
		Description: fmt.Sprintf("Updated dispute status from %s to %s", before.Status, after.Status),
		Details: map[string]any{
			"old_status": before.Status,
			"new_status": after.Status,
		},
		IPAddress: input.Meta.IPAddress,
		UserAgent: input.Meta.UserAgent,
	})
	s.publishEvent(ctx, enums.DisputeEventStatusUpdated, *after, "")

	return s.enrich(ctx, *after, input.Meta.AuthToken), nil
}

func (s *service) ResolveDispute(ctx context.Context, input ResolveInput) (view *DisputeView, err error) {
	defer s.observe(opResolve, time.Now(), &err)

	if input.Status != enums.DisputeStatusResolved && input.Status != enums.DisputeStatusRejected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resolution status must be Resolved or Rejected")
	}
	notes, err := validateResolutionNotes(input.ResolutionNotes)
	if err != nil {
		return nil, err
	}
	if err := requireActor(input.ActorID); err != nil {
		return nil, err
	}

	before, after, err := s.transition(ctx, input.DisputeID, func(current models.Dispute) (statusChange, error) {
		switch current.Status {
		case enums.DisputeStatusResolved:
			return statusChange{}, pkgerrors.New(pkgerrors.CodeValidation, "dispute already resolved")
		case enums.DisputeStatusRejected:
			return statusChange{}, pkgerrors.New(pkgerrors.CodeValidation, "dispute already rejected")
		}
		now := s.now()
		change := statusChange{Status: input.Status, ResolvedAt: &now, UpdatedAt: now}
		if notes != "" {
			change.ResolutionNotes = &notes
		}
		return change, nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.withDispute(ctx, after.DisputeID)
	s.recordAudit(ctx, auditlog.RecordInput{
		AdminID:     input.ActorID,
		ActionType:  enums.AdminActionResolveDispute,
		TargetID:    after.DisputeID.String(),
		Description: fmt.Sprintf("Resolved dispute as %s", after.Status),
		Details: map[string]any{
			"old_status":       before.Status,
			"new_status":       after.Status,
			"resolution_notes": notes,
			"resolved_by":      input.ActorID,
		},
		IPAddress: input.Meta.IPAddress,
		UserAgent: input.Meta.UserAgent,
	})
	s.publishEvent(ctx, enums.DisputeEventResolved, *after, input.ActorID)

	return s.enrich(ctx, *after, input.Meta.AuthToken), nil
}

func (s *service) DeleteDispute(ctx context.Context, input DeleteInput) (err error) {
	defer s.observe(opDelete, time.Now(), &err)

	if err := requireActor(input.ActorID); err != nil {
		return err
	}

	before, after, err := s.transition(ctx, input.DisputeID, func(current models.Dispute) (statusChange, error) {
		if current.Status != enums.DisputeStatusPending {
			return statusChange{}, pkgerrors.New(pkgerrors.CodeValidation, "only pending disputes can be deleted")
		}
		now := s.now()
		notes := cancelledByUserNote
		return statusChange{
			Status:          enums.DisputeStatusRejected,
			ResolutionNotes: &notes,
			ResolvedAt:      &now,
			UpdatedAt:       now,
		}, nil
	})
	if err != nil {
		return err
	}

	ctx = s.withDispute(ctx, after.DisputeID)
	s.recordAudit(ctx, auditlog.RecordInput{
		AdminID:     input.ActorID,
		ActionType:  enums.AdminActionDeleteDispute,
		TargetID:    after.DisputeID.String(),
		Description: "Cancelled pending dispute",
		Details: map[string]any{
			"old_status": before.Status,
			"new_status": after.Status,
			"snapshot":   snapshot(*before),
		},
		IPAddress: input.Meta.IPAddress,
		UserAgent: input.Meta.UserAgent,
	})
	s.publishEvent(ctx, enums.DisputeEventStatusUpdated, *after, "")
	return nil
}

// transition applies plan with a conditional update on the status it was computed from.
// A lost race reloads the row so the guard runs again against the new status.
func (s *service) transition(ctx context.Context, disputeID uuid.UUID, plan func(models.Dispute) (statusChange, error)) (*models.Dispute, *models.Dispute, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		current, err := s.load(ctx, disputeID)
		if err != nil {
			return nil, nil, err
		}
		change, err := plan(*current)
		if err != nil {
			return nil, nil, err
		}
		updated, err := s.repo.UpdateStatusIf(ctx, disputeID, current.Status, change)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update dispute status")
		}
		if updated {
			return current, applyChange(*current, change), nil
		}
	}
	return nil, nil, pkgerrors.New(pkgerrors.CodeConflict, "dispute was modified concurrently")
}

func (s *service) load(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	if disputeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute id is required")
	}
	dispute, err := s.repo.FindByID(ctx, disputeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute")
	}
	return dispute, nil
}

// recordAudit writes the audit entry. Failures are logged and counted, never returned.
func (s *service) recordAudit(ctx context.Context, input auditlog.RecordInput) {
	if _, err := s.audit.Record(context.WithoutCancel(ctx), input); err != nil {
		s.metrics.IncSideEffectFailure(metrics.SideEffectAudit)
		if s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "action_type", input.ActionType), "dispute audit write failed", err)
		}
	}
}

// publishEvent announces the change. Failures are logged and counted, never returned.
func (s *service) publishEvent(ctx context.Context, action enums.DisputeEventAction, d models.Dispute, resolvedBy string) {
	message := events.DisputeEvent{
		DisputeID:     d.DisputeID.String(),
		TransactionID: d.TransactionID,
		Status:        string(d.Status),
		RaisedBy:      d.RaisedBy,
		Action:        string(action),
		ResolvedBy:    resolvedBy,
		Timestamp:     s.now(),
	}
	if d.ResolutionNotes != nil {
		message.ResolutionNotes = *d.ResolutionNotes
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), s.exchange, action.RoutingKey(), message); err != nil {
		s.metrics.IncSideEffectFailure(metrics.SideEffectPublish)
		if s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "routing_key", action.RoutingKey()), "dispute event publish failed", err)
		}
	}
}

func (s *service) observe(operation string, started time.Time, err *error) {
	s.metrics.ObserveOperation(operation, *err, time.Since(started))
}

func (s *service) withDispute(ctx context.Context, disputeID uuid.UUID) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithDisputeID(ctx, disputeID.String())
}

func applyChange(d models.Dispute, change statusChange) *models.Dispute {
	d.Status = change.Status
	d.UpdatedAt = change.UpdatedAt
	if change.ResolutionNotes != nil {
		notes := *change.ResolutionNotes
		d.ResolutionNotes = &notes
	}
	if change.ResolvedAt != nil {
		resolvedAt := *change.ResolvedAt
		d.ResolvedAt = &resolvedAt
	}
	return &d
}

func snapshot(d models.Dispute) map[string]any {
	out := map[string]any{
		"dispute_id":     d.DisputeID.String(),
		"transaction_id": d.TransactionID,
		"raised_by":      d.RaisedBy,
		"reason":         d.Reason,
		"description":    d.Description,
		"status":         d.Status,
	}
	if d.ResolutionNotes != nil {
		out["resolution_notes"] = *d.ResolutionNotes
	}
	if d.ResolvedAt != nil {
		out["resolved_at"] = d.ResolvedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func requireActor(actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	return nil
}

func errDuplicateDispute() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "dispute already exists for this transaction")
}

func nonNil(items []models.Dispute) []models.Dispute {
	if items == nil {
		return []models.Dispute{}
	}
	return items
}
