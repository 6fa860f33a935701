package disputes

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/disputedesk-backend/internal/lookup"
	"github.com/angelmondragon/disputedesk-backend/pkg/db/models"
	"github.com/angelmondragon/disputedesk-backend/pkg/enums"
	"github.com/angelmondragon/disputedesk-backend/pkg/pagination"
)

const (
	UnknownBuyer  = "Unknown Buyer"
	UnknownSeller = "Unknown Seller"

	cancelledByUserNote = "cancelled by user"
)

// RequestMeta carries caller details forwarded to lookups and the audit log.
type RequestMeta struct {
	AuthToken string
	IPAddress string
	UserAgent string
}

// CreateInput opens a dispute against a transaction.
type CreateInput struct {
	TransactionID string
	RaisedBy      string
	Reason        string
	Description   string
	Meta          RequestMeta
}

// StatusUpdateInput moves a dispute to a new status.
type StatusUpdateInput struct {
	DisputeID uuid.UUID
	Status    enums.DisputeStatus
	ActorID   string
	Meta      RequestMeta
}

// ResolveInput closes a dispute as Resolved or Rejected.
type ResolveInput struct {
	DisputeID       uuid.UUID
	Status          enums.DisputeStatus
	ResolutionNotes string
	ActorID         string
	Meta            RequestMeta
}

// DeleteInput cancels a pending dispute.
type DeleteInput struct {
	DisputeID uuid.UUID
	ActorID   string
	Meta      RequestMeta
}

// ListParams filters, pages and sorts GetAllDisputes.
type ListParams struct {
	Status    enums.DisputeStatus
	RaisedBy  string
	Start     *time.Time
	End       *time.Time
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// ListResult is a page of disputes without enrichment.
type ListResult struct {
	Items      []models.Dispute `json:"items"`
	TotalCount int64            `json:"total_count"`
	Pagination pagination.Meta  `json:"pagination"`
}

// DisputeView is a dispute plus best-effort enrichment. The core fields are always set.
type DisputeView struct {
	DisputeID       uuid.UUID           `json:"dispute_id"`
	TransactionID   string              `json:"transaction_id"`
	RaisedBy        string              `json:"raised_by"`
	Reason          string              `json:"reason"`
	Description     string              `json:"description"`
	Status          enums.DisputeStatus `json:"status"`
	ResolutionNotes *string             `json:"resolution_notes"`
	ResolvedAt      *time.Time          `json:"resolved_at"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`

	RaisedByName       string           `json:"raised_by_name,omitempty"`
	RaisedByEmail      string           `json:"raised_by_email,omitempty"`
	TransactionDetails *TransactionView `json:"transaction_details,omitempty"`
}

// TransactionView is the linked transaction with buyer and seller display data.
type TransactionView struct {
	lookup.TransactionDetails
	BuyerName   string `json:"buyer_name"`
	BuyerEmail  string `json:"buyer_email,omitempty"`
	SellerName  string `json:"seller_name"`
	SellerEmail string `json:"seller_email,omitempty"`
}

func newView(d models.Dispute) *DisputeView {
	return &DisputeView{
		DisputeID:       d.DisputeID,
		TransactionID:   d.TransactionID,
		RaisedBy:        d.RaisedBy,
		Reason:          d.Reason,
		Description:     d.Description,
		Status:          d.Status,
		ResolutionNotes: d.ResolutionNotes,
		ResolvedAt:      d.ResolvedAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// Period echoes the window statistics were computed over.
type Period struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Statistics counts disputes by status and averages resolution time.
type Statistics struct {
	Total                  int64                         `json:"total"`
	ByStatus               map[enums.DisputeStatus]int64 `json:"by_status"`
	AverageResolutionHours float64                       `json:"avg_resolution_time_hours"`
	Period                 Period                        `json:"period"`
}
