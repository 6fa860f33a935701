package lookup

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionDetails is the transaction view used to enrich disputes.
type TransactionDetails struct {
	ID          string          `json:"id"`
	ListingID   string          `json:"listing_id,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      int             `json:"status"`
	StatusLabel string          `json:"status_label"`
	BuyerID     string          `json:"buyer_id,omitempty"`
	SellerID    string          `json:"seller_id,omitempty"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// UserInfo is the display subset of a user profile.
type UserInfo struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// TransactionLookup reads transactions from the marketplace.
type TransactionLookup interface {
	Exists(ctx context.Context, transactionID, authToken string) (bool, error)
	// GetDetails returns nil, nil when the transaction is absent.
	GetDetails(ctx context.Context, transactionID, authToken string) (*TransactionDetails, error)
}

// UserLookup reads user profiles from the identity service.
type UserLookup interface {
	// GetBasicInfo returns nil, nil when the user is absent.
	GetBasicInfo(ctx context.Context, userID, authToken string) (*UserInfo, error)
}
