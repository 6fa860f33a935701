package lookup

import (
	"context"
	"errors"

	"github.com/angelmondragon/disputedesk-backend/pkg/enums"
	"github.com/angelmondragon/disputedesk-backend/pkg/marketplace"
)

type transactionClient interface {
	GetTransaction(ctx context.Context, transactionID, authToken string) (*marketplace.Transaction, error)
	TransactionExists(ctx context.Context, transactionID, authToken string) (bool, error)
}

type marketplaceLookup struct {
	client transactionClient
}

// NewMarketplaceLookup adapts the marketplace client to TransactionLookup.
func NewMarketplaceLookup(client transactionClient) (TransactionLookup, error) {
	if client == nil {
		return nil, errors.New("marketplace client required")
	}
	return &marketplaceLookup{client: client}, nil
}

func (l *marketplaceLookup) Exists(ctx context.Context, transactionID, authToken string) (bool, error) {
	return l.client.TransactionExists(ctx, transactionID, authToken)
}

func (l *marketplaceLookup) GetDetails(ctx context.Context, transactionID, authToken string) (*TransactionDetails, error) {
	tx, err := l.client.GetTransaction(ctx, transactionID, authToken)
	if err != nil || tx == nil {
		return nil, err
	}
	return &TransactionDetails{
		ID:          tx.ID,
		ListingID:   tx.ListingID,
		Quantity:    tx.Quantity,
		TotalAmount: tx.Total(),
		Status:      tx.Status,
		StatusLabel: enums.TransactionStatus(tx.Status).Label(),
		BuyerID:     tx.BuyerID,
		SellerID:    tx.SellerID,
		CreatedAt:   tx.CreatedAt,
		CompletedAt: tx.CompletedAt,
	}, nil
}
