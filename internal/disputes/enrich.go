package disputes

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/disputedesk-backend/internal/lookup"
	"github.com/angelmondragon/disputedesk-backend/pkg/db/models"
	"github.com/angelmondragon/disputedesk-backend/pkg/metrics"
)

// enrich builds the view for d. Lookup failures leave the matching fields empty.
func (s *service) enrich(ctx context.Context, d models.Dispute, authToken string) *DisputeView {
	view := newView(d)

	var g errgroup.Group
	g.Go(func() error {
		view.TransactionDetails = s.transactionView(ctx, d.TransactionID, authToken)
		return nil
	})
	g.Go(func() error {
		if info := s.userInfo(ctx, d.RaisedBy, authToken); info != nil {
			view.RaisedByName = info.FullName
			view.RaisedByEmail = info.Email
		}
		return nil
	})
	_ = g.Wait()

	return view
}

func (s *service) transactionView(ctx context.Context, transactionID, authToken string) *TransactionView {
	details, err := s.transactions.GetDetails(ctx, transactionID, authToken)
	if err != nil {
		s.enrichmentFailed(ctx, metrics.SourceTransaction, "transaction_id", transactionID, err)
		return nil
	}
	if details == nil {
		return nil
	}

	view := &TransactionView{
		TransactionDetails: *details,
		BuyerName:          UnknownBuyer,
		SellerName:         UnknownSeller,
	}

	var g errgroup.Group
	if details.BuyerID != "" {
		g.Go(func() error {
			if info := s.userInfo(ctx, details.BuyerID, authToken); info != nil && info.FullName != "" {
				view.BuyerName = info.FullName
				view.BuyerEmail = info.Email
			}
			return nil
		})
	}
	if details.SellerID != "" {
		g.Go(func() error {
			if info := s.userInfo(ctx, details.SellerID, authToken); info != nil && info.FullName != "" {
				view.SellerName = info.FullName
				view.SellerEmail = info.Email
			}
			return nil
		})
	}
	_ = g.Wait()

	return view
}

func (s *service) userInfo(ctx context.Context, userID, authToken string) *lookup.UserInfo {
	if userID == "" {
		return nil
	}
	info, err := s.users.GetBasicInfo(ctx, userID, authToken)
	if err != nil {
		s.enrichmentFailed(ctx, metrics.SourceUser, "user_id", userID, err)
		return nil
	}
	return info
}

func (s *service) enrichmentFailed(ctx context.Context, source, key, id string, err error) {
	s.metrics.IncEnrichmentFailure(source)
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"source": source,
		key:      id,
		"error":  err.Error(),
	}), "dispute enrichment lookup failed")
}
