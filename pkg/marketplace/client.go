package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/disputedesk-backend/pkg/errors"
	"github.com/angelmondragon/disputedesk-backend/pkg/types"
)

const (
	defaultBaseURL            = "http://localhost:5003"
	defaultTimeout            = 5 * time.Second
	responseBodyLimit   int64 = 1 << 20
	errorBodyReadLimit  int64 = 1024
	transactionPathBase       = "/api/Transaction"
)

var errBaseURLRequired = errors.New("marketplace base url is required")

// Client reads transactions from the marketplace service.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds a marketplace client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Transaction mirrors the marketplace transaction DTO.
type Transaction struct {
	ID          string           `json:"id"`
	ListingID   string           `json:"listingId"`
	Quantity    decimal.Decimal  `json:"quantity"`
	TotalAmount *decimal.Decimal `json:"totalAmount"`
	Amount      *decimal.Decimal `json:"amount"`
	Status      int              `json:"status"`
	BuyerID     string           `json:"buyerId"`
	SellerID    string           `json:"sellerId"`
	CreatedAt   *time.Time       `json:"createdAt"`
	CompletedAt *time.Time       `json:"completedAt"`
}

// Total returns totalAmount, falling back to amount.
func (t Transaction) Total() decimal.Decimal {
	if t.TotalAmount != nil {
		return *t.TotalAmount
	}
	if t.Amount != nil {
		return *t.Amount
	}
	return decimal.Zero
}

// GetTransaction fetches one transaction. A 404 yields (nil, nil).
func (c *Client) GetTransaction(ctx context.Context, transactionID, authToken string) (*Transaction, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "marketplace client not configured")
	}
	trimmed := strings.TrimSpace(transactionID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}

	endpoint := fmt.Sprintf("%s%s/%s", c.baseURL, transactionPathBase, url.PathEscape(trimmed))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build transaction request")
	}
	req.Header.Set("Accept", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute transaction request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "transaction request failed")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read transaction response")
	}
	var tx Transaction
	if err := json.Unmarshal(types.UnwrapData(body), &tx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode transaction response")
	}
	if tx.ID == "" {
		tx.ID = trimmed
	}
	return &tx, nil
}

// TransactionExists reports whether the marketplace knows the transaction.
func (c *Client) TransactionExists(ctx context.Context, transactionID, authToken string) (bool, error) {
	tx, err := c.GetTransaction(ctx, transactionID, authToken)
	if err != nil {
		return false, err
	}
	return tx != nil, nil
}
