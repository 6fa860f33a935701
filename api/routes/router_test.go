package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/disputedesk-backend/internal/auditlog"
	"github.com/angelmondragon/disputedesk-backend/internal/disputes"
	pkgAuth "github.com/angelmondragon/disputedesk-backend/pkg/auth"
	"github.com/angelmondragon/disputedesk-backend/pkg/config"
	"github.com/angelmondragon/disputedesk-backend/pkg/db/models"
	"github.com/angelmondragon/disputedesk-backend/pkg/enums"
	"github.com/angelmondragon/disputedesk-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubDisputeService struct {
	disputes.Service
}

func (stubDisputeService) CreateDispute(ctx context.Context, input disputes.CreateInput) (*disputes.DisputeView, error) {
	return &disputes.DisputeView{DisputeID: uuid.New(), RaisedBy: input.RaisedBy, Status: enums.DisputeStatusPending}, nil
}

func (stubDisputeService) GetAllDisputes(ctx context.Context, params disputes.ListParams) (*disputes.ListResult, error) {
	return &disputes.ListResult{Items: []models.Dispute{}}, nil
}

func (stubDisputeService) DeleteDispute(ctx context.Context, input disputes.DeleteInput) error {
	return nil
}

func (stubDisputeService) GetDisputeStatistics(ctx context.Context, start, end *time.Time) (*disputes.Statistics, error) {
	return &disputes.Statistics{ByStatus: map[enums.DisputeStatus]int64{}}, nil
}

type stubAuditService struct {
	auditlog.Service
}

func (stubAuditService) Recent(ctx context.Context, hours int) ([]models.AdminAction, error) {
	return []models.AdminAction{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "identity", ExpirationMinutes: 30},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	return NewRouter(cfg, logg, stubPinger{}, nil, stubDisputeService{}, stubAuditService{}, metrics)
}

func tokenFor(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: "user-" + string(role), Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func serve(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router := newTestRouter(testConfig())

	if resp := serve(router, http.MethodGet, "/health/live", "", ""); resp.Code != http.StatusOK {
		t.Fatalf("live: expected 200 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodGet, "/health/ready", "", ""); resp.Code != http.StatusOK {
		t.Fatalf("ready: expected 200 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodGet, "/metrics", "", ""); resp.Code != http.StatusOK || resp.Body.String() != "# metrics" {
		t.Fatalf("metrics: unexpected %d %q", resp.Code, resp.Body.String())
	}
}

func TestDisputesRejectMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	if resp := serve(router, http.MethodGet, "/api/v1/disputes", "", ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAnyAuthenticatedUserCanCreateDispute(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	body := `{"transactionId":"550e8400-e29b-41d4-a716-446655440000","reason":"r","description":"d"}`

	resp := serve(router, http.MethodPost, "/api/v1/disputes", tokenFor(t, cfg, enums.RoleBuyer), body)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}

func TestDisputeReadsRequireAdminOrCVA(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	tests := []struct {
		role   enums.Role
		status int
	}{
		{enums.RoleAdmin, http.StatusOK},
		{enums.RoleCVA, http.StatusOK},
		{enums.RoleBuyer, http.StatusForbidden},
		{enums.RoleEVOwner, http.StatusForbidden},
	}
	for _, tt := range tests {
		resp := serve(router, http.MethodGet, "/api/v1/disputes", tokenFor(t, cfg, tt.role), "")
		if resp.Code != tt.status {
			t.Fatalf("%s list: expected %d got %d", tt.role, tt.status, resp.Code)
		}
		resp = serve(router, http.MethodGet, "/api/v1/disputes/statistics", tokenFor(t, cfg, tt.role), "")
		if resp.Code != tt.status {
			t.Fatalf("%s statistics: expected %d got %d", tt.role, tt.status, resp.Code)
		}
	}
}

func TestDeleteDisputeRequiresAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	path := "/api/v1/disputes/" + uuid.NewString()

	if resp := serve(router, http.MethodDelete, path, tokenFor(t, cfg, enums.RoleCVA), ""); resp.Code != http.StatusForbidden {
		t.Fatalf("cva: expected 403 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodDelete, path, tokenFor(t, cfg, enums.RoleAdmin), ""); resp.Code != http.StatusOK {
		t.Fatalf("admin: expected 200 got %d", resp.Code)
	}
}

func TestAdminActionsRequireAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	if resp := serve(router, http.MethodGet, "/api/v1/admin-actions/recent", tokenFor(t, cfg, enums.RoleCVA), ""); resp.Code != http.StatusForbidden {
		t.Fatalf("cva: expected 403 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodGet, "/api/v1/admin-actions/recent", tokenFor(t, cfg, enums.RoleAdmin), ""); resp.Code != http.StatusOK {
		t.Fatalf("admin: expected 200 got %d", resp.Code)
	}
}
