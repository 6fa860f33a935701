package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/disputedesk-backend/api/controllers"
	"github.com/angelmondragon/disputedesk-backend/api/middleware"
	"github.com/angelmondragon/disputedesk-backend/internal/auditlog"
	"github.com/angelmondragon/disputedesk-backend/internal/disputes"
	"github.com/angelmondragon/disputedesk-backend/pkg/config"
	"github.com/angelmondragon/disputedesk-backend/pkg/enums"
	"github.com/angelmondragon/disputedesk-backend/pkg/logger"
	"github.com/angelmondragon/disputedesk-backend/pkg/redis"
)

// NewRouter mounts health, metrics and the v1 dispute and audit APIs. redisClient
// may be nil, in which case idempotency replay is disabled. A nil metricsHandler
// serves the default prometheus registry.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	disputeService disputes.Service,
	auditService auditlog.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.CORS),
		middleware.Logging(logg),
	)

	var idempotencyStore redis.IdempotencyStore
	readiness := map[string]controllers.Pinger{"db": dbP}
	if redisClient != nil {
		idempotencyStore = redisClient
		readiness["redis"] = redisClient
	}
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	adminOrCVA := middleware.RequireRoles(logg, enums.RoleAdmin, enums.RoleCVA)
	adminOnly := middleware.RequireRoles(logg, enums.RoleAdmin)
	idempotent := middleware.Idempotency(idempotencyStore, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/disputes", func(r chi.Router) {
			r.With(idempotent).Post("/", controllers.CreateDispute(disputeService, logg))

			r.Group(func(r chi.Router) {
				r.Use(adminOrCVA)
				r.Get("/statistics", controllers.DisputeStatistics(disputeService, logg))
				r.Get("/transaction/{transactionId}", controllers.ListDisputesByTransaction(disputeService, logg))
				r.Get("/user/{userId}", controllers.ListDisputesByUser(disputeService, logg))
				r.Get("/{disputeId}", controllers.GetDispute(disputeService, logg))
				r.Get("/", controllers.ListDisputes(disputeService, logg))
				r.Patch("/{disputeId}/status", controllers.UpdateDisputeStatus(disputeService, logg))
				r.With(idempotent).Post("/{disputeId}/resolve", controllers.ResolveDispute(disputeService, logg))
			})

			r.With(adminOnly).Delete("/{disputeId}", controllers.DeleteDispute(disputeService, logg))
		})

		r.Route("/admin-actions", func(r chi.Router) {
			r.Use(adminOnly)
			r.With(idempotent).Post("/", controllers.RecordAdminAction(auditService, logg))
			r.Get("/statistics", controllers.AdminActionStatistics(auditService, logg))
			r.Get("/recent", controllers.RecentAdminActions(auditService, logg))
			r.Get("/export", controllers.ExportAdminActions(auditService, logg))
			r.Get("/admin/{adminId}", controllers.ListAdminActionsByAdmin(auditService, logg))
			r.Get("/admin/{adminId}/activity", controllers.AdminActivity(auditService, logg))
			r.Get("/type/{actionType}", controllers.ListAdminActionsByType(auditService, logg))
			r.Get("/target/{targetId}", controllers.ListAdminActionsByTarget(auditService, logg))
			r.Get("/{actionId}", controllers.GetAdminAction(auditService, logg))
			r.Get("/", controllers.ListAdminActions(auditService, logg))
		})
	})

	return r
}
