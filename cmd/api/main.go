package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/disputedesk-backend/api/routes"
	"github.com/angelmondragon/disputedesk-backend/internal/auditlog"
	"github.com/angelmondragon/disputedesk-backend/internal/disputes"
	"github.com/angelmondragon/disputedesk-backend/internal/events"
	"github.com/angelmondragon/disputedesk-backend/internal/lookup"
	"github.com/angelmondragon/disputedesk-backend/pkg/config"
	"github.com/angelmondragon/disputedesk-backend/pkg/db"
	"github.com/angelmondragon/disputedesk-backend/pkg/identity"
	"github.com/angelmondragon/disputedesk-backend/pkg/instance"
	"github.com/angelmondragon/disputedesk-backend/pkg/logger"
	"github.com/angelmondragon/disputedesk-backend/pkg/marketplace"
	"github.com/angelmondragon/disputedesk-backend/pkg/metrics"
	"github.com/angelmondragon/disputedesk-backend/pkg/migrate"
	"github.com/angelmondragon/disputedesk-backend/pkg/outbox"
	"github.com/angelmondragon/disputedesk-backend/pkg/pubsub"
	"github.com/angelmondragon/disputedesk-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	closers = append(closers, dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		closers = append(closers, redisClient.Close)
	} else {
		logg.Warn(ctx, "redis not configured; idempotency and user caching disabled")
	}

	publisher, closePublisher, err := buildPublisher(ctx, cfg, logg, dbClient)
	if err != nil {
		return err
	}
	if closePublisher != nil {
		closers = append(closers, closePublisher)
	}

	transactions, users, err := buildLookups(cfg, logg, redisClient)
	if err != nil {
		return err
	}

	auditService, err := auditlog.NewService(auditlog.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}
	disputeService, err := disputes.NewService(disputes.ServiceParams{
		Repo:         disputes.NewRepository(dbClient.DB()),
		Audit:        auditService,
		Transactions: transactions,
		Users:        users,
		Publisher:    publisher,
		Exchange:     cfg.Events.Exchange,
		Metrics:      metrics.NewDisputeMetrics(prometheus.DefaultRegisterer),
		Logger:       logg,
	})
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"events_mode": cfg.Events.Mode,
		"instance":    instance.ID(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, disputeService, auditService, nil),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildPublisher(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (events.Publisher, func() error, error) {
	switch {
	case cfg.Events.Disabled():
		logg.Warn(ctx, "dispute events disabled")
		return events.NoopPublisher{}, nil, nil
	case cfg.Events.UsesOutbox():
		publisher, err := events.NewOutboxPublisher(outbox.NewService(outbox.NewRepository(dbClient.DB()), logg))
		if err != nil {
			return nil, nil, err
		}
		return publisher, nil, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return nil, nil, err
	}
	publisher, err := events.NewPubSubPublisher(client.DisputePublisher(), cfg.Events.PublishTimeout, logg)
	if err != nil {
		return nil, nil, multierr.Append(err, client.Close())
	}
	return publisher, client.Close, nil
}

func buildLookups(cfg *config.Config, logg *logger.Logger, redisClient *redis.Client) (lookup.TransactionLookup, lookup.UserLookup, error) {
	marketClient, err := marketplace.NewClient(cfg.Services.MarketplaceURL, marketplace.WithTimeout(cfg.Services.Timeout))
	if err != nil {
		return nil, nil, err
	}
	identityClient, err := identity.NewClient(cfg.Services.AuthURL, identity.WithTimeout(cfg.Services.Timeout))
	if err != nil {
		return nil, nil, err
	}

	transactions, err := lookup.NewMarketplaceLookup(marketClient)
	if err != nil {
		return nil, nil, err
	}
	users, err := lookup.NewIdentityLookup(identityClient)
	if err != nil {
		return nil, nil, err
	}
	if redisClient != nil {
		users = lookup.NewCachedUserLookup(users, redisClient, cfg.Enrichment.UserCacheTTL, logg)
	}
	return transactions, users, nil
}
