package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Services     UpstreamConfig
	Enrichment   EnrichmentConfig
	FeatureFlags FeatureFlagsConfig
	Events       EventsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Events.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DISPUTEDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"DISPUTEDESK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"DISPUTEDESK_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"DISPUTEDESK_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"DISPUTEDESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DISPUTEDESK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DISPUTEDESK_DB_DSN"`
	Driver string `envconfig:"DISPUTEDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DISPUTEDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"DISPUTEDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DISPUTEDESK_DB_USER"`
	LegacyPassword string `envconfig:"DISPUTEDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"DISPUTEDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"DISPUTEDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DISPUTEDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DISPUTEDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DISPUTEDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DISPUTEDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DISPUTEDESK_REDIS_URL"`
	Address      string        `envconfig:"DISPUTEDESK_REDIS_ADDR"`
	Password     string        `envconfig:"DISPUTEDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"DISPUTEDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DISPUTEDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DISPUTEDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DISPUTEDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DISPUTEDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DISPUTEDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether enough connection data was supplied to dial redis.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"DISPUTEDESK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DISPUTEDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DISPUTEDESK_JWT_EXPIRATION_MINUTES" default:"60"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"DISPUTEDESK_CORS_ORIGINS" default:"http://localhost:3000"`
}

// UpstreamConfig points at the marketplace and identity services used for enrichment.
type UpstreamConfig struct {
	MarketplaceURL string        `envconfig:"DISPUTEDESK_MARKETPLACE_SERVICE_URL" default:"http://localhost:5003"`
	AuthURL        string        `envconfig:"DISPUTEDESK_AUTH_SERVICE_URL" default:"http://localhost:5001"`
	Timeout        time.Duration `envconfig:"DISPUTEDESK_SERVICE_TIMEOUT" default:"5s"`
}

type EnrichmentConfig struct {
	UserCacheTTL time.Duration `envconfig:"DISPUTEDESK_ENRICHMENT_USER_CACHE_TTL" default:"5m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DISPUTEDESK_AUTO_MIGRATE" default:"false"`
}

// EventsConfig selects how dispute lifecycle events leave the service.
type EventsConfig struct {
	Mode           string        `envconfig:"DISPUTEDESK_EVENTS_MODE" default:"direct"`
	Exchange       string        `envconfig:"DISPUTEDESK_EVENTS_EXCHANGE" default:"dispute.events"`
	PublishTimeout time.Duration `envconfig:"DISPUTEDESK_EVENTS_PUBLISH_TIMEOUT" default:"5s"`
}

func (e EventsConfig) UsesOutbox() bool {
	return strings.EqualFold(strings.TrimSpace(e.Mode), EventsModeOutbox)
}

func (e EventsConfig) Disabled() bool {
	return strings.EqualFold(strings.TrimSpace(e.Mode), EventsModeOff)
}

func (e EventsConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(e.Mode)) {
	case EventsModeDirect, EventsModeOutbox, EventsModeOff:
		return nil
	}
	return fmt.Errorf("%s must be one of %s, %s, %s", EnvEventsMode, EventsModeDirect, EventsModeOutbox, EventsModeOff)
}

type GCPConfig struct {
	ProjectID string `envconfig:"DISPUTEDESK_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DisputeTopic string `envconfig:"DISPUTEDESK_PUBSUB_DISPUTE_TOPIC" default:"dispute-events"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"DISPUTEDESK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"DISPUTEDESK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"DISPUTEDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MetricsAddr    string `envconfig:"DISPUTEDESK_OUTBOX_METRICS_ADDR" default:":9091"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
