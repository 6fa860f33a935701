package config

const (
	EnvPrefix = "DISPUTEDESK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EventsModeDirect = "direct"
	EventsModeOutbox = "outbox"
	EventsModeOff    = "off"

	EnvAppEnv      = "DISPUTEDESK_APP_ENV"
	EnvPort        = "DISPUTEDESK_APP_PORT"
	EnvLogLevel    = "DISPUTEDESK_LOG_LEVEL"
	EnvDBDSN       = "DISPUTEDESK_DB_DSN"
	EnvDBHost      = "DISPUTEDESK_DB_HOST"
	EnvDBUser      = "DISPUTEDESK_DB_USER"
	EnvDBName      = "DISPUTEDESK_DB_NAME"
	EnvRedisURL    = "DISPUTEDESK_REDIS_URL"
	EnvJWTSecret   = "DISPUTEDESK_JWT_SECRET"
	EnvJWTIssuer   = "DISPUTEDESK_JWT_ISSUER"
	EnvCORSOrigins = "DISPUTEDESK_CORS_ORIGINS"

	EnvMarketplaceURL  = "DISPUTEDESK_MARKETPLACE_SERVICE_URL"
	EnvAuthServiceURL  = "DISPUTEDESK_AUTH_SERVICE_URL"
	EnvServiceTimeout  = "DISPUTEDESK_SERVICE_TIMEOUT"
	EnvEventsMode      = "DISPUTEDESK_EVENTS_MODE"
	EnvGCPProjectID    = "DISPUTEDESK_GCP_PROJECT_ID"
	EnvPubSubDisputes  = "DISPUTEDESK_PUBSUB_DISPUTE_TOPIC"
	EnvUserCacheTTL    = "DISPUTEDESK_ENRICHMENT_USER_CACHE_TTL"
	EnvOutboxBatchSize = "DISPUTEDESK_OUTBOX_PUBLISH_BATCH_SIZE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
