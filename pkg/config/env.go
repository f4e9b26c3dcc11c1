package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvPortalBaseURL  = "PORTAL_BASE_URL"
	EnvPortalAdminKey = "PORTAL_ADMIN_KEY"
	EnvPortalTimeout  = "PORTAL_TIMEOUT"

	EnvSyncInterval   = "SYNC_INTERVAL"
	EnvSyncBatchLimit = "SYNC_BATCH_LIMIT"

	EnvBookingCacheTTL = "BOOKING_CACHE_TTL"

	EnvRequestTimeout = "REQUEST_TIMEOUT"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
