package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "bizpulse"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultPortalBaseURL = "http://localhost:9090"
	DefaultPortalTimeout = 10 * time.Second

	// The foregrounded app polls estimate status every 90 seconds; the worker
	// keeps the same cadence.
	DefaultSyncInterval   = 90 * time.Second
	DefaultSyncBatchLimit = 40

	DefaultBookingCacheTTL = 60 * time.Second

	DefaultRequestTimeout = 30 * time.Second

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultLogLevel = "info"
)
