package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"bizpulse/pkg/client"
	"bizpulse/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	PortalBaseURL  string
	PortalAdminKey string
	PortalTimeout  time.Duration

	SyncInterval   time.Duration
	SyncBatchLimit int

	BookingCacheTTL time.Duration

	RequestTimeout time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client

	portalRequired bool
}

// Load reads configuration from the environment for a long-running service.
// Services construct a portal client, so the admin key is required here.
func Load(serviceName string) *Config {
	cfg := fromEnv(serviceName)
	cfg.portalRequired = true
	cfg.mustValidate()
	return cfg
}

// LoadJob is Load without the portal credential requirement, for one-shot
// jobs (migrations) that never call the portal.
func LoadJob(jobName string) *Config {
	cfg := fromEnv(jobName)
	cfg.mustValidate()
	return cfg
}

func fromEnv(serviceName string) *Config {
	return &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		PortalBaseURL:  getEnvStr(EnvPortalBaseURL, DefaultPortalBaseURL),
		PortalAdminKey: getEnvStr(EnvPortalAdminKey, ""),
		PortalTimeout:  getEnvDuration(EnvPortalTimeout, DefaultPortalTimeout),

		SyncInterval:   getEnvDuration(EnvSyncInterval, DefaultSyncInterval),
		SyncBatchLimit: getEnvNum(EnvSyncBatchLimit, DefaultSyncBatchLimit),

		BookingCacheTTL: getEnvDuration(EnvBookingCacheTTL, DefaultBookingCacheTTL),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}
}

func (cfg *Config) mustValidate() {
	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}

	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	if !regexp.MustCompile(`^https?://`).MatchString(cfg.PortalBaseURL) {
		errors = append(errors, fmt.Sprintf("PortalBaseURL must start with 'http://' or 'https://', got: %s", cfg.PortalBaseURL))
	}

	// A missing admin key is a deployment mistake, not a runtime condition;
	// fail at startup instead of failing every portal call. Jobs that never
	// talk to the portal skip this check.
	if cfg.portalRequired && cfg.PortalAdminKey == "" {
		errors = append(errors, "PortalAdminKey cannot be empty, set "+EnvPortalAdminKey)
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.PortalTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("PortalTimeout must be positive, got: %s", cfg.PortalTimeout))
	}
	if cfg.SyncInterval <= 0 {
		errors = append(errors, fmt.Sprintf("SyncInterval must be positive, got: %s", cfg.SyncInterval))
	}
	if cfg.SyncBatchLimit <= 0 {
		errors = append(errors, fmt.Sprintf("SyncBatchLimit must be positive, got: %d", cfg.SyncBatchLimit))
	}
	if cfg.BookingCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("BookingCacheTTL must be positive, got: %s", cfg.BookingCacheTTL))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"portal_base_url", cfg.PortalBaseURL,
		"portal_admin_key_set", cfg.PortalAdminKey != "",
		"portal_timeout", cfg.PortalTimeout,
		"sync_interval", cfg.SyncInterval,
		"sync_batch_limit", cfg.SyncBatchLimit,
		"booking_cache_ttl", cfg.BookingCacheTTL,
		"request_timeout", cfg.RequestTimeout,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}
