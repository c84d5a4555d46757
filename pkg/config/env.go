package config

// EnvPrefix is passed to envconfig; every field carries its full name.
const EnvPrefix = "STUDIOVAULT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "STUDIOVAULT_APP_ENV"
	EnvPort     = "STUDIOVAULT_APP_PORT"
	EnvLogLevel = "STUDIOVAULT_LOG_LEVEL"

	EnvDBPath        = "STUDIOVAULT_DB_PATH"
	EnvDBBusyTimeout = "STUDIOVAULT_DB_BUSY_TIMEOUT"
	EnvDBJournalMode = "STUDIOVAULT_DB_JOURNAL_MODE"

	EnvRedisURL = "STUDIOVAULT_REDIS_URL"

	EnvStorageQuotaBytes  = "STUDIOVAULT_STORAGE_QUOTA_BYTES"
	EnvCompressionQuality = "STUDIOVAULT_COMPRESSION_QUALITY"

	EnvGalleryDefaultLimit = "STUDIOVAULT_GALLERY_DEFAULT_LIMIT"
	EnvGalleryMaxLimit     = "STUDIOVAULT_GALLERY_MAX_LIMIT"

	EnvMaintenanceEnabled  = "STUDIOVAULT_MAINTENANCE_ENABLED"
	EnvMaintenanceInterval = "STUDIOVAULT_MAINTENANCE_INTERVAL"

	EnvCORSAllowedOrigins = "STUDIOVAULT_CORS_ALLOWED_ORIGINS"
)
