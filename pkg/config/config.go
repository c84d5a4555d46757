package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App         AppConfig
	Service     ServiceConfig
	DB          DBConfig
	Redis       RedisConfig
	Storage     StorageConfig
	Compression CompressionConfig
	Gallery     GalleryConfig
	Maintenance MaintenanceConfig
	CORS        CORSConfig
	Archive     ArchiveConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STUDIOVAULT_APP_ENV" default:"dev"`
	Port         string `envconfig:"STUDIOVAULT_APP_PORT" default:"8787"`
	LogLevel     string `envconfig:"STUDIOVAULT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STUDIOVAULT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STUDIOVAULT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"STUDIOVAULT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	Path        string        `envconfig:"STUDIOVAULT_DB_PATH" required:"true"`
	BusyTimeout time.Duration `envconfig:"STUDIOVAULT_DB_BUSY_TIMEOUT" default:"5s"`
	JournalMode string        `envconfig:"STUDIOVAULT_DB_JOURNAL_MODE" default:"WAL"`
	AutoMigrate bool          `envconfig:"STUDIOVAULT_DB_AUTO_MIGRATE" default:"true"`

	MaxOpenConns    int           `envconfig:"STUDIOVAULT_DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"STUDIOVAULT_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxIdleTime time.Duration `envconfig:"STUDIOVAULT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// DSN builds the go-sqlite3 connection string for Path.
func (db DBConfig) DSN() string {
	mode := strings.ToUpper(strings.TrimSpace(db.JournalMode))
	if mode == "" {
		mode = "WAL"
	}
	busy := db.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	return fmt.Sprintf(
		"file:%s?_busy_timeout=%d&_journal_mode=%s&_txlock=immediate&_foreign_keys=off&_auto_vacuum=incremental",
		filepath.ToSlash(db.Path), busy.Milliseconds(), mode,
	)
}

// RedisConfig is optional. When URL and Address are both empty the
// maintenance scheduler falls back to an in-process lock.
type RedisConfig struct {
	URL          string        `envconfig:"STUDIOVAULT_REDIS_URL"`
	Address      string        `envconfig:"STUDIOVAULT_REDIS_ADDR"`
	Password     string        `envconfig:"STUDIOVAULT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STUDIOVAULT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STUDIOVAULT_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"STUDIOVAULT_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"STUDIOVAULT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STUDIOVAULT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STUDIOVAULT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type StorageConfig struct {
	// QuotaBytes overrides the filesystem-derived quota when positive.
	QuotaBytes int64 `envconfig:"STUDIOVAULT_STORAGE_QUOTA_BYTES" default:"0"`
}

type CompressionConfig struct {
	Quality int `envconfig:"STUDIOVAULT_COMPRESSION_QUALITY" default:"80"`
}

type GalleryConfig struct {
	DefaultLimit int `envconfig:"STUDIOVAULT_GALLERY_DEFAULT_LIMIT" default:"25"`
	MaxLimit     int `envconfig:"STUDIOVAULT_GALLERY_MAX_LIMIT" default:"100"`
}

type MaintenanceConfig struct {
	Enabled        bool          `envconfig:"STUDIOVAULT_MAINTENANCE_ENABLED" default:"true"`
	Interval       time.Duration `envconfig:"STUDIOVAULT_MAINTENANCE_INTERVAL" default:"15m"`
	OrphanGrace    time.Duration `envconfig:"STUDIOVAULT_MAINTENANCE_ORPHAN_GRACE" default:"24h"`
	DisplayIdleTTL time.Duration `envconfig:"STUDIOVAULT_MAINTENANCE_DISPLAY_IDLE_TTL" default:"30m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STUDIOVAULT_CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://127.0.0.1:5173"`
}

type ArchiveConfig struct {
	MaxImportBytes   int64 `envconfig:"STUDIOVAULT_ARCHIVE_MAX_IMPORT_BYTES" default:"2147483648"`
	MaxUnpackedBytes int64 `envconfig:"STUDIOVAULT_ARCHIVE_MAX_UNPACKED_BYTES" default:"8589934592"`
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.DB.Path) == "" {
		return fmt.Errorf("%s is required", EnvDBPath)
	}
	if c.Compression.Quality < 1 || c.Compression.Quality > 100 {
		return fmt.Errorf("%s must be between 1 and 100", EnvCompressionQuality)
	}
	if c.Gallery.DefaultLimit <= 0 || c.Gallery.MaxLimit < c.Gallery.DefaultLimit {
		return fmt.Errorf("%s must be positive and not exceed %s", EnvGalleryDefaultLimit, EnvGalleryMaxLimit)
	}
	if c.Maintenance.Enabled && c.Maintenance.Interval <= 0 {
		return fmt.Errorf("%s must be positive when maintenance is enabled", EnvMaintenanceInterval)
	}
	return nil
}
