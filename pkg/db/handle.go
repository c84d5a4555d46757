package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/studiovault/pkg/config"
	pkgerrors "github.com/angelmondragon/studiovault/pkg/errors"
	"github.com/angelmondragon/studiovault/pkg/logger"
	"github.com/angelmondragon/studiovault/pkg/migrate"
)

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handle owns the connection to the local database file. The connection is
// opened on first use, shared by every caller, and reopened after it is
// invalidated. Callers borrow it through a Lease.
type Handle struct {
	cfg         config.DBConfig
	logg        *logger.Logger
	migrateTo   int64
	autoMigrate bool

	group singleflight.Group

	mu         sync.Mutex
	current    *conn
	generation uint64
	closed     bool
}

type conn struct {
	db            *gorm.DB
	generation    uint64
	schemaVersion int64
	refs          int
	stale         bool
}

type Option func(*Handle)

// WithMigrationTarget stops migrations at version instead of the latest.
func WithMigrationTarget(version int64) Option {
	return func(h *Handle) {
		h.migrateTo = version
	}
}

// New prepares a handle. Nothing touches the filesystem until Acquire.
func New(cfg config.DBConfig, logg *logger.Logger, opts ...Option) *Handle {
	if logg == nil {
		logg = logger.Nop()
	}
	h := &Handle{
		cfg:         cfg,
		logg:        logg,
		migrateTo:   migrate.LatestVersion,
		autoMigrate: cfg.AutoMigrate,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Path is the database file location.
func (h *Handle) Path() string {
	return h.cfg.Path
}

// Generation counts successful opens. It changes every time the
// connection is replaced.
func (h *Handle) Generation() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.generation
}

// Lease is one borrowed reference to the open connection.
type Lease struct {
	h    *Handle
	c    *conn
	once sync.Once
}

func (l *Lease) DB() *gorm.DB {
	return l.c.db
}

func (l *Lease) Generation() uint64 {
	return l.c.generation
}

// Release returns the reference. err is the outcome of the work done with
// the lease; a connection-lost error invalidates the connection.
func (l *Lease) Release(err error) {
	l.once.Do(func() {
		if IsConnectionLost(err) {
			l.h.invalidate(l.c, err.Error())
		}
		l.h.release(l.c)
	})
}

// Acquire returns a lease on the open connection, opening it if needed.
func (h *Handle) Acquire(ctx context.Context) (*Lease, error) {
	for attempt := 0; attempt < 3; attempt++ {
		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			return nil, pkgerrors.New(pkgerrors.CodeStorageUnavailable, "database handle closed")
		}
		c := h.current
		if c != nil {
			c.refs++
			h.mu.Unlock()

			lease := &Lease{h: h, c: c}
			if h.schemaChanged(ctx, c) {
				h.invalidate(c, "schema version changed")
				lease.Release(nil)
				continue
			}
			return lease, nil
		}
		h.mu.Unlock()

		if _, err, _ := h.group.Do("open", func() (any, error) {
			return nil, h.openLocked(context.WithoutCancel(ctx))
		}); err != nil {
			return nil, err
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeStorageUnavailable, "database connection kept changing")
}

func (h *Handle) openLocked(ctx context.Context) error {
	h.mu.Lock()
	if h.current != nil || h.closed {
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	c, err := h.open(ctx)
	if err != nil {
		h.logg.Error(ctx, "failed to open local database", err)
		return pkgerrors.Wrap(pkgerrors.CodeStorageUnavailable, err, "open local database")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		closeConn(c)
		return pkgerrors.New(pkgerrors.CodeStorageUnavailable, "database handle closed")
	}
	h.generation++
	c.generation = h.generation
	h.current = c
	h.logg.Info(h.logg.WithFields(ctx, map[string]any{
		"path":           h.cfg.Path,
		"generation":     c.generation,
		"schema_version": c.schemaVersion,
	}), "database connection established")
	return nil
}

func (h *Handle) open(ctx context.Context) (*conn, error) {
	if h.cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if dir := filepath.Dir(h.cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	gdb, err := gorm.Open(sqlite.Open(h.cfg.DSN()), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	applyPoolSettings(sqlDB, h.cfg)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if h.autoMigrate {
		if err := migrate.UpTo(ctx, sqlDB, h.migrateTo, h.logg); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	version, err := schemaVersion(ctx, gdb)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &conn{db: gdb, schemaVersion: version}, nil
}

func applyPoolSettings(sqlDB *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

func schemaVersion(ctx context.Context, gdb *gorm.DB) (int64, error) {
	var version int64
	if err := gdb.WithContext(ctx).Raw("PRAGMA schema_version").Scan(&version).Error; err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// schemaChanged detects another process altering the schema under us.
func (h *Handle) schemaChanged(ctx context.Context, c *conn) bool {
	version, err := schemaVersion(ctx, c.db)
	if err != nil {
		return IsConnectionLost(err)
	}
	return version != c.schemaVersion
}

// Invalidate drops the current connection. In-flight leases keep working
// until they are released; the next Acquire reopens.
func (h *Handle) Invalidate(reason string) {
	h.mu.Lock()
	c := h.current
	h.mu.Unlock()
	if c != nil {
		h.invalidate(c, reason)
	}
}

func (h *Handle) invalidate(c *conn, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.stale {
		return
	}
	c.stale = true
	if h.current == c {
		h.current = nil
	}
	if c.refs == 0 {
		closeConn(c)
	}
	h.logg.Warn(h.logg.WithFields(context.Background(), map[string]any{
		"generation": c.generation,
		"reason":     reason,
	}), "database connection invalidated")
}

func (h *Handle) release(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.refs--
	if c.stale && c.refs == 0 {
		closeConn(c)
	}
}

func closeConn(c *conn) {
	if sqlDB, err := c.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// View runs fn against the shared connection without a transaction.
func (h *Handle) View(ctx context.Context, fn func(db *gorm.DB) error) error {
	lease, err := h.Acquire(ctx)
	if err != nil {
		return err
	}
	err = fn(lease.DB().WithContext(ctx))
	lease.Release(err)
	return err
}

// WithTx executes fn inside a transaction, rolling back on error/panic. It
// returns only after the commit has completed.
func (h *Handle) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	lease, err := h.Acquire(ctx)
	if err != nil {
		return err
	}
	var opErr error
	defer func() { lease.Release(opErr) }()

	tx := lease.DB().WithContext(ctx).Begin()
	if tx.Error != nil {
		opErr = tx.Error
		return pkgerrors.Wrap(pkgerrors.CodeTransactionFailed, tx.Error, "begin transaction")
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		opErr = err
		return pkgerrors.Ensure(pkgerrors.CodeTransactionFailed, err, "transaction aborted")
	}

	if err := tx.Commit().Error; err != nil {
		opErr = err
		return pkgerrors.Wrap(pkgerrors.CodeTransactionFailed, err, "commit transaction")
	}
	return nil
}

// Ping verifies the database file is reachable, opening it if needed.
func (h *Handle) Ping(ctx context.Context) error {
	return h.View(ctx, func(db *gorm.DB) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
}

// Reclaim folds the WAL back into the main file and returns free pages to
// the filesystem.
func (h *Handle) Reclaim(ctx context.Context) error {
	return h.View(ctx, func(db *gorm.DB) error {
		if err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error; err != nil {
			return fmt.Errorf("checkpoint wal: %w", err)
		}
		if err := db.Exec("PRAGMA incremental_vacuum").Error; err != nil {
			return fmt.Errorf("incremental vacuum: %w", err)
		}
		return nil
	})
}

// Close shuts the handle. Leases still out close the connection on release.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	c := h.current
	h.current = nil
	if c == nil || c.stale {
		return nil
	}
	c.stale = true
	if c.refs == 0 {
		sqlDB, err := c.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
