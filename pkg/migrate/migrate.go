package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
)

// DefaultDir is the on-disk location of the migrations, used by create and
// validate. Runtime migrations come from the embedded copy.
const DefaultDir = "pkg/migrate/migrations"

const embeddedDir = "migrations"

// Version constants for the embedded migrations.
const (
	VersionInitialSchema        int64 = 20260101000000
	VersionAssetsTimestampIndex int64 = 20260102000000

	LatestVersion = VersionAssetsTimestampIndex
)

const (
	sqliteDialect    = "sqlite3"
	gooseFatalPrefix = "goose fatal: "
)

//go:embed migrations/*.sql
var embedded embed.FS

// goose keeps its dialect, base FS and logger in package globals.
var gooseMu sync.Mutex

// Printer is the subset of the application logger goose output is routed to.
type Printer interface {
	Printf(format string, v ...any)
}

type gooseLogger struct {
	out Printer
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.out.Printf(format, v...)
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.out.Printf(gooseFatalPrefix+format, v...)
}

type discard struct{}

func (discard) Printf(string, ...any) {}

func configure(base fs.FS, logg Printer) error {
	if logg == nil {
		logg = discard{}
	}
	goose.SetBaseFS(base)
	goose.SetLogger(gooseLogger{out: logg})
	if err := goose.SetDialect(sqliteDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

// Embedded exposes the bundled migrations (tests and validation).
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, embeddedDir)
	if err != nil {
		panic(err)
	}
	return sub
}

// Up applies every embedded migration that has not run yet.
func Up(ctx context.Context, db *sql.DB, logg Printer) error {
	return UpTo(ctx, db, LatestVersion, logg)
}

// UpTo applies embedded migrations up to and including version.
func UpTo(ctx context.Context, db *sql.DB, version int64, logg Printer) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := configure(embedded, logg); err != nil {
		return err
	}
	defer goose.SetBaseFS(nil)

	if err := goose.UpToContext(ctx, db, embeddedDir, version); err != nil {
		return fmt.Errorf("goose up-to %d: %w", version, err)
	}
	return nil
}

// CurrentVersion reports the highest applied migration.
func CurrentVersion(ctx context.Context, db *sql.DB) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := configure(nil, nil); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("get db version: %w", err)
	}
	return version, nil
}

// Run executes a goose command against the embedded migrations, or against
// dir on disk when dir is not empty.
func Run(ctx context.Context, db *sql.DB, dir string, command string, logg Printer, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()

	var base fs.FS = embedded
	if strings.TrimSpace(dir) != "" {
		base = nil
	} else {
		dir = embeddedDir
	}
	if err := configure(base, logg); err != nil {
		return err
	}
	defer goose.SetBaseFS(nil)

	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion migrates up/down to the requested version by comparing current DB version.
func MigrateToVersion(ctx context.Context, db *sql.DB, targetVersion string, logg Printer) error {
	if targetVersion == "" {
		return fmt.Errorf("targetVersion is required")
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	current, err := CurrentVersion(ctx, db)
	if err != nil {
		return err
	}

	switch {
	case current == target:
		return nil
	case current < target:
		return UpTo(ctx, db, target, logg)
	default:
		gooseMu.Lock()
		defer gooseMu.Unlock()
		if err := configure(embedded, logg); err != nil {
			return err
		}
		defer goose.SetBaseFS(nil)
		if err := goose.DownToContext(ctx, db, embeddedDir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
		return nil
	}
}
