// Package dbtest opens throwaway database handles for package tests.
package dbtest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/angelmondragon/studiovault/pkg/config"
	"github.com/angelmondragon/studiovault/pkg/db"
)

// Config returns a database config pointing into t.TempDir().
func Config(t testing.TB) config.DBConfig {
	t.Helper()
	return config.DBConfig{
		Path:         filepath.Join(t.TempDir(), "studio.db"),
		BusyTimeout:  5 * time.Second,
		JournalMode:  "WAL",
		AutoMigrate:  true,
		MaxOpenConns: 4,
		MaxIdleConns: 2,
	}
}

// New opens a fully migrated handle closed at the end of the test.
func New(t testing.TB, opts ...db.Option) *db.Handle {
	t.Helper()
	h := db.New(Config(t), nil, opts...)
	t.Cleanup(func() { _ = h.Close() })
	return h
}
