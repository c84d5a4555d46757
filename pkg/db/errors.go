package db

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
)

func sqliteError(err error) (sqlite3.Error, bool) {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr, true
	}
	return sqlite3.Error{}, false
}

// IsConnectionLost reports whether err means the underlying connection can
// no longer be trusted and must be reopened.
func IsConnectionLost(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if strings.Contains(err.Error(), "sql: database is closed") {
		return true
	}
	sqliteErr, ok := sqliteError(err)
	if !ok {
		return false
	}
	switch sqliteErr.Code {
	case sqlite3.ErrNotADB, sqlite3.ErrCorrupt, sqlite3.ErrIoErr, sqlite3.ErrCantOpen:
		return true
	}
	return false
}

// IsBusy reports whether err is SQLite lock contention that outlived the
// busy timeout.
func IsBusy(err error) bool {
	sqliteErr, ok := sqliteError(err)
	if !ok {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}

// IsUniqueViolation reports whether the provided error is a SQLite unique or
// primary key violation. When constraintName is provided, the helper looks
// for it in the error message (SQLite reports "table.column").
func IsUniqueViolation(err error, constraintName string) bool {
	sqliteErr, ok := sqliteError(err)
	if !ok {
		return false
	}
	if sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique && sqliteErr.ExtendedCode != sqlite3.ErrConstraintPrimaryKey {
		return false
	}
	if constraintName != "" {
		return strings.Contains(sqliteErr.Error(), constraintName)
	}
	return true
}
