package database

import (
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

// SQLiteDialect implements Dialect for SQLite
type SQLiteDialect struct{}

// NewSQLiteDialect creates a new SQLite dialect
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) DriverName() string {
	return "sqlite3"
}

// DSN enables foreign keys, WAL and a busy timeout through connection
// parameters so that every pooled connection gets them, not only the first.
func (d *SQLiteDialect) DSN(config DialectConfig) string {
	params := "_foreign_keys=on&_busy_timeout=5000"
	if config.Path != ":memory:" && !strings.Contains(config.Path, "mode=memory") {
		params += "&_journal_mode=WAL"
	}
	if strings.Contains(config.Path, "?") {
		return config.Path + "&" + params
	}
	return config.Path + "?" + params
}

func (d *SQLiteDialect) RewriteQuery(query string) string {
	// SQLite uses ? placeholders, no rewrite needed
	return query
}

func (d *SQLiteDialect) InsertOrIgnore(query string) string {
	return appendOnConflictDoNothing(query)
}

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB) error {
	configurePool(db)
	return nil
}

func (d *SQLiteDialect) MigrationsSubdir() string {
	return "sqlite"
}

func (d *SQLiteDialect) GooseDialect() goose.Dialect {
	return goose.DialectSQLite3
}
