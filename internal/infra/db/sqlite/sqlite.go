// Package sqlite stores records in a single-file database for development and
// single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/bryanwahyu/newsgate/internal/infra/db"
	"github.com/bryanwahyu/newsgate/internal/infra/db/sqlrepo"
)

// Connect opens path with WAL journaling. Writers are serialised on one
// connection; sqlite allows a single writer anyway.
func Connect(ctx context.Context, path string) (*sql.DB, error) {
	return db.Open(ctx, "sqlite", DSN(path), db.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
}

func DSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("file:%s%s_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_time_format=sqlite", path, sep)
}

func isConstraintUnique(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

var Dialect = sqlrepo.Dialect{
	Name:              "sqlite",
	IsUniqueViolation: isConstraintUnique,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS analyses (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  owner_id TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL,
  input_text TEXT NOT NULL,
  source_url TEXT NOT NULL DEFAULT '',
  source_platform TEXT NOT NULL DEFAULT '',
  model_name TEXT NOT NULL,
  model_version TEXT NOT NULL,
  label TEXT NOT NULL,
  confidence REAL NOT NULL,
  probs_json TEXT NOT NULL,
  explanation_json TEXT,
  social_context_json TEXT
)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_owner_created ON analyses (owner_id, created_at DESC, seq DESC)`,
		`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL,
  last_login_at TIMESTAMP
)`,
	},
}
