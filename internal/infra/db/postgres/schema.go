package postgres

import "github.com/bryanwahyu/newsgate/internal/infra/db/sqlrepo"

var Dialect = sqlrepo.Dialect{
	Name:              "postgres",
	Numbered:          true,
	IsUniqueViolation: isUniqueViolation,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS analyses (
  seq BIGSERIAL PRIMARY KEY,
  id VARCHAR(36) NOT NULL UNIQUE,
  owner_id VARCHAR(64) NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  input_text TEXT NOT NULL,
  source_url TEXT NOT NULL DEFAULT '',
  source_platform VARCHAR(64) NOT NULL DEFAULT '',
  model_name VARCHAR(128) NOT NULL,
  model_version VARCHAR(64) NOT NULL,
  label VARCHAR(64) NOT NULL,
  confidence DOUBLE PRECISION NOT NULL,
  probs_json JSONB NOT NULL,
  explanation_json JSONB,
  social_context_json JSONB
)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_owner_created ON analyses (owner_id, created_at DESC, seq DESC)`,
		`CREATE TABLE IF NOT EXISTS users (
  id VARCHAR(36) PRIMARY KEY,
  email VARCHAR(320) NOT NULL UNIQUE,
  password_hash VARCHAR(255) NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  last_login_at TIMESTAMPTZ
)`,
	},
}
