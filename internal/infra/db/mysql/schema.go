package mysql

import "github.com/bryanwahyu/newsgate/internal/infra/db/sqlrepo"

var Dialect = sqlrepo.Dialect{
	Name:              "mysql",
	IsUniqueViolation: isDuplicate,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS analyses (
  seq BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
  id CHAR(36) NOT NULL,
  owner_id VARCHAR(64) NOT NULL,
  created_at DATETIME(6) NOT NULL,
  input_text MEDIUMTEXT NOT NULL,
  source_url VARCHAR(2048) NOT NULL DEFAULT '',
  source_platform VARCHAR(64) NOT NULL DEFAULT '',
  model_name VARCHAR(128) NOT NULL,
  model_version VARCHAR(64) NOT NULL,
  label VARCHAR(64) NOT NULL,
  confidence DOUBLE NOT NULL,
  probs_json JSON NOT NULL,
  explanation_json JSON NULL,
  social_context_json JSON NULL,
  UNIQUE KEY uq_analyses_id (id),
  KEY idx_analyses_owner_created (owner_id, created_at, seq)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS users (
  id CHAR(36) NOT NULL PRIMARY KEY,
  email VARCHAR(320) NOT NULL,
  password_hash VARCHAR(255) NOT NULL,
  created_at DATETIME(6) NOT NULL,
  last_login_at DATETIME(6) NULL,
  UNIQUE KEY uq_users_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
}
