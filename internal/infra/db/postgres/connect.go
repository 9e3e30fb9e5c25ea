package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/lib/pq"

	"github.com/bryanwahyu/newsgate/internal/infra/db"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	return db.Open(ctx, "postgres", dsn, db.PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
	})
}

// DSN builds a postgres:// URL. sslmode defaults to disable.
func DSN(user, password, host, name, sslmode string) string {
	if sslmode == "" {
		sslmode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     host,
		Path:     "/" + name,
		RawQuery: fmt.Sprintf("sslmode=%s&timezone=UTC", url.QueryEscape(sslmode)),
	}
	return u.String()
}

func isUniqueViolation(err error) bool {
	var pe *pq.Error
	return errors.As(err, &pe) && pe.Code == "23505"
}
