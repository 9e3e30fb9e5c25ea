package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	drv "github.com/go-sql-driver/mysql"

	"github.com/bryanwahyu/newsgate/internal/infra/db"
)

// Connect opens a pool with the production sizing used by the api server.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	return db.Open(ctx, "mysql", dsn, db.PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
	})
}

// DSN builds a driver DSN that parses DATETIME columns into UTC time.Time.
func DSN(user, password, host, name string) string {
	cfg := drv.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = host
	cfg.DBName = name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

func isDuplicate(err error) bool {
	var me *drv.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
