package main

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/bryanwahyu/newsgate/internal/config"
	"github.com/bryanwahyu/newsgate/internal/domain/analyses"
	"github.com/bryanwahyu/newsgate/internal/domain/inference"
	"github.com/bryanwahyu/newsgate/internal/domain/users"
	"github.com/bryanwahyu/newsgate/internal/infra/ai"
	"github.com/bryanwahyu/newsgate/internal/infra/ai/mlservice"
	"github.com/bryanwahyu/newsgate/internal/infra/ai/openai"
	"github.com/bryanwahyu/newsgate/internal/infra/db/mysql"
	"github.com/bryanwahyu/newsgate/internal/infra/db/postgres"
	"github.com/bryanwahyu/newsgate/internal/infra/db/sqlite"
	"github.com/bryanwahyu/newsgate/internal/infra/db/sqlrepo"
	"github.com/bryanwahyu/newsgate/internal/infra/storage"
)

type classifier interface {
	inference.Classifier
	inference.Pinger
}

type stores struct {
	db       *sql.DB
	analyses analyses.Repository
	users    users.Repository
}

// openStores connects the configured database and creates missing tables.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	var (
		conn    *sql.DB
		dialect sqlrepo.Dialect
		err     error
	)
	switch cfg.Database.Driver {
	case "mysql":
		conn, err = mysql.Connect(ctx, cfg.DSN())
		dialect = mysql.Dialect
	case "postgres":
		conn, err = postgres.Connect(ctx, cfg.DSN())
		dialect = postgres.Dialect
	case "sqlite":
		conn, err = sqlite.Connect(ctx, cfg.Database.Path)
		dialect = sqlite.Dialect
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}
	if err := sqlrepo.Migrate(ctx, conn, dialect); err != nil {
		conn.Close()
		return nil, err
	}
	return &stores{
		db:       conn,
		analyses: sqlrepo.NewAnalysisRepository(conn, dialect),
		users:    sqlrepo.NewUserRepository(conn, dialect),
	}, nil
}

func newClassifier(cfg *config.Config, log *zap.Logger) classifier {
	ic := cfg.Inference
	var c classifier
	switch ic.Provider {
	case "openai":
		oc := openai.NewClient(ic.OpenAI.APIKey, ic.OpenAI.Model, ic.OpenAI.BaseURL)
		if len(ic.OpenAI.Labels) > 0 {
			oc.Labels = ic.OpenAI.Labels
		}
		c = oc
	default:
		c = mlservice.NewClient(ic.URL, ic.Timeout)
	}
	if !ic.Breaker.Enabled {
		return c
	}
	return ai.NewBreaker("analysis-"+ic.Provider, c, ai.BreakerSettings{
		MaxFailures:      ic.Breaker.MaxFailures,
		OpenTimeout:      ic.Breaker.OpenTimeout,
		HalfOpenRequests: ic.Breaker.HalfOpenRequests,
	}, log)
}

// newArchive returns nil when the archive is disabled.
func newArchive(ctx context.Context, cfg *config.Config) (analyses.Archive, error) {
	a := cfg.Archive
	if !a.Enabled {
		return nil, nil
	}
	store, err := storage.New(ctx, storage.Options{
		Endpoint:  a.Endpoint,
		Region:    a.Region,
		Bucket:    a.BucketName,
		AccessKey: a.AccessKey,
		SecretKey: a.SecretKey,
		UseSSL:    a.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio init: %w", err)
	}
	return store, nil
}
