package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/newsgate/internal/application"
	appanalyses "github.com/bryanwahyu/newsgate/internal/application/analyses"
	"github.com/bryanwahyu/newsgate/internal/application/auth"
	"github.com/bryanwahyu/newsgate/internal/config"
	domain "github.com/bryanwahyu/newsgate/internal/domain/analyses"
	"github.com/bryanwahyu/newsgate/internal/infra/httpserver"
	"github.com/bryanwahyu/newsgate/internal/logger"
	"github.com/bryanwahyu/newsgate/internal/middleware"
)

func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(logger.Config{
		Environment: cfg.Log.Environment,
		Level:       cfg.Log.Level,
		ServiceName: "newsgate",
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func runMigrate(ctx context.Context, path string) error {
	cfg, log, err := loadConfig(path)
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.db.Close()
	log.Info("migration complete", zap.String("driver", cfg.Database.Driver))
	return nil
}

func runServe(parent context.Context, path string) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := loadConfig(path)
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.db.Close()

	archive, err := newArchive(ctx, cfg)
	if err != nil {
		return err
	}
	cls := newClassifier(cfg, log)

	metrics, err := middleware.NewMetrics()
	if err != nil {
		return err
	}

	clock := application.SystemClock{}
	analysesSvc := &appanalyses.Service{
		Repo:       st.analyses,
		Classifier: cls,
		Archive:    archive,
		Clock:      clock,
		Model: domain.ModelIdentity{
			Name:    cfg.Inference.Model.Name,
			Version: cfg.Inference.Model.Version,
		},
		Timeout:      cfg.Inference.Timeout,
		MaxTextBytes: cfg.Limits.MaxTextBytes,
		Log:          log.Named("analyses"),
		Metrics:      metrics,
	}
	authSvc := &auth.Service{
		Users:      st.users,
		Clock:      clock,
		Secret:     []byte(cfg.Auth.JWTSecret),
		Issuer:     cfg.Auth.Issuer,
		TokenTTL:   cfg.Auth.TokenTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	}

	var limiter, ipLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		defer limiter.Stop()
		ipLimiter = middleware.NewRateLimiter(cfg.RateLimit.IPRPS, cfg.RateLimit.IPBurst)
		defer ipLimiter.Stop()
	}
	dbCheck := &middleware.DatabaseHealthChecker{DB: st.db}

	handler := httpserver.NewRouter(httpserver.Deps{
		Analyses:  analysesSvc,
		Auth:      authSvc,
		Log:       log.Named("http"),
		Metrics:   metrics,
		Limiter:   limiter,
		IPLimiter: ipLimiter,
		Health: map[string]middleware.HealthChecker{
			"database":  dbCheck,
			"inference": middleware.PingChecker{Target: cls},
		},
		Ready:          map[string]middleware.HealthChecker{"database": dbCheck},
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxBodyBytes:   cfg.Limits.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("database", cfg.Database.Driver),
			zap.String("inference", cfg.Inference.Provider),
			zap.Bool("archive", archive != nil))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
