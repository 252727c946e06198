package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/simplifyhr/offerflow/pkg/apiserver"
	"github.com/simplifyhr/offerflow/pkg/auth"
	"github.com/simplifyhr/offerflow/pkg/config"
	"github.com/simplifyhr/offerflow/pkg/eventbus"
	"github.com/simplifyhr/offerflow/pkg/gateway"
	"github.com/simplifyhr/offerflow/pkg/gateway/llm"
	"github.com/simplifyhr/offerflow/pkg/metrics"
	"github.com/simplifyhr/offerflow/pkg/offer"
	"github.com/simplifyhr/offerflow/pkg/screening"
	"github.com/simplifyhr/offerflow/pkg/store/postgres"
	redisclient "github.com/simplifyhr/offerflow/pkg/store/redis"
	"github.com/simplifyhr/offerflow/pkg/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.Logging)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewStore(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	redis, err := redisclient.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()

	httpClient := &http.Client{Timeout: cfg.Gateway.Timeout}
	opts := []gateway.Option{
		gateway.WithTimeout(cfg.Gateway.Timeout),
		gateway.WithIdempotencyTTL(cfg.Gateway.IdempotencyTTL),
		gateway.WithIdempotencyStore(gateway.NewRedisIdempotencyStore(redis.Client())),
	}
	completer, err := llm.New(ctx, cfg.AI, &http.Client{Timeout: cfg.AI.Timeout})
	if err != nil {
		logger.Warn("AI provider is not configured, assessments will use the fallback score", zap.Error(err))
	} else {
		opts = append(opts, gateway.WithAssessor(gateway.NewAssessor(completer, cfg.AI.Timeout, logger)))
		if closer, ok := completer.(io.Closer); ok {
			defer closer.Close()
		}
	}
	gw := gateway.New(
		gateway.NewHTTPBackgroundChecker(cfg.Gateway.BackgroundCheckURL, cfg.Gateway.APIKey, httpClient),
		gateway.NewHTTPNotifier(cfg.Gateway.NotificationURL, cfg.Gateway.APIKey, httpClient),
		logger,
		opts...,
	)

	bus := eventbus.NewBus(redis.Client())
	workflows := postgres.NewWorkflowRepository(db.DB())
	apps := postgres.NewApplicationRepository(db.DB())

	sup := supervisor.New(workflows, apps, offer.NewExecutor(offer.WithHRRejection(cfg.Workflow.AllowHRRejection)), gw, logger,
		supervisor.WithPublisher(bus),
		supervisor.WithOperationTimeout(cfg.Server.OperationTimeout),
	)
	screener := screening.NewService(apps, gw, cfg.Screening.DefaultMinScore, cfg.Screening.Concurrency, logger)
	tokens := auth.NewTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL, cfg.Auth.Issuer)

	server := apiserver.NewServer(sup, screener, tokens, bus, logger)
	collector := metrics.NewWorkflowCollector(workflows, prometheus.DefaultRegisterer, time.Minute, logger)

	httpServer := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:     server.Router(),
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting API server", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := collector.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}
}

func newLogger(cfg config.LoggingConfig) *zap.Logger {
	var zcfg zap.Config
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	if level, err := zap.ParseAtomicLevel(cfg.Level); err == nil {
		zcfg.Level = level
	}
	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
