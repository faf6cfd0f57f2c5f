package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/xcenweb/lextrade/internal/auth"
	"github.com/xcenweb/lextrade/internal/config"
	"github.com/xcenweb/lextrade/internal/handlers"
	"github.com/xcenweb/lextrade/internal/health"
	"github.com/xcenweb/lextrade/internal/logging"
	"github.com/xcenweb/lextrade/internal/metrics"
	"github.com/xcenweb/lextrade/internal/notify"
	"github.com/xcenweb/lextrade/internal/prompt"
	"github.com/xcenweb/lextrade/internal/rate"
	"github.com/xcenweb/lextrade/internal/security"
	"github.com/xcenweb/lextrade/internal/session"
	"github.com/xcenweb/lextrade/internal/storage"
	"github.com/xcenweb/lextrade/internal/trace"
	"github.com/xcenweb/lextrade/internal/verification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.App.LogLevel, cfg.App.ServiceName, cfg.App.Env)
	shutdownTracer, err := trace.InitTracer(cfg.App.ServiceName, cfg.App.Env)
	if err != nil {
		logger.Error("tracer init failed", "error", err)
	} else {
		defer func() {
			_ = shutdownTracer(context.Background())
		}()
	}

	if cfg.App.Env == "dev" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)

	ready := health.NewManager(false)

	if err := storage.RunMigrations(context.Background(), cfg.DB.URL()); err != nil {
		logger.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	pool, err := connectDB(cfg)
	if err != nil {
		logger.Error("db connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	ready.SetReady(true)

	limiter, limiterClose, err := buildLimiter(cfg, logger)
	if err != nil {
		logger.Error("rate limiter init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = limiterClose()
	}()

	sink, sinkClose, err := buildSink(cfg, logger)
	if err != nil {
		logger.Error("notification sink init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = sinkClose()
	}()

	store := storage.New(pool)
	codes := verification.NewService(store, sink, logger, cfg.Verification.CodeTTL)
	issuer := session.NewIssuer(store, cfg.Token.AccessTTL, cfg.Token.RefreshTTL)
	authSvc := auth.NewService(store, codes, issuer, logger)
	authSvc.Argon2 = security.Argon2Params(cfg.Argon2)

	server := &handlers.Server{
		Auth:     authSvc,
		Codes:    codes,
		Prompts:  prompt.NewService(store, logger),
		Sessions: issuer,
		Limiter:  limiter,
		Health:   ready,
		Registry: registry,
		Logger:   logger,
	}

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go runSweeper(sweepCtx, codes, cfg.Verification.SweepInterval, logger)

	addr := fmt.Sprintf("%s:%d", cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  cfg.App.HTTP.ReadTimeout,
		WriteTimeout: cfg.App.HTTP.WriteTimeout,
		IdleTimeout:  cfg.App.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("lextrade api starting", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(httpServer, ready, logger)
}

func connectDB(cfg *config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DB.URL())
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

func buildLimiter(cfg *config.Config, logger *slog.Logger) (rate.Limiter, func() error, error) {
	if cfg.RateLimit.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.Redis.Addr,
			Password: cfg.RateLimit.Redis.Password,
			DB:       cfg.RateLimit.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			if cfg.App.Env == "dev" || cfg.App.Env == "test" {
				logger.Warn("redis rate limiter unavailable, falling back to memory", "error", err)
				return rate.NewMemory(cfg.RateLimit.Limit, cfg.RateLimit.Window), func() error { return nil }, nil
			}
			return nil, nil, err
		}

		return rate.NewRedisLimiter(client, cfg.RateLimit.Limit, cfg.RateLimit.Window, cfg.RateLimit.Redis.Prefix), client.Close, nil
	}

	if cfg.App.Env == "dev" || cfg.App.Env == "test" {
		return rate.NewMemory(cfg.RateLimit.Limit, cfg.RateLimit.Window), func() error { return nil }, nil
	}

	return nil, nil, fmt.Errorf("rate limiter redis not configured")
}

// buildSink picks the code delivery channel: kafka when brokers are
// configured, direct SMTP otherwise. Dev and test fall back to the log sink
// so the service runs with no transport at all.
func buildSink(cfg *config.Config, logger *slog.Logger) (notify.Sink, func() error, error) {
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := notify.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			return nil, nil, err
		}
		return sink, sink.Close, nil
	}

	if cfg.SMTP.Host != "" {
		sink := &notify.SMTPSink{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			Sender:   cfg.SMTP.Sender,
		}
		return sink, func() error { return nil }, nil
	}

	if cfg.App.Env == "dev" || cfg.App.Env == "test" {
		return &notify.LogSink{Logger: logger}, func() error { return nil }, nil
	}

	return nil, nil, fmt.Errorf("no notification sink configured")
}

func runSweeper(ctx context.Context, codes *verification.Service, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := codes.Sweep(ctx)
			if err != nil {
				logger.Error("verification code sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Info("verification codes swept", "removed", removed)
			}
		}
	}
}

func waitForShutdown(server *http.Server, ready *health.Manager, logger *slog.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	// stop taking new traffic before draining in-flight requests
	ready.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutdown started")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		return
	}
	logger.Info("shutdown complete")
}
