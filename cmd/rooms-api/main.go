package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mysqladapter "github.com/cinemalab/cinema-data/internal/adapters/mysql"
	redisadapter "github.com/cinemalab/cinema-data/internal/adapters/redis"
	"github.com/cinemalab/cinema-data/internal/config"
	httphandler "github.com/cinemalab/cinema-data/internal/http"
	"github.com/cinemalab/cinema-data/internal/idempotency"
	"github.com/cinemalab/cinema-data/internal/observability"
	"github.com/cinemalab/cinema-data/internal/rateLimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg, "rooms-api")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger(cfg.LogLevel).WithField("service", "rooms-api")

	db, err := mysqladapter.Open(context.Background(), cfg.MySQL)
	if err != nil {
		log.Fatalf("failed to connect to mysql: %v", err)
	}
	defer db.Close()
	if err := mysqladapter.EnsureSchema(context.Background(), db); err != nil {
		log.Fatalf("failed to create schema: %v", err)
	}
	repo, err := mysqladapter.NewRepository(db)
	if err != nil {
		log.Fatalf("failed to create repository: %v", err)
	}

	var opts httphandler.RouterOptions
	if cfg.RedisAddr != "" {
		redisClient := redisadapter.NewClient(cfg.RedisAddr)
		defer redisClient.Close()
		cache := redisadapter.NewCache(redisClient)
		if err := cache.Ping(context.Background()); err != nil {
			logger.WithError(err).Warn("redis unavailable, rate limiting and idempotency disabled")
		} else {
			opts.Limiter = rateLimit.NewRateLimiter(cache, cfg.RateLimit, time.Minute)
			opts.Idempotency = idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), cfg.IdempotencyTTL)
		}
	}

	handlers := httphandler.NewHandlers(repo, logger)
	r := httphandler.SetupRouter(handlers, logger, opts)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", srv.Addr).Info("rooms-api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
