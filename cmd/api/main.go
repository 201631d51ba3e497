package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"techstore/internal/config"
	"techstore/internal/logger"
	"techstore/internal/middleware"
	"techstore/internal/seed"
	"techstore/internal/server"
	"techstore/internal/store"
	"techstore/internal/telemetry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, shutdownTracing telemetry.ShutdownFunc, logger *zap.Logger, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	// In-flight requests get 30 seconds to finish
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := shutdownTracing(ctx); err != nil {
		logger.Error("Failed to flush traces", zap.Error(err))
	}

	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")
	done <- true
}

// printDevToken writes a development admin token to w
func printDevToken(w io.Writer, cfg *config.Config) error {
	token, err := middleware.IssueToken(cfg.JWT.Secret, "dev-operator", middleware.RoleAdmin, cfg.JWT.OperatorExpiry)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "development operator token (expires in %s):\n%s\n", cfg.JWT.OperatorExpiry, token)
	return err
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	log.Info("Starting store API",
		zap.String("store", cfg.Store.Name),
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	tp, shutdownTracing, err := telemetry.InitTracing(context.Background(), telemetry.Config{
		ServiceName: "techstore",
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	s := store.New(cfg.Store.Name, log, store.WithTracerProvider(tp))
	if cfg.Store.SeedFile != "" {
		f, err := seed.Load(cfg.Store.SeedFile)
		if err != nil {
			log.Fatal("Failed to load seed file", zap.String("path", cfg.Store.SeedFile), zap.Error(err))
		}
		if err := f.Apply(s); err != nil {
			log.Fatal("Failed to seed store", zap.Error(err))
		}
		log.Info("Store seeded",
			zap.Int("products", len(f.Products)),
			zap.Int("customers", len(f.Customers)),
		)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis unavailable, checkout rate limiting disabled until it recovers", zap.Error(err))
	}
	cancel()

	if cfg.Server.IsDevelopment() {
		if err := printDevToken(os.Stderr, cfg); err != nil {
			log.Fatal("Failed to issue development operator token", zap.Error(err))
		}
		log.Info("Development operator token issued", zap.String("operator_id", "dev-operator"))
	}

	srv := server.NewServer(cfg, log, s, redisClient, tp)

	done := make(chan bool, 1)
	go gracefulShutdown(srv, shutdownTracing, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")
}
