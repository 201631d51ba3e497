package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"techstore/internal/cart"
	"techstore/internal/config"
	custommiddleware "techstore/internal/middleware"
	"techstore/internal/store"
	"techstore/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	redis  redis.UniversalClient
}

func NewServer(cfg *config.Config, logger *zap.Logger, s *store.Store, redisClient redis.UniversalClient, tp trace.TracerProvider) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(custommiddleware.Trace(tp))
	router.Use(custommiddleware.RequestLogger(logger))
	router.Use(custommiddleware.Recover(logger))
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.CORS(cfg.Server.AllowedOrigins, cfg.Server.IsDevelopment()))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "store": s.Name(), "redis": "ok"}

		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			status["redis"] = "unavailable"
		}
		custommiddleware.RespondWithJSON(w, http.StatusOK, status)
	})

	admin := func(next http.Handler) http.Handler {
		return custommiddleware.Authenticate(cfg.JWT.Secret, logger)(custommiddleware.RequireAdmin(logger)(next))
	}

	checkoutLimit := custommiddleware.RateLimit(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "techstore:checkout",
		KeyFunc: func(r *http.Request) string {
			return chi.URLParam(r, "id")
		},
	}, logger)

	storeHandler := transport.NewStoreHandler(s, cart.NewRegistry(), logger)
	storeHandler.RegisterRoutes(router, admin, checkoutLimit)

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		redis:  redisClient,
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
	return nil
}
