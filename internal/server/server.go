package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hongminglow/storefront-accounts/internal/auth"
	"github.com/hongminglow/storefront-accounts/internal/config"
	"github.com/hongminglow/storefront-accounts/internal/http/handlers"
	"github.com/hongminglow/storefront-accounts/internal/middleware"
	"github.com/hongminglow/storefront-accounts/internal/service"
	"github.com/hongminglow/storefront-accounts/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server. A nil rdb
// disables rate limiting.
func New(cfg config.Config, store storage.Store, rdb *redis.Client, logger *zap.Logger) *Server {
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL())
	accounts := service.NewAccounts(store, auth.NewPasswordHasher(0), auth.StrengthPolicy{}, logger)
	addresses := service.NewAddresses(store, store, logger)
	groups := service.NewGroups(store)
	requireAuth := middleware.RequireAuth(tokenManager, logger)

	var limits handlers.RouteLimits
	if rdb != nil {
		limiter := middleware.NewRateLimiter(rdb, logger, cfg.TrustedProxyPrefixes)
		limits.Register = limiter.Limit("register", cfg.RateLimitRegister, cfg.RateLimitWindow)
		limits.Login = limiter.Limit("login", cfg.RateLimitLogin, cfg.RateLimitWindow)
	}

	var pinger handlers.Pinger
	if p, ok := store.(handlers.Pinger); ok {
		pinger = p
	}

	mux := http.NewServeMux()
	handlers.NewHealthHandler(time.Now(), pinger).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	handlers.NewAuthHandler(accounts, tokenManager, logger).Register(mux, limits)
	handlers.NewAccountHandler(accounts, logger).Register(mux, requireAuth)
	handlers.NewUserHandler(accounts, logger).Register(mux, requireAuth)
	handlers.NewAddressHandler(addresses, logger).Register(mux, requireAuth)
	handlers.NewGroupHandler(groups, logger).Register(mux)

	handler := middleware.CORS(cfg.CORSOrigins)(middleware.Logging(logger)(mux))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Handler exposes the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.inner.Handler
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
