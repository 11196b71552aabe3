// Package server собирает HTTP API сервера синхронизации.
package server

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/gophsync/internal/server/handlers"
	"github.com/iudanet/gophsync/internal/server/middleware"
)

// HealthPath путь health check
const HealthPath = "/api/v1/health"

// NewRouter регистрирует маршруты и оборачивает их в middleware.
// limiter может быть nil: тогда частота запросов не ограничивается.
func NewRouter(
	logger *slog.Logger,
	channel handlers.SyncChannel,
	storage handlers.Pinger,
	limiter *middleware.RateLimiter,
	version string,
) http.Handler {
	syncHandler := handlers.NewSyncHandler(logger, channel)
	healthHandler := handlers.NewHealthHandler(logger, storage, version)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+HealthPath, healthHandler.Health)
	mux.HandleFunc("POST /api/v1/sync/{action}", syncHandler.HandleAction)

	var handler http.Handler = mux
	if limiter != nil {
		handler = middleware.RateLimitMiddleware(limiter)(handler)
	}
	handler = middleware.RecoveryMiddleware(logger)(handler)
	handler = middleware.LoggingMiddleware(logger, HealthPath)(handler)

	return handler
}
