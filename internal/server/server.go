package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/gophsync/internal/config"
	"github.com/iudanet/gophsync/internal/crdt"
	"github.com/iudanet/gophsync/internal/server/channel"
	"github.com/iudanet/gophsync/internal/server/middleware"
	"github.com/iudanet/gophsync/internal/server/storage/sqlite"
	"github.com/iudanet/gophsync/internal/validation"
)

// ShutdownTimeout время на завершение активных запросов при остановке
const ShutdownTimeout = 10 * time.Second

// Server sync сервер: хранилище документов, канал и HTTP API
type Server struct {
	storage *sqlite.Storage
	limiter *middleware.RateLimiter
	channel *channel.Channel
	http    *http.Server
	logger  *slog.Logger
}

// New открывает хранилище и собирает HTTP сервер по конфигурации
func New(ctx context.Context, cfg *config.Server, logger *slog.Logger, version string) (*Server, error) {
	docs, err := sqlite.New(ctx, cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit > 0 {
		trusted, err := validation.ParsePrefixes(cfg.TrustedProxies)
		if err != nil {
			_ = docs.Close()
			return nil, fmt.Errorf("invalid trusted proxies: %w", err)
		}
		limiter = middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow, logger,
			middleware.WithTrustedProxies(trusted))
	}

	ch := channel.New(crdt.NewAutomerge(), docs, logger, channel.WithLatency(cfg.Latency))

	return &Server{
		storage: docs,
		limiter: limiter,
		channel: ch,
		logger:  logger,
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewRouter(logger, ch, docs, limiter, version),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       time.Minute,
		},
	}, nil
}

// Channel возвращает канал синхронизации сервера
func (s *Server) Channel() *channel.Channel {
	return s.channel
}

// Run слушает адрес из конфигурации до отмены ctx
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve обслуживает запросы на ln до отмены ctx, затем корректно
// останавливает HTTP сервер и закрывает хранилище
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Server started", "addr", ln.Addr().String())
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown http server: %w", err)
		}
		return nil
	})

	err := g.Wait()

	if s.limiter != nil {
		s.limiter.Stop()
	}
	if closeErr := s.storage.Close(); closeErr != nil {
		s.logger.Error("Failed to close storage", "error", closeErr)
	}

	return err
}
