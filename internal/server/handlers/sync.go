package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/iudanet/gophsync/internal/server/channel"
	"github.com/iudanet/gophsync/pkg/api"
)

// MaxBodySize максимальный размер тела запроса синхронизации
const MaxBodySize = 16 << 20

//go:generate moq -out sync_mock.go . SyncChannel

// SyncChannel выполняет действия канала синхронизации
type SyncChannel interface {
	Fetch(ctx context.Context, action string, body []byte) ([]byte, error)
}

// SyncHandler handles sync channel actions
type SyncHandler struct {
	logger  *slog.Logger
	channel SyncChannel
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, channel SyncChannel) *SyncHandler {
	return &SyncHandler{
		logger:  logger,
		channel: channel,
	}
}

// HandleAction обрабатывает POST /api/v1/sync/{action}
// Тело запроса и ответа закодированы в CBOR
func (h *SyncHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	action := r.PathValue("action")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to read sync request", slog.String("action", action), slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.channel.Fetch(ctx, action, body)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "sync action failed", slog.String("action", action), slog.Any("error", err))
		} else {
			h.logger.WarnContext(ctx, "sync action rejected", slog.String("action", action), slog.Any("error", err))
		}
		h.sendError(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", api.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp); err != nil {
		h.logger.ErrorContext(ctx, "failed to write sync response", slog.Any("error", err))
	}
}

// statusFor сопоставляет ошибку канала с HTTP статусом
func statusFor(err error) int {
	switch {
	case errors.Is(err, channel.ErrUnknownAction):
		return http.StatusNotFound
	case errors.Is(err, api.ErrEmptyPayload),
		errors.Is(err, api.ErrMissingSender),
		errors.Is(err, api.ErrMissingChannel),
		errors.Is(err, api.ErrEmptyBody),
		errors.Is(err, api.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, channel.ErrSyncFailure):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// sendError отправляет JSON ответ с ошибкой
func (h *SyncHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode error response", slog.Any("error", err))
	}
}
