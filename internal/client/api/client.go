package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iudanet/gophsync/pkg/api"
)

// DefaultTimeout таймаут одного HTTP запроса
const DefaultTimeout = 30 * time.Second

// ErrServer indicates non-2xx response from the sync server
var ErrServer = errors.New("server error")

// StatusError ответ сервера с кодом ошибки
type StatusError struct {
	Message string
	Code    int
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (%d)", ErrServer, e.Code)
	}
	return fmt.Sprintf("%s (%d): %s", ErrServer, e.Code, e.Message)
}

// Unwrap позволяет проверять ошибку через errors.Is(err, ErrServer)
func (e *StatusError) Unwrap() error {
	return ErrServer
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		},
	}
}

// Fetch выполняет действие канала синхронизации: POST /api/v1/sync/{action}
// с CBOR телом. Возвращает тело ответа.
func (c *Client) Fetch(ctx context.Context, action string, body []byte) ([]byte, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/sync/"+action, api.ContentType, body)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", action, err)
	}
	return resp, nil
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", "", nil)
	if err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}

	var resp api.HealthResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос и возвращает тело успешного ответа
func (c *Client) doRequest(ctx context.Context, method, path, contentType string, body []byte) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Code: resp.StatusCode}

		// Ошибки сервер отдает в JSON
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			statusErr.Message = errResp.Message
			if statusErr.Message == "" {
				statusErr.Message = errResp.Error
			}
		} else {
			statusErr.Message = string(respBody)
		}
		return nil, statusErr
	}

	return respBody, nil
}
