package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophsync/internal/config"
	"github.com/iudanet/gophsync/internal/validation"
	"github.com/iudanet/gophsync/pkg/api"
)

func TestServer_ServeAndShutdown(t *testing.T) {
	cfg := &config.Server{
		Addr:       "127.0.0.1:0",
		DBPath:     filepath.Join(t.TempDir(), "server.db"),
		Latency:    time.Millisecond,
		RateLimit:  100,
		RateWindow: time.Minute,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := New(ctx, cfg, testLogger(), "test")
	require.NoError(t, err)
	require.NotNil(t, srv.Channel())

	ln, err := net.Listen("tcp", cfg.Addr)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, ln)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + HealthPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health api.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_New_BadPath(t *testing.T) {
	cfg := &config.Server{
		Addr:   "127.0.0.1:0",
		DBPath: filepath.Join(t.TempDir(), "missing", "dir", "server.db"),
	}

	_, err := New(context.Background(), cfg, testLogger(), "test")
	assert.Error(t, err)
}

func TestServer_New_BadTrustedProxies(t *testing.T) {
	cfg := &config.Server{
		Addr:           "127.0.0.1:0",
		DBPath:         filepath.Join(t.TempDir(), "server.db"),
		RateLimit:      10,
		RateWindow:     time.Minute,
		TrustedProxies: []string{"not-an-ip"},
	}

	_, err := New(context.Background(), cfg, testLogger(), "test")
	assert.ErrorIs(t, err, validation.ErrInvalidNetwork)
}
