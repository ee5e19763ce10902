package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlpanel/internal/config"
	"sqlpanel/internal/controller"
)

func standaloneConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Mode: gin.TestMode, ShutdownTimeout: time.Second},
		Storage:  config.StorageConfig{Provider: "none"},
		Security: config.SecurityConfig{EnableRateLimit: true, RateLimitPerMinute: 600, RateLimitBurst: 5},
	}
}

func TestNewRouterWithoutRegistry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := standaloneConfig()

	deps, err := buildDependencies(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer deps.close(zerolog.Nop())

	assert.Nil(t, deps.panels)
	assert.Nil(t, deps.store)

	router, stop := newRouter(cfg, deps, zerolog.Nop())
	defer stop()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"disabled"`)
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))

	// Panel routes are only mounted with a registry.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/p/abcd1234", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPingAllSkipsDisabled(t *testing.T) {
	boom := errors.New("boom")
	results := pingAll(context.Background(), map[string]controller.Pinger{
		"registry": nil,
		"quota": controller.PingFunc(func(ctx context.Context) error {
			return boom
		}),
		"other": controller.PingFunc(func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return nil
		}),
	}, time.Second)

	assert.Len(t, results, 2)
	assert.ErrorIs(t, results["quota"], boom)
	assert.NoError(t, results["other"])
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "sqlpanel "+Version+"\n", out.String())
}

func TestUnknownStorageProvider(t *testing.T) {
	cfg := standaloneConfig()
	cfg.Storage.Provider = "ftp"

	store, err := buildStore(context.Background(), cfg)
	assert.NoError(t, err)
	assert.Nil(t, store)
}
