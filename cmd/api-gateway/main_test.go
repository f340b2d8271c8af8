package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/app"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/config"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/middleware"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/routes"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/providers"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/providers/providertest"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/routing"
)

func TestMain(m *testing.M) {
	os.Setenv("ENVIRONMENT", "test")
	os.Setenv("LOG_LEVEL", "error")

	os.Exit(m.Run())
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name    string
		obs     config.ObservabilityConfig
		wantErr string
	}{
		{"default json logger", config.ObservabilityConfig{LogLevel: "info", LogFormat: "json"}, ""},
		{"development console logger", config.ObservabilityConfig{LogLevel: "debug", LogFormat: "console"}, ""},
		{"defaults when not set", config.ObservabilityConfig{}, ""},
		{"invalid log level", config.ObservabilityConfig{LogLevel: "invalid", LogFormat: "json"}, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := initLogger(tt.obs)
			if tt.wantErr != "" {
				assert.Error(t, err)
				assert.Nil(t, logger)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			_ = logger.Sync()
		})
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	router := routing.DefaultRouterConfig()
	router.RetryDelay = 0
	router.ProbeTimeout = time.Second

	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Router: router,
		Observability: config.ObservabilityConfig{
			LogLevel:  "error",
			LogFormat: "json",
		},
	}
}

// newTestServer serves the full route table over the given adapters
func newTestServer(t *testing.T, adapters ...providers.Adapter) *httptest.Server {
	t.Helper()

	registry := providers.NewRegistry(nil)
	for _, a := range adapters {
		require.NoError(t, registry.Register(a))
	}

	deps, err := app.FromRegistry(testConfig(t), zaptest.NewLogger(t), registry)
	require.NoError(t, err)

	ts := httptest.NewServer(routes.SetupRoutes(deps))
	t.Cleanup(func() {
		ts.Close()
		_ = deps.Close(t.Context())
	})
	return ts
}

func fakeProvider() *providertest.FakeAdapter {
	return providertest.New("fake",
		providertest.Model("fake-fast", 0.002, 200*time.Millisecond, 0.95),
		providertest.Model("fake-cheap", 0.0005, 900*time.Millisecond, 0.9),
	)
}

func TestHealthEndpoints(t *testing.T) {
	t.Run("health check returns ok", func(t *testing.T) {
		ts := newTestServer(t)

		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("not ready without providers", func(t *testing.T) {
		ts := newTestServer(t)

		resp, err := http.Get(ts.URL + "/readyz")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "not_ready", body["status"])
	})

	t.Run("ready with a live provider", func(t *testing.T) {
		ts := newTestServer(t, fakeProvider())

		resp, err := http.Get(ts.URL + "/readyz")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestRouteEndToEnd(t *testing.T) {
	fake := fakeProvider()
	ts := newTestServer(t, fake)

	body := `{"request":{"id":"e2e-1","content":"write a function","type":"code_generation"},"strategy":"cost-first"}`
	resp, err := http.Post(ts.URL+"/api/v1/route", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data models.AIResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "e2e-1", out.Data.ID)
	assert.Equal(t, "fake-cheap", out.Data.Model)
	assert.Equal(t, []string{"fake-cheap"}, fake.Calls())

	metrics, err := http.Get(ts.URL + "/api/v1/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()

	var snapshot struct {
		Data models.RoutingMetrics `json:"data"`
	}
	require.NoError(t, json.NewDecoder(metrics.Body).Decode(&snapshot))
	assert.Equal(t, int64(1), snapshot.Data.TotalRequests)
	assert.Equal(t, int64(1), snapshot.Data.SuccessfulRequests)
}

func TestRouteErrors(t *testing.T) {
	fake := fakeProvider()
	fake.FailModel("fake-cheap", providertest.Fatal("fake", "bad request"))
	ts := newTestServer(t, fake)

	testCases := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"unknown strategy", `{"request":{"content":"hi","type":"general_chat"},"strategy":"fastest"}`, http.StatusBadRequest, "UNKNOWN_STRATEGY"},
		{"no eligible model", `{"request":{"content":"hi","type":"general_chat"},"constraints":{"max_cost_per_token":0.0001}}`, http.StatusUnprocessableEntity, "NO_ELIGIBLE_MODEL"},
		{"non retryable provider failure", `{"request":{"content":"hi","type":"general_chat"},"strategy":"cost-first"}`, http.StatusBadGateway, "REQUEST_FAILED"},
		{"validation failure", `{"request":{"type":"general_chat"}}`, http.StatusBadRequest, "INVALID_REQUEST"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/v1/route", "application/json", strings.NewReader(tc.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.wantStatus, resp.StatusCode)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tc.wantCode, body["code"])
		})
	}
}

func TestAPIEndpoints(t *testing.T) {
	ts := newTestServer(t, fakeProvider())

	testCases := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
	}{
		{"select", "POST", "/api/v1/select", `{"request":{"content":"hi","type":"general_chat"}}`, http.StatusOK},
		{"status", "GET", "/api/v1/status", "", http.StatusOK},
		{"models", "GET", "/api/v1/models", "", http.StatusOK},
		{"strategies", "GET", "/api/v1/strategies", "", http.StatusOK},
		{"metrics", "GET", "/api/v1/metrics", "", http.StatusOK},
		{"reset metrics", "DELETE", "/api/v1/metrics", "", http.StatusNoContent},
		{"method not allowed", "PUT", "/api/v1/route", "", http.StatusMethodNotAllowed},
		{"not found", "GET", "/api/v1/nonexistent", "", http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var body *bytes.Reader
			if tc.body != "" {
				body = bytes.NewReader([]byte(tc.body))
			} else {
				body = bytes.NewReader(nil)
			}

			req, err := http.NewRequest(tc.method, ts.URL+tc.path, body)
			require.NoError(t, err)
			req.Header.Set("Content-Type", "application/json")

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.expectedStatus, resp.StatusCode, "endpoint: %s %s", tc.method, tc.path)
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest("OPTIONS", ts.URL+"/api/v1/route", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRequestIDMiddleware(t *testing.T) {
	ts := newTestServer(t)

	t.Run("generated when absent", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
	})

	t.Run("echoed when supplied", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
		require.NoError(t, err)
		req.Header.Set(middleware.RequestIDHeader, "trace-me")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, "trace-me", resp.Header.Get(middleware.RequestIDHeader))
	})
}

func TestModelsCommand(t *testing.T) {
	t.Setenv("OLLAMA_ENABLED", "true")
	t.Setenv("OLLAMA_MODELS", "llama3,llava")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("COMPATIBLE_BASE_URL", "")
	t.Setenv("ROUTER_CONFIG_FILE", "")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"models", "--provider", "ollama"})
	require.NoError(t, cmd.ExecuteContext(t.Context()))

	var listed []models.AIModel
	require.NoError(t, json.Unmarshal(out.Bytes(), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "llama3", listed[0].ID)
	assert.True(t, listed[1].Capabilities.SupportsImages)
}
