package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/providers"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter, err := NewAdapter(providers.ProviderConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
		Headers: map[string]string{"X-Team": "routing"},
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, adapter.LoadModels(context.Background()))
	return adapter
}

func testRequest() *models.AIRequest {
	return &models.AIRequest{
		ID:      "req-1",
		Content: "write a fibonacci function",
		Type:    models.TaskCodeGeneration,
		Model:   "gpt-4o",
	}
}

func TestNewAdapter(t *testing.T) {
	_, err := NewAdapter(providers.ProviderConfig{}, nil)
	assert.Error(t, err)

	adapter, err := NewAdapter(providers.ProviderConfig{APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", adapter.Name())
	assert.Equal(t, providers.ProviderTypeCloud, adapter.Type())
	assert.Equal(t, defaultBaseURL, adapter.config.BaseURL)

	named, err := NewAdapter(providers.ProviderConfig{APIKey: "k", Name: "openai-eu"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai-eu", named.Name())
}

func TestAdapter_LoadModels(t *testing.T) {
	adapter, err := NewAdapter(providers.ProviderConfig{APIKey: "k", Models: []string{"gpt-4o-mini", "unknown"}}, nil)
	require.NoError(t, err)

	require.NoError(t, adapter.LoadModels(context.Background()))
	require.NoError(t, adapter.LoadModels(context.Background()))

	ms := adapter.Models()
	require.Len(t, ms, 1)
	assert.Equal(t, "gpt-4o-mini", ms[0].ID)
	assert.Equal(t, "openai", ms[0].ProviderName)

	caps := adapter.GetCapabilities()
	assert.Equal(t, []string{"gpt-4o-mini"}, caps.SupportedModelIDs)
	assert.Equal(t, 10, caps.MaxConcurrentRequests)
}

func TestAdapter_SendRequest(t *testing.T) {
	var body map[string]interface{}
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "routing", r.Header.Get("X-Team"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Here is a fibonacci function"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 20, "completion_tokens": 10, "total_tokens": 30}
		}`))
	})

	resp, err := adapter.SendRequest(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "req-1", resp.ID)
	assert.Equal(t, "gpt-4o", resp.Model)
	assert.Equal(t, "openai", resp.ProviderName)
	assert.Equal(t, "Here is a fibonacci function", resp.Content)
	assert.Equal(t, 30, resp.Metadata.TokensUsed)
	assert.Equal(t, 1.0, resp.Metadata.Quality.Completeness)

	assert.Equal(t, "gpt-4o", body["model"])
	messages := body["messages"].([]interface{})
	require.Len(t, messages, 2)
	system := messages[0].(map[string]interface{})
	assert.Equal(t, "system", system["role"])
	assert.Equal(t, models.TaskCodeGeneration.SystemFraming(), system["content"])
}

func TestAdapter_SendRequestWithImages(t *testing.T) {
	var body map[string]interface{}
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "a cat"}, "finish_reason": "stop"}]}`))
	})

	req := testRequest()
	req.Options.Images = []models.ImageInput{{MediaType: "image/png", Data: "aGVsbG8="}}

	_, err := adapter.SendRequest(context.Background(), req)
	require.NoError(t, err)

	user := body["messages"].([]interface{})[1].(map[string]interface{})
	parts := user["content"].([]interface{})
	require.Len(t, parts, 2)
	image := parts[1].(map[string]interface{})["image_url"].(map[string]interface{})
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", image["url"])
}

func TestAdapter_SendRequestErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
	}{
		{name: "rate limited", status: 429, body: `{"error": {"message": "slow down", "type": "rate_limit"}}`, retryable: true},
		{name: "server error", status: 500, body: `{"error": {"message": "boom", "type": "server_error"}}`, retryable: true},
		{name: "unavailable without json", status: 503, body: `upstream down`, retryable: true},
		{name: "bad request", status: 400, body: `{"error": {"message": "bad input", "type": "invalid_request_error"}}`, retryable: false},
		{name: "unauthorized", status: 401, body: `{"error": {"message": "bad key", "type": "auth"}}`, retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := adapter.SendRequest(context.Background(), testRequest())
			require.Error(t, err)

			aiErr, ok := services.AsAIError(err)
			require.True(t, ok)
			assert.Equal(t, services.ErrCodeRequestFailed, aiErr.Code)
			assert.Equal(t, "openai", aiErr.ProviderName)
			assert.Equal(t, tt.retryable, aiErr.Retryable)
			assert.Equal(t, tt.status, aiErr.Details["status_code"])
		})
	}
}

func TestAdapter_SendRequestInvalid(t *testing.T) {
	called := false
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := testRequest()
	req.Content = ""
	_, err := adapter.SendRequest(context.Background(), req)
	assert.True(t, services.IsInvalidRequestError(err))

	req = testRequest()
	req.Model = "claude-3-opus"
	_, err = adapter.SendRequest(context.Background(), req)
	assert.True(t, services.IsInvalidRequestError(err))

	assert.False(t, called)
}

func TestAdapter_SendRequestCancelled(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := adapter.SendRequest(ctx, testRequest())
	require.Error(t, err)
	assert.True(t, services.IsRequestFailedError(err))
	assert.False(t, services.IsRetryable(err))
}

func TestAdapter_IsAvailable(t *testing.T) {
	up := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data": [{"id": "gpt-4o"}]}`))
	})
	assert.True(t, up.IsAvailable(context.Background()))

	down := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	assert.False(t, down.IsAvailable(context.Background()))
}
