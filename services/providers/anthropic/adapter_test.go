package anthropic

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
		BaseURL: server.URL + "/",
		Timeout: 2 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, adapter.LoadModels(context.Background()))
	return adapter
}

func testRequest() *models.AIRequest {
	return &models.AIRequest{
		ID:      "req-7",
		Content: "explain this diagram",
		Type:    models.TaskCodeExplanation,
		Model:   "claude-sonnet-4-20250514",
	}
}

const okMessage = `{
	"id": "msg_1",
	"type": "message",
	"role": "assistant",
	"model": "claude-sonnet-4-20250514",
	"content": [{"type": "text", "text": "The diagram "}, {"type": "text", "text": "shows a pipeline"}],
	"stop_reason": "end_turn",
	"usage": {"input_tokens": 40, "output_tokens": 12}
}`

func TestNewAdapter(t *testing.T) {
	_, err := NewAdapter(providers.ProviderConfig{}, nil)
	assert.Error(t, err)

	adapter, err := NewAdapter(providers.ProviderConfig{APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", adapter.Name())
	assert.Equal(t, providers.ProviderTypeCloud, adapter.Type())
}

func TestAdapter_Catalogue(t *testing.T) {
	adapter, err := NewAdapter(providers.ProviderConfig{APIKey: "k", RequestsPerMinute: 50}, nil)
	require.NoError(t, err)
	require.NoError(t, adapter.LoadModels(context.Background()))

	ms := adapter.Models()
	require.Len(t, ms, 3)
	for _, m := range ms {
		assert.Equal(t, models.ModalityMultimodal, m.Modality)
		assert.True(t, m.Capabilities.SupportsImages)
		assert.Equal(t, "anthropic", m.ProviderName)
	}

	caps := adapter.GetCapabilities()
	assert.Equal(t, []models.RateLimit{{Requests: 50, WindowSeconds: 60}}, caps.RateLimits)
	assert.Contains(t, caps.Features, "images")
}

func TestAdapter_SendRequest(t *testing.T) {
	var body map[string]interface{}
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okMessage))
	})

	req := testRequest()
	req.Options.Images = []models.ImageInput{{MediaType: "image/png", Data: "aGVsbG8="}}

	resp, err := adapter.SendRequest(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "req-7", resp.ID)
	assert.Equal(t, "The diagram shows a pipeline", resp.Content)
	assert.Equal(t, 52, resp.Metadata.TokensUsed)
	assert.Equal(t, "anthropic", resp.ProviderName)

	assert.Equal(t, float64(defaultMaxTokens), body["max_tokens"])
	system := body["system"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, models.TaskCodeExplanation.SystemFraming(), system["text"])

	content := body["messages"].([]interface{})[0].(map[string]interface{})["content"].([]interface{})
	require.Len(t, content, 2)
	assert.Equal(t, "image", content[0].(map[string]interface{})["type"])
	assert.Equal(t, "text", content[1].(map[string]interface{})["type"])
}

func TestAdapter_SendRequestErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{name: "overloaded", status: 529, retryable: true},
		{name: "rate limited", status: 429, retryable: true},
		{name: "bad request", status: 400, retryable: false},
		{name: "forbidden", status: 403, retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "api_error", "message": "nope"}}`))
			})

			_, err := adapter.SendRequest(context.Background(), testRequest())
			require.Error(t, err)

			aiErr, ok := services.AsAIError(err)
			require.True(t, ok)
			assert.Equal(t, services.ErrCodeRequestFailed, aiErr.Code)
			assert.Equal(t, tt.retryable, aiErr.Retryable)
			assert.Equal(t, tt.status, aiErr.Details["status_code"])
		})
	}
}

func TestAdapter_SendRequestTimeout(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := adapter.SendRequest(ctx, testRequest())
	require.Error(t, err)
	assert.True(t, services.IsRequestFailedError(err))
	assert.True(t, services.IsRetryable(err))
}

func TestAdapter_IsAvailable(t *testing.T) {
	up := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": [], "has_more": false}`))
	})
	assert.True(t, up.IsAvailable(context.Background()))

	down := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	assert.False(t, down.IsAvailable(context.Background()))
}
