package compatible

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

func newTestAdapter(t *testing.T, providerType providers.ProviderType, handler http.HandlerFunc) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter, err := NewAdapter(providers.ProviderConfig{
		Name:         "deepseek",
		Type:         providerType,
		APIKey:       "ds-key",
		BaseURL:      server.URL + "/",
		Timeout:      2 * time.Second,
		Models:       []string{"deepseek-chat", "deepseek-coder"},
		CostPerToken: 0.0000002,
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, adapter.LoadModels(context.Background()))
	return adapter
}

func TestNewAdapter_Validation(t *testing.T) {
	_, err := NewAdapter(providers.ProviderConfig{Models: []string{"m"}}, nil)
	assert.ErrorContains(t, err, "base url")

	_, err = NewAdapter(providers.ProviderConfig{BaseURL: "http://localhost:1234/v1"}, nil)
	assert.ErrorContains(t, err, "at least one model")

	adapter, err := NewAdapter(providers.ProviderConfig{BaseURL: "http://localhost:1234/v1", Models: []string{"m"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "compatible", adapter.Name())
	assert.Equal(t, providers.ProviderTypeCloud, adapter.Type())
}

func TestAdapter_DeclaredCatalogue(t *testing.T) {
	cloud := newTestAdapter(t, providers.ProviderTypeCloud, http.NotFound)
	ms := cloud.Models()
	require.Len(t, ms, 2)
	assert.Equal(t, "deepseek-chat", ms[0].ID)
	assert.Equal(t, "deepseek", ms[0].ProviderName)
	assert.Equal(t, 0.0000002, ms[0].CostPerToken)

	local := newTestAdapter(t, providers.ProviderTypeLocal, http.NotFound)
	assert.Equal(t, providers.ProviderTypeLocal, local.Type())
	assert.Zero(t, local.Models()[0].CostPerToken)
}

func TestAdapter_SendRequest(t *testing.T) {
	var body map[string]interface{}
	adapter := newTestAdapter(t, providers.ProviderTypeCloud, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer ds-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "deepseek-coder",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "fixed the bug"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 8, "completion_tokens": 4, "total_tokens": 12}
		}`))
	})

	resp, err := adapter.SendRequest(context.Background(), &models.AIRequest{
		ID:      "req-5",
		Content: "fix the bug",
		Type:    models.TaskBugFixing,
		Model:   "deepseek-coder",
		Options: models.RequestOptions{MaxTokens: 100},
	})
	require.NoError(t, err)

	assert.Equal(t, "req-5", resp.ID)
	assert.Equal(t, "deepseek", resp.ProviderName)
	assert.Equal(t, "fixed the bug", resp.Content)
	assert.Equal(t, 12, resp.Metadata.TokensUsed)

	assert.Equal(t, "deepseek-coder", body["model"])
	assert.Equal(t, float64(100), body["max_tokens"])
	assert.Len(t, body["messages"], 2)
}

func TestAdapter_SendRequestErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{name: "bad gateway", status: 502, retryable: true},
		{name: "timeout", status: 408, retryable: true},
		{name: "not found", status: 404, retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := newTestAdapter(t, providers.ProviderTypeCloud, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": {"message": "failed", "type": "server_error"}}`))
			})

			_, err := adapter.SendRequest(context.Background(), &models.AIRequest{ID: "1", Content: "hi", Type: models.TaskGeneralChat})
			require.Error(t, err)

			aiErr, ok := services.AsAIError(err)
			require.True(t, ok)
			assert.Equal(t, services.ErrCodeRequestFailed, aiErr.Code)
			assert.Equal(t, tt.retryable, aiErr.Retryable)
			assert.Equal(t, tt.status, aiErr.Details["status_code"])
		})
	}
}

func TestAdapter_IsAvailable(t *testing.T) {
	adapter := newTestAdapter(t, providers.ProviderTypeLocal, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object": "list", "data": [{"id": "deepseek-chat", "object": "model", "created": 0, "owned_by": "me"}]}`))
	})
	assert.True(t, adapter.IsAvailable(context.Background()))
}
