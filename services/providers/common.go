package providers

import (
	"fmt"
	"net/http"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services"
)

// NewHTTPClient builds the HTTP client shared by an adapter's SDK. Extra
// configured headers are attached to every outgoing request.
func NewHTTPClient(config ProviderConfig) *http.Client {
	var transport http.RoundTripper = http.DefaultTransport
	if len(config.Headers) > 0 {
		transport = &headerTransport{headers: config.Headers, next: transport}
	}
	return &http.Client{Timeout: config.Timeout, Transport: transport}
}

type headerTransport struct {
	headers map[string]string
	next    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.next.RoundTrip(req)
}

// SelectModels restricts a static catalogue to the configured ids. An empty
// id list keeps everything; ids missing from the catalogue are ignored.
func SelectModels(all []models.AIModel, ids []string) []models.AIModel {
	if len(ids) == 0 {
		return all
	}

	byID := make(map[string]models.AIModel, len(all))
	for _, m := range all {
		byID[m.ID] = m
	}

	out := make([]models.AIModel, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, m)
		}
	}
	return out
}

// ResolveModel picks the model a request should run on: the pinned one when
// set, otherwise the first catalogue entry
func ResolveModel(provider string, catalog *Catalog, req *models.AIRequest) (models.AIModel, error) {
	if req.Model == "" {
		ms := catalog.Models()
		if len(ms) == 0 {
			return models.AIModel{}, services.NewRequestFailed(provider, "no models loaded", false, nil)
		}
		return ms[0], nil
	}

	m, ok := catalog.Lookup(req.Model)
	if !ok {
		return models.AIModel{}, services.NewInvalidRequest(
			fmt.Sprintf("model %q is not served by %s", req.Model, provider))
	}
	return m, nil
}

// BuildCapabilities assembles the capability sheet from config and catalogue
func BuildCapabilities(config ProviderConfig, catalog *Catalog, features ...string) models.ProviderCapabilities {
	return models.ProviderCapabilities{
		MaxConcurrentRequests: config.MaxConcurrentRequests,
		SupportedModelIDs:     catalog.IDs(),
		Features:              features,
		RateLimits:            config.RateLimits(),
	}
}
