// Package compatible adapts any endpoint that speaks the OpenAI chat
// completions protocol: DeepSeek, Groq, LM Studio, vLLM and similar.
package compatible

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/providers"
)

const providerName = "compatible"

// Adapter implements providers.Adapter for OpenAI-compatible servers
type Adapter struct {
	name         string
	providerType providers.ProviderType
	config       providers.ProviderConfig
	client       openai.Client
	catalog      providers.Catalog
	logger       *zap.Logger
}

// NewAdapter creates a new compatible adapter. BaseURL and at least one
// model are required since there is no built-in catalogue.
func NewAdapter(config providers.ProviderConfig, logger *zap.Logger) (*Adapter, error) {
	if config.BaseURL == "" {
		return nil, errors.New("compatible provider requires a base url")
	}
	if len(config.Models) == 0 {
		return nil, errors.New("compatible provider requires at least one model")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	config = config.WithDefaults()

	providerType := config.Type
	if providerType == "" {
		providerType = providers.ProviderTypeCloud
	}

	opts := []option.RequestOption{
		option.WithBaseURL(config.BaseURL),
		option.WithHTTPClient(providers.NewHTTPClient(config)),
		option.WithMaxRetries(0),
	}
	// Local servers such as LM Studio accept any key.
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = "not-needed"
	}
	opts = append(opts, option.WithAPIKey(apiKey))

	return &Adapter{
		name:         config.NameOr(providerName),
		providerType: providerType,
		config:       config,
		client:       openai.NewClient(opts...),
		logger:       logger,
	}, nil
}

// Build is the providers.AdapterBuilder for the compatible kind
func Build(config providers.ProviderConfig, logger *zap.Logger) (providers.Adapter, error) {
	adapter, err := NewAdapter(config, logger)
	if err != nil {
		return nil, err
	}
	return adapter, nil
}

func (a *Adapter) Name() string {
	return a.name
}

func (a *Adapter) Type() providers.ProviderType {
	return a.providerType
}

func (a *Adapter) IsAvailable(ctx context.Context) bool {
	if _, err := a.client.Models.List(ctx); err != nil {
		a.logger.Debug("compatible probe failed", zap.String("provider", a.name), zap.Error(err))
		return false
	}
	return true
}

func (a *Adapter) LoadModels(ctx context.Context) error {
	ms := make([]models.AIModel, 0, len(a.config.Models))
	for _, id := range a.config.Models {
		ms = append(ms, a.declaredModel(id))
	}
	a.catalog.Replace(ms)
	return nil
}

func (a *Adapter) Models() []models.AIModel {
	return a.catalog.Models()
}

func (a *Adapter) GetCapabilities() models.ProviderCapabilities {
	return providers.BuildCapabilities(a.config, &a.catalog, "chat", "streaming")
}

func (a *Adapter) SendRequest(ctx context.Context, req *models.AIRequest) (*models.AIResponse, error) {
	if err := providers.ValidateRequest(req); err != nil {
		return nil, err
	}
	model, err := providers.ResolveModel(a.name, &a.catalog, req)
	if err != nil {
		return nil, err
	}

	prompt := providers.BuildPrompt(req)
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model.ID),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
	}
	if req.Options.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.Options.MaxTokens))
	}
	if req.Options.Temperature != nil {
		params.Temperature = openai.Float(*req.Options.Temperature)
	}
	if req.Options.TopP != nil {
		params.TopP = openai.Float(*req.Options.TopP)
	}

	start := time.Now()
	completion, err := a.client.Chat.Completions.New(ctx, params)
	elapsed := time.Since(start)
	if err != nil {
		return nil, a.normalizeError(err)
	}
	if len(completion.Choices) == 0 {
		return nil, providers.StatusError(a.name, 502, "response contained no choices", nil)
	}

	choice := completion.Choices[0]
	return providers.NewResponse(providers.ResponseInput{
		Request:      req,
		Provider:     a.name,
		Model:        model.ID,
		Content:      choice.Message.Content,
		TokensUsed:   int(completion.Usage.TotalTokens),
		Elapsed:      elapsed,
		FinishReason: choice.FinishReason,
	}), nil
}

func (a *Adapter) normalizeError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return providers.StatusError(a.name, apiErr.StatusCode, apiErr.Message, err)
	}
	return providers.TransportError(a.name, err)
}

// declaredModel builds a catalogue entry for a configured model id. Local
// endpoints are free and slower; hosted ones use the configured price.
func (a *Adapter) declaredModel(id string) models.AIModel {
	m := models.AIModel{
		ID:            id,
		DisplayName:   id,
		ProviderName:  a.name,
		Modality:      models.ModalityChat,
		ContextWindow: 32768,
		CostPerToken:  a.config.CostPerToken,
		Capabilities: models.ModelCapabilities{
			MaxTokens:         4096,
			SupportsStreaming: true,
			SupportsCode:      true,
		},
		Performance: models.ModelPerformance{
			AverageResponseTime: 900 * time.Millisecond,
			Reliability:         0.93,
			Accuracy:            0.82,
			Throughput:          90,
		},
	}

	if a.providerType == providers.ProviderTypeLocal {
		m.CostPerToken = 0
		m.Performance.AverageResponseTime = 2000 * time.Millisecond
		m.Performance.Reliability = 0.85
		m.Performance.Accuracy = 0.72
		m.Performance.Throughput = 30
	}
	return m
}
