package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/providers"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	providerName   = "openai"
)

// Adapter implements providers.Adapter for the OpenAI chat completions API
type Adapter struct {
	name    string
	config  providers.ProviderConfig
	client  *openai.Client
	catalog providers.Catalog
	logger  *zap.Logger
}

// NewAdapter creates a new OpenAI adapter
func NewAdapter(config providers.ProviderConfig, logger *zap.Logger) (*Adapter, error) {
	if config.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	config = config.WithDefaults()

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = config.BaseURL
	clientConfig.HTTPClient = providers.NewHTTPClient(config)

	return &Adapter{
		name:   config.NameOr(providerName),
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger,
	}, nil
}

// Build is the providers.AdapterBuilder for the openai kind
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
	return providers.ProviderTypeCloud
}

// IsAvailable lists models as a cheap authenticated probe
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	if _, err := a.client.ListModels(ctx); err != nil {
		a.logger.Debug("openai probe failed", zap.String("provider", a.name), zap.Error(err))
		return false
	}
	return true
}

// LoadModels installs the static catalogue, restricted to configured ids
func (a *Adapter) LoadModels(ctx context.Context) error {
	ms := providers.SelectModels(catalogue(), a.config.Models)
	for i := range ms {
		ms[i].ProviderName = a.name
	}
	a.catalog.Replace(ms)
	return nil
}

func (a *Adapter) Models() []models.AIModel {
	return a.catalog.Models()
}

func (a *Adapter) GetCapabilities() models.ProviderCapabilities {
	return providers.BuildCapabilities(a.config, &a.catalog, "chat", "streaming", "images")
}

// SendRequest performs a chat completion
func (a *Adapter) SendRequest(ctx context.Context, req *models.AIRequest) (*models.AIResponse, error) {
	if err := providers.ValidateRequest(req); err != nil {
		return nil, err
	}
	model, err := providers.ResolveModel(a.name, &a.catalog, req)
	if err != nil {
		return nil, err
	}

	chatReq := a.buildRequest(model, req)

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, chatReq)
	elapsed := time.Since(start)
	if err != nil {
		return nil, a.normalizeError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, providers.StatusError(a.name, 502, "response contained no choices", nil)
	}

	choice := resp.Choices[0]
	return providers.NewResponse(providers.ResponseInput{
		Request:      req,
		Provider:     a.name,
		Model:        model.ID,
		Content:      choice.Message.Content,
		TokensUsed:   resp.Usage.TotalTokens,
		Elapsed:      elapsed,
		FinishReason: string(choice.FinishReason),
	}), nil
}

func (a *Adapter) buildRequest(model models.AIModel, req *models.AIRequest) openai.ChatCompletionRequest {
	prompt := providers.BuildPrompt(req)

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if req.HasImages() && model.Capabilities.SupportsImages {
		user.MultiContent = []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: prompt.User}}
		for _, img := range req.Options.Images {
			user.MultiContent = append(user.MultiContent, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: fmt.Sprintf("data:%s;base64,%s", img.MediaType, img.Data)},
			})
		}
	} else {
		user.Content = prompt.User
	}

	chatReq := openai.ChatCompletionRequest{
		Model: model.ID,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			user,
		},
		MaxTokens: req.Options.MaxTokens,
	}
	if req.Options.Temperature != nil {
		chatReq.Temperature = float32(*req.Options.Temperature)
	}
	if req.Options.TopP != nil {
		chatReq.TopP = float32(*req.Options.TopP)
	}
	return chatReq
}

// normalizeError maps go-openai errors onto the routing error taxonomy
func (a *Adapter) normalizeError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return providers.StatusError(a.name, apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return providers.StatusError(a.name, reqErr.HTTPStatusCode, "", err)
	}

	return providers.TransportError(a.name, err)
}

// catalogue is the static model list with baseline performance
func catalogue() []models.AIModel {
	code := []string{"go", "python", "javascript", "typescript", "java", "rust", "c", "cpp", "csharp", "ruby", "php", "swift", "kotlin", "sql"}

	return []models.AIModel{
		{
			ID:            "gpt-4o",
			DisplayName:   "GPT-4o",
			Modality:      models.ModalityMultimodal,
			ContextWindow: 128000,
			CostPerToken:  0.00001,
			Capabilities: models.ModelCapabilities{
				Languages:         code,
				MaxTokens:         4096,
				SupportsStreaming: true,
				SupportsImages:    true,
				SupportsCode:      true,
			},
			Performance: models.ModelPerformance{
				AverageResponseTime: 1200 * time.Millisecond,
				Reliability:         0.98,
				Accuracy:            0.92,
				Throughput:          80,
			},
		},
		{
			ID:            "gpt-4o-mini",
			DisplayName:   "GPT-4o Mini",
			Modality:      models.ModalityMultimodal,
			ContextWindow: 128000,
			CostPerToken:  0.000000375,
			Capabilities: models.ModelCapabilities{
				Languages:         code,
				MaxTokens:         16384,
				SupportsStreaming: true,
				SupportsImages:    true,
				SupportsCode:      true,
			},
			Performance: models.ModelPerformance{
				AverageResponseTime: 700 * time.Millisecond,
				Reliability:         0.97,
				Accuracy:            0.84,
				Throughput:          120,
			},
		},
		{
			ID:            "gpt-4-turbo",
			DisplayName:   "GPT-4 Turbo",
			Modality:      models.ModalityMultimodal,
			ContextWindow: 128000,
			CostPerToken:  0.00002,
			Capabilities: models.ModelCapabilities{
				Languages:         code,
				MaxTokens:         4096,
				SupportsStreaming: true,
				SupportsImages:    true,
				SupportsCode:      true,
			},
			Performance: models.ModelPerformance{
				AverageResponseTime: 2000 * time.Millisecond,
				Reliability:         0.97,
				Accuracy:            0.90,
				Throughput:          40,
			},
		},
		{
			ID:            "gpt-3.5-turbo",
			DisplayName:   "GPT-3.5 Turbo",
			Modality:      models.ModalityChat,
			ContextWindow: 16385,
			CostPerToken:  0.000001,
			Capabilities: models.ModelCapabilities{
				Languages:         code,
				Tasks:             []models.TaskType{models.TaskCodeExplanation, models.TaskDocumentation, models.TaskGeneralChat, models.TaskCodeGeneration},
				MaxTokens:         4096,
				SupportsStreaming: true,
				SupportsCode:      true,
			},
			Performance: models.ModelPerformance{
				AverageResponseTime: 600 * time.Millisecond,
				Reliability:         0.96,
				Accuracy:            0.75,
				Throughput:          150,
			},
		},
	}
}
