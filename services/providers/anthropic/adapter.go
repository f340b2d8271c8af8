package anthropic

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/providers"
)

const (
	providerName     = "anthropic"
	defaultMaxTokens = 4096
)

// Adapter implements providers.Adapter for the Anthropic Messages API.
// It is the multimodal variant: image inputs are forwarded as base64 blocks.
type Adapter struct {
	name    string
	config  providers.ProviderConfig
	client  anthropic.Client
	catalog providers.Catalog
	logger  *zap.Logger
}

// NewAdapter creates a new Anthropic adapter
func NewAdapter(config providers.ProviderConfig, logger *zap.Logger) (*Adapter, error) {
	if config.APIKey == "" {
		return nil, errors.New("anthropic api key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	config = config.WithDefaults()

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithHTTPClient(providers.NewHTTPClient(config)),
		// Fallback is the router's job.
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &Adapter{
		name:   config.NameOr(providerName),
		config: config,
		client: anthropic.NewClient(opts...),
		logger: logger,
	}, nil
}

// Build is the providers.AdapterBuilder for the anthropic kind
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

func (a *Adapter) IsAvailable(ctx context.Context) bool {
	if _, err := a.client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
		a.logger.Debug("anthropic probe failed", zap.String("provider", a.name), zap.Error(err))
		return false
	}
	return true
}

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
	return providers.BuildCapabilities(a.config, &a.catalog, "chat", "streaming", "images", "long-context")
}

// SendRequest creates a message and joins the text blocks of the reply
func (a *Adapter) SendRequest(ctx context.Context, req *models.AIRequest) (*models.AIResponse, error) {
	if err := providers.ValidateRequest(req); err != nil {
		return nil, err
	}
	model, err := providers.ResolveModel(a.name, &a.catalog, req)
	if err != nil {
		return nil, err
	}

	params := a.buildParams(model, req)

	start := time.Now()
	msg, err := a.client.Messages.New(ctx, params)
	elapsed := time.Since(start)
	if err != nil {
		return nil, a.normalizeError(err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return providers.NewResponse(providers.ResponseInput{
		Request:      req,
		Provider:     a.name,
		Model:        model.ID,
		Content:      text.String(),
		TokensUsed:   int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		Elapsed:      elapsed,
		FinishReason: string(msg.StopReason),
	}), nil
}

func (a *Adapter) buildParams(model models.AIModel, req *models.AIRequest) anthropic.MessageNewParams {
	prompt := providers.BuildPrompt(req)

	var blocks []anthropic.ContentBlockParamUnion
	if model.Capabilities.SupportsImages {
		for _, img := range req.Options.Images {
			blocks = append(blocks, anthropic.NewImageBlockBase64(img.MediaType, img.Data))
		}
	}
	blocks = append(blocks, anthropic.NewTextBlock(prompt.User))

	maxTokens := int64(req.Options.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model.ID),
		MaxTokens: maxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
		System:    []anthropic.TextBlockParam{{Text: prompt.System}},
	}
	if req.Options.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Options.Temperature)
	}
	if req.Options.TopP != nil {
		params.TopP = anthropic.Float(*req.Options.TopP)
	}
	return params
}

func (a *Adapter) normalizeError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return providers.StatusError(a.name, apiErr.StatusCode, "", err)
	}
	return providers.TransportError(a.name, err)
}

func catalogue() []models.AIModel {
	return []models.AIModel{
		{
			ID:            "claude-sonnet-4-20250514",
			DisplayName:   "Claude Sonnet 4",
			Modality:      models.ModalityMultimodal,
			ContextWindow: 200000,
			CostPerToken:  0.000009,
			Capabilities: models.ModelCapabilities{
				MaxTokens:         8192,
				SupportsStreaming: true,
				SupportsImages:    true,
				SupportsCode:      true,
			},
			Performance: models.ModelPerformance{
				AverageResponseTime: 1500 * time.Millisecond,
				Reliability:         0.98,
				Accuracy:            0.94,
				Throughput:          70,
			},
		},
		{
			ID:            "claude-opus-4-20250514",
			DisplayName:   "Claude Opus 4",
			Modality:      models.ModalityMultimodal,
			ContextWindow: 200000,
			CostPerToken:  0.000045,
			Capabilities: models.ModelCapabilities{
				MaxTokens:         8192,
				SupportsStreaming: true,
				SupportsImages:    true,
				SupportsCode:      true,
			},
			Performance: models.ModelPerformance{
				AverageResponseTime: 3000 * time.Millisecond,
				Reliability:         0.97,
				Accuracy:            0.96,
				Throughput:          35,
			},
		},
		{
			ID:            "claude-3-5-haiku-20241022",
			DisplayName:   "Claude 3.5 Haiku",
			Modality:      models.ModalityMultimodal,
			ContextWindow: 200000,
			CostPerToken:  0.0000024,
			Capabilities: models.ModelCapabilities{
				MaxTokens:         8192,
				SupportsStreaming: true,
				SupportsImages:    true,
				SupportsCode:      true,
			},
			Performance: models.ModelPerformance{
				AverageResponseTime: 800 * time.Millisecond,
				Reliability:         0.97,
				Accuracy:            0.84,
				Throughput:          110,
			},
		},
	}
}
