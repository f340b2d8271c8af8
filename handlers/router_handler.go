package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/middleware"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/routing"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/utils"
)

// RouterService is the routing surface the HTTP layer depends on
type RouterService interface {
	RouteRequest(ctx context.Context, req *models.AIRequest, constraints *models.RoutingConstraints, strategy string) (*models.AIResponse, error)
	SelectOptimalModel(ctx context.Context, req *models.AIRequest, constraints *models.RoutingConstraints, strategy string) (*models.ModelSelection, error)
	ClassifyTask(content string, rc *models.RequestContext) models.TaskType
	GetMetrics() models.RoutingMetrics
	ResetMetrics()
	GetSystemStatus(ctx context.Context) routing.SystemStatus
	Strategies() []string
	Config() routing.RouterConfig
}

// ModelCatalog lists every registered model
type ModelCatalog interface {
	GetAllModels() []models.AIModel
}

// RouteRequestBody is the body of POST /api/v1/route and /api/v1/select
type RouteRequestBody struct {
	Request     RequestBody                `json:"request" validate:"required"`
	Constraints *models.RoutingConstraints `json:"constraints,omitempty" validate:"omitempty"`
	Strategy    string                     `json:"strategy,omitempty" validate:"omitempty,max=64"`
}

// RequestBody is the wire form of an AIRequest. ID and Type are optional;
// the handler fills them in.
type RequestBody struct {
	ID      string                 `json:"id,omitempty" validate:"omitempty,max=128"`
	Content string                 `json:"content" validate:"required"`
	Type    models.TaskType        `json:"type,omitempty" validate:"omitempty,task_type"`
	Model   string                 `json:"model,omitempty" validate:"omitempty,max=256"`
	Context *models.RequestContext `json:"context,omitempty"`
	Options OptionsBody            `json:"options"`
}

// OptionsBody carries generation parameters
type OptionsBody struct {
	Temperature *float64            `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   int                 `json:"max_tokens,omitempty" validate:"gte=0"`
	TopP        *float64            `json:"top_p,omitempty" validate:"omitempty,gte=0,lte=1"`
	Stream      bool                `json:"stream,omitempty"`
	Images      []models.ImageInput `json:"images,omitempty" validate:"omitempty,max=16"`
}

// ConfigView is the public part of the router configuration
type ConfigView struct {
	DefaultStrategy string   `json:"default_strategy"`
	Strategies      []string `json:"strategies"`
}

// RouterHandler handles routing HTTP requests
type RouterHandler struct {
	service RouterService
	catalog ModelCatalog
	logger  *zap.Logger
}

// NewRouterHandler creates a new RouterHandler
func NewRouterHandler(service RouterService, catalog ModelCatalog, logger *zap.Logger) *RouterHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RouterHandler{
		service: service,
		catalog: catalog,
		logger:  logger,
	}
}

// HandleRoute handles POST /api/v1/route
func (h *RouterHandler) HandleRoute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	body, ok := h.decode(w, r, requestID)
	if !ok {
		return
	}
	req := h.toRequest(body.Request)

	h.logger.Debug("routing request",
		zap.String("request_id", requestID),
		zap.String("id", req.ID),
		zap.String("type", string(req.Type)),
		zap.String("strategy", body.Strategy))

	resp, err := h.service.RouteRequest(ctx, req, body.Constraints, body.Strategy)
	if err != nil {
		h.logger.Info("route failed",
			zap.String("request_id", requestID),
			zap.String("id", req.ID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("request routed",
		zap.String("request_id", requestID),
		zap.String("id", resp.ID),
		zap.String("provider", resp.ProviderName),
		zap.String("model", resp.Model),
		zap.Int64("response_time_ms", resp.Metadata.ResponseTimeMs))

	if err := utils.WriteOK(w, resp); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

// HandleSelect handles POST /api/v1/select. It runs selection without
// dispatching.
func (h *RouterHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	body, ok := h.decode(w, r, requestID)
	if !ok {
		return
	}
	req := h.toRequest(body.Request)

	selection, err := h.service.SelectOptimalModel(ctx, req, body.Constraints, body.Strategy)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, selection); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

// HandleStatus handles GET /api/v1/status
func (h *RouterHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, h.service.GetSystemStatus(r.Context()))
}

// HandleModels handles GET /api/v1/models, optionally filtered by ?provider=
func (h *RouterHandler) HandleModels(w http.ResponseWriter, r *http.Request) {
	all := h.catalog.GetAllModels()

	provider := strings.TrimSpace(r.URL.Query().Get("provider"))
	if provider == "" {
		_ = utils.WriteOK(w, all)
		return
	}

	filtered := make([]models.AIModel, 0, len(all))
	for _, m := range all {
		if m.ProviderName == provider {
			filtered = append(filtered, m)
		}
	}
	_ = utils.WriteOK(w, filtered)
}

// HandleStrategies handles GET /api/v1/strategies
func (h *RouterHandler) HandleStrategies(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, ConfigView{
		DefaultStrategy: h.service.Config().DefaultStrategy,
		Strategies:      h.service.Strategies(),
	})
}

// HandleGetMetrics handles GET /api/v1/metrics
func (h *RouterHandler) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, h.service.GetMetrics())
}

// HandleResetMetrics handles DELETE /api/v1/metrics
func (h *RouterHandler) HandleResetMetrics(w http.ResponseWriter, r *http.Request) {
	h.service.ResetMetrics()
	h.logger.Info("routing metrics reset",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())))
	utils.WriteNoContent(w)
}

func (h *RouterHandler) decode(w http.ResponseWriter, r *http.Request, requestID string) (*RouteRequestBody, bool) {
	var body RouteRequestBody
	if err := utils.DecodeJSON(r, &body); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", map[string]interface{}{"error": err.Error()})
		return nil, false
	}

	if err := utils.ValidateStruct(&body); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return nil, false
	}
	return &body, true
}

// toRequest fills in a missing id and classifies an untyped request
func (h *RouterHandler) toRequest(body RequestBody) *models.AIRequest {
	req := &models.AIRequest{
		ID:      strings.TrimSpace(body.ID),
		Content: body.Content,
		Type:    body.Type,
		Model:   body.Model,
		Context: body.Context,
		Options: models.RequestOptions{
			Temperature: body.Options.Temperature,
			MaxTokens:   body.Options.MaxTokens,
			TopP:        body.Options.TopP,
			Stream:      body.Options.Stream,
			Images:      body.Options.Images,
		},
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Type == "" {
		req.Type = h.service.ClassifyTask(req.Content, req.Context)
	}
	return req
}
