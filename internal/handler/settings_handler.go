package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"strata/backend/internal/network"
	"strata/backend/internal/service"
	"strata/backend/internal/service/ai"
)

type SettingsHandler struct {
	service       service.SettingsService
	rateLimiter   *ai.RateLimiter
	clientFactory *network.ClientFactory
}

// Request/Response types

type aiSettingsResponse struct {
	Provider        string `json:"provider"`
	APIKey          string `json:"apiKey"`
	BaseURL         string `json:"baseUrl"`
	Model           string `json:"model"`
	Thinking        bool   `json:"thinking"`
	ThinkingBudget  int    `json:"thinkingBudget"`
	ReasoningEffort string `json:"reasoningEffort"`
	Platform        string `json:"platform"`
	DataPartition   string `json:"dataPartition"`
	RateLimit       int    `json:"rateLimit"`
}

type aiSettingsRequest struct {
	Provider        string `json:"provider"`
	APIKey          string `json:"apiKey"`
	BaseURL         string `json:"baseUrl"`
	Model           string `json:"model"`
	Thinking        bool   `json:"thinking"`
	ThinkingBudget  int    `json:"thinkingBudget"`
	ReasoningEffort string `json:"reasoningEffort"`
	Platform        string `json:"platform"`
	DataPartition   string `json:"dataPartition"`
	RateLimit       int    `json:"rateLimit"`
}

type aiTestRequest struct {
	Provider        string `json:"provider"`
	APIKey          string `json:"apiKey"`
	BaseURL         string `json:"baseUrl"`
	Model           string `json:"model"`
	Thinking        bool   `json:"thinking"`
	ThinkingBudget  int    `json:"thinkingBudget"`
	ReasoningEffort string `json:"reasoningEffort"`
}

type aiTestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type proxyTestRequest struct {
	ProxyURL string `json:"proxyUrl"`
	TestURL  string `json:"testUrl"`
}

type proxyTestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func NewSettingsHandler(service service.SettingsService, rateLimiter *ai.RateLimiter, clientFactory *network.ClientFactory) *SettingsHandler {
	return &SettingsHandler{service: service, rateLimiter: rateLimiter, clientFactory: clientFactory}
}

func (h *SettingsHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/settings/ai", h.GetAISettings)
	g.PUT("/settings/ai", h.UpdateAISettings)
	g.POST("/settings/ai/test", h.TestAI)
	g.POST("/settings/network/test", h.TestProxy)
}

// GetAISettings returns the AI configuration.
// @Summary Get AI settings
// @Description Get the AI provider configuration with masked API keys
// @Tags settings
// @Produce json
// @Success 200 {object} aiSettingsResponse
// @Failure 500 {object} errorResponse
// @Router /settings/ai [get]
func (h *SettingsHandler) GetAISettings(c echo.Context) error {
	settings, err := h.service.GetAISettings(c.Request().Context())
	if err != nil {
		c.Logger().Error(err)
		return Error(c, http.StatusInternalServerError, "failed to get settings")
	}

	return c.JSON(http.StatusOK, aiSettingsResponse{
		Provider:        settings.Provider,
		APIKey:          settings.APIKey,
		BaseURL:         settings.BaseURL,
		Model:           settings.Model,
		Thinking:        settings.Thinking,
		ThinkingBudget:  settings.ThinkingBudget,
		ReasoningEffort: settings.ReasoningEffort,
		Platform:        settings.Platform,
		DataPartition:   settings.DataPartition,
		RateLimit:       settings.RateLimit,
	})
}

// UpdateAISettings updates the AI configuration.
// @Summary Update AI settings
// @Description Update the AI provider configuration. Empty apiKey keeps existing key.
// @Tags settings
// @Accept json
// @Produce json
// @Param settings body aiSettingsRequest true "AI settings"
// @Success 200 {object} aiSettingsResponse
// @Failure 400 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /settings/ai [put]
func (h *SettingsHandler) UpdateAISettings(c echo.Context) error {
	var req aiSettingsRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid request")
	}

	settings := &service.AISettings{
		Provider:        req.Provider,
		APIKey:          req.APIKey,
		BaseURL:         req.BaseURL,
		Model:           req.Model,
		Thinking:        req.Thinking,
		ThinkingBudget:  req.ThinkingBudget,
		ReasoningEffort: req.ReasoningEffort,
		Platform:        req.Platform,
		DataPartition:   req.DataPartition,
		RateLimit:       req.RateLimit,
	}

	if err := h.service.SetAISettings(c.Request().Context(), settings); err != nil {
		c.Logger().Error(err)
		return Error(c, http.StatusInternalServerError, "failed to save settings")
	}

	if req.RateLimit > 0 {
		h.rateLimiter.SetLimit(req.RateLimit)
	}

	// Return updated settings (with masked keys)
	return h.GetAISettings(c)
}

// TestAI tests the AI connection.
// @Summary Test AI connection
// @Description Test the AI provider connection with a "Hello world" message
// @Tags settings
// @Accept json
// @Produce json
// @Param config body aiTestRequest true "AI test configuration"
// @Success 200 {object} aiTestResponse
// @Failure 400 {object} errorResponse
// @Router /settings/ai/test [post]
func (h *SettingsHandler) TestAI(c echo.Context) error {
	var req aiTestRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid request")
	}

	if req.Provider == "" {
		return Error(c, http.StatusBadRequest, "provider is required")
	}
	if req.Model == "" {
		return Error(c, http.StatusBadRequest, "model is required")
	}

	response, err := h.service.TestAI(c.Request().Context(), req.Provider, req.APIKey, req.BaseURL, req.Model, req.Thinking, req.ThinkingBudget, req.ReasoningEffort)
	if err != nil {
		return c.JSON(http.StatusOK, aiTestResponse{
			Success: false,
			Error:   err.Error(),
		})
	}

	return c.JSON(http.StatusOK, aiTestResponse{
		Success: true,
		Message: response,
	})
}

// TestProxy tests an outbound proxy configuration without saving it.
// @Summary Test proxy
// @Description Test a proxy configuration by fetching a URL through it
// @Tags settings
// @Accept json
// @Produce json
// @Param config body proxyTestRequest true "Proxy test configuration"
// @Success 200 {object} proxyTestResponse
// @Failure 400 {object} errorResponse
// @Router /settings/network/test [post]
func (h *SettingsHandler) TestProxy(c echo.Context) error {
	var req proxyTestRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid request")
	}

	testURL := req.TestURL
	if testURL == "" {
		testURL = "https://captive.apple.com/"
	}

	var err error
	if req.ProxyURL != "" {
		err = h.clientFactory.TestProxyWithConfig(c.Request().Context(), req.ProxyURL, testURL)
	} else {
		// No override given: exercise the factory's configured proxy.
		err = h.clientFactory.TestProxy(c.Request().Context(), testURL)
	}
	if err != nil {
		return c.JSON(http.StatusOK, proxyTestResponse{
			Success: false,
			Error:   err.Error(),
		})
	}

	return c.JSON(http.StatusOK, proxyTestResponse{
		Success: true,
		Message: "Proxy connection successful",
	})
}
