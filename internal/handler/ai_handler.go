package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"strata/backend/internal/service"
)

type AIHandler struct {
	service service.TranslateService
}

// Request/Response types

type translateRequest struct {
	Prompt string `json:"prompt"`
}

type translateResponse struct {
	Filter          string `json:"filter"`
	Explanation     string `json:"explanation,omitempty"`
	StructuralKey   string `json:"structuralKey,omitempty"`
	StructuralValue string `json:"structuralValue,omitempty"`
	Ambiguous       bool   `json:"ambiguous,omitempty"`
}

type historyEntryResponse struct {
	ID          int64  `json:"id,string"`
	Prompt      string `json:"prompt"`
	Filter      string `json:"filter"`
	Explanation string `json:"explanation,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

type conversationTurnResponse struct {
	Prompt    string `json:"prompt"`
	Role      string `json:"role"`
	Detail    string `json:"detail,omitempty"`
	Timestamp string `json:"timestamp"`
}

func NewAIHandler(service service.TranslateService) *AIHandler {
	return &AIHandler{service: service}
}

func (h *AIHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/ai/translate", h.Translate)
	g.GET("/ai/history", h.History)
	g.DELETE("/ai/history", h.ClearHistory)
	g.GET("/ai/conversation", h.Conversation)
}

// Translate converts a natural-language prompt into a metadata filter.
// @Summary Translate prompt to query
// @Description Translate a natural-language prompt into a metadata search filter, hoisting a structural clause when the filter contains one
// @Tags ai
// @Accept json
// @Produce json
// @Param request body translateRequest true "Translate request"
// @Success 200 {object} translateResponse
// @Failure 400 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /ai/translate [post]
func (h *AIHandler) Translate(c echo.Context) error {
	var req translateRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid request")
	}
	if req.Prompt == "" {
		return Error(c, http.StatusBadRequest, "prompt is required")
	}

	result, err := h.service.Translate(c.Request().Context(), req.Prompt)
	if err != nil {
		return writeServiceError(c, err)
	}

	return c.JSON(http.StatusOK, translateResponse{
		Filter:          result.Filter,
		Explanation:     result.Explanation,
		StructuralKey:   result.StructuralKey,
		StructuralValue: result.StructuralValue,
		Ambiguous:       result.Ambiguous,
	})
}

// History returns the translation history, newest first.
// @Summary Get translation history
// @Tags ai
// @Produce json
// @Success 200 {array} historyEntryResponse
// @Failure 500 {object} errorResponse
// @Router /ai/history [get]
func (h *AIHandler) History(c echo.Context) error {
	entries, err := h.service.History(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}

	resp := make([]historyEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, historyEntryResponse{
			ID:          entry.ID,
			Prompt:      entry.Prompt,
			Filter:      entry.Filter,
			Explanation: entry.Explanation,
			CreatedAt:   entry.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// ClearHistory purges the translation history.
// @Summary Clear translation history
// @Tags ai
// @Produce json
// @Success 200 {object} deletedCountResponse
// @Failure 500 {object} errorResponse
// @Router /ai/history [delete]
func (h *AIHandler) ClearHistory(c echo.Context) error {
	deleted, err := h.service.ClearHistory(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, deletedCountResponse{Deleted: deleted})
}

// Conversation returns the transient log of the current session.
// @Summary Get conversation log
// @Description Get the in-memory log of translation attempts for this server session, including failed ones
// @Tags ai
// @Produce json
// @Success 200 {array} conversationTurnResponse
// @Router /ai/conversation [get]
func (h *AIHandler) Conversation(c echo.Context) error {
	turns := h.service.Conversation()
	resp := make([]conversationTurnResponse, 0, len(turns))
	for _, turn := range turns {
		resp = append(resp, conversationTurnResponse{
			Prompt:    turn.Prompt,
			Role:      turn.Role,
			Detail:    turn.Detail,
			Timestamp: turn.Timestamp.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, resp)
}
