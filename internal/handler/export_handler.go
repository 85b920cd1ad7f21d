package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"strata/backend/internal/record"
	"strata/backend/internal/service"
	"strata/backend/internal/viewstate"
)

// ExportLimit caps how many records a single export fetches.
const ExportLimit = 1000

type ExportHandler struct {
	metadata service.MetadataService
}

func NewExportHandler(metadata service.MetadataService) *ExportHandler {
	return &ExportHandler{metadata: metadata}
}

type exportEnvelope struct {
	ExportedAt string          `json:"exportedAt"`
	Kind       string          `json:"kind,omitempty"`
	Query      string          `json:"query,omitempty"`
	Count      int             `json:"count"`
	Records    json.RawMessage `json:"records"`
}

type exportSelectionRequest struct {
	Records []map[string]any `json:"records"`
}

func (h *ExportHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/connections/:id/export", h.Export)
	g.POST("/export", h.ExportSelection)
}

// ExportSelection returns the posted records as a JSON attachment, for
// the client-side "export selected" flow.
// @Summary Export selected records
// @Description Echo the posted record selection back as a downloadable JSON document
// @Tags metadata
// @Accept json
// @Produce json
// @Param request body exportSelectionRequest true "Selected records"
// @Success 200 {object} exportEnvelope
// @Failure 400 {object} errorResponse
// @Router /export [post]
func (h *ExportHandler) ExportSelection(c echo.Context) error {
	var req exportSelectionRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid request")
	}
	if len(req.Records) == 0 {
		return Error(c, http.StatusBadRequest, "records are required")
	}

	encoded, err := json.Marshal(req.Records)
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid records")
	}

	envelope := exportEnvelope{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(req.Records),
		Records:    encoded,
	}

	fileName := "strata-export-" + time.Now().UTC().Format("20060102-150405") + ".json"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+fileName+`"`)
	return c.JSON(http.StatusOK, envelope)
}

// Export downloads the current result set as a JSON attachment.
// @Summary Export records
// @Description Run the current view's search and return the result set as a downloadable JSON document
// @Tags metadata
// @Produce json
// @Param id path int true "Connection ID"
// @Param kind query string false "Structural filter key"
// @Param q query string false "Free-text filter"
// @Success 200 {object} exportEnvelope
// @Failure 502 {object} errorResponse
// @Router /connections/{id}/export [get]
func (h *ExportHandler) Export(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid connection id")
	}

	state := viewstate.FromValues(c.QueryParams())

	// Exports ignore pagination and fetch from the start.
	params := map[string]any{"limit": ExportLimit, "offset": 0}
	if state.FilterKey != "" {
		params["kind"] = state.FilterKey
	}
	if state.FilterText != "" {
		params["query"] = state.FilterText
	}

	result, err := h.metadata.Call(c.Request().Context(), id, service.MethodExecuteQuery, params)
	if err != nil {
		return writeServiceError(c, err)
	}

	envelope := exportEnvelope{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Kind:       state.FilterKey,
		Query:      state.FilterText,
		Records:    json.RawMessage("[]"),
	}

	var body record.Record
	if err := json.Unmarshal(result, &body); err == nil {
		if items, ok := record.FirstPresent(body, "results", "records", "items"); ok {
			if list, ok := items.([]any); ok {
				envelope.Count = len(list)
			}
			if encoded, err := json.Marshal(items); err == nil {
				envelope.Records = encoded
			}
		}
	}

	fileName := "strata-export-" + time.Now().UTC().Format("20060102-150405") + ".json"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+fileName+`"`)
	return c.JSON(http.StatusOK, envelope)
}
