package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"strata/backend/internal/record"
	"strata/backend/internal/service"
	"strata/backend/internal/viewstate"
)

// DefaultPageSize is the record page size when the client does not ask
// for one.
const DefaultPageSize = 25

// MaxPageSize caps the per-request page size.
const MaxPageSize = 1000

type MetadataHandler struct {
	metadata service.MetadataService
}

func NewMetadataHandler(metadata service.MetadataService) *MetadataHandler {
	return &MetadataHandler{metadata: metadata}
}

// Request/Response types

type rpcCallRequest struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

type recordPageResponse struct {
	Items      json.RawMessage `json:"items"`
	TotalCount float64         `json:"totalCount,omitempty"`
	Cursor     string          `json:"cursor,omitempty"`
	Offset     int             `json:"offset"`
	Limit      int             `json:"limit"`
	HasMore    bool            `json:"hasMore"`
	HasPrev    bool            `json:"hasPrev"`
}

type updateRecordRequest struct {
	Record map[string]any `json:"record"`
}

func (h *MetadataHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/connections/:id/metadata", h.Call)
	g.GET("/connections/:id/records", h.SearchRecords)
	g.GET("/connections/:id/records/:recordId", h.GetRecord)
	g.PUT("/connections/:id/records/:recordId", h.UpdateRecord)
	g.DELETE("/connections/:id/records/:recordId", h.DeleteRecord)
	g.GET("/connections/:id/files/:recordId", h.DownloadFile)
	g.GET("/connections/:id/assets", h.DiscoverAssets)
	g.GET("/connections/:id/groups", h.GetGroups)
	g.GET("/connections/:id/legal-tags", h.GetLegalTags)
	g.GET("/connections/:id/workflows", h.ListWorkflows)
	g.GET("/connections/:id/policies", h.ListPolicies)
	g.GET("/connections/:id/overview/wells", h.WellOverview)
	g.GET("/connections/:id/overview/seismic", h.SeismicOverview)
}

// Call proxies a raw metadata RPC.
// @Summary Call metadata RPC
// @Description Invoke a metadata RPC method against a connection
// @Tags metadata
// @Accept json
// @Produce json
// @Param id path int true "Connection ID"
// @Param request body rpcCallRequest true "RPC request"
// @Success 200 {object} object
// @Failure 400 {object} errorResponse
// @Failure 502 {object} errorResponse
// @Router /connections/{id}/metadata [post]
func (h *MetadataHandler) Call(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid connection id")
	}

	var req rpcCallRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid request")
	}
	if req.Method == "" {
		return Error(c, http.StatusBadRequest, "method is required")
	}

	result, err := h.metadata.Call(c.Request().Context(), id, req.Method, req.Params)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSONBlob(http.StatusOK, result)
}

// SearchRecords runs a paged record search driven by the view state
// carried in the query string.
// @Summary Search records
// @Description Search records of a connection. Continuation uses the cursor when offset > 0 and a cursor is present, otherwise the numeric offset.
// @Tags metadata
// @Produce json
// @Param id path int true "Connection ID"
// @Param kind query string false "Structural filter key"
// @Param q query string false "Free-text filter"
// @Param offset query int false "Numeric offset"
// @Param cursor query string false "Continuation cursor"
// @Param limit query int false "Page size"
// @Success 200 {object} recordPageResponse
// @Failure 502 {object} errorResponse
// @Router /connections/{id}/records [get]
func (h *MetadataHandler) SearchRecords(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid connection id")
	}

	state := viewstate.FromValues(c.QueryParams())
	limit := parseLimit(c.QueryParam("limit"))

	params := map[string]any{"limit": limit}
	if state.FilterKey != "" {
		params["kind"] = state.FilterKey
	}
	if state.FilterText != "" {
		params["query"] = state.FilterText
	}
	if fields := c.QueryParam("returnedFields"); fields != "" {
		params["returnedFields"] = strings.Split(fields, ",")
	}

	method := service.MethodExecuteQuery
	if state.UseCursor() {
		method = service.MethodExecuteCursorQuery
		params["cursor"] = state.Cursor
	} else {
		params["offset"] = state.Offset
	}

	result, err := h.metadata.Call(c.Request().Context(), id, method, params)
	if err != nil {
		return writeServiceError(c, err)
	}

	return c.JSON(http.StatusOK, buildRecordPage(result, state, limit))
}

// buildRecordPage folds a raw search result into the paging envelope.
// The count of returned records, not the upstream total, drives forward
// paging: a short page means the end of the result set.
func buildRecordPage(result json.RawMessage, state viewstate.State, limit int) recordPageResponse {
	resp := recordPageResponse{
		Items:   json.RawMessage("[]"),
		Offset:  state.Offset,
		Limit:   limit,
		HasPrev: state.CanPrevPage(),
	}

	var body record.Record
	if err := json.Unmarshal(result, &body); err != nil {
		return resp
	}

	count := 0
	if items, ok := record.FirstPresent(body, "results", "records", "items"); ok {
		if list, ok := items.([]any); ok {
			count = len(list)
		}
		if encoded, err := json.Marshal(items); err == nil {
			resp.Items = encoded
		}
	}
	if total, ok := record.NumberField(body, "totalCount", "total", "count"); ok {
		resp.TotalCount = total
	}
	if cursor, ok := record.StringField(body, "cursor", "nextCursor"); ok {
		resp.Cursor = cursor
	}
	resp.HasMore = viewstate.CanNextPage(count, limit)
	return resp
}

func parseLimit(raw string) int {
	limit := DefaultPageSize
	if raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return limit
}

// GetRecord fetches the deep-dive view of a single record.
// @Summary Get record deep dive
// @Description Fetch the full record. Failures carry clearSelection so the client drops its stale selection.
// @Tags metadata
// @Produce json
// @Param id path int true "Connection ID"
// @Param recordId path string true "Record ID"
// @Success 200 {object} object
// @Failure 502 {object} recordErrorResponse
// @Router /connections/{id}/records/{recordId} [get]
func (h *MetadataHandler) GetRecord(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid connection id")
	}
	recordID := c.Param("recordId")

	result, err := h.metadata.Call(c.Request().Context(), id, service.MethodGetRecordDeepDive, map[string]any{"id": recordID})
	if err != nil {
		return writeRecordError(c, err)
	}
	return c.JSONBlob(http.StatusOK, result)
}

// writeRecordError maps a record-scoped failure like writeServiceError
// but tells the client to clear its record selection.
func writeRecordError(c echo.Context, err error) error {
	var upstream *service.UpstreamError
	switch {
	case errors.Is(err, service.ErrInvalid):
		return c.JSON(http.StatusBadRequest, recordErrorResponse{Error: "invalid request", ClearSelection: true})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, recordErrorResponse{Error: "record not found", ClearSelection: true})
	case errors.As(err, &upstream):
		return c.JSON(http.StatusBadGateway, recordErrorResponse{Error: upstream.Error(), ClearSelection: true})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, recordErrorResponse{Error: "internal error", ClearSelection: true})
	}
}

// UpdateRecord replaces a record.
// @Summary Update record
// @Tags metadata
// @Accept json
// @Produce json
// @Param id path int true "Connection ID"
// @Param recordId path string true "Record ID"
// @Param request body updateRecordRequest true "New record content"
// @Success 200 {object} object
// @Failure 400 {object} errorResponse
// @Failure 502 {object} errorResponse
// @Router /connections/{id}/records/{recordId} [put]
func (h *MetadataHandler) UpdateRecord(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid connection id")
	}

	var req updateRecordRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid request")
	}
	if len(req.Record) == 0 {
		return Error(c, http.StatusBadRequest, "record content is required")
	}

	result, err := h.metadata.Call(c.Request().Context(), id, service.MethodUpdateRecord, map[string]any{
		"id":     c.Param("recordId"),
		"record": req.Record,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSONBlob(http.StatusOK, result)
}

// DeleteRecord deletes a record.
// @Summary Delete record
// @Tags metadata
// @Param id path int true "Connection ID"
// @Param recordId path string true "Record ID"
// @Success 204 "No Content"
// @Failure 502 {object} errorResponse
// @Router /connections/{id}/records/{recordId} [delete]
func (h *MetadataHandler) DeleteRecord(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid connection id")
	}

	_, err = h.metadata.Call(c.Request().Context(), id, service.MethodDeleteRecord, map[string]any{"id": c.Param("recordId")})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DownloadFile streams the file attached to a record. The upstream
// either hands back a signed URL, or inlines the content when no
// object store is reachable; inlined content is base64-decoded when it
// decodes cleanly and served raw otherwise.
// @Summary Download record file
// @Tags metadata
// @Produce octet-stream
// @Param id path int true "Connection ID"
// @Param recordId path string true "Record ID"
// @Success 200 {file} file
// @Failure 502 {object} errorResponse
// @Router /connections/{id}/files/{recordId} [get]
func (h *MetadataHandler) DownloadFile(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid connection id")
	}

	result, err := h.metadata.Call(c.Request().Context(), id, service.MethodDownloadFile, map[string]any{"id": c.Param("recordId")})
	if err != nil {
		return writeServiceError(c, err)
	}

	var body record.Record
	if err := json.Unmarshal(result, &body); err != nil {
		return Error(c, http.StatusBadGateway, "malformed download response")
	}

	if url, ok := record.StringField(body, "url", "signedUrl", "signed_url"); ok {
		return c.JSON(http.StatusOK, map[string]string{"url": url})
	}

	encoded, ok := record.StringField(body, "contentBase64", "content_base64", "content")
	if !ok {
		return Error(c, http.StatusBadGateway, "download response carries neither url nor content")
	}
	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		content = []byte(encoded)
	}

	contentType, ok := record.StringField(body, "contentType", "content_type")
	if !ok {
		contentType = "application/octet-stream"
	}
	fileName, ok := record.StringField(body, "fileName", "file_name", "name")
	if !ok {
		fileName = "download"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+fileName+`"`)
	return c.Blob(http.StatusOK, contentType, content)
}

// DiscoverAssets lists the asset kinds available on a connection.
// @Summary Discover assets
// @Tags metadata
// @Produce json
// @Param id path int true "Connection ID"
// @Success 200 {object} object
// @Failure 502 {object} errorResponse
// @Router /connections/{id}/assets [get]
func (h *MetadataHandler) DiscoverAssets(c echo.Context) error {
	return h.simpleCall(c, service.MethodDiscoverAssets)
}

// GetGroups lists entitlement groups.
// @Summary Get groups
// @Tags metadata
// @Produce json
// @Param id path int true "Connection ID"
// @Success 200 {object} object
// @Failure 502 {object} errorResponse
// @Router /connections/{id}/groups [get]
func (h *MetadataHandler) GetGroups(c echo.Context) error {
	return h.simpleCall(c, service.MethodGetGroups)
}

// GetLegalTags lists legal tags.
// @Summary Get legal tags
// @Tags metadata
// @Produce json
// @Param id path int true "Connection ID"
// @Success 200 {object} object
// @Failure 502 {object} errorResponse
// @Router /connections/{id}/legal-tags [get]
func (h *MetadataHandler) GetLegalTags(c echo.Context) error {
	return h.simpleCall(c, service.MethodGetLegalTags)
}

// ListWorkflows lists ingestion workflows.
// @Summary List workflows
// @Tags metadata
// @Produce json
// @Param id path int true "Connection ID"
// @Success 200 {object} object
// @Failure 502 {object} errorResponse
// @Router /connections/{id}/workflows [get]
func (h *MetadataHandler) ListWorkflows(c echo.Context) error {
	return h.simpleCall(c, service.MethodListWorkflows)
}

// ListPolicies lists governance policies.
// @Summary List policies
// @Tags metadata
// @Produce json
// @Param id path int true "Connection ID"
// @Success 200 {object} object
// @Failure 502 {object} errorResponse
// @Router /connections/{id}/policies [get]
func (h *MetadataHandler) ListPolicies(c echo.Context) error {
	return h.simpleCall(c, service.MethodListPolicies)
}

// WellOverview returns the aggregated well domain overview.
// @Summary Well domain overview
// @Tags metadata
// @Produce json
// @Param id path int true "Connection ID"
// @Success 200 {object} object
// @Failure 502 {object} errorResponse
// @Router /connections/{id}/overview/wells [get]
func (h *MetadataHandler) WellOverview(c echo.Context) error {
	return h.simpleCall(c, service.MethodGetWellDomainOverview)
}

// SeismicOverview returns the aggregated seismic domain overview.
// @Summary Seismic domain overview
// @Tags metadata
// @Produce json
// @Param id path int true "Connection ID"
// @Success 200 {object} object
// @Failure 502 {object} errorResponse
// @Router /connections/{id}/overview/seismic [get]
func (h *MetadataHandler) SeismicOverview(c echo.Context) error {
	return h.simpleCall(c, service.MethodGetSeismicOverview)
}

func (h *MetadataHandler) simpleCall(c echo.Context, method string) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid connection id")
	}

	result, err := h.metadata.Call(c.Request().Context(), id, method, nil)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSONBlob(http.StatusOK, result)
}
