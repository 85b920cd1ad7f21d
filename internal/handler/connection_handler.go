package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"strata/backend/internal/model"
	"strata/backend/internal/service"
)

type ConnectionHandler struct {
	service service.ConnectionService
}

func NewConnectionHandler(service service.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{service: service}
}

// Request/Response types

type connectionRequest struct {
	Name            string `json:"name"`
	Kind            string `json:"kind"`
	DataPartitionID string `json:"dataPartitionId"`
	ProjectName     string `json:"projectName"`
	DBSchema        string `json:"dbSchema"`
}

type connectionResponse struct {
	ID              int64   `json:"id,string"`
	Name            string  `json:"name"`
	Kind            string  `json:"kind"`
	DataPartitionID string  `json:"dataPartitionId,omitempty"`
	ProjectName     string  `json:"projectName,omitempty"`
	DBSchema        string  `json:"dbSchema,omitempty"`
	LastHealth      string  `json:"lastHealth"`
	LastError       *string `json:"lastError,omitempty"`
	LastCheckedAt   *string `json:"lastCheckedAt,omitempty"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
}

func toConnectionResponse(conn model.Connection) connectionResponse {
	resp := connectionResponse{
		ID:              conn.ID,
		Name:            conn.Name,
		Kind:            conn.Kind,
		DataPartitionID: conn.Config.DataPartitionID,
		ProjectName:     conn.Config.ProjectName,
		DBSchema:        conn.Config.DBSchema,
		LastHealth:      conn.LastHealth,
		LastError:       conn.LastError,
		CreatedAt:       conn.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       conn.UpdatedAt.Format(time.RFC3339),
	}
	if conn.LastCheckedAt != nil {
		checked := conn.LastCheckedAt.Format(time.RFC3339)
		resp.LastCheckedAt = &checked
	}
	return resp
}

type healthResponse struct {
	Status      string                     `json:"status"`
	Connections []connectionHealthResponse `json:"connections"`
}

type connectionHealthResponse struct {
	ID            int64   `json:"id,string"`
	Name          string  `json:"name"`
	LastHealth    string  `json:"lastHealth"`
	LastError     *string `json:"lastError,omitempty"`
	LastCheckedAt *string `json:"lastCheckedAt,omitempty"`
}

func (h *ConnectionHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/health", h.Health)
	g.GET("/connections", h.List)
	g.POST("/connections", h.Create)
	g.GET("/connections/:id", h.Get)
	g.PUT("/connections/:id", h.Update)
	g.DELETE("/connections/:id", h.Delete)
	g.POST("/connections/:id/check", h.Check)
}

// Health reports service liveness plus the last known health of every
// connection.
// @Summary Service health
// @Tags health
// @Produce json
// @Success 200 {object} healthResponse
// @Router /health [get]
func (h *ConnectionHandler) Health(c echo.Context) error {
	conns, err := h.service.List(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}

	resp := healthResponse{Status: "ok", Connections: make([]connectionHealthResponse, 0, len(conns))}
	for _, conn := range conns {
		entry := connectionHealthResponse{
			ID:         conn.ID,
			Name:       conn.Name,
			LastHealth: conn.LastHealth,
			LastError:  conn.LastError,
		}
		if conn.LastCheckedAt != nil {
			checked := conn.LastCheckedAt.Format(time.RFC3339)
			entry.LastCheckedAt = &checked
		}
		resp.Connections = append(resp.Connections, entry)
	}
	return c.JSON(http.StatusOK, resp)
}

// List returns all configured connections.
// @Summary List connections
// @Description List all configured metadata platform connections
// @Tags connections
// @Produce json
// @Success 200 {array} connectionResponse
// @Failure 500 {object} errorResponse
// @Router /connections [get]
func (h *ConnectionHandler) List(c echo.Context) error {
	conns, err := h.service.List(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}

	resp := make([]connectionResponse, 0, len(conns))
	for _, conn := range conns {
		resp = append(resp, toConnectionResponse(conn))
	}
	return c.JSON(http.StatusOK, resp)
}

// Create registers a new connection.
// @Summary Create connection
// @Description Register a new OSDU or ProSource connection
// @Tags connections
// @Accept json
// @Produce json
// @Param connection body connectionRequest true "Connection"
// @Success 201 {object} connectionResponse
// @Failure 400 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /connections [post]
func (h *ConnectionHandler) Create(c echo.Context) error {
	var req connectionRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid request")
	}

	conn, err := h.service.Create(c.Request().Context(), req.Name, req.Kind, model.ConnectionConfig{
		DataPartitionID: req.DataPartitionID,
		ProjectName:     req.ProjectName,
		DBSchema:        req.DBSchema,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, toConnectionResponse(conn))
}

// Get returns a single connection.
// @Summary Get connection
// @Tags connections
// @Produce json
// @Param id path int true "Connection ID"
// @Success 200 {object} connectionResponse
// @Failure 404 {object} errorResponse
// @Router /connections/{id} [get]
func (h *ConnectionHandler) Get(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid connection id")
	}

	conn, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toConnectionResponse(conn))
}

// Update modifies a connection.
// @Summary Update connection
// @Tags connections
// @Accept json
// @Produce json
// @Param id path int true "Connection ID"
// @Param connection body connectionRequest true "Connection"
// @Success 200 {object} connectionResponse
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /connections/{id} [put]
func (h *ConnectionHandler) Update(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid connection id")
	}

	var req connectionRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid request")
	}

	conn, err := h.service.Update(c.Request().Context(), id, req.Name, req.Kind, model.ConnectionConfig{
		DataPartitionID: req.DataPartitionID,
		ProjectName:     req.ProjectName,
		DBSchema:        req.DBSchema,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toConnectionResponse(conn))
}

// Delete removes a connection.
// @Summary Delete connection
// @Tags connections
// @Param id path int true "Connection ID"
// @Success 204 "No Content"
// @Failure 404 {object} errorResponse
// @Router /connections/{id} [delete]
func (h *ConnectionHandler) Delete(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid connection id")
	}

	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Check probes the connection immediately.
// @Summary Check connection health
// @Description Run a health probe against the connection and persist the outcome
// @Tags connections
// @Produce json
// @Param id path int true "Connection ID"
// @Success 200 {object} connectionResponse
// @Failure 404 {object} errorResponse
// @Router /connections/{id}/check [post]
func (h *ConnectionHandler) Check(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid connection id")
	}

	conn, err := h.service.Check(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toConnectionResponse(conn))
}
