package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"strata/backend/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

// recordErrorResponse tells the client to drop its record selection
// alongside the error, so a stale deep dive pane does not linger.
type recordErrorResponse struct {
	Error          string `json:"error"`
	ClearSelection bool   `json:"clearSelection"`
}

type deletedCountResponse struct {
	Deleted int64 `json:"deleted"`
}

func writeServiceError(c echo.Context, err error) error {
	var upstream *service.UpstreamError
	switch {
	case errors.Is(err, service.ErrInvalid):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "resource not found"})
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, errorResponse{Error: "conflict"})
	case errors.As(err, &upstream):
		return c.JSON(http.StatusBadGateway, errorResponse{Error: upstream.Error()})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// Error returns a JSON error response with the given status and message
func Error(c echo.Context, status int, message string) error {
	return c.JSON(status, errorResponse{Error: message})
}
