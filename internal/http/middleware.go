package http

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"strata/backend/internal/logger"
)

// RequestIDHeader carries the request id, generated when absent.
const RequestIDHeader = "X-Request-Id"

// RequestIDMiddleware assigns each request a unique id, honoring one
// supplied by the client.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			c.Set("request_id", id)
			c.Response().Header().Set(RequestIDHeader, id)
			return next(c)
		}
	}
}

// RequestLoggerMiddleware logs HTTP requests using logger.
func RequestLoggerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			latency := time.Since(start)
			remoteIP := c.RealIP()
			userAgent := req.UserAgent()
			requestID, _ := c.Get("request_id").(string)

			status := res.Status
			action := "request"
			resource := "http"
			result := "ok"
			if status >= 400 {
				result = "failed"
			}
			if status >= 500 {
				logger.Error("http request",
					"module", "http",
					"action", action,
					"resource", resource,
					"result", result,
					"method", req.Method,
					"path", req.URL.Path,
					"status_code", status,
					"duration_ms", latency.Milliseconds(),
					"remote_ip", remoteIP,
					"user_agent", userAgent,
					"request_id", requestID,
				)
			} else if status >= 400 {
				logger.Warn("http request",
					"module", "http",
					"action", action,
					"resource", resource,
					"result", result,
					"method", req.Method,
					"path", req.URL.Path,
					"status_code", status,
					"duration_ms", latency.Milliseconds(),
					"remote_ip", remoteIP,
					"user_agent", userAgent,
					"request_id", requestID,
				)
			} else {
				logger.Debug("http request",
					"module", "http",
					"action", action,
					"resource", resource,
					"result", result,
					"method", req.Method,
					"path", req.URL.Path,
					"status_code", status,
					"duration_ms", latency.Milliseconds(),
					"remote_ip", remoteIP,
					"user_agent", userAgent,
					"request_id", requestID,
				)
			}

			return nil
		}
	}
}
