package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "strata/backend/docs"
	"strata/backend/internal/handler"
)

func NewRouter(
	connectionHandler *handler.ConnectionHandler,
	metadataHandler *handler.MetadataHandler,
	exportHandler *handler.ExportHandler,
	aiHandler *handler.AIHandler,
	settingsHandler *handler.SettingsHandler,
	staticDir string,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(RequestIDMiddleware())
	e.Use(RequestLoggerMiddleware())

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")
	connectionHandler.RegisterRoutes(api)
	metadataHandler.RegisterRoutes(api)
	exportHandler.RegisterRoutes(api)
	aiHandler.RegisterRoutes(api)
	settingsHandler.RegisterRoutes(api)

	registerStatic(e, staticDir)

	return e
}
