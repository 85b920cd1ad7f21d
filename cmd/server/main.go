package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"strata/backend/internal/config"
	"strata/backend/internal/db"
	"strata/backend/internal/handler"
	transport "strata/backend/internal/http"
	"strata/backend/internal/logger"
	"strata/backend/internal/network"
	"strata/backend/internal/repository"
	"strata/backend/internal/scheduler"
	"strata/backend/internal/service"
	"strata/backend/internal/service/ai"
	"strata/backend/internal/snowflake"
)

// @title Strata API
// @version 1.0
// @description Metadata exploration console for OSDU and ProSource platforms
// @BasePath /api
func main() {
	cfg := config.Load()
	logger.Init(logger.ParseLevel(cfg.LogLevel))

	if err := snowflake.Init(1); err != nil {
		log.Fatalf("init snowflake: %v", err)
	}

	dbConn, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer dbConn.Close()

	connectionRepo := repository.NewConnectionRepository(dbConn)
	settingsRepo := repository.NewSettingsRepository(dbConn)
	historyRepo := repository.NewAIHistoryRepository(dbConn)

	clientFactory := network.NewClientFactory(&network.StaticProxyProvider{URL: cfg.ProxyURL})
	rateLimiter := ai.NewRateLimiter(ai.DefaultRateLimit)

	metadataService := service.NewMetadataService(clientFactory, cfg.RPCBaseURL)
	connectionService := service.NewConnectionService(connectionRepo, metadataService)
	settingsService := service.NewSettingsService(settingsRepo)
	translateService := service.NewTranslateService(historyRepo, settingsRepo, rateLimiter)

	connectionHandler := handler.NewConnectionHandler(connectionService)
	metadataHandler := handler.NewMetadataHandler(metadataService)
	exportHandler := handler.NewExportHandler(metadataService)
	aiHandler := handler.NewAIHandler(translateService)
	settingsHandler := handler.NewSettingsHandler(settingsService, rateLimiter, clientFactory)

	router := transport.NewRouter(connectionHandler, metadataHandler, exportHandler, aiHandler, settingsHandler, cfg.StaticDir)

	// Start background health checks
	sched := scheduler.New(connectionService, cfg.HealthInterval)
	sched.Start()

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("shutting down...")
		sched.Stop()
		os.Exit(0)
	}()

	if err := router.Start(cfg.Addr); err != nil {
		log.Fatalf("start server: %v", err)
	}
}
