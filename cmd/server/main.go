package main

import (
	"fmt"
	"log"

	"github.com/raflianugrah/invoice-manager-service/internal/config"
	"github.com/raflianugrah/invoice-manager-service/internal/database"
	"github.com/raflianugrah/invoice-manager-service/internal/generation"
	"github.com/raflianugrah/invoice-manager-service/internal/handler"
	"github.com/raflianugrah/invoice-manager-service/internal/logger"
	"github.com/raflianugrah/invoice-manager-service/internal/middleware"
	"github.com/raflianugrah/invoice-manager-service/internal/numbering"
	"github.com/raflianugrah/invoice-manager-service/internal/repository"
	"github.com/raflianugrah/invoice-manager-service/internal/server"
	"github.com/raflianugrah/invoice-manager-service/internal/service"
	"github.com/raflianugrah/invoice-manager-service/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Setup(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	mainLog := logger.WithComponent("main")

	// Connect to the database
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		mainLog.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	invoiceRepo := repository.NewPostgresInvoiceRepository(db)
	userRepo := repository.NewPostgresUserRepository(db)

	// Invoice numbering and core invoice service
	allocator := numbering.NewAllocator(invoiceRepo)
	invoiceService := service.NewInvoiceService(invoiceRepo, allocator)

	// Generation backends, highest priority first
	var backends []generation.Backend
	if cfg.OpenRouterAPIKey != "" {
		orCfg := generation.NewOpenRouterConfig(cfg.OpenRouterAPIKey, cfg.GenerationTimeout)
		backends = append(backends, generation.NewOpenRouterBackends(orCfg, cfg.OpenRouterModelIDs)...)
	}
	if cfg.OpenAIAPIKey != "" {
		backends = append(backends, generation.NewOpenAIBackend(cfg.OpenAIAPIKey, cfg.OpenAIModelID))
	}
	if cfg.LocalBackendURL != "" {
		backends = append(backends, generation.NewLocalBackend(cfg.LocalBackendURL, cfg.GenerationTimeout))
	}
	mainLog.Info().Int("backends", len(backends)).Msg("generation pipeline configured")
	generationService := service.NewGenerationService(backends, cfg.GenerationTimeout, cfg.MaxWorkers)

	// Asset storage is optional; invoices work without uploaded images
	var assetStore *storage.AssetStore
	if cfg.S3Endpoint != "" {
		assetStore, err = storage.NewAssetStore(&storage.Config{
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			AccessKeySecret: cfg.S3AccessKeySecret,
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
		})
		if err != nil {
			mainLog.Fatal().Err(err).Msg("failed to initialize asset storage")
		}
	} else {
		mainLog.Warn().Msg("S3_ENDPOINT not set, asset uploads disabled")
	}

	// Auth
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTAccessExpiration, cfg.JWTRefreshExpiration)
	authMiddleware := middleware.AuthMiddleware(authService)

	// Handlers and server
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, generationService, assetStore)
	authHandler := handler.NewAuthHandler(authService)

	appServer := server.NewServer(cfg)
	authHandler.RegisterRoutes(appServer.GetRouter(), authMiddleware)
	invoiceHandler.RegisterRoutes(appServer.GetRouter(), authMiddleware)

	// Start server (blocking call)
	if err := appServer.Start(); err != nil {
		mainLog.Fatal().Err(err).Msg("server error")
	}

	fmt.Println("Server shutdown complete")
}
