package main

import (
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"inmobiliaria-portal/internal/cleanup"
	"inmobiliaria-portal/internal/config"
	"inmobiliaria-portal/internal/database"
	"inmobiliaria-portal/internal/handlers"
	"inmobiliaria-portal/internal/logger"
	"inmobiliaria-portal/internal/migrate"
	"inmobiliaria-portal/internal/ratelimit"
	"inmobiliaria-portal/internal/scheduler"
	"inmobiliaria-portal/internal/search"
	"inmobiliaria-portal/internal/storage"
)

func main() {
	// .env is optional: real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		logger.Log.Info("Loaded environment from .env")
	}

	configPath := getEnv("CONFIG_PATH", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Log.Fatalf("Failed to load config from %s: %v", configPath, err)
	}

	logger.Init("inmobiliaria-api", cfg.Logging.Level)

	// One PostgreSQL pool is shared by the migration runner, the health
	// check and the gorm layer
	conn, err := database.Connect(cfg.Database.DSN())
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	applied, err := migrate.NewRunner(conn).Run()
	if err != nil {
		logger.Log.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Log.Infof("Migrations up to date (%d applied this run)", applied)

	gormDB, err := database.NewGormDB(conn)
	if err != nil {
		logger.Log.Fatalf("Failed to initialize gorm: %v", err)
	}

	backend, err := storage.NewBackend(&cfg.Storage)
	if err != nil {
		logger.Log.Fatalf("Failed to initialize storage backend: %v", err)
	}
	logger.Log.Infof("Storage backend: %s", backend.Kind())

	store := database.NewStore(gormDB, backend)

	searchClient := search.NewSearchClient(cfg.Search.Host, cfg.Search.APIKey)
	if err := searchClient.InitIndex(); err != nil {
		logger.Log.Warnf("Failed to initialize search index: %v", err)
	}

	cleanupService := cleanup.NewService(gormDB, backend)
	appScheduler := scheduler.NewScheduler(store, searchClient, cleanupService, cfg)
	if err := appScheduler.Start(); err != nil {
		logger.Log.Warnf("Failed to start scheduler: %v", err)
	}
	defer appScheduler.Stop()

	limiter := ratelimit.NewLimiter(
		cfg.RateLimit.RequestsPerMinute,
		cfg.RateLimit.RequestsPerHour,
		cfg.RateLimit.RequestsPerDay,
		cfg.RateLimit.Enabled,
	)
	logger.Log.Infof("Rate limiter: %d req/min, %d req/hour, %d req/day (enabled: %v)",
		cfg.RateLimit.RequestsPerMinute,
		cfg.RateLimit.RequestsPerHour,
		cfg.RateLimit.RequestsPerDay,
		cfg.RateLimit.Enabled,
	)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	// Local uploads are served by the API itself; the S3 backend hands
	// out absolute URLs instead
	if local, ok := backend.(*storage.LocalBackend); ok {
		r.Static("/uploads", local.Dir())
	}

	propertyHandler := handlers.NewPropertyHandler(store, searchClient)
	searchHandler := handlers.NewSearchHandler(store, searchClient)
	adminHandler := handlers.NewAdminHandler(store, appScheduler, limiter)
	healthHandler := handlers.NewHealthHandler(conn, store, backend.Kind())

	r.GET("/health", healthHandler.Check)

	api := r.Group("/api")
	{
		api.GET("/properties", propertyHandler.List)
		api.GET("/properties/featured", propertyHandler.Featured)
		api.GET("/properties/nearby", propertyHandler.Nearby)
		api.GET("/properties/with-coordinates", propertyHandler.WithCoordinates)
		api.GET("/properties/:id", propertyHandler.Get)
		api.GET("/properties/:id/images", propertyHandler.ListImages)

		write := limiter.Middleware()
		api.POST("/properties", write, propertyHandler.Create)
		api.PUT("/properties/:id", write, propertyHandler.Update)
		api.DELETE("/properties/:id", write, propertyHandler.Delete)
		api.DELETE("/properties/:id/images/:imageId", write, propertyHandler.DeleteImage)
		api.PATCH("/properties/:id/featured", write, propertyHandler.ToggleFeatured)

		api.GET("/search", searchHandler.Search)
		api.GET("/search/facets", searchHandler.Facets)
		api.POST("/search/reindex", write, searchHandler.Reindex)

		api.GET("/ratelimit/stats", adminHandler.GetRateLimitStats)

		admin := api.Group("/admin")
		{
			admin.GET("/stats", adminHandler.GetStats)
			admin.GET("/city-stats", adminHandler.GetCityStats)
			admin.GET("/price-distribution", adminHandler.GetPriceDistribution)
			admin.GET("/activity", adminHandler.GetRecentActivity)
			admin.POST("/maintenance/run", write, adminHandler.RunMaintenance)
		}
	}

	port := cfg.Server.Port
	logger.Log.Infof("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
