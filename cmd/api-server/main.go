package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"growth-suggestion-api/pkg/api"
	"growth-suggestion-api/pkg/config"
	"growth-suggestion-api/pkg/database"
	"growth-suggestion-api/pkg/external"
	"growth-suggestion-api/pkg/growth"
	"growth-suggestion-api/pkg/health"
	"growth-suggestion-api/pkg/history"
	"growth-suggestion-api/pkg/ingest"
	"growth-suggestion-api/pkg/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Secrets such as the provider API key come from the environment.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	postgres, err := database.NewPostgresDB(cfg.Database.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer postgres.Close()

	redisClient, err := database.NewRedisClient(cfg.Database.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	store := history.NewStore(redisClient, postgres, cfg.Cache)
	if err := store.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Failed to ensure database schema: %v", err)
	}

	provider := external.NewAlphaVantageClient(cfg.Provider.AlphaVantage)
	ingester := ingest.NewIngester(provider, store, cfg.Pipeline.DefaultSector)
	engine := growth.NewEngine()
	healthChecker := health.NewHealthChecker(postgres, redisClient)
	healthChecker.RegisterHealthCheck("alpha_vantage", func(ctx context.Context) (health.ComponentHealth, error) {
		start := time.Now()
		if err := provider.Ping(ctx); err != nil {
			return health.ComponentHealth{}, err
		}
		return health.ComponentHealth{
			Status:       "healthy",
			ResponseTime: time.Since(start),
			LastChecked:  time.Now(),
		}, nil
	})
	metricsCollector := monitoring.NewMetricsCollector()

	handlers := api.NewHandlers(store, ingester, engine, healthChecker, metricsCollector)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, handlers)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout.Std(),
		WriteTimeout: cfg.Server.Timeout.Std(),
	}

	go func() {
		log.Printf("Starting growth suggestion API on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
