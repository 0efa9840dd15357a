package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"growth-suggestion-api/pkg/config"
	"growth-suggestion-api/pkg/database"
	"growth-suggestion-api/pkg/external"
	"growth-suggestion-api/pkg/growth"
	"growth-suggestion-api/pkg/history"
	"growth-suggestion-api/pkg/ingest"
	"growth-suggestion-api/pkg/pipeline"

	"github.com/joho/godotenv"
)

func main() {
	log.Println("Starting growth suggestion data pipeline...")

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

	orchestrator := pipeline.NewOrchestrator(ingester, store, engine, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Println("Starting statement refresher...")
		if err := orchestrator.StartStatementRefresher(ctx); err != nil {
			log.Printf("Statement refresher error: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Println("Starting suggestion precomputer...")
		if err := orchestrator.StartSuggestionPrecomputer(ctx); err != nil {
			log.Printf("Suggestion precomputer error: %v", err)
		}
	}()

	log.Println("All pipeline services started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down data pipeline...")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("All services stopped gracefully")
	case <-time.After(30 * time.Second):
		log.Println("Timeout waiting for services to stop")
	}

	log.Println("Data pipeline service exited")
}
