package processors

import (
	"context"
	"log"
	"sync"
	"time"

	"growth-suggestion-api/pkg/config"
	"growth-suggestion-api/pkg/growth"
	"growth-suggestion-api/pkg/history"
)

// SuggestionPrecomputer recomputes growth suggestions for monitored
// tickers from cached histories, so the API can serve them without
// touching the statement provider.
type SuggestionPrecomputer struct {
	store  *history.Store
	engine *growth.Engine
	config *config.Config

	mu        sync.Mutex
	isRunning bool
	metrics   PrecomputeMetrics
}

// PrecomputeMetrics tracks precomputer performance
type PrecomputeMetrics struct {
	SuggestionsComputed int64         `json:"suggestions_computed"`
	SkippedTickers      int64         `json:"skipped_tickers"`
	ErrorCount          int64         `json:"error_count"`
	LastUpdated         time.Time     `json:"last_updated"`
	ProcessingDuration  time.Duration `json:"processing_duration"`
}

// NewSuggestionPrecomputer creates a new suggestion precomputer
func NewSuggestionPrecomputer(store *history.Store, engine *growth.Engine, cfg *config.Config) *SuggestionPrecomputer {
	return &SuggestionPrecomputer{
		store:  store,
		engine: engine,
		config: cfg,
	}
}

// Start begins periodic suggestion precomputation
func (sp *SuggestionPrecomputer) Start(ctx context.Context) error {
	sp.setRunning(true)
	log.Println("Suggestion precomputer started")

	ticker := time.NewTicker(sp.config.Pipeline.RefreshInterval.Std())
	defer ticker.Stop()

	if err := sp.processBatch(ctx); err != nil {
		log.Printf("Suggestion precomputer initial batch error: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			sp.setRunning(false)
			return nil
		case <-ticker.C:
			if err := sp.processBatch(ctx); err != nil {
				log.Printf("Suggestion precomputer batch error: %v", err)
				sp.mu.Lock()
				sp.metrics.ErrorCount++
				sp.mu.Unlock()
			}
		}
	}
}

// Stop gracefully stops the precomputer
func (sp *SuggestionPrecomputer) Stop(ctx context.Context) error {
	sp.setRunning(false)
	return nil
}

// HealthCheck verifies precomputer health
func (sp *SuggestionPrecomputer) HealthCheck(ctx context.Context) bool {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.isRunning
}

// GetMetrics returns precomputer metrics
func (sp *SuggestionPrecomputer) GetMetrics(ctx context.Context) PrecomputeMetrics {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.metrics
}

func (sp *SuggestionPrecomputer) setRunning(running bool) {
	sp.mu.Lock()
	sp.isRunning = running
	sp.mu.Unlock()
}

// processBatch recomputes suggestions for every ticker with a cached history
func (sp *SuggestionPrecomputer) processBatch(ctx context.Context) error {
	startTime := time.Now()

	tickers, err := sp.store.MonitoredTickers(ctx, 50)
	if err != nil {
		return err
	}
	tickers = MergeTickers(sp.config.Pipeline.Tickers, tickers)

	log.Printf("Precomputing suggestions for %d tickers", len(tickers))

	for _, t := range tickers {
		if err := sp.precompute(ctx, t); err != nil {
			log.Printf("Error precomputing suggestion for %s: %v", t, err)
			sp.mu.Lock()
			sp.metrics.ErrorCount++
			sp.mu.Unlock()
		}
	}

	sp.mu.Lock()
	sp.metrics.ProcessingDuration = time.Since(startTime)
	sp.metrics.LastUpdated = time.Now()
	sp.mu.Unlock()

	return nil
}

func (sp *SuggestionPrecomputer) precompute(ctx context.Context, ticker string) error {
	companyHistory, err := sp.store.CachedHistory(ctx, ticker)
	if err != nil {
		// No cached history yet; the refresher will fill it in.
		sp.mu.Lock()
		sp.metrics.SkippedTickers++
		sp.mu.Unlock()
		return nil
	}

	sector := companyHistory.Sector
	if sector == "" {
		sector = sp.config.Pipeline.DefaultSector
	}

	suggestion := sp.engine.Suggest(ticker, sector, growth.MetricHistories{
		Revenue: companyHistory.Series(growth.MetricRevenue),
		EBITDA:  companyHistory.Series(growth.MetricEBITDA),
		PAT:     companyHistory.Series(growth.MetricPAT),
	})

	if err := sp.store.SaveSuggestion(ctx, suggestion); err != nil {
		return err
	}
	if err := sp.store.CacheSuggestion(ctx, suggestion); err != nil {
		return err
	}

	sp.mu.Lock()
	sp.metrics.SuggestionsComputed++
	sp.mu.Unlock()
	return nil
}
