package processors

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"growth-suggestion-api/pkg/config"
	"growth-suggestion-api/pkg/history"
)

// HistoryRefresher re-ingests a ticker from the statement provider.
// Satisfied by *ingest.Ingester.
type HistoryRefresher interface {
	Refresh(ctx context.Context, ticker string) (*history.CompanyHistory, error)
}

// StatementRefresher periodically re-ingests financial statements for
// all monitored tickers so served suggestions stay current.
type StatementRefresher struct {
	refresher HistoryRefresher
	store     *history.Store
	config    *config.Config

	mu        sync.Mutex
	isRunning bool
	metrics   RefreshMetrics
}

// RefreshMetrics tracks refresher performance
type RefreshMetrics struct {
	TickersProcessed   int64         `json:"tickers_processed"`
	ErrorCount         int64         `json:"error_count"`
	LastUpdated        time.Time     `json:"last_updated"`
	ProcessingDuration time.Duration `json:"processing_duration"`
}

// NewStatementRefresher creates a new statement refresher
func NewStatementRefresher(refresher HistoryRefresher, store *history.Store, cfg *config.Config) *StatementRefresher {
	return &StatementRefresher{
		refresher: refresher,
		store:     store,
		config:    cfg,
	}
}

// Start begins periodic statement refreshing
func (sr *StatementRefresher) Start(ctx context.Context) error {
	sr.setRunning(true)
	log.Println("Statement refresher started")

	ticker := time.NewTicker(sr.config.Pipeline.RefreshInterval.Std())
	defer ticker.Stop()

	if err := sr.processBatch(ctx); err != nil {
		log.Printf("Statement refresher initial batch error: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			sr.setRunning(false)
			return nil
		case <-ticker.C:
			if err := sr.processBatch(ctx); err != nil {
				log.Printf("Statement refresher batch error: %v", err)
				sr.mu.Lock()
				sr.metrics.ErrorCount++
				sr.mu.Unlock()
			}
		}
	}
}

// Stop gracefully stops the refresher
func (sr *StatementRefresher) Stop(ctx context.Context) error {
	sr.setRunning(false)
	return nil
}

// HealthCheck verifies refresher health
func (sr *StatementRefresher) HealthCheck(ctx context.Context) bool {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.isRunning
}

// GetMetrics returns refresher metrics
func (sr *StatementRefresher) GetMetrics(ctx context.Context) RefreshMetrics {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.metrics
}

func (sr *StatementRefresher) setRunning(running bool) {
	sr.mu.Lock()
	sr.isRunning = running
	sr.mu.Unlock()
}

// processBatch refreshes statements for all monitored tickers
func (sr *StatementRefresher) processBatch(ctx context.Context) error {
	startTime := time.Now()

	tickers := sr.monitoredTickers(ctx)
	log.Printf("Refreshing financial statements for %d tickers", len(tickers))

	for _, t := range tickers {
		if _, err := sr.refresher.Refresh(ctx, t); err != nil {
			log.Printf("Error refreshing statements for %s: %v", t, err)
			sr.mu.Lock()
			sr.metrics.ErrorCount++
			sr.mu.Unlock()
			continue
		}
		sr.mu.Lock()
		sr.metrics.TickersProcessed++
		sr.mu.Unlock()
	}

	sr.mu.Lock()
	sr.metrics.ProcessingDuration = time.Since(startTime)
	sr.metrics.LastUpdated = time.Now()
	sr.mu.Unlock()

	return nil
}

// monitoredTickers merges the configured watch list with tickers already
// stored in the database.
func (sr *StatementRefresher) monitoredTickers(ctx context.Context) []string {
	configured := sr.config.Pipeline.Tickers

	var stored []string
	if sr.store != nil {
		var err error
		stored, err = sr.store.MonitoredTickers(ctx, 50)
		if err != nil {
			log.Printf("Failed to list stored tickers: %v", err)
		}
	}

	return MergeTickers(configured, stored)
}

// TriggerRefresh manually refreshes specific tickers
func (sr *StatementRefresher) TriggerRefresh(ctx context.Context, tickers []string) error {
	log.Printf("Manually triggering statement refresh for %d tickers", len(tickers))

	for _, t := range tickers {
		if _, err := sr.refresher.Refresh(ctx, t); err != nil {
			log.Printf("Error refreshing statements for %s: %v", t, err)
			continue
		}
		sr.mu.Lock()
		sr.metrics.TickersProcessed++
		sr.mu.Unlock()
	}

	return nil
}

// MergeTickers merges ticker lists, normalizing case and dropping duplicates
// while preserving order.
func MergeTickers(lists ...[]string) []string {
	seen := make(map[string]bool)
	var merged []string

	for _, list := range lists {
		for _, t := range list {
			normalized := strings.ToUpper(strings.TrimSpace(t))
			if normalized == "" || seen[normalized] {
				continue
			}
			seen[normalized] = true
			merged = append(merged, normalized)
		}
	}

	return merged
}
