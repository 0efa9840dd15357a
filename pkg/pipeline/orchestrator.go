package pipeline

import (
	"context"
	"fmt"
	"time"

	"growth-suggestion-api/pkg/config"
	"growth-suggestion-api/pkg/growth"
	"growth-suggestion-api/pkg/history"
	"growth-suggestion-api/pkg/pipeline/processors"
)

// Orchestrator manages the background data pipeline services
type Orchestrator struct {
	store  *history.Store
	config *config.Config

	statementRefresher    *processors.StatementRefresher
	suggestionPrecomputer *processors.SuggestionPrecomputer
}

// NewOrchestrator creates a new pipeline orchestrator
func NewOrchestrator(
	refresher processors.HistoryRefresher,
	store *history.Store,
	engine *growth.Engine,
	cfg *config.Config,
) *Orchestrator {
	return &Orchestrator{
		store:                 store,
		config:                cfg,
		statementRefresher:    processors.NewStatementRefresher(refresher, store, cfg),
		suggestionPrecomputer: processors.NewSuggestionPrecomputer(store, engine, cfg),
	}
}

// StartStatementRefresher starts periodic statement ingestion
func (o *Orchestrator) StartStatementRefresher(ctx context.Context) error {
	return o.statementRefresher.Start(ctx)
}

// StartSuggestionPrecomputer starts periodic suggestion precomputation
func (o *Orchestrator) StartSuggestionPrecomputer(ctx context.Context) error {
	return o.suggestionPrecomputer.Start(ctx)
}

// HealthCheck verifies all processors are healthy
func (o *Orchestrator) HealthCheck(ctx context.Context) map[string]bool {
	return map[string]bool{
		"statement_refresher":    o.statementRefresher.HealthCheck(ctx),
		"suggestion_precomputer": o.suggestionPrecomputer.HealthCheck(ctx),
	}
}

// GetMetrics returns metrics from all processors
func (o *Orchestrator) GetMetrics(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{
		"statement_refresher":    o.statementRefresher.GetMetrics(ctx),
		"suggestion_precomputer": o.suggestionPrecomputer.GetMetrics(ctx),
		"timestamp":              time.Now(),
	}
}

// Stop gracefully stops all processors
func (o *Orchestrator) Stop(ctx context.Context) error {
	done := make(chan error, 2)

	go func() { done <- o.statementRefresher.Stop(ctx) }()
	go func() { done <- o.suggestionPrecomputer.Stop(ctx) }()

	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			return err
		}
	}

	return nil
}

// TriggerJob manually triggers a pipeline job
func (o *Orchestrator) TriggerJob(ctx context.Context, jobType string, tickers []string) error {
	switch jobType {
	case "statement_refresh":
		return o.statementRefresher.TriggerRefresh(ctx, tickers)
	default:
		return ErrUnknownJobType
	}
}

// PipelineStatus represents the overall pipeline status
type PipelineStatus struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Processors  map[string]bool        `json:"processors"`
	Metrics     map[string]interface{} `json:"metrics"`
	LastUpdated time.Time              `json:"last_updated"`
}

// GetStatus returns comprehensive pipeline status
func (o *Orchestrator) GetStatus(ctx context.Context) *PipelineStatus {
	processorHealth := o.HealthCheck(ctx)

	allHealthy := true
	for _, healthy := range processorHealth {
		if !healthy {
			allHealthy = false
			break
		}
	}

	status := "healthy"
	if !allHealthy {
		status = "degraded"
	}

	return &PipelineStatus{
		Status:      status,
		Timestamp:   time.Now(),
		Processors:  processorHealth,
		Metrics:     o.GetMetrics(ctx),
		LastUpdated: time.Now(),
	}
}

var ErrUnknownJobType = fmt.Errorf("unknown job type")
