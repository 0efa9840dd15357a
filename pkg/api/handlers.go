package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"growth-suggestion-api/pkg/growth"
	"growth-suggestion-api/pkg/health"
	"growth-suggestion-api/pkg/history"
	"growth-suggestion-api/pkg/ingest"
	"growth-suggestion-api/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

// HistoryService provides cleaned financial histories for a ticker.
// Satisfied by *ingest.Ingester.
type HistoryService interface {
	Fetch(ctx context.Context, ticker string) (*history.CompanyHistory, error)
	Refresh(ctx context.Context, ticker string) (*history.CompanyHistory, error)
}

// SuggestionStore is the storage surface the handlers need.
// Satisfied by *history.Store.
type SuggestionStore interface {
	GetCompany(ctx context.Context, ticker string) (*history.Company, error)
	GetRecords(ctx context.Context, ticker string) ([]history.StatementRecord, error)
	SaveSuggestion(ctx context.Context, suggestion *growth.Suggestion) error
	CacheSuggestion(ctx context.Context, suggestion *growth.Suggestion) error
	CachedSuggestion(ctx context.Context, ticker, sector string) (*growth.Suggestion, error)
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	store            SuggestionStore
	histories        HistoryService
	engine           *growth.Engine
	healthChecker    *health.HealthChecker
	metricsCollector *monitoring.MetricsCollector
}

// NewHandlers creates a new instance of API handlers
func NewHandlers(
	store SuggestionStore,
	histories HistoryService,
	engine *growth.Engine,
	healthChecker *health.HealthChecker,
	metricsCollector *monitoring.MetricsCollector,
) *Handlers {
	return &Handlers{
		store:            store,
		histories:        histories,
		engine:           engine,
		healthChecker:    healthChecker,
		metricsCollector: metricsCollector,
	}
}

// Request/Response models
type SuggestRequest struct {
	Company        string    `json:"company" binding:"required"`
	Sector         string    `json:"sector"`
	RevenueHistory []float64 `json:"revenue_history" binding:"required"`
	EBITDAHistory  []float64 `json:"ebitda_history" binding:"required"`
	PATHistory     []float64 `json:"pat_history" binding:"required"`
}

type BatchSuggestRequest struct {
	Companies []SuggestRequest `json:"companies" binding:"required"`
}

type BatchSuggestResponse struct {
	Suggestions []*growth.Suggestion `json:"suggestions"`
	Summary     BatchSummary         `json:"summary"`
}

type BatchSummary struct {
	TotalCompanies       int     `json:"total_companies"`
	SuccessfulCount      int     `json:"successful_count"`
	FailedCount          int     `json:"failed_count"`
	AverageRevenueGrowth float64 `json:"average_revenue_growth"`
	ProcessingTimeMs     int64   `json:"processing_time_ms"`
}

const maxBatchSize = 50

// Root is a liveness banner for load balancers and humans
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":   "growth-suggestion-api",
		"status":    "running",
		"timestamp": time.Now(),
	})
}

// Health check endpoint
func (h *Handlers) Health(c *gin.Context) {
	ctx := c.Request.Context()

	healthStatus := h.healthChecker.CheckHealth(ctx)

	status := http.StatusOK
	if healthStatus.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, healthStatus)
}

// Liveness reports process liveness without touching dependencies
func (h *Handlers) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, h.healthChecker.GetLivenessStatus(c.Request.Context()))
}

// Readiness reports whether storage backends are reachable
func (h *Handlers) Readiness(c *gin.Context) {
	readiness := h.healthChecker.GetReadinessStatus(c.Request.Context())

	status := http.StatusOK
	if readiness.Status != "ready" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, readiness)
}

// GetSuggestion ingests (or reads cached) financials for a ticker and
// returns the combined growth suggestion document.
func (h *Handlers) GetSuggestion(c *gin.Context) {
	startTime := time.Now()
	ctx := c.Request.Context()

	ticker := strings.ToUpper(strings.TrimSpace(c.Param("ticker")))
	if ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "ticker is required",
		})
		return
	}

	// Without an explicit override the sector comes from the stored
	// company record, so the lookup key matches what CacheSuggestion
	// and the precomputer write.
	sector := strings.TrimSpace(c.Query("sector"))
	if sector == "" && h.store != nil {
		if company, err := h.store.GetCompany(ctx, ticker); err == nil {
			sector = company.Sector
		}
	}

	// A cached suggestion document short-circuits ingestion entirely.
	if h.store != nil && sector != "" {
		if cached, err := h.store.CachedSuggestion(ctx, ticker, sector); err == nil {
			h.metricsCollector.RecordSuggestion(ctx, monitoring.SourceCached, ticker, time.Since(startTime), true)
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	companyHistory, err := h.histories.Fetch(ctx, ticker)
	if err != nil {
		h.metricsCollector.RecordSuggestion(ctx, monitoring.SourceFetched, ticker, time.Since(startTime), false)
		status := http.StatusBadGateway
		if errors.Is(err, ingest.ErrRevenueMissing) || errors.Is(err, ingest.ErrPATMissing) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"error":   "failed to load financial history",
			"ticker":  ticker,
			"details": err.Error(),
		})
		return
	}

	if sector == "" {
		sector = companyHistory.Sector
	}

	suggestion := h.engine.Suggest(ticker, sector, growth.MetricHistories{
		Revenue: companyHistory.Series(growth.MetricRevenue),
		EBITDA:  companyHistory.Series(growth.MetricEBITDA),
		PAT:     companyHistory.Series(growth.MetricPAT),
	})

	if h.store != nil {
		if err := h.store.SaveSuggestion(ctx, suggestion); err == nil {
			h.store.CacheSuggestion(ctx, suggestion)
		}
	}

	h.metricsCollector.RecordSuggestion(ctx, monitoring.SourceFetched, ticker, time.Since(startTime), true)

	c.JSON(http.StatusOK, suggestion)
}

// PostSuggestion runs the engine over histories supplied in the body,
// with no external fetch.
func (h *Handlers) PostSuggestion(c *gin.Context) {
	startTime := time.Now()
	ctx := c.Request.Context()

	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	suggestion, err := h.suggestFromRequest(req)
	if err != nil {
		h.metricsCollector.RecordSuggestion(ctx, monitoring.SourceExplicit, req.Company, time.Since(startTime), false)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	h.metricsCollector.RecordSuggestion(ctx, monitoring.SourceExplicit, req.Company, time.Since(startTime), true)

	c.JSON(http.StatusOK, suggestion)
}

// BatchSuggest runs the engine over multiple companies with explicit histories
func (h *Handlers) BatchSuggest(c *gin.Context) {
	startTime := time.Now()
	ctx := c.Request.Context()

	var req BatchSuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	if len(req.Companies) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "companies list cannot be empty",
		})
		return
	}

	if len(req.Companies) > maxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "maximum 50 companies allowed per batch request",
		})
		return
	}

	var suggestions []*growth.Suggestion
	var successCount, failCount int
	var totalRevenueGrowth float64

	for _, company := range req.Companies {
		companyStart := time.Now()

		suggestion, err := h.suggestFromRequest(company)
		if err != nil {
			failCount++
			h.metricsCollector.RecordSuggestion(ctx, monitoring.SourceExplicit, company.Company, time.Since(companyStart), false)
			continue
		}

		suggestions = append(suggestions, suggestion)
		successCount++
		totalRevenueGrowth += suggestion.Metrics[growth.MetricRevenue].SuggestedPct

		h.metricsCollector.RecordSuggestion(ctx, monitoring.SourceExplicit, company.Company, time.Since(companyStart), true)
	}

	averageRevenueGrowth := float64(0)
	if successCount > 0 {
		averageRevenueGrowth = totalRevenueGrowth / float64(successCount)
	}

	c.JSON(http.StatusOK, BatchSuggestResponse{
		Suggestions: suggestions,
		Summary: BatchSummary{
			TotalCompanies:       len(req.Companies),
			SuccessfulCount:      successCount,
			FailedCount:          failCount,
			AverageRevenueGrowth: averageRevenueGrowth,
			ProcessingTimeMs:     time.Since(startTime).Milliseconds(),
		},
	})
}

// GetSectors returns the sector limit table
func (h *Handlers) GetSectors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sectors":        growth.Sectors(),
		"default_sector": growth.DefaultSector,
	})
}

// GetCompanyFinancials returns the stored financial history for a ticker
func (h *Handlers) GetCompanyFinancials(c *gin.Context) {
	ctx := c.Request.Context()

	ticker := strings.ToUpper(strings.TrimSpace(c.Param("ticker")))
	if ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "ticker is required",
		})
		return
	}

	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "storage is not configured",
		})
		return
	}

	company, err := h.store.GetCompany(ctx, ticker)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "no stored history for ticker",
			"ticker": ticker,
		})
		return
	}

	records, err := h.store.GetRecords(ctx, ticker)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to load financial history",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ticker":  company.Ticker,
		"name":    company.Name,
		"sector":  company.Sector,
		"records": records,
		"count":   len(records),
	})
}

// GetMetrics returns system metrics
func (h *Handlers) GetMetrics(c *gin.Context) {
	ctx := c.Request.Context()

	metrics := h.metricsCollector.GetMetrics(ctx)

	c.JSON(http.StatusOK, metrics)
}

// GetSystemStatus returns overall system status
func (h *Handlers) GetSystemStatus(c *gin.Context) {
	ctx := c.Request.Context()

	healthStatus := h.healthChecker.CheckHealth(ctx)
	metrics := h.metricsCollector.GetSystemMetrics(ctx)

	systemStatus := gin.H{
		"timestamp": time.Now(),
		"health":    healthStatus,
		"engine":    h.engine.Params(),
		"metrics":   metrics,
		"version":   "1.0.0",
	}

	status := http.StatusOK
	if healthStatus.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, systemStatus)
}

// suggestFromRequest validates explicit histories and runs the engine
func (h *Handlers) suggestFromRequest(req SuggestRequest) (*growth.Suggestion, error) {
	company := strings.TrimSpace(req.Company)
	if company == "" {
		return nil, errors.New("company is required")
	}
	if len(req.RevenueHistory) == 0 {
		return nil, errors.New("revenue_history cannot be empty")
	}
	if len(req.EBITDAHistory) == 0 {
		return nil, errors.New("ebitda_history cannot be empty")
	}
	if len(req.PATHistory) == 0 {
		return nil, errors.New("pat_history cannot be empty")
	}

	return h.engine.Suggest(company, req.Sector, growth.MetricHistories{
		Revenue: req.RevenueHistory,
		EBITDA:  req.EBITDAHistory,
		PAT:     req.PATHistory,
	}), nil
}
