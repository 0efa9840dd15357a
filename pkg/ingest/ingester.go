package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"growth-suggestion-api/pkg/external"
	"growth-suggestion-api/pkg/growth"
	"growth-suggestion-api/pkg/history"

	"github.com/shopspring/decimal"
)

// Ingestion errors surfaced to callers. Revenue and PAT are required
// series; EBITDA has a fallback chain and never fails on its own.
var (
	ErrRevenueMissing = errors.New("revenue missing from financial statements")
	ErrPATMissing     = errors.New("PAT missing from financial statements")
)

// ebitdaFallbackRatio approximates EBITDA as a share of revenue when no
// reported figure is available at all.
const ebitdaFallbackRatio = 0.15

// StatementProvider fetches fundamentals for a ticker.
type StatementProvider interface {
	GetIncomeStatement(ctx context.Context, symbol string) (*external.IncomeStatement, error)
	GetCompanyOverview(ctx context.Context, symbol string) (*external.CompanyOverview, error)
}

// Ingester fetches, cleans and persists financial histories.
type Ingester struct {
	provider      StatementProvider
	store         *history.Store
	defaultSector string
}

// NewIngester creates a new ingestion service
func NewIngester(provider StatementProvider, store *history.Store, defaultSector string) *Ingester {
	if defaultSector == "" {
		defaultSector = growth.DefaultSector
	}
	return &Ingester{
		provider:      provider,
		store:         store,
		defaultSector: defaultSector,
	}
}

// Fetch returns the cleaned history for a ticker, serving from cache
// when possible and otherwise ingesting from the provider.
func (i *Ingester) Fetch(ctx context.Context, ticker string) (*history.CompanyHistory, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}

	if cached, err := i.store.CachedHistory(ctx, ticker); err == nil {
		return cached, nil
	}

	return i.Refresh(ctx, ticker)
}

// Refresh ingests a ticker from the provider unconditionally: fetch,
// clean, persist and cache.
func (i *Ingester) Refresh(ctx context.Context, ticker string) (*history.CompanyHistory, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	statement, err := i.provider.GetIncomeStatement(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch income statement for %s: %w", ticker, err)
	}

	// The overview only enriches metadata; its failure is not fatal.
	overview, err := i.provider.GetCompanyOverview(ctx, ticker)
	if err != nil {
		log.Printf("Overview fetch failed for %s: %v", ticker, err)
		overview = nil
	}

	companyHistory, records, err := BuildHistory(statement, overview)
	if err != nil {
		return nil, err
	}
	if companyHistory.Sector == "" {
		companyHistory.Sector = i.defaultSector
	}

	if err := i.persist(ctx, companyHistory, records); err != nil {
		log.Printf("Failed to persist history for %s: %v", ticker, err)
	}

	return companyHistory, nil
}

func (i *Ingester) persist(ctx context.Context, h *history.CompanyHistory, records []history.StatementRecord) error {
	if err := i.store.SaveCompany(ctx, history.Company{
		Ticker: h.Ticker,
		Name:   h.Name,
		Sector: h.Sector,
	}); err != nil {
		return err
	}

	if err := i.store.SaveRecords(ctx, records); err != nil {
		return err
	}

	return i.store.CacheHistory(ctx, h)
}

// BuildHistory cleans a raw income statement into engine-ready series.
// Reports arrive newest first and are reversed to oldest first. Revenue
// and net income are required; EBITDA falls back through EBIT, then
// operating income, then a fixed share of revenue.
func BuildHistory(statement *external.IncomeStatement, overview *external.CompanyOverview) (*history.CompanyHistory, []history.StatementRecord, error) {
	reports := statement.AnnualReports

	dates := make([]string, 0, len(reports))
	revenue := make([]float64, 0, len(reports))
	ebitda := make([]float64, 0, len(reports))
	pat := make([]float64, 0, len(reports))

	// Oldest first.
	for idx := len(reports) - 1; idx >= 0; idx-- {
		r := reports[idx]
		rev := growth.SafeFloat(r.TotalRevenue)

		dates = append(dates, r.FiscalDateEnding)
		revenue = append(revenue, rev)
		ebitda = append(ebitda, deriveEBITDA(r, rev))
		pat = append(pat, growth.SafeFloat(r.NetIncome))
	}

	if !anyPositive(revenue) {
		return nil, nil, ErrRevenueMissing
	}
	if !anyPositive(pat) {
		return nil, nil, ErrPATMissing
	}

	h := &history.CompanyHistory{
		Ticker:      strings.ToUpper(statement.Symbol),
		FiscalDates: dates,
		Metrics: map[string][]float64{
			growth.MetricRevenue: revenue,
			growth.MetricEBITDA:  ebitda,
			growth.MetricPAT:     pat,
		},
		FetchedAt: time.Now(),
	}
	if overview != nil {
		h.Name = overview.Name
		h.Sector = strings.ToUpper(overview.Sector)
	}

	return h, buildRecords(h), nil
}

// deriveEBITDA applies the fallback chain for one fiscal year.
func deriveEBITDA(r external.AnnualReport, revenue float64) float64 {
	switch {
	case growth.SafeFloat(r.EBITDA) > 0:
		return growth.SafeFloat(r.EBITDA)
	case growth.SafeFloat(r.EBIT) > 0:
		return growth.SafeFloat(r.EBIT)
	case growth.SafeFloat(r.OperatingIncome) > 0:
		return growth.SafeFloat(r.OperatingIncome)
	default:
		return revenue * ebitdaFallbackRatio
	}
}

func buildRecords(h *history.CompanyHistory) []history.StatementRecord {
	var records []history.StatementRecord
	for metric, values := range h.Metrics {
		for idx, value := range values {
			if idx >= len(h.FiscalDates) {
				break
			}
			records = append(records, history.StatementRecord{
				Ticker:     h.Ticker,
				Metric:     metric,
				FiscalDate: h.FiscalDates[idx],
				Amount:     decimal.NewFromFloat(value),
			})
		}
	}
	return records
}

func anyPositive(values []float64) bool {
	for _, v := range values {
		if v > 0 {
			return true
		}
	}
	return false
}
