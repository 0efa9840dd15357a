package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"growth-suggestion-api/pkg/growth"
	"growth-suggestion-api/pkg/health"
	"growth-suggestion-api/pkg/history"
	"growth-suggestion-api/pkg/ingest"
	"growth-suggestion-api/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

type fakeHistoryService struct {
	history *history.CompanyHistory
	err     error
}

func (f *fakeHistoryService) Fetch(ctx context.Context, ticker string) (*history.CompanyHistory, error) {
	return f.history, f.err
}

func (f *fakeHistoryService) Refresh(ctx context.Context, ticker string) (*history.CompanyHistory, error) {
	return f.history, f.err
}

type fakeSuggestionStore struct {
	company *history.Company
	cached  *growth.Suggestion
	saved   []*growth.Suggestion
}

func (f *fakeSuggestionStore) GetCompany(ctx context.Context, ticker string) (*history.Company, error) {
	if f.company == nil || f.company.Ticker != ticker {
		return nil, fmt.Errorf("no company for %s", ticker)
	}
	return f.company, nil
}

func (f *fakeSuggestionStore) GetRecords(ctx context.Context, ticker string) ([]history.StatementRecord, error) {
	return nil, nil
}

func (f *fakeSuggestionStore) SaveSuggestion(ctx context.Context, suggestion *growth.Suggestion) error {
	f.saved = append(f.saved, suggestion)
	return nil
}

func (f *fakeSuggestionStore) CacheSuggestion(ctx context.Context, suggestion *growth.Suggestion) error {
	return nil
}

func (f *fakeSuggestionStore) CachedSuggestion(ctx context.Context, ticker, sector string) (*growth.Suggestion, error) {
	if f.cached == nil || f.cached.Company != ticker || f.cached.Sector != sector {
		return nil, fmt.Errorf("no cached suggestion for %s:%s", ticker, sector)
	}
	return f.cached, nil
}

func newTestRouter(t *testing.T, histories HistoryService) *gin.Engine {
	t.Helper()
	return newStoreTestRouter(t, nil, histories, monitoring.NewMetricsCollector())
}

func newStoreTestRouter(t *testing.T, store SuggestionStore, histories HistoryService, collector *monitoring.MetricsCollector) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	handlers := NewHandlers(
		store,
		histories,
		growth.NewEngine(),
		health.NewHealthChecker(nil, nil),
		collector,
	)

	router := gin.New()
	SetupRoutes(router, handlers)
	return router
}

func steadyHistory(ticker, sector string) *history.CompanyHistory {
	return &history.CompanyHistory{
		Ticker:      ticker,
		Name:        ticker + " Ltd",
		Sector:      sector,
		FiscalDates: []string{"2021-03-31", "2022-03-31", "2023-03-31", "2024-03-31", "2025-03-31"},
		Metrics: map[string][]float64{
			growth.MetricRevenue: {1000, 1100, 1210, 1331, 1464.1},
			growth.MetricEBITDA:  {200, 220, 242, 266.2, 292.82},
			growth.MetricPAT:     {100, 110, 121, 133.1, 146.41},
		},
	}
}

func TestGetSuggestionForTicker(t *testing.T) {
	router := newTestRouter(t, &fakeHistoryService{history: steadyHistory("TCS", "IT")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/suggestions/tcs", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	var got growth.Suggestion
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.Company != "TCS" {
		t.Errorf("Company = %q, want TCS", got.Company)
	}
	if got.Sector != "IT" {
		t.Errorf("Sector = %q, want IT", got.Sector)
	}
	if got.Metrics[growth.MetricRevenue].SuggestedPct != 10.0 {
		t.Errorf("revenue suggestion = %v, want 10", got.Metrics[growth.MetricRevenue].SuggestedPct)
	}
}

func TestGetSuggestionServesWarmCacheWithoutSectorParam(t *testing.T) {
	// A precomputed suggestion is cached under the company's stored
	// sector. A sector-less GET must resolve that sector and serve
	// the cached document instead of re-ingesting.
	cached := growth.NewEngine().Suggest("TCS", "IT", growth.MetricHistories{
		Revenue: []float64{1000, 1100, 1210, 1331},
		EBITDA:  []float64{200, 220, 242, 266.2},
		PAT:     []float64{100, 110, 121, 133.1},
	})
	store := &fakeSuggestionStore{
		company: &history.Company{Ticker: "TCS", Name: "TCS Ltd", Sector: "IT"},
		cached:  cached,
	}
	// Any fetch attempt fails the request, so a 200 proves the
	// cache path was taken.
	router := newStoreTestRouter(t, store, &fakeHistoryService{err: fmt.Errorf("provider down")}, monitoring.NewMetricsCollector())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/suggestions/tcs", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	var got growth.Suggestion
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.ID != cached.ID {
		t.Errorf("ID = %q, want cached %q", got.ID, cached.ID)
	}
	if len(store.saved) != 0 {
		t.Errorf("saved %d new suggestions, want 0", len(store.saved))
	}
}

func TestGetSuggestionSectorOverride(t *testing.T) {
	router := newTestRouter(t, &fakeHistoryService{history: steadyHistory("NTPC", "ENERGY")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/suggestions/NTPC?sector=BANKING", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var got growth.Suggestion
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.Sector != "BANKING" {
		t.Errorf("Sector = %q, want BANKING", got.Sector)
	}
	if got.Limits.Min != 7 || got.Limits.Max != 14 {
		t.Errorf("Limits = %+v, want 7..14", got.Limits)
	}
}

func TestGetSuggestionProviderFailure(t *testing.T) {
	router := newTestRouter(t, &fakeHistoryService{err: fmt.Errorf("alpha vantage rate limited")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/suggestions/TCS", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}

func TestGetSuggestionMissingRevenue(t *testing.T) {
	router := newTestRouter(t, &fakeHistoryService{
		err: fmt.Errorf("cleaning TCS: %w", ingest.ErrRevenueMissing),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/suggestions/TCS", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestPostSuggestionExplicitHistories(t *testing.T) {
	router := newTestRouter(t, &fakeHistoryService{})

	body, _ := json.Marshal(SuggestRequest{
		Company:        "Acme",
		Sector:         "FMCG",
		RevenueHistory: []float64{1000, 1100, 1210, 1331},
		EBITDAHistory:  []float64{200, 220, 242, 266.2},
		PATHistory:     []float64{100, 110, 121, 133.1},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/suggestions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	var got growth.Suggestion
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.Metrics[growth.MetricRevenue].SuggestedPct != 10.0 {
		t.Errorf("revenue suggestion = %v, want 10", got.Metrics[growth.MetricRevenue].SuggestedPct)
	}
	if got.ID == "" {
		t.Error("suggestion ID is empty")
	}
}

func TestPostSuggestionRejectsMalformedBody(t *testing.T) {
	router := newTestRouter(t, &fakeHistoryService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/suggestions", bytes.NewReader([]byte(`{"company":`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestPostSuggestionRequiresHistories(t *testing.T) {
	router := newTestRouter(t, &fakeHistoryService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/suggestions", bytes.NewReader([]byte(`{"company":"Acme"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestPostSuggestionRequiresEBITDAHistory(t *testing.T) {
	router := newTestRouter(t, &fakeHistoryService{})

	body, _ := json.Marshal(map[string]interface{}{
		"company":         "Acme",
		"revenue_history": []float64{1000, 1100, 1210, 1331},
		"pat_history":     []float64{100, 110, 121, 133.1},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/suggestions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", w.Code, w.Body.String())
	}
}

func TestBatchSuggest(t *testing.T) {
	router := newTestRouter(t, &fakeHistoryService{})

	batch := BatchSuggestRequest{
		Companies: []SuggestRequest{
			{
				Company:        "Acme",
				Sector:         "IT",
				RevenueHistory: []float64{1000, 1100, 1210, 1331},
				EBITDAHistory:  []float64{200, 220, 242, 266.2},
				PATHistory:     []float64{100, 110, 121, 133.1},
			},
			{
				Company:        "Globex",
				Sector:         "ENERGY",
				RevenueHistory: []float64{500, 550, 605, 665.5},
				EBITDAHistory:  []float64{100, 110, 121, 133.1},
				PATHistory:     []float64{50, 55, 60.5, 66.55},
			},
			{
				// Missing revenue history, should fail validation.
				Company:    "Initech",
				PATHistory: []float64{10, 11, 12, 13},
			},
		},
	}

	body, _ := json.Marshal(batch)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/suggestions/batch", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	var got BatchSuggestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.Summary.TotalCompanies != 3 {
		t.Errorf("TotalCompanies = %d, want 3", got.Summary.TotalCompanies)
	}
	if got.Summary.SuccessfulCount != 2 {
		t.Errorf("SuccessfulCount = %d, want 2", got.Summary.SuccessfulCount)
	}
	if got.Summary.FailedCount != 1 {
		t.Errorf("FailedCount = %d, want 1", got.Summary.FailedCount)
	}
	if got.Summary.AverageRevenueGrowth != 10.0 {
		t.Errorf("AverageRevenueGrowth = %v, want 10", got.Summary.AverageRevenueGrowth)
	}
}

func TestBatchSuggestRecordsPerCompanyMetrics(t *testing.T) {
	collector := monitoring.NewMetricsCollector()
	router := newStoreTestRouter(t, nil, &fakeHistoryService{}, collector)

	batch := BatchSuggestRequest{
		Companies: []SuggestRequest{
			{
				Company:        "Acme",
				RevenueHistory: []float64{1000, 1100, 1210, 1331},
				EBITDAHistory:  []float64{200, 220, 242, 266.2},
				PATHistory:     []float64{100, 110, 121, 133.1},
			},
			{
				Company:        "Globex",
				RevenueHistory: []float64{500, 550, 605, 665.5},
				EBITDAHistory:  []float64{100, 110, 121, 133.1},
				PATHistory:     []float64{50, 55, 60.5, 66.55},
			},
			{
				// Missing histories, counted as a failed record.
				Company: "Initech",
			},
		},
	}

	body, _ := json.Marshal(batch)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/suggestions/batch", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	metrics := collector.GetSuggestionMetrics(context.Background())
	if got := metrics.SuggestionsBySource[monitoring.SourceExplicit]; got != 3 {
		t.Errorf("explicit suggestion count = %d, want one record per company (3)", got)
	}
	if metrics.TotalSuggestions != 3 {
		t.Errorf("TotalSuggestions = %d, want 3", metrics.TotalSuggestions)
	}
}

func TestBatchSuggestRejectsOversizedBatch(t *testing.T) {
	router := newTestRouter(t, &fakeHistoryService{})

	companies := make([]SuggestRequest, maxBatchSize+1)
	for i := range companies {
		companies[i] = SuggestRequest{
			Company:        fmt.Sprintf("Company%d", i),
			RevenueHistory: []float64{1, 2, 3, 4},
			PATHistory:     []float64{1, 2, 3, 4},
		}
	}

	body, _ := json.Marshal(BatchSuggestRequest{Companies: companies})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/suggestions/batch", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetSectors(t *testing.T) {
	router := newTestRouter(t, &fakeHistoryService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sectors", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var got struct {
		Sectors       map[string]growth.SectorLimits `json:"sectors"`
		DefaultSector string                         `json:"default_sector"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.DefaultSector != growth.DefaultSector {
		t.Errorf("default_sector = %q, want %q", got.DefaultSector, growth.DefaultSector)
	}
	if limits := got.Sectors["IT"]; limits.Min != 6 || limits.Max != 15 {
		t.Errorf("IT limits = %+v, want 6..15", limits)
	}
}

func TestRootBanner(t *testing.T) {
	router := newTestRouter(t, &fakeHistoryService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	router := newTestRouter(t, &fakeHistoryService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sectors", nil)
	router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/sectors", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "fixed-id" {
		t.Errorf("X-Request-ID = %q, want fixed-id", got)
	}
}

func TestLivenessWithoutBackends(t *testing.T) {
	router := newTestRouter(t, &fakeHistoryService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestReadinessWithoutBackends(t *testing.T) {
	router := newTestRouter(t, &fakeHistoryService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}
