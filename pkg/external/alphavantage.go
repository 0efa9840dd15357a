package external

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"growth-suggestion-api/pkg/config"

	"github.com/tidwall/gjson"
)

// AlphaVantageClient fetches fundamental data from the Alpha Vantage API.
type AlphaVantageClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewAlphaVantageClient creates a new Alpha Vantage API client
func NewAlphaVantageClient(cfg config.AlphaVantageConfig) *AlphaVantageClient {
	return &AlphaVantageClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: cfg.Timeout.Std(),
		},
	}
}

// AnnualReport is one fiscal year from the income statement. Amounts are
// in the reporting currency; zero means the field was absent or "None".
type AnnualReport struct {
	FiscalDateEnding string  `json:"fiscal_date_ending"`
	TotalRevenue     float64 `json:"total_revenue"`
	EBITDA           float64 `json:"ebitda"`
	EBIT             float64 `json:"ebit"`
	OperatingIncome  float64 `json:"operating_income"`
	NetIncome        float64 `json:"net_income"`
}

// IncomeStatement holds the annual reports for one symbol, newest first
// as Alpha Vantage serves them.
type IncomeStatement struct {
	Symbol        string         `json:"symbol"`
	AnnualReports []AnnualReport `json:"annual_reports"`
}

// CompanyOverview is the subset of the OVERVIEW response the suggestion
// service cares about.
type CompanyOverview struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Sector   string `json:"sector"`
	Industry string `json:"industry"`
}

// GetIncomeStatement retrieves the annual income statements for a symbol
func (av *AlphaVantageClient) GetIncomeStatement(ctx context.Context, symbol string) (*IncomeStatement, error) {
	body, err := av.get(ctx, "INCOME_STATEMENT", symbol)
	if err != nil {
		return nil, err
	}
	return ParseIncomeStatement(body, symbol)
}

// GetCompanyOverview retrieves name and sector metadata for a symbol
func (av *AlphaVantageClient) GetCompanyOverview(ctx context.Context, symbol string) (*CompanyOverview, error) {
	body, err := av.get(ctx, "OVERVIEW", symbol)
	if err != nil {
		return nil, err
	}
	return ParseCompanyOverview(body, symbol)
}

// Ping verifies the provider endpoint is reachable. It hits the base URL
// without a function parameter, which Alpha Vantage answers with a 200
// error payload; any HTTP response at all proves reachability without
// spending request quota.
func (av *AlphaVantageClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, av.baseURL, nil)
	if err != nil {
		return err
	}

	resp, err := av.client.Do(req)
	if err != nil {
		return fmt.Errorf("alpha vantage unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("alpha vantage returned status %d", resp.StatusCode)
	}
	return nil
}

func (av *AlphaVantageClient) get(ctx context.Context, function, symbol string) ([]byte, error) {
	reqURL := fmt.Sprintf("%s?function=%s&symbol=%s&apikey=%s",
		av.baseURL, function, url.QueryEscape(symbol), url.QueryEscape(av.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := av.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alpha vantage request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alpha vantage returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read alpha vantage response: %w", err)
	}

	// Errors and rate limits come back as 200s with a message field.
	if msg := gjson.GetBytes(body, "Error Message"); msg.Exists() {
		return nil, fmt.Errorf("alpha vantage error for %s: %s", symbol, msg.String())
	}
	if note := gjson.GetBytes(body, "Note"); note.Exists() {
		return nil, fmt.Errorf("alpha vantage rate limited: %s", note.String())
	}
	if info := gjson.GetBytes(body, "Information"); info.Exists() {
		return nil, fmt.Errorf("alpha vantage rejected request: %s", info.String())
	}

	return body, nil
}

// ParseIncomeStatement extracts the annual reports from a raw
// INCOME_STATEMENT response body.
func ParseIncomeStatement(body []byte, symbol string) (*IncomeStatement, error) {
	reports := gjson.GetBytes(body, "annualReports")
	if !reports.Exists() || !reports.IsArray() {
		return nil, fmt.Errorf("no annualReports for %s", symbol)
	}

	arr := reports.Array()
	statement := &IncomeStatement{
		Symbol:        gjson.GetBytes(body, "symbol").String(),
		AnnualReports: make([]AnnualReport, 0, len(arr)),
	}
	if statement.Symbol == "" {
		statement.Symbol = symbol
	}

	for _, r := range arr {
		date := strings.TrimSpace(r.Get("fiscalDateEnding").String())
		if date == "" {
			continue
		}
		statement.AnnualReports = append(statement.AnnualReports, AnnualReport{
			FiscalDateEnding: date,
			TotalRevenue:     amount(r.Get("totalRevenue")),
			EBITDA:           amount(r.Get("ebitda")),
			EBIT:             amount(r.Get("ebit")),
			OperatingIncome:  amount(r.Get("operatingIncome")),
			NetIncome:        amount(r.Get("netIncome")),
		})
	}

	if len(statement.AnnualReports) == 0 {
		return nil, fmt.Errorf("no usable annual reports for %s", symbol)
	}
	return statement, nil
}

// ParseCompanyOverview extracts metadata from a raw OVERVIEW response body.
func ParseCompanyOverview(body []byte, symbol string) (*CompanyOverview, error) {
	overview := &CompanyOverview{
		Symbol:   gjson.GetBytes(body, "Symbol").String(),
		Name:     gjson.GetBytes(body, "Name").String(),
		Sector:   gjson.GetBytes(body, "Sector").String(),
		Industry: gjson.GetBytes(body, "Industry").String(),
	}
	if overview.Symbol == "" {
		overview.Symbol = symbol
	}
	if overview.Name == "" && overview.Sector == "" {
		return nil, fmt.Errorf("empty overview for %s", symbol)
	}
	return overview, nil
}

// amount parses a numeric field that may be the literal string "None".
func amount(r gjson.Result) float64 {
	s := strings.TrimSpace(r.String())
	if s == "" || strings.EqualFold(s, "none") {
		return 0
	}
	return r.Float()
}
