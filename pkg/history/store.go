package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"growth-suggestion-api/pkg/config"
	"growth-suggestion-api/pkg/growth"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Store persists financial histories and served suggestions with Redis
// caching and PostgreSQL persistence.
type Store struct {
	redisClient   *redis.Client
	postgres      *sql.DB
	historyTTL    time.Duration
	suggestionTTL time.Duration
}

// NewStore creates a new history store instance
func NewStore(redisClient *redis.Client, postgres *sql.DB, cfg config.CacheConfig) *Store {
	return &Store{
		redisClient:   redisClient,
		postgres:      postgres,
		historyTTL:    cfg.HistoryTTL.Std(),
		suggestionTTL: cfg.SuggestionTTL.Std(),
	}
}

// StatementRecord is one stored data point: a metric value for one
// fiscal year. Amounts are exact decimals as reported.
type StatementRecord struct {
	Ticker     string          `json:"ticker"`
	Metric     string          `json:"metric"`
	FiscalDate string          `json:"fiscal_date"`
	Amount     decimal.Decimal `json:"amount"`
}

// Company is the stored metadata for a monitored ticker.
type Company struct {
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name"`
	Sector    string    `json:"sector"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CompanyHistory is the cleaned per-metric series for one company,
// oldest first, ready for the suggestion engine.
type CompanyHistory struct {
	Ticker      string               `json:"ticker"`
	Name        string               `json:"name,omitempty"`
	Sector      string               `json:"sector,omitempty"`
	FiscalDates []string             `json:"fiscal_dates"`
	Metrics     map[string][]float64 `json:"metrics"`
	FetchedAt   time.Time            `json:"fetched_at"`
}

// Series returns the value series for a metric, oldest first.
func (h *CompanyHistory) Series(metric string) []float64 {
	if h == nil || h.Metrics == nil {
		return nil
	}
	return h.Metrics[metric]
}

// EnsureSchema creates the backing tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS companies (
			ticker     TEXT PRIMARY KEY,
			name       TEXT NOT NULL DEFAULT '',
			sector     TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS financial_history (
			ticker      TEXT NOT NULL,
			metric      TEXT NOT NULL,
			fiscal_date DATE NOT NULL,
			amount      NUMERIC(24, 4) NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (ticker, metric, fiscal_date)
		)`,
		`CREATE TABLE IF NOT EXISTS growth_suggestions (
			id         UUID NOT NULL,
			ticker     TEXT NOT NULL,
			sector     TEXT NOT NULL,
			metric     TEXT NOT NULL,
			suggested  NUMERIC(10, 2) NOT NULL,
			cagr       NUMERIC(12, 2) NOT NULL,
			trend      NUMERIC(12, 2) NOT NULL,
			confidence TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (id, metric)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.postgres.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// SaveCompany upserts company metadata.
func (s *Store) SaveCompany(ctx context.Context, company Company) error {
	query := `
		INSERT INTO companies (ticker, name, sector, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (ticker)
		DO UPDATE SET
			name = EXCLUDED.name,
			sector = EXCLUDED.sector,
			updated_at = NOW()
	`

	_, err := s.postgres.ExecContext(ctx, query,
		strings.ToUpper(company.Ticker), company.Name, strings.ToUpper(company.Sector))
	if err != nil {
		return fmt.Errorf("failed to save company: %w", err)
	}
	return nil
}

// GetCompany retrieves company metadata for a ticker.
func (s *Store) GetCompany(ctx context.Context, ticker string) (*Company, error) {
	query := `SELECT ticker, name, sector, updated_at FROM companies WHERE ticker = $1`

	var company Company
	err := s.postgres.QueryRowContext(ctx, query, strings.ToUpper(ticker)).Scan(
		&company.Ticker, &company.Name, &company.Sector, &company.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("company not found: %s", ticker)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query company: %w", err)
	}
	return &company, nil
}

// MonitoredTickers lists the tickers with stored metadata.
func (s *Store) MonitoredTickers(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT ticker FROM companies ORDER BY ticker LIMIT $1`

	rows, err := s.postgres.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query monitored tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			continue
		}
		tickers = append(tickers, ticker)
	}
	return tickers, rows.Err()
}

// SaveRecords upserts a batch of statement records in one transaction.
func (s *Store) SaveRecords(ctx context.Context, records []StatementRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.postgres.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO financial_history (ticker, metric, fiscal_date, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ticker, metric, fiscal_date)
		DO UPDATE SET amount = EXCLUDED.amount
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		_, err := stmt.ExecContext(ctx,
			strings.ToUpper(record.Ticker), record.Metric, record.FiscalDate, record.Amount)
		if err != nil {
			return fmt.Errorf("failed to store record %s/%s/%s: %w",
				record.Ticker, record.Metric, record.FiscalDate, err)
		}
	}

	return tx.Commit()
}

// GetRecords retrieves all stored records for a ticker, oldest first
// within each metric.
func (s *Store) GetRecords(ctx context.Context, ticker string) ([]StatementRecord, error) {
	query := `
		SELECT ticker, metric, fiscal_date, amount
		FROM financial_history
		WHERE ticker = $1
		ORDER BY metric, fiscal_date ASC
	`

	rows, err := s.postgres.QueryContext(ctx, query, strings.ToUpper(ticker))
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []StatementRecord
	for rows.Next() {
		var record StatementRecord
		var fiscalDate time.Time
		if err := rows.Scan(&record.Ticker, &record.Metric, &fiscalDate, &record.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		record.FiscalDate = fiscalDate.Format("2006-01-02")
		records = append(records, record)
	}
	return records, rows.Err()
}

// SaveSuggestion persists one audit row per metric for a served suggestion.
func (s *Store) SaveSuggestion(ctx context.Context, suggestion *growth.Suggestion) error {
	query := `
		INSERT INTO growth_suggestions (id, ticker, sector, metric, suggested, cagr, trend, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id, metric) DO NOTHING
	`

	for metric, result := range suggestion.Metrics {
		_, err := s.postgres.ExecContext(ctx, query,
			suggestion.ID, suggestion.Company, suggestion.Sector, metric,
			result.SuggestedPct, result.CAGRPct, result.RecentPct,
			suggestion.Confidence, suggestion.GeneratedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to store suggestion for %s/%s: %w",
				suggestion.Company, metric, err)
		}
	}
	return nil
}

// Redis operations

// CacheHistory stores a cleaned company history for fast reads.
func (s *Store) CacheHistory(ctx context.Context, h *CompanyHistory) error {
	data, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return s.redisClient.Set(ctx, historyKey(h.Ticker), data, s.historyTTL).Err()
}

// CachedHistory retrieves a cached company history, if present.
func (s *Store) CachedHistory(ctx context.Context, ticker string) (*CompanyHistory, error) {
	data, err := s.redisClient.Get(ctx, historyKey(ticker)).Result()
	if err != nil {
		return nil, err
	}

	var h CompanyHistory
	if err := json.Unmarshal([]byte(data), &h); err != nil {
		return nil, fmt.Errorf("failed to decode cached history: %w", err)
	}
	return &h, nil
}

// CacheSuggestion stores a full suggestion document.
func (s *Store) CacheSuggestion(ctx context.Context, suggestion *growth.Suggestion) error {
	data, err := json.Marshal(suggestion)
	if err != nil {
		return err
	}
	key := suggestionKey(suggestion.Company, suggestion.Sector)
	return s.redisClient.Set(ctx, key, data, s.suggestionTTL).Err()
}

// CachedSuggestion retrieves a cached suggestion document, if present.
func (s *Store) CachedSuggestion(ctx context.Context, ticker, sector string) (*growth.Suggestion, error) {
	data, err := s.redisClient.Get(ctx, suggestionKey(ticker, sector)).Result()
	if err != nil {
		return nil, err
	}

	var suggestion growth.Suggestion
	if err := json.Unmarshal([]byte(data), &suggestion); err != nil {
		return nil, fmt.Errorf("failed to decode cached suggestion: %w", err)
	}
	return &suggestion, nil
}

// HealthCheck verifies both backing stores are reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	if err := s.postgres.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	return nil
}

func historyKey(ticker string) string {
	return fmt.Sprintf("history:%s", strings.ToUpper(ticker))
}

func suggestionKey(ticker, sector string) string {
	return fmt.Sprintf("suggestion:%s:%s", strings.ToUpper(ticker), strings.ToUpper(sector))
}
