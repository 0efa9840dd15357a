package growth

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Metric names used throughout the API and storage layers.
const (
	MetricRevenue = "Revenue"
	MetricEBITDA  = "EBITDA"
	MetricPAT     = "PAT"
)

// Confidence levels attached to a suggestion.
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
)

// EngineParams controls how CAGR and recent trend are blended.
type EngineParams struct {
	CAGRWeight  float64 // weight of the long-run CAGR
	TrendWeight float64 // weight of the recent-trend average
	MinPeriods  int     // usable values required before suggesting anything
}

// Engine combines historical CAGR, the recent trend and sector caps into
// a single explainable growth suggestion per metric.
type Engine struct {
	params EngineParams
}

// NewEngine creates an engine with the default 60/40 CAGR/trend blend.
func NewEngine() *Engine {
	return &Engine{
		params: EngineParams{
			CAGRWeight:  0.6,
			TrendWeight: 0.4,
			MinPeriods:  4,
		},
	}
}

// SetParams overrides the blending parameters.
func (e *Engine) SetParams(params EngineParams) {
	e.params = params
}

// Params returns the current blending parameters.
func (e *Engine) Params() EngineParams {
	return e.params
}

// MetricHistories carries the cleaned value series for one company,
// oldest first, one slice per supported metric.
type MetricHistories struct {
	Revenue []float64 `json:"revenue"`
	EBITDA  []float64 `json:"ebitda"`
	PAT     []float64 `json:"pat"`
}

// MetricSuggestion is the engine output for a single metric series.
type MetricSuggestion struct {
	SuggestedPct  float64 `json:"suggested_growth_pct"`
	CAGRPct       float64 `json:"cagr_pct"`
	RecentPct     float64 `json:"recent_trend_pct"`
	UsablePeriods int     `json:"usable_periods"`
	Clamped       bool    `json:"clamped"`
}

// Suggestion is the combined result for a company across all metrics.
type Suggestion struct {
	ID          string                      `json:"id"`
	Company     string                      `json:"company"`
	Sector      string                      `json:"sector"`
	Limits      SectorLimits                `json:"sector_limits"`
	Metrics     map[string]MetricSuggestion `json:"metrics"`
	Confidence  string                      `json:"confidence"`
	Rationale   string                      `json:"rationale"`
	GeneratedAt time.Time                   `json:"generated_at"`
}

// SuggestMetric runs the engine for a single value series. Values are
// oldest first; non-positive values are dropped after cleaning. With
// fewer than MinPeriods usable values everything is zero.
func (e *Engine) SuggestMetric(values []float64, sector string) MetricSuggestion {
	usable := make([]float64, 0, len(values))
	for _, v := range values {
		if v := SafeFloat(v); v > 0 {
			usable = append(usable, v)
		}
	}

	result := MetricSuggestion{UsablePeriods: len(usable)}
	if len(usable) < e.params.MinPeriods {
		return result
	}

	years := len(usable) - 1
	cagr := CAGR(usable[0], usable[len(usable)-1], years)
	recent := RecentTrend(usable)

	raw := e.params.CAGRWeight*cagr + e.params.TrendWeight*recent
	limits := LimitsFor(sector)
	final := math.Min(math.Max(raw, limits.Min), limits.Max)

	result.SuggestedPct = round2(final)
	result.CAGRPct = round2(cagr)
	result.RecentPct = round2(recent)
	result.Clamped = final != raw
	return result
}

// Suggest runs the engine across revenue, EBITDA and PAT histories and
// assembles the combined suggestion with confidence and rationale.
func (e *Engine) Suggest(company, sector string, histories MetricHistories) *Suggestion {
	metrics := map[string]MetricSuggestion{
		MetricRevenue: e.SuggestMetric(histories.Revenue, sector),
		MetricEBITDA:  e.SuggestMetric(histories.EBITDA, sector),
		MetricPAT:     e.SuggestMetric(histories.PAT, sector),
	}

	limits := LimitsFor(sector)
	revenue := metrics[MetricRevenue]

	return &Suggestion{
		ID:          uuid.New().String(),
		Company:     company,
		Sector:      strings.ToUpper(strings.TrimSpace(sector)),
		Limits:      limits,
		Metrics:     metrics,
		Confidence:  e.confidence(revenue),
		Rationale:   e.rationale(revenue, limits),
		GeneratedAt: time.Now(),
	}
}

// confidence grades the revenue suggestion by history depth and by how
// far the long-run and recent views disagree.
func (e *Engine) confidence(revenue MetricSuggestion) string {
	if revenue.UsablePeriods < e.params.MinPeriods {
		return ConfidenceLow
	}

	clampDelta := e.clampDistance(revenue)
	switch {
	case revenue.UsablePeriods >= 6 && math.Abs(revenue.CAGRPct-revenue.RecentPct) <= 5 && clampDelta <= 10:
		return ConfidenceHigh
	case revenue.UsablePeriods == e.params.MinPeriods || clampDelta > 10:
		return ConfidenceLow
	default:
		return ConfidenceMedium
	}
}

// rationale renders a single explanation sentence for the revenue series.
func (e *Engine) rationale(revenue MetricSuggestion, limits SectorLimits) string {
	if revenue.UsablePeriods < e.params.MinPeriods {
		return fmt.Sprintf("Insufficient history: %d usable periods, need at least %d",
			revenue.UsablePeriods, e.params.MinPeriods)
	}

	s := fmt.Sprintf("Revenue growth of %.2f%% blends %.2f%% CAGR (weight %.0f%%) with %.2f%% recent trend (weight %.0f%%)",
		revenue.SuggestedPct,
		revenue.CAGRPct, e.params.CAGRWeight*100,
		revenue.RecentPct, e.params.TrendWeight*100)

	if revenue.Clamped {
		s += fmt.Sprintf(", clamped to the sector range %.0f-%.0f%%", limits.Min, limits.Max)
	}
	return s
}

// clampDistance measures how far the unclamped blend sat outside the
// applied bounds, using the reported rounded components.
func (e *Engine) clampDistance(m MetricSuggestion) float64 {
	if !m.Clamped {
		return 0
	}
	raw := e.params.CAGRWeight*m.CAGRPct + e.params.TrendWeight*m.RecentPct
	return math.Abs(raw - m.SuggestedPct)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
