package monitoring

import (
	"context"
	"sync"
	"time"
)

// MetricsCollector handles collecting and storing system metrics
type MetricsCollector struct {
	mutex           sync.RWMutex
	suggestionCount map[string]int64
	responseTime    map[string][]time.Duration
	errorCount      map[string]int64
	systemMetrics   SystemMetrics
	startTime       time.Time
}

// SystemMetrics represents overall system performance metrics
type SystemMetrics struct {
	TotalRequests      int64         `json:"total_requests"`
	SuccessfulRequests int64         `json:"successful_requests"`
	FailedRequests     int64         `json:"failed_requests"`
	AverageLatency     time.Duration `json:"average_latency"`
	ErrorRate          float64       `json:"error_rate"`
	ThroughputRPS      float64       `json:"throughput_rps"`
	Uptime             time.Duration `json:"uptime"`
}

// SuggestionMetrics tracks suggestion engine throughput
type SuggestionMetrics struct {
	TotalSuggestions      int64            `json:"total_suggestions"`
	AverageSuggestionTime time.Duration    `json:"average_suggestion_time"`
	SuggestionsBySource   map[string]int64 `json:"suggestions_by_source"`
	SuccessRate           float64          `json:"success_rate"`
}

// Suggestion sources recorded by the collector.
const (
	SourceFetched  = "fetched"  // history ingested from the provider
	SourceCached   = "cached"   // served from the Redis cache
	SourceExplicit = "explicit" // histories supplied in the request body
	SourcePipeline = "pipeline" // precomputed by the background pipeline
)

// NewMetricsCollector creates a new metrics collector instance
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		suggestionCount: make(map[string]int64),
		responseTime:    make(map[string][]time.Duration),
		errorCount:      make(map[string]int64),
		startTime:       time.Now(),
	}
}

// RecordSuggestion records metrics for one suggestion request
func (mc *MetricsCollector) RecordSuggestion(ctx context.Context, source, ticker string, duration time.Duration, success bool) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	mc.suggestionCount[source]++
	mc.systemMetrics.TotalRequests++

	mc.responseTime[source] = append(mc.responseTime[source], duration)
	if len(mc.responseTime[source]) > 1000 {
		mc.responseTime[source] = mc.responseTime[source][1:]
	}

	if success {
		mc.systemMetrics.SuccessfulRequests++
	} else {
		mc.systemMetrics.FailedRequests++
		mc.errorCount[source]++
	}

	mc.updateDerivedMetrics()
}

// RecordAPIRequest records metrics for general API requests
func (mc *MetricsCollector) RecordAPIRequest(ctx context.Context, endpoint, method string, duration time.Duration, statusCode int) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	key := method + "_" + endpoint

	mc.systemMetrics.TotalRequests++

	mc.responseTime[key] = append(mc.responseTime[key], duration)
	if len(mc.responseTime[key]) > 1000 {
		mc.responseTime[key] = mc.responseTime[key][1:]
	}

	if statusCode < 400 {
		mc.systemMetrics.SuccessfulRequests++
	} else {
		mc.systemMetrics.FailedRequests++
		mc.errorCount[key]++
	}

	mc.updateDerivedMetrics()
}

// GetMetrics returns current system metrics
func (mc *MetricsCollector) GetMetrics(ctx context.Context) map[string]interface{} {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()

	return map[string]interface{}{
		"system_metrics":     mc.snapshotSystemMetrics(),
		"suggestion_metrics": mc.getSuggestionMetrics(),
		"endpoint_metrics":   mc.getEndpointMetrics(),
		"timestamp":          time.Now(),
	}
}

// GetSystemMetrics returns system-level metrics
func (mc *MetricsCollector) GetSystemMetrics(ctx context.Context) SystemMetrics {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()

	return mc.snapshotSystemMetrics()
}

// GetSuggestionMetrics returns suggestion-specific metrics
func (mc *MetricsCollector) GetSuggestionMetrics(ctx context.Context) SuggestionMetrics {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()

	return mc.getSuggestionMetrics()
}

func (mc *MetricsCollector) snapshotSystemMetrics() SystemMetrics {
	metrics := mc.systemMetrics
	metrics.Uptime = time.Since(mc.startTime)
	return metrics
}

// updateDerivedMetrics calculates derived metrics (called with lock held)
func (mc *MetricsCollector) updateDerivedMetrics() {
	if mc.systemMetrics.TotalRequests > 0 {
		mc.systemMetrics.ErrorRate = float64(mc.systemMetrics.FailedRequests) / float64(mc.systemMetrics.TotalRequests)
	}

	var totalDuration time.Duration
	var totalCount int64

	for _, durations := range mc.responseTime {
		for _, duration := range durations {
			totalDuration += duration
			totalCount++
		}
	}

	if totalCount > 0 {
		mc.systemMetrics.AverageLatency = totalDuration / time.Duration(totalCount)
	}

	uptime := time.Since(mc.startTime)
	if uptime.Seconds() > 0 {
		mc.systemMetrics.ThroughputRPS = float64(mc.systemMetrics.TotalRequests) / uptime.Seconds()
	}
}

// getSuggestionMetrics calculates suggestion metrics (called with lock held)
func (mc *MetricsCollector) getSuggestionMetrics() SuggestionMetrics {
	var totalSuggestions int64
	var totalDuration time.Duration
	var totalResponseCount int64

	for source, count := range mc.suggestionCount {
		totalSuggestions += count

		for _, duration := range mc.responseTime[source] {
			totalDuration += duration
			totalResponseCount++
		}
	}

	avgSuggestionTime := time.Duration(0)
	if totalResponseCount > 0 {
		avgSuggestionTime = totalDuration / time.Duration(totalResponseCount)
	}

	var suggestionErrors int64
	for source := range mc.suggestionCount {
		suggestionErrors += mc.errorCount[source]
	}

	successRate := 1.0
	if totalSuggestions > 0 {
		successRate = float64(totalSuggestions-suggestionErrors) / float64(totalSuggestions)
	}

	return SuggestionMetrics{
		TotalSuggestions:      totalSuggestions,
		AverageSuggestionTime: avgSuggestionTime,
		SuggestionsBySource:   copyCounts(mc.suggestionCount),
		SuccessRate:           successRate,
	}
}

// getEndpointMetrics returns metrics for API endpoints
func (mc *MetricsCollector) getEndpointMetrics() map[string]interface{} {
	endpointMetrics := make(map[string]interface{})

	for endpoint, durations := range mc.responseTime {
		if len(durations) == 0 {
			continue
		}

		var total time.Duration
		for _, d := range durations {
			total += d
		}

		requestCount := int64(len(durations))
		errorCount := mc.errorCount[endpoint]

		endpointMetrics[endpoint] = map[string]interface{}{
			"request_count":   requestCount,
			"average_latency": total / time.Duration(len(durations)),
			"error_count":     errorCount,
			"error_rate":      float64(errorCount) / float64(requestCount),
		}
	}

	return endpointMetrics
}

// Reset resets all metrics (useful for testing)
func (mc *MetricsCollector) Reset() {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	mc.suggestionCount = make(map[string]int64)
	mc.responseTime = make(map[string][]time.Duration)
	mc.errorCount = make(map[string]int64)
	mc.systemMetrics = SystemMetrics{}
	mc.startTime = time.Now()
}

func copyCounts(original map[string]int64) map[string]int64 {
	counts := make(map[string]int64, len(original))
	for k, v := range original {
		counts[k] = v
	}
	return counts
}
