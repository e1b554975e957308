package models

import "time"

// SystemMetrics is the lightweight runtime snapshot served by the status
// endpoint, aggregated alongside the Prometheus collectors.
type SystemMetrics struct {
	ReportCardsGenerated     uint64    `json:"report_cards_generated"`
	ReportCardFailures       uint64    `json:"report_card_failures"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
