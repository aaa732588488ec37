package models

import (
	"time"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error" example:"Bad Request"`
	Message   string    `json:"message" example:"unknown search term: \"phone\""`
	Code      string    `json:"code,omitempty" example:"INVALID_CRITERIA"`
	Timestamp time.Time `json:"timestamp" example:"2026-01-15T10:30:00Z"`
	Path      string    `json:"path" example:"/api/v1/business/pinpoint"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status" example:"healthy"`
	Timestamp time.Time              `json:"timestamp" example:"2026-01-15T10:30:00Z"`
	Version   string                 `json:"version" example:"1.0.0"`
	Services  map[string]ServiceInfo `json:"services"`
	Uptime    string                 `json:"uptime" example:"2h30m45s"`
}

// ServiceInfo represents individual service health
type ServiceInfo struct {
	Status    string    `json:"status" example:"healthy"`
	LastCheck time.Time `json:"last_check" example:"2026-01-15T10:30:00Z"`
	Error     string    `json:"error,omitempty"`
}

// StatsResponse summarises the process since start
type StatsResponse struct {
	Lookups   LookupStats            `json:"lookups"`
	Cache     map[string]interface{} `json:"cache"`
	Browser   map[string]interface{} `json:"browser"`
	System    SystemStats            `json:"system"`
	Timestamp time.Time              `json:"timestamp" example:"2026-01-15T10:30:00Z"`
}

// LookupStats represents lookup counters
type LookupStats struct {
	Total         int64   `json:"total" example:"120"`
	Failures      int64   `json:"failures" example:"4"`
	SuccessRate   float64 `json:"success_rate" example:"96.67"`
	AvgDurationMs float64 `json:"avg_duration_ms" example:"8400"`
	Attempts      int64   `json:"captcha_attempts" example:"161"`
	CacheHitRate  float64 `json:"cache_hit_rate" example:"35.5"`
}

// SystemStats represents runtime figures
type SystemStats struct {
	MemoryUsageMB float64 `json:"memory_usage_mb" example:"512.5"`
	Goroutines    int     `json:"goroutines" example:"125"`
}
