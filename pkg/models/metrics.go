package models

import "time"

// UtilizationSample is a point-in-time utilization reading for a scaling
// group. Metrics are individually optional: a nil field means the backend
// had no datapoint for it, which callers must treat as unavailable rather
// than zero.
type UtilizationSample struct {
	CPUPercent    *float64  `json:"cpu_percent,omitempty"`
	MemoryPercent *float64  `json:"memory_percent,omitempty"`
	SampledAt     time.Time `json:"sampled_at"`
}

// Complete reports whether both metrics are present.
func (s *UtilizationSample) Complete() bool {
	return s != nil && s.CPUPercent != nil && s.MemoryPercent != nil
}

// MetricsSnapshot is the concrete reading attached to an emitted action.
type MetricsSnapshot struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
}

// Float returns a pointer to v, for building samples.
func Float(v float64) *float64 {
	return &v
}
