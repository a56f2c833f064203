package quote

import (
	"sync/atomic"
	"time"
)

// Metrics tracks engine counters for one orchestrator instance. It is an
// explicitly constructed, injectable value rather than package state, so
// tests and independent app contexts never contaminate each other.
type Metrics struct {
	totalCalculations atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	cumulativeLatency atomic.Int64 // nanoseconds
}

// Stats is a point-in-time snapshot with the derived ratios the API exposes.
type Stats struct {
	TotalCalculations    int64   `json:"totalCalculations"`
	CacheHits            int64   `json:"cacheHits"`
	CacheMisses          int64   `json:"cacheMisses"`
	CumulativeLatencyMs  float64 `json:"cumulativeLatencyMs"`
	CacheHitRate         float64 `json:"cacheHitRate"`
	AverageCalculationMs float64 `json:"averageCalculationMs"`
}

// RecordHit counts a cache-served calculation. Latency is effectively zero.
func (m *Metrics) RecordHit() {
	if m == nil {
		return
	}
	m.totalCalculations.Add(1)
	m.cacheHits.Add(1)
}

// RecordMiss counts a full calculation and its wall-clock duration.
func (m *Metrics) RecordMiss(d time.Duration) {
	if m == nil {
		return
	}
	m.totalCalculations.Add(1)
	m.cacheMisses.Add(1)
	m.cumulativeLatency.Add(int64(d))
}

// Snapshot returns current counters with derived rates.
func (m *Metrics) Snapshot() Stats {
	if m == nil {
		return Stats{}
	}
	s := Stats{
		TotalCalculations: m.totalCalculations.Load(),
		CacheHits:         m.cacheHits.Load(),
		CacheMisses:       m.cacheMisses.Load(),
	}
	s.CumulativeLatencyMs = float64(m.cumulativeLatency.Load()) / float64(time.Millisecond)
	if lookups := s.CacheHits + s.CacheMisses; lookups > 0 {
		s.CacheHitRate = float64(s.CacheHits) / float64(lookups) * 100
	}
	if s.TotalCalculations > 0 {
		s.AverageCalculationMs = s.CumulativeLatencyMs / float64(s.TotalCalculations)
	}
	return s
}

// Reset zeroes all counters.
func (m *Metrics) Reset() {
	if m == nil {
		return
	}
	m.totalCalculations.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.cumulativeLatency.Store(0)
}
