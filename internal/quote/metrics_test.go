package quote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	m := &Metrics{}
	m.RecordMiss(100 * time.Millisecond)
	m.RecordMiss(300 * time.Millisecond)
	m.RecordHit()
	m.RecordHit()

	s := m.Snapshot()
	require.Equal(t, int64(4), s.TotalCalculations)
	require.Equal(t, int64(2), s.CacheHits)
	require.Equal(t, int64(2), s.CacheMisses)
	require.InDelta(t, 400.0, s.CumulativeLatencyMs, 0.001)
	require.InDelta(t, 50.0, s.CacheHitRate, 0.001)
	require.InDelta(t, 100.0, s.AverageCalculationMs, 0.001)
}

func TestMetricsEmptySnapshot(t *testing.T) {
	s := (&Metrics{}).Snapshot()
	require.Zero(t, s.TotalCalculations)
	require.Zero(t, s.CacheHitRate)
	require.Zero(t, s.AverageCalculationMs)
}

func TestMetricsReset(t *testing.T) {
	m := &Metrics{}
	m.RecordMiss(time.Second)
	m.RecordHit()
	m.Reset()
	require.Equal(t, Stats{}, m.Snapshot())
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.RecordHit()
	m.RecordMiss(time.Second)
	m.Reset()
	require.Equal(t, Stats{}, m.Snapshot())
}
