package obs

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteCalcTotal counts calculation outcomes by result (hit/miss/error).
	QuoteCalcTotal *prometheus.CounterVec
	// QuoteCalcLatency records full-calculation latency in milliseconds.
	// Cache hits are excluded; they complete in effectively zero time.
	QuoteCalcLatency prometheus.Histogram
	// QuoteCacheEntries tracks the local cache tier size.
	QuoteCacheEntries prometheus.Gauge
	// RatesRefreshTotal counts rate refresh attempts by outcome.
	RatesRefreshTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers quote-engine collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteCalcTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_calculations_total",
			Help:      "Count of quote calculations by outcome.",
		}, []string{"result"})
		QuoteCalcLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_calculation_duration_ms",
			Help:      "Latency of full (non-cached) quote calculations in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		})
		QuoteCacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quote_cache_entries",
			Help:      "Current number of entries in the local calculation cache.",
		})
		RatesRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rates_refresh_total",
			Help:      "Count of exchange-rate refresh attempts by outcome.",
		}, []string{"result"})

		registerDomainCollector(reg, QuoteCalcTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteCalcTotal = v
			}
		})
		registerDomainCollector(reg, QuoteCalcLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				QuoteCalcLatency = v
			}
		})
		registerDomainCollector(reg, QuoteCacheEntries, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				QuoteCacheEntries = v
			}
		})
		registerDomainCollector(reg, RatesRefreshTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RatesRefreshTotal = v
			}
		})
	})
}

// ObserveQuoteCalc records one calculation outcome. Safe to call before
// registration; unregistered collectors are skipped.
func ObserveQuoteCalc(result string, d time.Duration) {
	if QuoteCalcTotal != nil {
		QuoteCalcTotal.WithLabelValues(result).Inc()
	}
	if result == "miss" && QuoteCalcLatency != nil {
		QuoteCalcLatency.Observe(DurationMillis(d))
	}
}

func registerDomainCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
