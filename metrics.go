package ngramstore

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implementations must be safe for concurrent use.
type MetricsCollector interface {
	// RecordPut is called after every insertion during a build.
	RecordPut(order int, placeholder bool, err error)

	// RecordLookup is called after Get and LongestValue on a model.
	RecordLookup(duration time.Duration, found bool)

	// RecordSeal is called after an order has been sealed.
	RecordSeal(order int, entries int64, duration time.Duration)

	// RecordRehash is called after an explicit table has grown.
	RecordRehash(order int, oldCapacity, newCapacity int64)

	// RecordGaps is called once per build that met n-grams before their
	// contexts, with the number of placeholders and replayed n-grams.
	RecordGaps(placeholders, replayed int)

	// RecordPhase is called at the end of every build phase.
	RecordPhase(phase Phase, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordPut(int, bool, error)           {}
func (NoopMetricsCollector) RecordLookup(time.Duration, bool)     {}
func (NoopMetricsCollector) RecordSeal(int, int64, time.Duration) {}
func (NoopMetricsCollector) RecordRehash(int, int64, int64)       {}
func (NoopMetricsCollector) RecordGaps(int, int)                  {}
func (NoopMetricsCollector) RecordPhase(Phase, time.Duration)     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	PutCount         atomic.Int64
	PutErrors        atomic.Int64
	PlaceholderCount atomic.Int64
	LookupCount      atomic.Int64
	LookupHits       atomic.Int64
	LookupTotalNanos atomic.Int64
	SealCount        atomic.Int64
	SealTotalNanos   atomic.Int64
	RehashCount      atomic.Int64
	GapPlaceholders  atomic.Int64
	GapReplayed      atomic.Int64
	BuildTotalNanos  atomic.Int64
}

// RecordPut implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPut(_ int, placeholder bool, err error) {
	b.PutCount.Add(1)
	if placeholder {
		b.PlaceholderCount.Add(1)
	}
	if err != nil {
		b.PutErrors.Add(1)
	}
}

// RecordLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLookup(duration time.Duration, found bool) {
	b.LookupCount.Add(1)
	b.LookupTotalNanos.Add(duration.Nanoseconds())
	if found {
		b.LookupHits.Add(1)
	}
}

// RecordSeal implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSeal(_ int, _ int64, duration time.Duration) {
	b.SealCount.Add(1)
	b.SealTotalNanos.Add(duration.Nanoseconds())
}

// RecordRehash implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRehash(int, int64, int64) {
	b.RehashCount.Add(1)
}

// RecordGaps implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGaps(placeholders, replayed int) {
	b.GapPlaceholders.Add(int64(placeholders))
	b.GapReplayed.Add(int64(replayed))
}

// RecordPhase implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPhase(_ Phase, duration time.Duration) {
	b.BuildTotalNanos.Add(duration.Nanoseconds())
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		PutCount:         b.PutCount.Load(),
		PutErrors:        b.PutErrors.Load(),
		PlaceholderCount: b.PlaceholderCount.Load(),
		LookupCount:      b.LookupCount.Load(),
		LookupHits:       b.LookupHits.Load(),
		SealCount:        b.SealCount.Load(),
		RehashCount:      b.RehashCount.Load(),
		GapPlaceholders:  b.GapPlaceholders.Load(),
		GapReplayed:      b.GapReplayed.Load(),
		BuildNanos:       b.BuildTotalNanos.Load(),
	}
	if s.LookupCount > 0 {
		s.LookupAvgNanos = b.LookupTotalNanos.Load() / s.LookupCount
	}
	return s
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	PutCount         int64
	PutErrors        int64
	PlaceholderCount int64
	LookupCount      int64
	LookupHits       int64
	LookupAvgNanos   int64
	SealCount        int64
	RehashCount      int64
	GapPlaceholders  int64
	GapReplayed      int64
	BuildNanos       int64
}

// PrometheusCollector exports build and lookup metrics to Prometheus.
type PrometheusCollector struct {
	puts         *prometheus.CounterVec
	putErrors    prometheus.Counter
	lookups      *prometheus.CounterVec
	lookupTime   prometheus.Histogram
	sealTime     *prometheus.HistogramVec
	rehashes     *prometheus.CounterVec
	placeholders prometheus.Counter
	replayed     prometheus.Counter
	phaseTime    *prometheus.HistogramVec
}

// NewPrometheusCollector creates the collector's metrics under namespace and
// registers them with reg.
func NewPrometheusCollector(reg prometheus.Registerer, namespace string) (*PrometheusCollector, error) {
	p := &PrometheusCollector{
		puts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "puts_total",
			Help:      "N-grams inserted during builds.",
		}, []string{"order", "kind"}),
		putErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "put_errors_total",
			Help:      "Failed insertions, including missing contexts.",
		}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Model lookups by result.",
		}, []string{"result"}),
		lookupTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_duration_seconds",
			Help:      "Model lookup latency.",
			Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 8),
		}),
		sealTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "seal_duration_seconds",
			Help:      "Time to seal one order.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"order"}),
		rehashes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rehashes_total",
			Help:      "Explicit table growths.",
		}, []string{"order"}),
		placeholders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gap_placeholders_total",
			Help:      "Placeholders inserted for missing contexts.",
		}),
		replayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gap_replayed_total",
			Help:      "N-grams replayed after backfilling.",
		}),
		phaseTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_phase_duration_seconds",
			Help:      "Duration of build phases.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"phase"}),
	}
	for _, c := range []prometheus.Collector{
		p.puts, p.putErrors, p.lookups, p.lookupTime, p.sealTime,
		p.rehashes, p.placeholders, p.replayed, p.phaseTime,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// RecordPut implements MetricsCollector.
func (p *PrometheusCollector) RecordPut(order int, placeholder bool, err error) {
	if err != nil {
		p.putErrors.Inc()
		return
	}
	kind := "value"
	if placeholder {
		kind = "placeholder"
	}
	p.puts.WithLabelValues(strconv.Itoa(order), kind).Inc()
}

// RecordLookup implements MetricsCollector.
func (p *PrometheusCollector) RecordLookup(duration time.Duration, found bool) {
	result := "miss"
	if found {
		result = "hit"
	}
	p.lookups.WithLabelValues(result).Inc()
	p.lookupTime.Observe(duration.Seconds())
}

// RecordSeal implements MetricsCollector.
func (p *PrometheusCollector) RecordSeal(order int, _ int64, duration time.Duration) {
	p.sealTime.WithLabelValues(strconv.Itoa(order)).Observe(duration.Seconds())
}

// RecordRehash implements MetricsCollector.
func (p *PrometheusCollector) RecordRehash(order int, _, _ int64) {
	p.rehashes.WithLabelValues(strconv.Itoa(order)).Inc()
}

// RecordGaps implements MetricsCollector.
func (p *PrometheusCollector) RecordGaps(placeholders, replayed int) {
	p.placeholders.Add(float64(placeholders))
	p.replayed.Add(float64(replayed))
}

// RecordPhase implements MetricsCollector.
func (p *PrometheusCollector) RecordPhase(phase Phase, duration time.Duration) {
	p.phaseTime.WithLabelValues(phase.String()).Observe(duration.Seconds())
}
