// Package metrics exposes Prometheus collectors for the synchronization engine.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without instrumentation in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the engine.
type Metrics struct {
	OwnershipLoads       *prometheus.CounterVec
	OwnershipLoadSeconds prometheus.Histogram
	OwnershipLoaded      prometheus.Gauge
	LookupCacheHits      prometheus.Counter
	LookupRemoteCalls    prometheus.Counter
	LookupFailures       prometheus.Counter
	Edits                *prometheus.CounterVec
	EditsInFlight        prometheus.Gauge
	SnapshotsPublished   prometheus.Counter
}

// New creates and registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OwnershipLoads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "domain_manager_ownership_loads_total",
			Help: "Ownership loads by terminal status",
		}, []string{"status"}),
		OwnershipLoadSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "domain_manager_ownership_load_seconds",
			Help:    "Duration of completed ownership loads",
			Buckets: prometheus.DefBuckets,
		}),
		OwnershipLoaded: f.NewGauge(prometheus.GaugeOpts{
			Name: "domain_manager_ownership_loaded",
			Help: "Names loaded by the current ownership load",
		}),
		LookupCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "domain_manager_reverse_lookup_cache_hits_total",
			Help: "Reverse lookups served from cache",
		}),
		LookupRemoteCalls: f.NewCounter(prometheus.CounterOpts{
			Name: "domain_manager_reverse_lookup_remote_calls_total",
			Help: "Reverse lookups sent to the ledger",
		}),
		LookupFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "domain_manager_reverse_lookup_failures_total",
			Help: "Reverse lookups that failed and were not cached",
		}),
		Edits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "domain_manager_record_edits_total",
			Help: "Record edits by outcome",
		}, []string{"outcome"}),
		EditsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "domain_manager_record_write_batches_in_flight",
			Help: "Record write batches currently committing",
		}),
		SnapshotsPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "domain_manager_snapshots_published_total",
			Help: "Snapshots delivered to subscribers",
		}),
	}
}

// ObserveLoad records the terminal status of an ownership load.
func (m *Metrics) ObserveLoad(status string, started time.Time) {
	if m == nil {
		return
	}
	m.OwnershipLoads.WithLabelValues(status).Inc()
	m.OwnershipLoadSeconds.Observe(time.Since(started).Seconds())
}

// SetLoaded reports progress of the current load.
func (m *Metrics) SetLoaded(n int) {
	if m == nil {
		return
	}
	m.OwnershipLoaded.Set(float64(n))
}

// IncLookupHit counts a reverse lookup served from cache.
func (m *Metrics) IncLookupHit() {
	if m == nil {
		return
	}
	m.LookupCacheHits.Inc()
}

// IncLookupRemote counts a reverse lookup sent to the ledger.
func (m *Metrics) IncLookupRemote() {
	if m == nil {
		return
	}
	m.LookupRemoteCalls.Inc()
}

// IncLookupFailure counts a failed reverse lookup.
func (m *Metrics) IncLookupFailure() {
	if m == nil {
		return
	}
	m.LookupFailures.Inc()
}

// AddEdits counts n edits reaching an outcome (committed, failed, superseded).
func (m *Metrics) AddEdits(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Edits.WithLabelValues(outcome).Add(float64(n))
}

// AddInFlight adjusts the number of write batches in flight.
func (m *Metrics) AddInFlight(delta int) {
	if m == nil {
		return
	}
	m.EditsInFlight.Add(float64(delta))
}

// IncSnapshots counts a published snapshot.
func (m *Metrics) IncSnapshots() {
	if m == nil {
		return
	}
	m.SnapshotsPublished.Inc()
}
