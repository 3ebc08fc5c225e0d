// Package scanstats exposes the orchestrator's bounded-concurrency and scan
// cache counters as Prometheus metrics.
package scanstats

import (
	"github.com/prometheus/client_golang/prometheus"
)

var _ prometheus.Collector = (*Collector)(nil)

// Stat is the interface implemented by the orchestrator's internal state.
// It is exported so a type in another package (*orchestrator.Orchestrator)
// can implement Stater without this package needing to know that type.
type Stat interface {
	InFlightScanners() int32
	MaxConcurrency() int32
	CacheHits() int64
	CacheMisses() int64
	CompletedScans() int64
	FailedScans() int64
	// FindingsBySeverity returns the cumulative count of Findings produced
	// across every completed scan, keyed by severity name (e.g. "critical").
	FindingsBySeverity() map[string]int64
}

type staterFunc func() Stat

// Collector is a prometheus.Collector that reports orchestrator scan
// concurrency and scan cache statistics.
type Collector struct {
	name string
	stat staterFunc

	inFlightScannersDesc *prometheus.Desc
	maxConcurrencyDesc   *prometheus.Desc
	cacheHitsDesc        *prometheus.Desc
	cacheMissesDesc      *prometheus.Desc
	completedScansDesc   *prometheus.Desc
	failedScansDesc      *prometheus.Desc
	findingsDesc         *prometheus.Desc
}

// Stater is a provider of the Stat() function. Implemented by
// *orchestrator.Orchestrator.
type Stater interface {
	Stat() Stat
}

// NewCollector creates a Collector that reports stats from an orchestrator,
// labeled by its workspace root.
func NewCollector(stater Stater, root string) *Collector {
	fn := func() Stat { return stater.Stat() }
	return newCollector(fn, root)
}

func newCollector(fn staterFunc, root string) *Collector {
	return &Collector{
		name: root,
		stat: fn,
		inFlightScannersDesc: prometheus.NewDesc(
			"bazbom_scan_in_flight_scanners",
			"Number of ecosystem scanners currently running.",
			staticLabels, nil),
		maxConcurrencyDesc: prometheus.NewDesc(
			"bazbom_scan_max_concurrency",
			"Configured upper bound on concurrently running scanners.",
			staticLabels, nil),
		cacheHitsDesc: prometheus.NewDesc(
			"bazbom_scan_cache_hits_total",
			"Cumulative count of scan cache hits.",
			staticLabels, nil),
		cacheMissesDesc: prometheus.NewDesc(
			"bazbom_scan_cache_misses_total",
			"Cumulative count of scan cache misses.",
			staticLabels, nil),
		completedScansDesc: prometheus.NewDesc(
			"bazbom_scan_completed_total",
			"Cumulative count of scans that reached the done state.",
			staticLabels, nil),
		failedScansDesc: prometheus.NewDesc(
			"bazbom_scan_failed_total",
			"Cumulative count of scans that reached the failed state.",
			staticLabels, nil),
		findingsDesc: prometheus.NewDesc(
			"bazbom_scan_findings_total",
			"Cumulative count of Findings produced, by severity.",
			findingsLabels, nil),
	}
}

var staticLabels = []string{"workspace_root"}
var findingsLabels = []string{"workspace_root", "severity"}

// Describe implements the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

// Collect implements the prometheus.Collector interface.
func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	s := c.stat()
	metrics <- prometheus.MustNewConstMetric(
		c.inFlightScannersDesc, prometheus.GaugeValue, float64(s.InFlightScanners()), c.name)
	metrics <- prometheus.MustNewConstMetric(
		c.maxConcurrencyDesc, prometheus.GaugeValue, float64(s.MaxConcurrency()), c.name)
	metrics <- prometheus.MustNewConstMetric(
		c.cacheHitsDesc, prometheus.CounterValue, float64(s.CacheHits()), c.name)
	metrics <- prometheus.MustNewConstMetric(
		c.cacheMissesDesc, prometheus.CounterValue, float64(s.CacheMisses()), c.name)
	metrics <- prometheus.MustNewConstMetric(
		c.completedScansDesc, prometheus.CounterValue, float64(s.CompletedScans()), c.name)
	metrics <- prometheus.MustNewConstMetric(
		c.failedScansDesc, prometheus.CounterValue, float64(s.FailedScans()), c.name)
	for severity, count := range s.FindingsBySeverity() {
		metrics <- prometheus.MustNewConstMetric(
			c.findingsDesc, prometheus.CounterValue, float64(count), c.name, severity)
	}
}
