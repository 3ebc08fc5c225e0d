package scanstats

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockStater struct {
	stats Stat
}

func (m *mockStater) Stat() Stat { return m.stats }

var _ Stat = (*statMock)(nil)

type statMock struct {
	inFlightScanners int32
	maxConcurrency   int32
	cacheHits        int64
	cacheMisses      int64
	completedScans   int64
	failedScans      int64
	findings         map[string]int64
}

func (m *statMock) InFlightScanners() int32            { return m.inFlightScanners }
func (m *statMock) MaxConcurrency() int32              { return m.maxConcurrency }
func (m *statMock) CacheHits() int64                   { return m.cacheHits }
func (m *statMock) CacheMisses() int64                 { return m.cacheMisses }
func (m *statMock) CompletedScans() int64              { return m.completedScans }
func (m *statMock) FailedScans() int64                 { return m.failedScans }
func (m *statMock) FindingsBySeverity() map[string]int64 { return m.findings }

func TestDescribe(t *testing.T) {
	const expectedDescriptorCount = 7
	stater := &mockStater{&statMock{findings: map[string]int64{"critical": 1}}}
	statFn := func() Stat { return stater.Stat() }
	testObject := newCollector(statFn, t.Name())

	ch := make(chan *prometheus.Desc, expectedDescriptorCount)
	testObject.Describe(ch)
	close(ch)

	uniqueDescriptors := make(map[string]struct{})
	for desc := range ch {
		uniqueDescriptors[desc.String()] = struct{}{}
	}
	if len(uniqueDescriptors) != expectedDescriptorCount {
		t.Errorf("expected %d descriptors, got %d", expectedDescriptorCount, len(uniqueDescriptors))
	}
}

func TestCollect(t *testing.T) {
	mockStats := &statMock{
		inFlightScanners: 2,
		maxConcurrency:   8,
		cacheHits:        10,
		cacheMisses:      3,
		completedScans:   5,
		failedScans:      1,
		findings:         map[string]int64{"critical": 4},
	}
	stater := &mockStater{mockStats}
	staterfn := func() Stat { return stater.Stat() }
	testObject := newCollector(staterfn, t.Name())
	want := strings.NewReader(`# HELP bazbom_scan_cache_hits_total Cumulative count of scan cache hits.
# TYPE bazbom_scan_cache_hits_total counter
bazbom_scan_cache_hits_total{workspace_root="TestCollect"} 10
# HELP bazbom_scan_cache_misses_total Cumulative count of scan cache misses.
# TYPE bazbom_scan_cache_misses_total counter
bazbom_scan_cache_misses_total{workspace_root="TestCollect"} 3
# HELP bazbom_scan_completed_total Cumulative count of scans that reached the done state.
# TYPE bazbom_scan_completed_total counter
bazbom_scan_completed_total{workspace_root="TestCollect"} 5
# HELP bazbom_scan_failed_total Cumulative count of scans that reached the failed state.
# TYPE bazbom_scan_failed_total counter
bazbom_scan_failed_total{workspace_root="TestCollect"} 1
# HELP bazbom_scan_findings_total Cumulative count of Findings produced, by severity.
# TYPE bazbom_scan_findings_total counter
bazbom_scan_findings_total{severity="critical",workspace_root="TestCollect"} 4
# HELP bazbom_scan_in_flight_scanners Number of ecosystem scanners currently running.
# TYPE bazbom_scan_in_flight_scanners gauge
bazbom_scan_in_flight_scanners{workspace_root="TestCollect"} 2
# HELP bazbom_scan_max_concurrency Configured upper bound on concurrently running scanners.
# TYPE bazbom_scan_max_concurrency gauge
bazbom_scan_max_concurrency{workspace_root="TestCollect"} 8
`)

	ls, err := testutil.CollectAndLint(testObject)
	if err != nil {
		t.Error(err)
	}
	for _, l := range ls {
		t.Log(l)
	}
	if err := testutil.CollectAndCompare(testObject, want); err != nil {
		t.Error(err)
	}
}
