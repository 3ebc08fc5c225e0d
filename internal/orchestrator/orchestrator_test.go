package orchestrator

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"testing/fstest"

	"github.com/cboyd0319/bazbom"
	"github.com/cboyd0319/bazbom/internal/licensecache"
	"github.com/cboyd0319/bazbom/internal/scancache"
	"github.com/cboyd0319/bazbom/internal/scanner"
	"github.com/cboyd0319/bazbom/internal/vulnclient"
)

// fakeScanner is a minimal scanner.Scanner stand-in: it claims a fixed
// ecosystem, always detects, and returns a fixed result built ahead of
// time rather than actually parsing manifests.
type fakeScanner struct {
	name      bazbom.Ecosystem
	present   bool
	result    bazbom.EcosystemScanResult
	scanErr   error
	scanCalls *int
}

func (f *fakeScanner) Name() bazbom.Ecosystem { return f.name }

func (f *fakeScanner) Detect(ctx context.Context, root fs.FS) (bool, error) {
	return f.present, nil
}

func (f *fakeScanner) Scan(ctx context.Context, root fs.FS, cache *licensecache.Cache) (bazbom.EcosystemScanResult, error) {
	if f.scanCalls != nil {
		*f.scanCalls++
	}
	if f.scanErr != nil {
		return bazbom.EcosystemScanResult{}, f.scanErr
	}
	return f.result, nil
}

func npmScanner(calls *int) *fakeScanner {
	return &fakeScanner{
		name:    bazbom.EcosystemNPM,
		present: true,
		result: bazbom.EcosystemScanResult{
			Ecosystem: bazbom.EcosystemNPM,
			Packages: []bazbom.Package{
				{Coordinate: bazbom.Coordinate{Ecosystem: bazbom.EcosystemNPM, Name: "left-pad", Version: "1.3.0"}, DeclaringManifest: "package-lock.json"},
			},
			Evidence: []string{"package-lock.json"},
		},
		scanCalls: calls,
	}
}

func goScanner(calls *int) *fakeScanner {
	return &fakeScanner{
		name:    bazbom.EcosystemGo,
		present: true,
		result: bazbom.EcosystemScanResult{
			Ecosystem: bazbom.EcosystemGo,
			Packages: []bazbom.Package{
				{Coordinate: bazbom.Coordinate{Ecosystem: bazbom.EcosystemGo, Name: "golang.org/x/mod", Version: "v0.14.0"}, DeclaringManifest: "go.sum"},
			},
			Evidence: []string{"go.sum"},
		},
		scanCalls: calls,
	}
}

// batchServer stands up an advisory endpoint that always returns the one
// vulnerability affecting left-pad@1.3.0, regardless of page contents.
func batchServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(struct {
			Vulnerabilities []bazbom.Vulnerability `json:"vulnerabilities"`
		}{
			Vulnerabilities: []bazbom.Vulnerability{
				{
					ID:         "CVE-2016-0001",
					Coordinate: bazbom.Coordinate{Ecosystem: bazbom.EcosystemNPM, Name: "left-pad"},
					Affected:   []bazbom.VersionRange{{Introduced: "0.0.0", Fixed: "1.3.1"}},
					Severity:   bazbom.High,
				},
			},
		})
	}))
}

func newTestRegistry(scanners ...scanner.Scanner) *scanner.Registry {
	reg := scanner.NewRegistry()
	for _, s := range scanners {
		reg.Register(s)
	}
	return reg
}

func TestScanDirectoryFindsVulnerability(t *testing.T) {
	srv := batchServer(t)
	defer srv.Close()
	base, _ := url.Parse(srv.URL)

	calls := 0
	reg := newTestRegistry(npmScanner(&calls))
	vc := vulnclient.New(base, nil)
	o := New(reg, vc)

	root := fstest.MapFS{"package-lock.json": {Data: []byte("{}")}}
	report, sarif, err := o.ScanDirectory(context.Background(), root, "/ws", "1.0.0", nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.State != Done.String() {
		t.Fatalf("state = %q, want %q", report.State, Done.String())
	}
	if len(report.Findings) != 1 || report.Findings[0].Vulnerability.ID != "CVE-2016-0001" {
		t.Fatalf("findings = %+v", report.Findings)
	}
	if len(sarif.SARIF) == 0 {
		t.Fatal("expected non-empty merged SARIF output")
	}
	if calls != 1 {
		t.Fatalf("scanner invoked %d times, want 1", calls)
	}
}

func TestScanDirectoryBoundsConcurrency(t *testing.T) {
	srv := batchServer(t)
	defer srv.Close()
	base, _ := url.Parse(srv.URL)

	var npmCalls, goCalls int
	reg := newTestRegistry(npmScanner(&npmCalls), goScanner(&goCalls))
	vc := vulnclient.New(base, nil)
	o := New(reg, vc, WithMaxConcurrency(1))

	root := fstest.MapFS{"package-lock.json": {Data: []byte("{}")}, "go.sum": {Data: []byte("")}}
	report, _, err := o.ScanDirectory(context.Background(), root, "/ws", "1.0.0", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Ecosystems) != 2 {
		t.Fatalf("ecosystems = %d, want 2", len(report.Ecosystems))
	}
	stat := o.Stat()
	if stat.MaxConcurrency() != 1 {
		t.Fatalf("MaxConcurrency() = %d, want 1", stat.MaxConcurrency())
	}
	if stat.CompletedScans() != 1 {
		t.Fatalf("CompletedScans() = %d, want 1", stat.CompletedScans())
	}
}

func TestScanDirectoryFailsWhenScannerErrors(t *testing.T) {
	srv := batchServer(t)
	defer srv.Close()
	base, _ := url.Parse(srv.URL)

	bad := &fakeScanner{name: bazbom.EcosystemNPM, present: true, scanErr: fs.ErrPermission}
	reg := newTestRegistry(bad)
	vc := vulnclient.New(base, nil)
	o := New(reg, vc)

	_, _, err := o.ScanDirectory(context.Background(), fstest.MapFS{}, "/ws", "1.0.0", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if o.Stat().FailedScans() != 1 {
		t.Fatalf("FailedScans() = %d, want 1", o.Stat().FailedScans())
	}
}

func TestScanDirectoryUsesScanCache(t *testing.T) {
	queries := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries++
		json.NewEncoder(w).Encode(struct {
			Vulnerabilities []bazbom.Vulnerability `json:"vulnerabilities"`
		}{
			Vulnerabilities: []bazbom.Vulnerability{
				{
					ID:         "CVE-2016-0001",
					Coordinate: bazbom.Coordinate{Ecosystem: bazbom.EcosystemNPM, Name: "left-pad"},
					Affected:   []bazbom.VersionRange{{Introduced: "0.0.0", Fixed: "1.3.1"}},
					Severity:   bazbom.High,
				},
			},
		})
	}))
	defer srv.Close()
	base, _ := url.Parse(srv.URL)

	cache, err := scancache.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	var calls int
	reg := newTestRegistry(npmScanner(&calls))
	vc := vulnclient.New(base, nil)
	o := New(reg, vc, WithScanCache(cache))

	root := fstest.MapFS{"package-lock.json": {Data: []byte("{}")}}
	_, _, err = o.ScanDirectory(context.Background(), root, "/ws", "1.0.0", nil)
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = o.ScanDirectory(context.Background(), root, "/ws", "1.0.0", nil)
	if err != nil {
		t.Fatal(err)
	}
	if queries != 1 {
		t.Fatalf("advisory endpoint queried %d times, want 1 (second scan should hit cache)", queries)
	}
	if o.Stat().CacheHits() != 1 {
		t.Fatalf("CacheHits() = %d, want 1", o.Stat().CacheHits())
	}
	if calls != 2 {
		t.Fatalf("scanner invoked %d times, want 2 (scanning still runs on a cache hit)", calls)
	}
}

func TestScanIncrementalSkipsUnaffectedEcosystems(t *testing.T) {
	srv := batchServer(t)
	defer srv.Close()
	base, _ := url.Parse(srv.URL)

	var npmCalls, goCalls int
	reg := newTestRegistry(npmScanner(&npmCalls), goScanner(&goCalls))
	vc := vulnclient.New(base, nil)
	o := New(reg, vc)

	root := fstest.MapFS{"package-lock.json": {Data: []byte("{}")}, "go.sum": {Data: []byte("")}}
	baseline, _, err := o.ScanDirectory(context.Background(), root, "/ws", "1.0.0", nil)
	if err != nil {
		t.Fatal(err)
	}
	if npmCalls != 1 || goCalls != 1 {
		t.Fatalf("baseline calls npm=%d go=%d, want 1,1", npmCalls, goCalls)
	}

	baseline.Ecosystems[bazbom.EcosystemGo] = bazbom.EcosystemScanResult{
		Ecosystem: bazbom.EcosystemGo,
		Packages:  baseline.Ecosystems[bazbom.EcosystemGo].Packages,
		Warnings:  []string{"carried over from baseline"},
		Evidence:  baseline.Ecosystems[bazbom.EcosystemGo].Evidence,
	}

	report, _, err := o.ScanIncremental(context.Background(), root, "/ws", "1.0.0", nil, baseline, []string{"package-lock.json"})
	if err != nil {
		t.Fatal(err)
	}
	if npmCalls != 2 {
		t.Fatalf("npm rescanned %d times, want 2 (its evidence changed)", npmCalls)
	}
	if goCalls != 1 {
		t.Fatalf("go rescanned %d times, want 1 (unaffected, should be reused)", goCalls)
	}
	found := false
	for _, w := range report.Warnings {
		if w == "carried over from baseline" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected reused ecosystem's warnings to propagate, got %v", report.Warnings)
	}
}

func TestScanIncrementalNoChangesReturnsBaseline(t *testing.T) {
	srv := batchServer(t)
	defer srv.Close()
	base, _ := url.Parse(srv.URL)

	var calls int
	reg := newTestRegistry(npmScanner(&calls))
	vc := vulnclient.New(base, nil)
	o := New(reg, vc)

	root := fstest.MapFS{"package-lock.json": {Data: []byte("{}")}}
	baseline, _, err := o.ScanDirectory(context.Background(), root, "/ws", "1.0.0", nil)
	if err != nil {
		t.Fatal(err)
	}

	report, _, err := o.ScanIncremental(context.Background(), root, "/ws", "1.0.0", nil, baseline, []string{"unrelated.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if report != baseline {
		t.Fatal("expected the exact baseline pointer back when nothing is affected")
	}
	if calls != 1 {
		t.Fatalf("scanner invoked %d times, want 1 (no rescan expected)", calls)
	}
}
