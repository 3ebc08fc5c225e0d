package orchestrator

import (
	"context"
	"io/fs"

	"github.com/cboyd0319/bazbom"
	"github.com/cboyd0319/bazbom/internal/vulnmatch"
	bazbompath "github.com/cboyd0319/bazbom/pkg/path"
)

// queryVulnerabilities computes the run's cache key from the manifests its
// scanners actually consulted, checks the Scan Cache, and — on a miss —
// queries the advisory client for every scanned package and builds the
// resulting Findings. A cache hit skips straight to MergingResults with the
// cached Findings already in place, since re-querying would reproduce
// exactly what's stored (§4.5).
func queryVulnerabilities(ctx context.Context, r *run) (State, error) {
	digests, err := manifestDigests(r.root, r.report)
	if err != nil {
		return Failed, err
	}
	r.params.ManifestDigests = digests

	if r.o.cache != nil {
		cached, hit, err := r.o.cache.TryLoad(ctx, r.params, digests)
		if err != nil {
			return Failed, err
		}
		if hit {
			r.o.cacheHits.Add(1)
			r.report.Findings = cached.Findings
			r.report.Warnings = append(r.report.Warnings, cached.Warnings...)
			r.cacheHit = true
			r.o.log.DebugContext(ctx, "scan cache hit", "root", r.rootPath)
			return MergingResults, nil
		}
		r.o.cacheMisses.Add(1)
	}

	coords := coordinatesOf(r.report)
	vulns, warnings, err := r.o.vulnClient.Query(ctx, coords)
	if err != nil {
		return Failed, err
	}
	r.report.Warnings = append(r.report.Warnings, warnings...)
	r.report.Findings = buildFindings(r.report, vulns, r.o.vulnClient)

	return MergingResults, nil
}

// manifestDigests hashes the content of every manifest/lockfile path any
// scanner recorded as Evidence, forming the Scan Cache key's manifest set.
func manifestDigests(root fs.FS, report *bazbom.UnifiedScanReport) (map[string]bazbom.Digest, error) {
	digests := make(map[string]bazbom.Digest)
	for _, tag := range report.OrderedEcosystems() {
		for _, path := range report.Ecosystems[tag].Evidence {
			if _, ok := digests[path]; ok {
				continue
			}
			data, err := fs.ReadFile(root, path)
			if err != nil {
				continue // evidence path no longer readable; treat as uncacheable rather than fatal
			}
			digests[path] = bazbom.SumBytes(data)
		}
	}
	return digests, nil
}

// coordinatesOf flattens every scanned package's coordinate, in
// deterministic ecosystem order, as the advisory client's query input.
func coordinatesOf(report *bazbom.UnifiedScanReport) []bazbom.Coordinate {
	pkgs := report.Packages()
	coords := make([]bazbom.Coordinate, len(pkgs))
	for i, p := range pkgs {
		coords[i] = p.Coordinate
	}
	return coords
}

// enricher is the subset of vulnclient.Client buildFindings needs, kept
// narrow so tests can supply a fake without standing up an HTTP client.
type enricher interface {
	Enrich(bazbom.Vulnerability) bazbom.Enrichment
}

// buildFindings matches each returned Vulnerability back to every scanned
// package it affects (I3/P6: a Finding's AffectedPackage must be present in
// the scan's own package set) and tiers its severity, enriching each match.
func buildFindings(report *bazbom.UnifiedScanReport, vulns []bazbom.Vulnerability, e enricher) []bazbom.Finding {
	var findings []bazbom.Finding
	for _, tag := range report.OrderedEcosystems() {
		res := report.Ecosystems[tag]
		for _, pkg := range res.Packages {
			for _, v := range vulns {
				if v.Coordinate.Ecosystem != pkg.Coordinate.Ecosystem || v.Coordinate.Name != pkg.Coordinate.Name {
					continue
				}
				if !vulnmatch.MatchesAny(pkg.Coordinate.Ecosystem, v, pkg.Coordinate.Version) {
					continue
				}
				tier := v.Severity
				if !vulnmatch.HasComparator(pkg.Coordinate.Ecosystem) {
					// No native version ordering for this ecosystem: MatchesAny
					// already fell back to conservatively-affected above, so
					// report the finding as informational rather than at the
					// advisory's own severity (§4.3 unknown-affected policy).
					tier = bazbom.Informational
				}
				findings = append(findings, bazbom.Finding{
					Vulnerability:   v,
					AffectedPackage: pkg.Coordinate,
					Location:        bazbom.SourceLocation{Path: bazbompath.CanonicalizeFileName(pkg.DeclaringManifest)},
					Enrichment:      e.Enrich(v),
					SeverityTier:    tier,
				})
			}
		}
	}
	return findings
}
