package orchestrator

import (
	"context"
	"time"

	"github.com/cboyd0319/bazbom"
)

// mergeResults builds one SARIFRun per ecosystem that produced Findings and
// merges them into the run's MergedReport. The merge itself is cheap and
// deterministic, so it always runs — even on a cache hit — rather than
// storing a second copy of the SARIF bytes alongside the cached report.
// On a cache miss, the completed UnifiedScanReport is stored for future
// invocations (§4.5); a hit is never re-stored.
func mergeResults(ctx context.Context, r *run) (State, error) {
	runs := buildSARIFRuns(r.report, r.params.ToolVersion)
	r.sarif = r.o.merger.Merge(runs)
	r.report.Warnings = append(r.report.Warnings, r.sarif.Warnings...)
	r.o.recordFindings(r.report.Findings)

	if r.cacheHit || r.o.cache == nil {
		return Done, nil
	}
	if err := r.o.cache.Store(ctx, r.params, *r.report, time.Now()); err != nil {
		r.o.log.WarnContext(ctx, "failed to store scan cache entry", "error", err)
		r.report.Warnings = append(r.report.Warnings, "orchestrator: scan cache store failed: "+err.Error())
	}
	return Done, nil
}

// buildSARIFRuns groups the run's Findings by the ecosystem that produced
// them, one bazbom.SARIFRun per ecosystem tag present.
func buildSARIFRuns(report *bazbom.UnifiedScanReport, toolVersion string) []bazbom.SARIFRun {
	byEco := make(map[bazbom.Ecosystem][]bazbom.Finding)
	for _, f := range report.Findings {
		byEco[f.AffectedPackage.Ecosystem] = append(byEco[f.AffectedPackage.Ecosystem], f)
	}

	runs := make([]bazbom.SARIFRun, 0, len(byEco))
	for _, tag := range bazbom.Ecosystems {
		findings, ok := byEco[tag]
		if !ok {
			continue
		}
		descriptor := bazbom.ScannerDescriptor{Name: "bazbom-" + string(tag), Version: toolVersion, Ecosystem: tag}
		runs = append(runs, bazbom.SARIFRun{
			AnalyzerName:    descriptor.Name,
			AnalyzerVersion: descriptor.Version,
			Ecosystem:       tag,
			Findings:        findings,
		})
	}
	return runs
}
