package orchestrator

import (
	"context"
	"io/fs"

	"github.com/cboyd0319/bazbom"
	"github.com/cboyd0319/bazbom/internal/filterfs"
	"github.com/cboyd0319/bazbom/internal/licensecache"
)

// ScanIncremental recomputes only the ecosystems affected by changedFiles,
// reusing baseline's EcosystemScanResults for everything else (§6). An
// ecosystem is affected if one of its recorded Evidence paths appears in
// changedFiles, or if it wasn't present in baseline at all (a new manifest
// just appeared). If nothing is affected, baseline is returned unchanged.
func (o *Orchestrator) ScanIncremental(ctx context.Context, root fs.FS, rootPath, toolVersion string, featureFlags map[string]bool, baseline *bazbom.UnifiedScanReport, changedFiles []string) (*bazbom.UnifiedScanReport, bazbom.MergedReport, error) {
	changed := make(map[string]bool, len(changedFiles))
	for _, f := range changedFiles {
		changed[f] = true
	}

	filtered := filterfs.New(root)
	detected, err := o.registry.DetectAll(ctx, filtered)
	if err != nil {
		return nil, bazbom.MergedReport{}, err
	}

	affected := make(map[bazbom.Ecosystem]bool)
	for tag, res := range baseline.Ecosystems {
		for _, ev := range res.Evidence {
			if changed[ev] {
				affected[tag] = true
				break
			}
		}
	}
	for _, s := range detected {
		if _, ok := baseline.Ecosystems[s.Name()]; !ok {
			affected[s.Name()] = true
		}
	}

	if len(affected) == 0 {
		o.log.DebugContext(ctx, "incremental scan: no affected ecosystems", "root", rootPath)
		return baseline, bazbom.MergedReport{}, nil
	}

	r := &run{
		o:        o,
		root:     filtered,
		rootPath: rootPath,
		params: bazbom.ScanParameters{
			Root:         rootPath,
			ToolVersion:  toolVersion,
			FeatureFlags: featureFlags,
		},
		cache: licensecache.New(),
		report: &bazbom.UnifiedScanReport{
			Root:       rootPath,
			Ecosystems: copyUnaffected(baseline.Ecosystems, affected),
			State:      Idle.String(),
		},
	}
	for _, s := range detected {
		if affected[s.Name()] {
			r.detected = append(r.detected, s)
		}
	}
	for tag, res := range r.report.Ecosystems {
		if !affected[tag] {
			r.report.Warnings = append(r.report.Warnings, res.Warnings...)
		}
	}

	// Detection already ran above; start the FSM at the scanning state so
	// only the affected scanners' Scan methods execute.
	state := ScanningEcosystems
	for state != Done && state != Failed {
		if err := ctx.Err(); err != nil {
			return r.report, bazbom.MergedReport{}, err
		}
		next, err := stateToStateFunc[state](ctx, r)
		if err != nil {
			o.failedScans.Add(1)
			return r.report, bazbom.MergedReport{}, err
		}
		state = next
		r.report.State = state.String()
	}
	o.completedScans.Add(1)
	return r.report, r.sarif, nil
}

// copyUnaffected returns a fresh Ecosystems map seeded with baseline's
// results for every tag not in affected; affected tags are left absent so
// scanEcosystems repopulates them from scratch.
func copyUnaffected(baseline map[bazbom.Ecosystem]bazbom.EcosystemScanResult, affected map[bazbom.Ecosystem]bool) map[bazbom.Ecosystem]bazbom.EcosystemScanResult {
	out := make(map[bazbom.Ecosystem]bazbom.EcosystemScanResult, len(baseline))
	for tag, res := range baseline {
		if !affected[tag] {
			out[tag] = res
		}
	}
	return out
}
