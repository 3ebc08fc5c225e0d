// Package orchestrator drives one scan of a workspace root end to end:
// detect which ecosystems are present, fan their scanners out under bounded
// concurrency, query the advisory client for the resulting packages, and
// merge the per-ecosystem SARIF output (§4.4).
//
// The control flow is a direct generalization of claircore's
// indexer/controller.Controller: a small FSM whose states are implemented
// as one function each, run to completion or to the first error.
package orchestrator

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/cboyd0319/bazbom"
	"github.com/cboyd0319/bazbom/internal/filterfs"
	"github.com/cboyd0319/bazbom/internal/licensecache"
	"github.com/cboyd0319/bazbom/internal/sarifmerge"
	"github.com/cboyd0319/bazbom/internal/scancache"
	"github.com/cboyd0319/bazbom/internal/scanner"
	"github.com/cboyd0319/bazbom/internal/vulnclient"
	"github.com/cboyd0319/bazbom/pkg/scanstats"
)

// Orchestrator owns the resources shared across every scan it runs: the
// scanner registry, the advisory client, an optional Scan Cache, and the
// concurrency bound fan-out respects.
type Orchestrator struct {
	registry   *scanner.Registry
	vulnClient *vulnclient.Client
	cache      *scancache.Cache
	merger     *sarifmerge.Merger
	log        *slog.Logger

	maxConcurrency int64

	inFlight       atomic.Int32
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
	completedScans atomic.Int64
	failedScans    atomic.Int64

	findingsMu         sync.Mutex
	findingsBySeverity map[bazbom.Severity]int64
}

// Option configures an Orchestrator constructed by New.
type Option func(*Orchestrator)

// WithMaxConcurrency overrides the default of runtime.NumCPU() ecosystem
// scanners running at once.
func WithMaxConcurrency(n int) Option {
	return func(o *Orchestrator) { o.maxConcurrency = int64(n) }
}

// WithScanCache attaches a Scan Cache; without one, every scan runs the
// full vulnerability query stage. With one, a cache hit skips that stage;
// the SARIF merge runs either way.
func WithScanCache(c *scancache.Cache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// New builds an Orchestrator around registry and vulnClient.
func New(registry *scanner.Registry, vulnClient *vulnclient.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:           registry,
		vulnClient:         vulnClient,
		merger:             sarifmerge.NewMerger(),
		log:                slog.Default(),
		maxConcurrency:     int64(runtime.NumCPU()),
		findingsBySeverity: make(map[bazbom.Severity]int64),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run is the per-invocation working state an FSM stateFunc mutates,
// mirroring claircore's Controller being scoped to a single manifest scan.
type run struct {
	o        *Orchestrator
	root     fs.FS
	rootPath string
	params   bazbom.ScanParameters

	cache    *licensecache.Cache
	detected []scanner.Scanner

	report *bazbom.UnifiedScanReport
	sarif  bazbom.MergedReport

	cacheHit bool
}

// ScanDirectory runs the full detect → scan → query → merge pipeline
// against root (§4.4). toolVersion and featureFlags feed the Scan Cache
// key; rootPath is carried through for display and as the cache key's
// root component (fs.FS values carry no string path of their own). The
// returned MergedReport is the zero value when the run failed before
// reaching MergingResults.
func (o *Orchestrator) ScanDirectory(ctx context.Context, root fs.FS, rootPath, toolVersion string, featureFlags map[string]bool) (*bazbom.UnifiedScanReport, bazbom.MergedReport, error) {
	r := &run{
		o:        o,
		root:     filterfs.New(root),
		rootPath: rootPath,
		params: bazbom.ScanParameters{
			Root:         rootPath,
			ToolVersion:  toolVersion,
			FeatureFlags: featureFlags,
		},
		cache: licensecache.New(),
		report: &bazbom.UnifiedScanReport{
			Root:       rootPath,
			Ecosystems: make(map[bazbom.Ecosystem]bazbom.EcosystemScanResult),
			State:      Idle.String(),
		},
	}
	err := o.runFSM(ctx, r)
	return r.report, r.sarif, err
}

// runFSM executes each stateFunc in turn until Done or Failed, mirroring
// claircore's Controller.run.
func (o *Orchestrator) runFSM(ctx context.Context, r *run) error {
	state := DetectingEcosystems
	for state != Done && state != Failed {
		if err := ctx.Err(); err != nil {
			r.report.State = Failed.String()
			r.report.Warnings = append(r.report.Warnings, err.Error())
			o.failedScans.Add(1)
			return err
		}
		next, err := stateToStateFunc[state](ctx, r)
		if err != nil {
			r.report.State = Failed.String()
			r.report.Warnings = append(r.report.Warnings, fmt.Sprintf("orchestrator: %s: %v", state, err))
			o.failedScans.Add(1)
			return err
		}
		state = next
		r.report.State = state.String()
	}
	if state == Done {
		o.completedScans.Add(1)
	}
	return nil
}

// recordFindings tallies a completed run's Findings into the cumulative
// per-severity counters the Stat interface reports.
func (o *Orchestrator) recordFindings(findings []bazbom.Finding) {
	o.findingsMu.Lock()
	defer o.findingsMu.Unlock()
	for _, f := range findings {
		o.findingsBySeverity[f.SeverityTier]++
	}
}

// Stat implements scanstats.Stater so a Collector can report this
// Orchestrator's live concurrency and cache counters.
func (o *Orchestrator) Stat() scanstats.Stat { return orchestratorStat{o} }

// orchestratorStat adapts Orchestrator's atomic counters to the Stat
// interface scanstats.Collector reads from.
type orchestratorStat struct{ o *Orchestrator }

func (s orchestratorStat) InFlightScanners() int32 { return s.o.inFlight.Load() }
func (s orchestratorStat) MaxConcurrency() int32   { return int32(s.o.maxConcurrency) }
func (s orchestratorStat) CacheHits() int64        { return s.o.cacheHits.Load() }
func (s orchestratorStat) CacheMisses() int64      { return s.o.cacheMisses.Load() }
func (s orchestratorStat) CompletedScans() int64   { return s.o.completedScans.Load() }
func (s orchestratorStat) FailedScans() int64      { return s.o.failedScans.Load() }

func (s orchestratorStat) FindingsBySeverity() map[string]int64 {
	s.o.findingsMu.Lock()
	defer s.o.findingsMu.Unlock()
	out := make(map[string]int64, len(s.o.findingsBySeverity))
	for sev, n := range s.o.findingsBySeverity {
		out[sev.String()] = n
	}
	return out
}

var _ scanstats.Stater = (*Orchestrator)(nil)
