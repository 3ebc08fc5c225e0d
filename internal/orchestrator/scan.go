package orchestrator

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// scanEcosystems runs every detected scanner's Scan concurrently, bounded
// to the Orchestrator's MaxConcurrency, exactly as libindex.go's
// AffectedManifests bounds its own fan-out via errgroup.SetLimit. Each
// scanner shares one License Cache for the run (§4.2).
func scanEcosystems(ctx context.Context, r *run) (State, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(int(r.o.maxConcurrency))

	var mu sync.Mutex
	for _, s := range r.detected {
		s := s
		g.Go(func() error {
			r.o.inFlight.Add(1)
			defer r.o.inFlight.Add(-1)

			res, err := s.Scan(ctx, r.root, r.cache)
			if err != nil {
				// A scanner's own internal failures are recovered into its
				// result's Warnings; an error returned here means the
				// scanner itself could not run at all, which does halt the
				// run (§7).
				return err
			}
			mu.Lock()
			r.report.Ecosystems[s.Name()] = res
			r.report.Warnings = append(r.report.Warnings, res.Warnings...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Failed, err
	}

	r.o.log.DebugContext(ctx, "scanned ecosystems", "root", r.rootPath, "packages", len(r.report.Packages()))
	return QueryingVulnerabilities, nil
}
