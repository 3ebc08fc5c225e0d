package orchestrator

import "context"

// detectEcosystems runs Detect for every registered scanner against the
// run's root, mirroring claircore's checkManifest but against a filesystem
// root instead of a manifest's layer history.
func detectEcosystems(ctx context.Context, r *run) (State, error) {
	detected, err := r.o.registry.DetectAll(ctx, r.root)
	if err != nil {
		return Failed, err
	}
	r.detected = detected
	r.o.log.DebugContext(ctx, "detected ecosystems", "root", r.rootPath, "count", len(detected))
	return ScanningEcosystems, nil
}
