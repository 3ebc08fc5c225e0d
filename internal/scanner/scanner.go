// Package scanner defines the capability every ecosystem back-end
// implements, and a registry that detects which ones apply to a root.
package scanner

import (
	"context"
	"io/fs"
	"sort"

	"github.com/cboyd0319/bazbom"
	"github.com/cboyd0319/bazbom/internal/licensecache"
)

// Scanner is the uniform capability implemented by each of the seven
// ecosystem back-ends. A Scanner must be safe to invoke concurrently with
// other Scanners sharing the same License Cache.
type Scanner interface {
	// Name returns the stable ecosystem tag this Scanner claims.
	Name() bazbom.Ecosystem
	// Detect reports whether one or more recognized manifests exist under
	// root. It must not read file contents beyond what's needed to confirm
	// presence.
	Detect(ctx context.Context, root fs.FS) (bool, error)
	// Scan parses manifests/lockfiles under root and emits packages. It
	// consults cache for every package's license before reading metadata
	// directly.
	Scan(ctx context.Context, root fs.FS, cache *licensecache.Cache) (bazbom.EcosystemScanResult, error)
	// FetchLicense resolves the license for a single coordinate, consulting
	// cache before falling back to pkg.License as the declared value. Scan
	// does not call this method; it resolves each package's license through
	// the same package-private helper. Callers that already have a Package
	// (e.g. a re-check after an advisory refresh) can invoke it directly
	// without re-running a full Scan.
	FetchLicense(ctx context.Context, pkg bazbom.Package, cache *licensecache.Cache) (bazbom.License, error)
}

// Registry holds every registered Scanner, keyed by ecosystem tag.
type Registry struct {
	scanners map[bazbom.Ecosystem]Scanner
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{scanners: make(map[bazbom.Ecosystem]Scanner)}
}

// Register adds s to the registry, keyed by its own Name().
func (r *Registry) Register(s Scanner) {
	r.scanners[s.Name()] = s
}

// DetectAll runs Detect for every registered Scanner against root and
// returns the subset that claim presence, sorted by ecosystem tag so
// downstream fan-out is deterministic.
func (r *Registry) DetectAll(ctx context.Context, root fs.FS) ([]Scanner, error) {
	var detected []Scanner
	for _, s := range r.scanners {
		ok, err := s.Detect(ctx, root)
		if err != nil {
			return nil, err
		}
		if ok {
			detected = append(detected, s)
		}
	}
	sort.Slice(detected, func(i, j int) bool { return detected[i].Name() < detected[j].Name() })
	return detected, nil
}

// All returns every registered scanner, sorted by ecosystem tag.
func (r *Registry) All() []Scanner {
	out := make([]Scanner, 0, len(r.scanners))
	for _, s := range r.scanners {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
