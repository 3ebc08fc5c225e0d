package bazbom

// EcosystemScanResult is the output of exactly one scanner invocation (§3).
// Its presence in a UnifiedScanReport's Ecosystems map — even with an empty
// Packages slice — distinguishes "scanner ran and found nothing" from
// "scanner was never invoked".
type EcosystemScanResult struct {
	Ecosystem Ecosystem `json:"ecosystem"`
	Packages  []Package `json:"packages"`
	Warnings  []string  `json:"warnings,omitempty"`
	// Evidence records which manifest/lockfile paths were consulted to
	// detect and scan this ecosystem, feeding the Scan Cache's manifest
	// digest set (§4.5).
	Evidence []string `json:"evidence"`
}

// UnifiedScanReport is the top-level result of Orchestrator.ScanDirectory
// (§4.4). Ecosystems is a map keyed by tag; OrderedEcosystems and Packages
// walk it in the canonical tag order so identical inputs produce
// byte-identical SBOMs (§5).
type UnifiedScanReport struct {
	Root       string                             `json:"root"`
	Ecosystems map[Ecosystem]EcosystemScanResult  `json:"ecosystems"`
	Findings   []Finding                          `json:"findings"`
	Warnings   []string                           `json:"warnings,omitempty"`
	State      string                             `json:"state"`
}

// OrderedEcosystems returns the report's present ecosystem tags sorted per
// the canonical Ecosystems order.
func (r *UnifiedScanReport) OrderedEcosystems() []Ecosystem {
	out := make([]Ecosystem, 0, len(r.Ecosystems))
	for _, tag := range Ecosystems {
		if _, ok := r.Ecosystems[tag]; ok {
			out = append(out, tag)
		}
	}
	return out
}

// Packages returns every package across every ecosystem, in ecosystem-tag
// order, satisfying I1 (no duplicate coordinates within one ecosystem is
// enforced by the scanners; this flattens for SBOM serialization).
func (r *UnifiedScanReport) Packages() []Package {
	var out []Package
	for _, tag := range r.OrderedEcosystems() {
		out = append(out, r.Ecosystems[tag].Packages...)
	}
	return out
}

// HasCoordinate reports whether pkg is present anywhere in the report,
// used to check the containment invariant I3/P6.
func (r *UnifiedScanReport) HasCoordinate(c Coordinate) bool {
	res, ok := r.Ecosystems[c.Ecosystem]
	if !ok {
		return false
	}
	for _, p := range res.Packages {
		if p.Coordinate == c {
			return true
		}
	}
	return false
}
