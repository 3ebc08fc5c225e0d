package bazbom

import (
	"crypto/sha256"
	"fmt"
	"sort"
)

// ScanParameters identifies everything that determines a scan's output
// besides the live state of the filesystem: the root, the feature flags in
// effect, the tool's own version, and the content hash of every manifest
// file any scanner would consult (§3). It carries no per-ecosystem
// overrides. Two
// parameter sets are equal when all fields are equal; the Scan Cache key is
// derived from that equality.
type ScanParameters struct {
	Root            string            `json:"root"`
	FeatureFlags    map[string]bool   `json:"feature_flags"`
	ToolVersion     string            `json:"tool_version"`
	ManifestDigests map[string]Digest `json:"manifest_digests"` // path -> content digest
}

// Key derives the Scan Cache key: a SHA-256 over the canonical root path,
// every manifest digest (sorted by path for determinism), every feature
// flag (sorted by name), and the tool version (§4.5).
func (p ScanParameters) Key() Digest {
	h := sha256.New()
	fmt.Fprintf(h, "root:%s\ntool:%s\n", p.Root, p.ToolVersion)

	flagNames := make([]string, 0, len(p.FeatureFlags))
	for k := range p.FeatureFlags {
		flagNames = append(flagNames, k)
	}
	sort.Strings(flagNames)
	for _, k := range flagNames {
		fmt.Fprintf(h, "flag:%s=%t\n", k, p.FeatureFlags[k])
	}

	paths := make([]string, 0, len(p.ManifestDigests))
	for p := range p.ManifestDigests {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, path := range paths {
		fmt.Fprintf(h, "manifest:%s=%s\n", path, p.ManifestDigests[path])
	}

	d, err := NewDigest(SHA256, h.Sum(nil))
	if err != nil {
		panic(err)
	}
	return d
}

// CacheEntry records where a cached scan's artifacts live and what must
// still hold true for it to be valid (§3, I6).
type CacheEntry struct {
	ParametersHash  Digest            `json:"parameters_hash"`
	SBOMPath        string            `json:"sbom_path"`
	SARIFPath       string            `json:"sarif_path"`
	CreatedAt       int64             `json:"created_at"` // unix seconds, set by the caller at store time
	TTL             Duration          `json:"ttl"`        // the cache's TTL in effect when this entry was stored
	ManifestDigests map[string]Digest `json:"manifest_digests"`
}
