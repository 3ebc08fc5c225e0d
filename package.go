package bazbom

// Package is a Coordinate plus the provenance a scanner gathered about it.
// It is owned by the scan that produced it and is immutable once returned
// (§3).
type Package struct {
	Coordinate Coordinate `json:"coordinate"`
	License    *License   `json:"license,omitempty"`
	Homepage   string     `json:"homepage,omitempty"`
	SourceRepo string     `json:"source_repo,omitempty"`
	// SHA256 is the digest of the resolved artifact, when the manifest or
	// lockfile records one (e.g. npm's "integrity" field, Cargo.lock
	// checksums).
	SHA256 Digest `json:"sha256,omitempty"`
	// Direct is true when the package is declared directly by the
	// project's manifest rather than pulled in transitively.
	Direct bool `json:"direct"`
	// DeclaringManifest is the path, relative to the scanned root, of the
	// manifest or lockfile that introduced this package.
	DeclaringManifest string `json:"declaring_manifest"`
}

// Kind classifies a scan's provenance depth, mirroring the "what was
// consulted" distinction the scanner table in §4.1 draws between lockfiles
// and bare manifests.
type Kind string

const (
	KindLockfile Kind = "lockfile"
	KindManifest Kind = "manifest"
)
