package bazbom

import "testing"

func TestScanParametersKeyStable(t *testing.T) {
	p := ScanParameters{
		Root:        "/ws",
		ToolVersion: "1.0.0",
		FeatureFlags: map[string]bool{
			"reachability": true,
			"vulnerabilities": true,
		},
		ManifestDigests: map[string]Digest{
			"package.json": SumBytes([]byte("{}")),
			"go.sum":       SumBytes([]byte("module a")),
		},
	}
	a := p.Key()
	b := p.Key()
	if a.String() != b.String() {
		t.Error("expected Key() to be deterministic for identical ScanParameters")
	}
}

func TestScanParametersKeyChangesWithManifest(t *testing.T) {
	base := ScanParameters{
		Root:        "/ws",
		ToolVersion: "1.0.0",
		ManifestDigests: map[string]Digest{
			"package.json": SumBytes([]byte(`{"a":1}`)),
		},
	}
	changed := base
	changed.ManifestDigests = map[string]Digest{
		"package.json": SumBytes([]byte(`{"a":2}`)),
	}
	if base.Key().String() == changed.Key().String() {
		t.Error("expected a one-byte manifest change to change the cache key")
	}
}
