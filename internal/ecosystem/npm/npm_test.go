package npm

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/cboyd0319/bazbom"
	"github.com/cboyd0319/bazbom/internal/licensecache"
)

func TestDetectPackageLock(t *testing.T) {
	root := fstest.MapFS{
		"package-lock.json": {Data: []byte(`{}`)},
	}
	s := New()
	ok, err := s.Detect(context.Background(), root)
	require.NoError(t, err)
	require.True(t, ok, "expected detect to report true")
}

func TestScanPackageLockJSONv3(t *testing.T) {
	lock := `{
		"packages": {
			"": {"name": "root"},
			"node_modules/left-pad": {"version": "1.3.0", "license": "MIT"},
			"node_modules/left-pad/node_modules/nested": {"version": "2.0.0"}
		}
	}`
	root := fstest.MapFS{
		"package-lock.json": {Data: []byte(lock)},
	}
	s := New()
	res, err := s.Scan(context.Background(), root, licensecache.New())
	require.NoError(t, err)
	require.Len(t, res.Packages, 2)

	byName := map[string]bazbom.Package{}
	for _, p := range res.Packages {
		byName[p.Coordinate.Name] = p
	}
	lp, ok := byName["left-pad"]
	require.True(t, ok, "left-pad should be present")
	require.True(t, lp.Direct)
	require.Equal(t, "1.3.0", lp.Coordinate.Version)

	nested, ok := byName["nested"]
	require.True(t, ok, "nested should be present")
	require.False(t, nested.Direct, "nested dependency should not be direct")
}

func TestScanYarnLock(t *testing.T) {
	lock := "\"left-pad@^1.3.0\":\n  version \"1.3.0\"\n  resolved \"https://example/left-pad\"\n\n\"@scope/pkg@^2.0.0\":\n  version \"2.0.0\"\n"
	root := fstest.MapFS{
		"yarn.lock": {Data: []byte(lock)},
	}
	s := New()
	res, err := s.Scan(context.Background(), root, licensecache.New())
	require.NoError(t, err)
	require.Len(t, res.Packages, 2)
}

func TestScanMultipleLockfilesWarns(t *testing.T) {
	root := fstest.MapFS{
		"package-lock.json": {Data: []byte(`{"packages":{}}`)},
		"yarn.lock":          {Data: []byte("")},
	}
	s := New()
	res, err := s.Scan(context.Background(), root, licensecache.New())
	require.NoError(t, err)
	require.NotEmpty(t, res.Warnings, "expected a warning about multiple lockfiles")
}

func TestScanPackageJSONFallback(t *testing.T) {
	root := fstest.MapFS{
		"package.json": {Data: []byte(`{"dependencies": {"express": "^4.18.0"}}`)},
	}
	s := New()
	res, err := s.Scan(context.Background(), root, licensecache.New())
	require.NoError(t, err)
	require.Len(t, res.Packages, 1)
	require.Equal(t, "express", res.Packages[0].Coordinate.Name)
}
