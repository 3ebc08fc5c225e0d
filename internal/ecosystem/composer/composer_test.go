package composer

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/cboyd0319/bazbom/internal/licensecache"
)

func TestScanComposerLock(t *testing.T) {
	lock := `{
		"packages": [
			{"name": "monolog/monolog", "version": "v2.9.1", "license": ["MIT"]}
		],
		"packages-dev": [
			{"name": "phpunit/phpunit", "version": "9.6.13", "license": ["BSD-3-Clause"]}
		]
	}`
	manifest := `{"require": {"monolog/monolog": "^2.9", "php": ">=8.1"}}`
	root := fstest.MapFS{
		composerLock: {Data: []byte(lock)},
		composerJSON: {Data: []byte(manifest)},
	}
	s := New()
	res, err := s.Scan(context.Background(), root, licensecache.New())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Packages) != 2 {
		t.Fatalf("got %d packages, want 2", len(res.Packages))
	}
	for _, p := range res.Packages {
		if p.Coordinate.Name == "monolog/monolog" {
			if p.Coordinate.Version != "2.9.1" {
				t.Errorf("expected v-prefix stripped, got %q", p.Coordinate.Version)
			}
			if !p.Direct {
				t.Error("monolog should be direct")
			}
		}
		if p.Coordinate.Name == "phpunit/phpunit" && p.Direct {
			t.Error("phpunit should not be direct")
		}
	}
}

func TestScanComposerJSONFallbackSkipsPlatform(t *testing.T) {
	manifest := `{"require": {"php": ">=8.1", "ext-json": "*", "guzzlehttp/guzzle": "^7.0"}}`
	root := fstest.MapFS{composerJSON: {Data: []byte(manifest)}}
	s := New()
	res, err := s.Scan(context.Background(), root, licensecache.New())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Packages) != 1 || res.Packages[0].Coordinate.Name != "guzzlehttp/guzzle" {
		t.Fatalf("unexpected result: %+v", res.Packages)
	}
}
