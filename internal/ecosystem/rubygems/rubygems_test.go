package rubygems

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/cboyd0319/bazbom/internal/licensecache"
)

func TestScanGemfileLock(t *testing.T) {
	lock := `GEM
  remote: https://rubygems.org/
  specs:
    actionpack (7.0.8)
      rack (~> 2.0)
    rack (2.2.8)
    rails (7.0.8)
      actionpack (= 7.0.8)

PLATFORMS
  ruby

DEPENDENCIES
  rails

BUNDLED WITH
   2.4.10
`
	gemfile := `source "https://rubygems.org"

gem "rails", "7.0.8"
`
	root := fstest.MapFS{
		gemfileLock: {Data: []byte(lock)},
		"Gemfile":   {Data: []byte(gemfile)},
	}
	s := New()
	res, err := s.Scan(context.Background(), root, licensecache.New())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Packages) != 3 {
		t.Fatalf("got %d packages, want 3: %+v", len(res.Packages), res.Packages)
	}
	for _, p := range res.Packages {
		if p.Coordinate.Name == "rails" && !p.Direct {
			t.Error("rails should be direct")
		}
		if p.Coordinate.Name == "rack" && p.Direct {
			t.Error("rack should be transitive")
		}
	}
}
