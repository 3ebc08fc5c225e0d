package pypi

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/cboyd0319/bazbom/internal/licensecache"
)

func TestScanPoetryLock(t *testing.T) {
	lock := `
[[package]]
name = "requests"
version = "2.31.0"
license = "Apache-2.0"
category = "main"

[[package]]
name = "pytest"
version = "7.4.0"
category = "dev"
`
	root := fstest.MapFS{poetryLock: {Data: []byte(lock)}}
	s := New()
	res, err := s.Scan(context.Background(), root, licensecache.New())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Packages) != 2 {
		t.Fatalf("got %d packages, want 2", len(res.Packages))
	}
	if res.Packages[1].Coordinate.Name != "requests" {
		t.Fatalf("expected sort by name, got %+v", res.Packages)
	}
}

func TestScanRequirementsTXT(t *testing.T) {
	root := fstest.MapFS{
		requirementsTX: {Data: []byte("Flask==2.3.0\n# a comment\nrequests>=2.0,<3\n")},
	}
	s := New()
	res, err := s.Scan(context.Background(), root, licensecache.New())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Packages) != 2 {
		t.Fatalf("got %d packages, want 2", len(res.Packages))
	}
}

func TestNormalizeName(t *testing.T) {
	if got := normalizeName("Foo_Bar.Baz"); got != "foo-bar-baz" {
		t.Errorf("normalizeName() = %q, want foo-bar-baz", got)
	}
}
