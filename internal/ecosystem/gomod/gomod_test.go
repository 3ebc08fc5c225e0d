package gomod

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/cboyd0319/bazbom/internal/licensecache"
)

func TestScanWithGoSum(t *testing.T) {
	gomod := `module example.com/thing

go 1.22

require (
	github.com/pkg/errors v0.9.1
	golang.org/x/mod v0.33.0 // indirect
)
`
	gosum := `github.com/pkg/errors v0.9.1 h1:abc=
github.com/pkg/errors v0.9.1/go.mod h1:def=
golang.org/x/mod v0.33.0 h1:ghi=
golang.org/x/mod v0.33.0/go.mod h1:jkl=
`
	root := fstest.MapFS{
		goModFile: {Data: []byte(gomod)},
		goSumFile: {Data: []byte(gosum)},
	}
	s := New()
	res, err := s.Scan(context.Background(), root, licensecache.New())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Packages) != 2 {
		t.Fatalf("got %d packages, want 2: %+v", len(res.Packages), res.Packages)
	}
	for _, p := range res.Packages {
		switch p.Coordinate.Name {
		case "github.com/pkg/errors":
			if !p.Direct {
				t.Error("errors should be direct")
			}
		case "golang.org/x/mod":
			if p.Direct {
				t.Error("x/mod should be indirect")
			}
		}
	}
}

func TestScanWithoutGoSum(t *testing.T) {
	gomod := `module example.com/thing

go 1.22

require github.com/pkg/errors v0.9.1
`
	root := fstest.MapFS{goModFile: {Data: []byte(gomod)}}
	s := New()
	res, err := s.Scan(context.Background(), root, licensecache.New())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Packages) != 1 {
		t.Fatalf("got %d packages, want 1", len(res.Packages))
	}
}
