// Package gomod implements the Go module ecosystem scanner: go.sum pins the
// exact module graph that go.mod's requirements resolved to; a bare go.mod
// yields the requirements it lists, with only those not marked
// "// indirect" flagged as direct.
package gomod

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"

	"github.com/cboyd0319/bazbom"
	"github.com/cboyd0319/bazbom/internal/licensecache"
)

const (
	goModFile = "go.mod"
	goSumFile = "go.sum"
)

// Scanner implements scanner.Scanner for Go modules.
type Scanner struct{}

// New returns a Go module Scanner.
func New() *Scanner { return &Scanner{} }

func (*Scanner) Name() bazbom.Ecosystem { return bazbom.EcosystemGo }

func (*Scanner) Detect(_ context.Context, root fs.FS) (bool, error) {
	_, err := fs.Stat(root, goModFile)
	return err == nil, nil
}

func (s *Scanner) Scan(_ context.Context, root fs.FS, cache *licensecache.Cache) (bazbom.EcosystemScanResult, error) {
	res := bazbom.EcosystemScanResult{Ecosystem: bazbom.EcosystemGo}

	modData, err := fs.ReadFile(root, goModFile)
	if err != nil {
		return res, nil
	}
	res.Evidence = append(res.Evidence, goModFile)

	mf, err := modfile.Parse(goModFile, modData, nil)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("gomod: parsing %s: %v", goModFile, err))
		return res, nil
	}

	direct := map[string]bool{}
	for _, req := range mf.Require {
		if !req.Indirect {
			direct[req.Mod.Path] = true
		}
	}

	sumData, err := fs.ReadFile(root, goSumFile)
	if err != nil {
		// No go.sum: fall back to go.mod's own requirement list, all direct
		// requirements having known versions and indirect ones too, just
		// without a second source confirming the resolved graph.
		var pkgs []bazbom.Package
		for _, req := range mf.Require {
			pkgs = append(pkgs, buildPackage(cache, req.Mod.Path, req.Mod.Version, !req.Indirect, goModFile))
		}
		sortPackages(pkgs)
		res.Packages = pkgs
		return res, nil
	}
	res.Evidence = append(res.Evidence, goSumFile)

	modules, err := parseGoSum(string(sumData))
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("gomod: parsing %s: %v", goSumFile, err))
		return res, nil
	}

	pkgs := make([]bazbom.Package, 0, len(modules))
	for _, m := range modules {
		pkgs = append(pkgs, buildPackage(cache, m.Path, m.Version, direct[m.Path], goSumFile))
	}
	sortPackages(pkgs)
	res.Packages = pkgs
	return res, nil
}

// parseGoSum extracts the set of distinct (module, version) pairs recorded
// in go.sum, skipping the "/go.mod" hash-only lines that don't represent a
// module actually built into the graph.
func parseGoSum(data string) ([]module.Version, error) {
	seen := map[string]bool{}
	var out []module.Version
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		path, version := fields[0], fields[1]
		if strings.HasSuffix(version, "/go.mod") {
			continue
		}
		key := path + "@" + version
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, module.Version{Path: path, Version: version})
	}
	return out, nil
}

func buildPackage(cache *licensecache.Cache, modPath, version string, direct bool, manifest string) bazbom.Package {
	if version == "" {
		version = bazbom.UnknownVersion
	}
	coord := bazbom.Coordinate{Ecosystem: bazbom.EcosystemGo, Name: modPath, Version: version}
	lic, err := resolveLicense(context.Background(), cache, coord, "")
	var licPtr *bazbom.License
	if err == nil {
		licPtr = &lic
	}
	return bazbom.Package{
		Coordinate:        coord,
		License:           licPtr,
		Direct:            direct,
		DeclaringManifest: manifest,
	}
}

// resolveLicense consults cache for coord's license, seeding the cache
// computation with declaredLicense when the entry isn't already present.
func resolveLicense(ctx context.Context, cache *licensecache.Cache, coord bazbom.Coordinate, declaredLicense string) (bazbom.License, error) {
	key := licensecache.Key{Ecosystem: coord.Ecosystem, Name: coord.Name, Version: coord.Version}
	lic, err := cache.GetOrInsert(ctx, key, func(context.Context) (*bazbom.License, error) {
		return bazbom.NewLicense(declaredLicense), nil
	})
	if err != nil {
		return bazbom.License{}, err
	}
	return *lic, nil
}

// FetchLicense resolves the license for a single Go module coordinate,
// seeding the cache computation with pkg.License's SPDX ID when pkg carries
// one. go.mod/go.sum carry no license metadata, so Scan itself always seeds
// with an empty declaration.
func (*Scanner) FetchLicense(ctx context.Context, pkg bazbom.Package, cache *licensecache.Cache) (bazbom.License, error) {
	declared := ""
	if pkg.License != nil {
		declared = pkg.License.SPDXID
	}
	return resolveLicense(ctx, cache, pkg.Coordinate, declared)
}

func sortPackages(pkgs []bazbom.Package) {
	for i := 1; i < len(pkgs); i++ {
		for j := i; j > 0 && pkgs[j].Coordinate.Less(pkgs[j-1].Coordinate); j-- {
			pkgs[j], pkgs[j-1] = pkgs[j-1], pkgs[j]
		}
	}
}
