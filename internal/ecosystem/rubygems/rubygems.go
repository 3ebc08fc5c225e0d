// Package rubygems implements the RubyGems ecosystem scanner: Gemfile.lock's
// GEM specs section gives the fully resolved graph, including transitive
// gems; a bare Gemfile yields direct gems with their declared constraint.
package rubygems

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"github.com/cboyd0319/bazbom"
	"github.com/cboyd0319/bazbom/internal/licensecache"
)

const (
	gemfileLock = "Gemfile.lock"
	gemfile     = "Gemfile"
)

// Scanner implements scanner.Scanner for RubyGems.
type Scanner struct{}

// New returns a RubyGems Scanner.
func New() *Scanner { return &Scanner{} }

func (*Scanner) Name() bazbom.Ecosystem { return bazbom.EcosystemRubyGems }

func (*Scanner) Detect(_ context.Context, root fs.FS) (bool, error) {
	if _, err := fs.Stat(root, gemfileLock); err == nil {
		return true, nil
	}
	_, err := fs.Stat(root, gemfile)
	return err == nil, nil
}

func (s *Scanner) Scan(_ context.Context, root fs.FS, cache *licensecache.Cache) (bazbom.EcosystemScanResult, error) {
	res := bazbom.EcosystemScanResult{Ecosystem: bazbom.EcosystemRubyGems}

	if _, err := fs.Stat(root, gemfileLock); err == nil {
		res.Evidence = append(res.Evidence, gemfileLock)
		direct := directGemNames(root)
		pkgs, err := scanGemfileLock(root, cache, direct)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("rubygems: %v", err))
			return res, nil
		}
		res.Packages = pkgs
		return res, nil
	}

	if _, err := fs.Stat(root, gemfile); err == nil {
		res.Evidence = append(res.Evidence, gemfile)
		pkgs, err := scanGemfile(root, cache)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("rubygems: %v", err))
			return res, nil
		}
		res.Packages = pkgs
	}
	return res, nil
}

// specLineRE matches an indented GEM specs entry: "    rack (2.2.8)" or
// "    rails (7.0.8)" with an optional platform suffix.
var specLineRE = regexp.MustCompile(`^    ([A-Za-z0-9_.\-]+) \(([^)]+)\)`)

// gemfileGemRE matches a Gemfile `gem "name", "version"` declaration.
var gemfileGemRE = regexp.MustCompile(`^\s*gem\s+["']([A-Za-z0-9_.\-]+)["'](?:\s*,\s*["']([^"']+)["'])?`)

func scanGemfileLock(root fs.FS, cache *licensecache.Cache, direct map[string]bool) ([]bazbom.Package, error) {
	f, err := root.Open(gemfileLock)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pkgs []bazbom.Package
	inSpecs := false
	scan := bufio.NewScanner(f)
	for scan.Scan() {
		line := scan.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "specs:":
			inSpecs = true
			continue
		case trimmed == "" || (!strings.HasPrefix(line, " ") && trimmed != "specs:"):
			inSpecs = false
		}
		if !inSpecs {
			continue
		}
		m := specLineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name, version := m[1], m[2]
		pkgs = append(pkgs, buildPackage(cache, name, version, direct[name], gemfileLock))
	}
	if err := scan.Err(); err != nil {
		return nil, err
	}
	sortPackages(pkgs)
	return pkgs, nil
}

func directGemNames(root fs.FS) map[string]bool {
	names := map[string]bool{}
	f, err := root.Open(gemfile)
	if err != nil {
		return names
	}
	defer f.Close()
	scan := bufio.NewScanner(f)
	for scan.Scan() {
		if m := gemfileGemRE.FindStringSubmatch(scan.Text()); m != nil {
			names[m[1]] = true
		}
	}
	return names
}

func scanGemfile(root fs.FS, cache *licensecache.Cache) ([]bazbom.Package, error) {
	f, err := root.Open(gemfile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pkgs []bazbom.Package
	scan := bufio.NewScanner(f)
	for scan.Scan() {
		m := gemfileGemRE.FindStringSubmatch(scan.Text())
		if m == nil {
			continue
		}
		pkgs = append(pkgs, buildPackage(cache, m[1], m[2], true, gemfile))
	}
	if err := scan.Err(); err != nil {
		return nil, err
	}
	sortPackages(pkgs)
	return pkgs, nil
}

func buildPackage(cache *licensecache.Cache, name, version string, direct bool, manifest string) bazbom.Package {
	if version == "" {
		version = bazbom.UnknownVersion
	}
	coord := bazbom.Coordinate{Ecosystem: bazbom.EcosystemRubyGems, Name: name, Version: version}
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

// FetchLicense resolves the license for a single RubyGems coordinate, seeding
// the cache computation with pkg.License's SPDX ID when pkg carries one.
// Neither Gemfile nor Gemfile.lock as parsed here carries a declared
// license, so Scan itself always seeds with an empty declaration.
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
