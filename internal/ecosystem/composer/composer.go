// Package composer implements the PHP/Composer ecosystem scanner:
// composer.lock gives the fully resolved graph with licenses already
// recorded; a bare composer.json yields direct requirements only.
package composer

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"github.com/cboyd0319/bazbom"
	"github.com/cboyd0319/bazbom/internal/licensecache"
)

const (
	composerLock = "composer.lock"
	composerJSON = "composer.json"
)

// Scanner implements scanner.Scanner for Composer.
type Scanner struct{}

// New returns a Composer Scanner.
func New() *Scanner { return &Scanner{} }

func (*Scanner) Name() bazbom.Ecosystem { return bazbom.EcosystemComposer }

func (*Scanner) Detect(_ context.Context, root fs.FS) (bool, error) {
	if _, err := fs.Stat(root, composerLock); err == nil {
		return true, nil
	}
	_, err := fs.Stat(root, composerJSON)
	return err == nil, nil
}

func (s *Scanner) Scan(_ context.Context, root fs.FS, cache *licensecache.Cache) (bazbom.EcosystemScanResult, error) {
	res := bazbom.EcosystemScanResult{Ecosystem: bazbom.EcosystemComposer}

	if _, err := fs.Stat(root, composerLock); err == nil {
		res.Evidence = append(res.Evidence, composerLock)
		direct := directRequireNames(root)
		pkgs, err := scanComposerLock(root, cache, direct)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("composer: %v", err))
			return res, nil
		}
		res.Packages = pkgs
		return res, nil
	}

	if _, err := fs.Stat(root, composerJSON); err == nil {
		res.Evidence = append(res.Evidence, composerJSON)
		pkgs, err := scanComposerJSON(root, cache)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("composer: %v", err))
			return res, nil
		}
		res.Packages = pkgs
	}
	return res, nil
}

type composerLockFile struct {
	Packages    []composerPackage `json:"packages"`
	PackagesDev []composerPackage `json:"packages-dev"`
}

type composerPackage struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	License []string `json:"license"`
}

func scanComposerLock(root fs.FS, cache *licensecache.Cache, direct map[string]bool) ([]bazbom.Package, error) {
	data, err := fs.ReadFile(root, composerLock)
	if err != nil {
		return nil, err
	}
	var lock composerLockFile
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", composerLock, err)
	}

	all := append(append([]composerPackage{}, lock.Packages...), lock.PackagesDev...)
	pkgs := make([]bazbom.Package, 0, len(all))
	for _, p := range all {
		version := strings.TrimPrefix(p.Version, "v")
		var declared string
		if len(p.License) > 0 {
			declared = p.License[0]
		}
		pkgs = append(pkgs, buildPackage(cache, p.Name, version, declared, direct[p.Name], composerLock))
	}
	sortPackages(pkgs)
	return pkgs, nil
}

type composerManifest struct {
	Require    map[string]string `json:"require"`
	RequireDev map[string]string `json:"require-dev"`
}

func directRequireNames(root fs.FS) map[string]bool {
	names := map[string]bool{}
	data, err := fs.ReadFile(root, composerJSON)
	if err != nil {
		return names
	}
	var m composerManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return names
	}
	for name := range m.Require {
		names[name] = true
	}
	return names
}

func scanComposerJSON(root fs.FS, cache *licensecache.Cache) ([]bazbom.Package, error) {
	data, err := fs.ReadFile(root, composerJSON)
	if err != nil {
		return nil, err
	}
	var m composerManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", composerJSON, err)
	}
	var pkgs []bazbom.Package
	for name, version := range m.Require {
		if name == "php" || strings.HasPrefix(name, "ext-") {
			continue // platform requirements, not packages
		}
		pkgs = append(pkgs, buildPackage(cache, name, version, "", true, composerJSON))
	}
	sortPackages(pkgs)
	return pkgs, nil
}

func buildPackage(cache *licensecache.Cache, name, version, declaredLicense string, direct bool, manifest string) bazbom.Package {
	if version == "" {
		version = bazbom.UnknownVersion
	}
	coord := bazbom.Coordinate{Ecosystem: bazbom.EcosystemComposer, Name: name, Version: version}
	lic, err := resolveLicense(context.Background(), cache, coord, declaredLicense)
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

// FetchLicense resolves the license for a single Composer coordinate.
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
