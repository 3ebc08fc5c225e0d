// Package cargo implements the Rust/Cargo ecosystem scanner: Cargo.lock
// gives the fully resolved graph; a bare Cargo.toml yields direct
// dependencies with their declared version requirement.
package cargo

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/BurntSushi/toml"

	"github.com/cboyd0319/bazbom"
	"github.com/cboyd0319/bazbom/internal/licensecache"
)

const (
	cargoLock = "Cargo.lock"
	cargoTOML = "Cargo.toml"
)

// Scanner implements scanner.Scanner for Cargo.
type Scanner struct{}

// New returns a Cargo Scanner.
func New() *Scanner { return &Scanner{} }

func (*Scanner) Name() bazbom.Ecosystem { return bazbom.EcosystemCargo }

func (*Scanner) Detect(_ context.Context, root fs.FS) (bool, error) {
	_, err := fs.Stat(root, cargoLock)
	if err == nil {
		return true, nil
	}
	_, err = fs.Stat(root, cargoTOML)
	return err == nil, nil
}

func (s *Scanner) Scan(_ context.Context, root fs.FS, cache *licensecache.Cache) (bazbom.EcosystemScanResult, error) {
	res := bazbom.EcosystemScanResult{Ecosystem: bazbom.EcosystemCargo}

	if _, err := fs.Stat(root, cargoLock); err == nil {
		res.Evidence = append(res.Evidence, cargoLock)
		pkgs, err := scanCargoLock(root, cache)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("cargo: %v", err))
			return res, nil
		}
		res.Packages = pkgs
		return res, nil
	}

	if _, err := fs.Stat(root, cargoTOML); err == nil {
		res.Evidence = append(res.Evidence, cargoTOML)
		pkgs, err := scanCargoTOML(root, cache)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("cargo: %v", err))
			return res, nil
		}
		res.Packages = pkgs
	}
	return res, nil
}

// lockFile is Cargo.lock's TOML shape: a flat list of [[package]] tables,
// each possibly listing its own dependencies as "name version" or bare
// "name" strings disambiguated elsewhere in the lockfile.
type lockFile struct {
	Package []lockPackage `toml:"package"`
}

type lockPackage struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Source       string   `toml:"source"`
	Dependencies []string `toml:"dependencies"`
}

func scanCargoLock(root fs.FS, cache *licensecache.Cache) ([]bazbom.Package, error) {
	data, err := fs.ReadFile(root, cargoLock)
	if err != nil {
		return nil, err
	}
	var lock lockFile
	if _, err := toml.Decode(string(data), &lock); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", cargoLock, err)
	}

	directNames := directDependencyNames(root)
	pkgs := make([]bazbom.Package, 0, len(lock.Package))
	for _, p := range lock.Package {
		pkgs = append(pkgs, buildPackage(cache, p.Name, p.Version, directNames[p.Name], cargoLock))
	}
	sortPackages(pkgs)
	return pkgs, nil
}

// directDependencyNames best-effort reads Cargo.toml alongside Cargo.lock to
// mark which locked packages are direct dependencies; absence of a
// Cargo.toml just means nothing is marked direct.
func directDependencyNames(root fs.FS) map[string]bool {
	names := map[string]bool{}
	data, err := fs.ReadFile(root, cargoTOML)
	if err != nil {
		return names
	}
	var manifest cargoManifest
	if _, err := toml.Decode(string(data), &manifest); err != nil {
		return names
	}
	for name := range manifest.Dependencies {
		names[name] = true
	}
	return names
}

type cargoManifest struct {
	Dependencies map[string]interface{} `toml:"dependencies"`
}

func scanCargoTOML(root fs.FS, cache *licensecache.Cache) ([]bazbom.Package, error) {
	data, err := fs.ReadFile(root, cargoTOML)
	if err != nil {
		return nil, err
	}
	var manifest cargoManifest
	if _, err := toml.Decode(string(data), &manifest); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", cargoTOML, err)
	}
	var pkgs []bazbom.Package
	for name, raw := range manifest.Dependencies {
		version := dependencyVersion(raw)
		pkgs = append(pkgs, buildPackage(cache, name, version, true, cargoTOML))
	}
	sortPackages(pkgs)
	return pkgs, nil
}

// dependencyVersion extracts a version requirement string from a Cargo.toml
// dependency value, which may be a bare string ("1.2") or an inline table
// ({ version = "1.2", features = [...] }).
func dependencyVersion(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case map[string]interface{}:
		if s, ok := v["version"].(string); ok {
			return s
		}
	}
	return ""
}

func buildPackage(cache *licensecache.Cache, name, version string, direct bool, manifest string) bazbom.Package {
	if version == "" {
		version = bazbom.UnknownVersion
	}
	coord := bazbom.Coordinate{Ecosystem: bazbom.EcosystemCargo, Name: name, Version: version}
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

// FetchLicense resolves the license for a single Cargo coordinate, seeding
// the cache computation with pkg.License's SPDX ID when pkg carries one.
// Cargo.toml's own "license" field isn't parsed by Scan, so Scan itself
// always seeds with an empty declaration; a prior Scan that already cached
// coord's entry short-circuits the seed.
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
