// Package npm implements the npm ecosystem scanner: package-lock.json (npm
// v1/v2/v3 shapes) and yarn.lock/pnpm-lock.yaml give the full dependency
// graph; a bare package.json yields direct dependencies only.
package npm

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cboyd0319/bazbom"
	"github.com/cboyd0319/bazbom/internal/licensecache"
)

const (
	packageLockJSON = "package-lock.json"
	yarnLock        = "yarn.lock"
	pnpmLockYAML    = "pnpm-lock.yaml"
	packageJSON     = "package.json"
)

// Scanner implements scanner.Scanner for npm.
type Scanner struct{}

// New returns an npm Scanner.
func New() *Scanner { return &Scanner{} }

func (*Scanner) Name() bazbom.Ecosystem { return bazbom.EcosystemNPM }

func (*Scanner) Detect(_ context.Context, root fs.FS) (bool, error) {
	for _, name := range []string{packageLockJSON, yarnLock, pnpmLockYAML, packageJSON} {
		if exists(root, name) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Scanner) Scan(ctx context.Context, root fs.FS, cache *licensecache.Cache) (bazbom.EcosystemScanResult, error) {
	res := bazbom.EcosystemScanResult{Ecosystem: bazbom.EcosystemNPM}

	present := presentLockfiles(root)
	switch {
	case len(present) == 0:
		if !exists(root, packageJSON) {
			return res, nil
		}
		pkgs, err := scanPackageJSON(root, cache)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("npm: %v", err))
			return res, nil
		}
		res.Packages = pkgs
		res.Evidence = append(res.Evidence, packageJSON)
		return res, nil
	case len(present) > 1:
		chosen, rest := mostRecentlyModified(root, present)
		for _, other := range rest {
			res.Warnings = append(res.Warnings, fmt.Sprintf("npm: multiple lockfiles present, using %q over %q", chosen, other))
		}
		present = []string{chosen}
	}

	lock := present[0]
	res.Evidence = append(res.Evidence, lock)
	var (
		pkgs []bazbom.Package
		err  error
	)
	switch lock {
	case packageLockJSON:
		pkgs, err = scanPackageLockJSON(root, cache)
	case pnpmLockYAML:
		pkgs, err = scanPnpmLockYAML(root, cache)
	case yarnLock:
		pkgs, err = scanYarnLock(root, cache)
	}
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("npm: %v", err))
		return res, nil
	}
	res.Packages = pkgs
	return res, nil
}

func presentLockfiles(root fs.FS) []string {
	var present []string
	for _, name := range []string{packageLockJSON, yarnLock, pnpmLockYAML} {
		if exists(root, name) {
			present = append(present, name)
		}
	}
	return present
}

func mostRecentlyModified(root fs.FS, names []string) (chosen string, rest []string) {
	var best fs.FileInfo
	for _, name := range names {
		fi, err := fs.Stat(root, name)
		if err != nil {
			continue
		}
		if best == nil || fi.ModTime().After(best.ModTime()) {
			if chosen != "" {
				rest = append(rest, chosen)
			}
			chosen, best = name, fi
		} else {
			rest = append(rest, name)
		}
	}
	return chosen, rest
}

func exists(root fs.FS, name string) bool {
	_, err := fs.Stat(root, name)
	return err == nil
}

// npmPackageLock models the subset of npm's lockfile v2/v3 shape ("packages"
// keyed by node_modules-relative path) as well as the v1 "dependencies" map.
type npmPackageLock struct {
	Packages     map[string]npmLockPackage `json:"packages"`
	Dependencies map[string]npmLockDep     `json:"dependencies"`
}

type npmLockPackage struct {
	Version  string `json:"version"`
	License  string `json:"license"`
	Resolved string `json:"resolved"`
	Dev      bool   `json:"dev"`
}

type npmLockDep struct {
	Version      string                `json:"version"`
	Dependencies map[string]npmLockDep `json:"dependencies"`
}

func scanPackageLockJSON(root fs.FS, cache *licensecache.Cache) ([]bazbom.Package, error) {
	data, err := fs.ReadFile(root, packageLockJSON)
	if err != nil {
		return nil, err
	}
	var lock npmPackageLock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", packageLockJSON, err)
	}

	var pkgs []bazbom.Package
	if len(lock.Packages) > 0 {
		for path, p := range lock.Packages {
			if path == "" {
				continue // the root project itself
			}
			name := nodeModulesName(path)
			pkgs = append(pkgs, buildPackage(cache, name, p.Version, p.License, isDirect(path), packageLockJSON))
		}
	} else {
		for name, d := range lock.Dependencies {
			pkgs = appendDepTree(pkgs, cache, name, d, true)
		}
	}
	sortPackages(pkgs)
	return pkgs, nil
}

func appendDepTree(pkgs []bazbom.Package, cache *licensecache.Cache, name string, d npmLockDep, direct bool) []bazbom.Package {
	pkgs = append(pkgs, buildPackage(cache, name, d.Version, "", direct, packageLockJSON))
	for cname, cd := range d.Dependencies {
		pkgs = appendDepTree(pkgs, cache, cname, cd, false)
	}
	return pkgs
}

// nodeModulesName extracts the package name from a lockfile v2/v3 path key
// like "node_modules/@scope/name" or "node_modules/a/node_modules/b".
func nodeModulesName(path string) string {
	const prefix = "node_modules/"
	i := lastIndex(path, prefix)
	if i < 0 {
		return path
	}
	return path[i+len(prefix):]
}

func lastIndex(s, substr string) int {
	last := -1
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			last = i
		}
	}
	return last
}

func isDirect(path string) bool {
	const prefix = "node_modules/"
	if len(path) < len(prefix) || path[:len(prefix)] != prefix {
		return false
	}
	rest := path[len(prefix):]
	return lastIndex(rest, "node_modules/") < 0
}

// pnpm lockfiles are YAML; we read the top-level "packages" map whose keys
// are "/name@version" or "/@scope/name@version".
type pnpmLock struct {
	Packages map[string]pnpmPackageEntry `yaml:"packages"`
}

type pnpmPackageEntry struct {
	Resolution map[string]interface{} `yaml:"resolution"`
}

func scanPnpmLockYAML(root fs.FS, cache *licensecache.Cache) ([]bazbom.Package, error) {
	data, err := fs.ReadFile(root, pnpmLockYAML)
	if err != nil {
		return nil, err
	}
	var lock pnpmLock
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pnpmLockYAML, err)
	}
	var pkgs []bazbom.Package
	for key := range lock.Packages {
		name, version, ok := splitPnpmKey(key)
		if !ok {
			continue
		}
		pkgs = append(pkgs, buildPackage(cache, name, version, "", false, pnpmLockYAML))
	}
	sortPackages(pkgs)
	return pkgs, nil
}

// splitPnpmKey splits a pnpm package map key ("/name@version" or
// "/@scope/name@version") into name and version.
func splitPnpmKey(key string) (name, version string, ok bool) {
	if len(key) == 0 || key[0] != '/' {
		return "", "", false
	}
	key = key[1:]
	i := lastIndex(key, "@")
	if i <= 0 {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}

// yarn.lock is a bespoke format, not YAML or JSON: blocks of the form
//
//	"name@range", "name@range2":
//	  version "1.2.3"
//
// We scan it with a small line-oriented parser rather than pull in a
// dedicated yarn.lock parser, since none appears anywhere in the retrieval
// pack.
func scanYarnLock(root fs.FS, cache *licensecache.Cache) ([]bazbom.Package, error) {
	data, err := fs.ReadFile(root, yarnLock)
	if err != nil {
		return nil, err
	}
	pkgs, err := parseYarnLock(string(data), cache)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", yarnLock, err)
	}
	sortPackages(pkgs)
	return pkgs, nil
}

// package.json fallback: direct dependencies only, no version resolution
// beyond the declared range string.
type packageJSONFile struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func scanPackageJSON(root fs.FS, cache *licensecache.Cache) ([]bazbom.Package, error) {
	data, err := fs.ReadFile(root, packageJSON)
	if err != nil {
		return nil, err
	}
	var pj packageJSONFile
	if err := json.Unmarshal(data, &pj); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", packageJSON, err)
	}
	var pkgs []bazbom.Package
	for name, version := range pj.Dependencies {
		pkgs = append(pkgs, buildPackage(cache, name, version, "", true, packageJSON))
	}
	sortPackages(pkgs)
	return pkgs, nil
}

func buildPackage(cache *licensecache.Cache, name, version, declaredLicense string, direct bool, manifest string) bazbom.Package {
	if version == "" {
		version = bazbom.UnknownVersion
	}
	coord := bazbom.Coordinate{Ecosystem: bazbom.EcosystemNPM, Name: name, Version: version}
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

// FetchLicense resolves the license for a single npm coordinate. declaredLicense
// input, if the caller already parsed one (e.g. a package-lock.json "license"
// field), should be carried on pkg.License before calling; otherwise an empty
// declaration is used and the cached/classified result reflects NoAssertion.
func (*Scanner) FetchLicense(ctx context.Context, pkg bazbom.Package, cache *licensecache.Cache) (bazbom.License, error) {
	declared := ""
	if pkg.License != nil {
		declared = pkg.License.SPDXID
	}
	return resolveLicense(ctx, cache, pkg.Coordinate, declared)
}

func sortPackages(pkgs []bazbom.Package) {
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Coordinate.Less(pkgs[j].Coordinate) })
}

// parseYarnLock scans a yarn.lock file line by line. Each entry block starts
// at column 0 with one or more comma-separated, quoted "name@range" keys and
// is followed by indented "version \"x.y.z\"" and other fields; we only need
// the first key (for the name) and the version line.
func parseYarnLock(data string, cache *licensecache.Cache) ([]bazbom.Package, error) {
	var pkgs []bazbom.Package
	var pendingName string

	for _, line := range strings.Split(data, "\n") {
		trimmed := strings.TrimRight(line, "\r")
		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, "#"):
			continue
		case !strings.HasPrefix(trimmed, " ") && !strings.HasPrefix(trimmed, "\t"):
			// A new entry header, e.g. `"@babel/core@^7.0.0", "@babel/core@^7.1.0":`
			if !strings.HasSuffix(trimmed, ":") {
				pendingName = ""
				continue
			}
			header := strings.TrimSuffix(trimmed, ":")
			first := strings.TrimSpace(strings.Split(header, ",")[0])
			first = strings.Trim(first, `"`)
			pendingName = yarnKeyName(first)
		case pendingName != "" && strings.Contains(trimmed, "version"):
			fields := strings.Fields(trimmed)
			if len(fields) != 2 || fields[0] != "version" {
				continue
			}
			version := strings.Trim(fields[1], `"`)
			pkgs = append(pkgs, buildPackage(cache, pendingName, version, "", false, yarnLock))
			pendingName = ""
		}
	}
	return pkgs, nil
}

// yarnKeyName strips the trailing "@range" from a yarn.lock entry key,
// taking care with scoped packages whose name itself starts with "@".
func yarnKeyName(key string) string {
	scoped := strings.HasPrefix(key, "@")
	if scoped {
		key = key[1:]
	}
	i := strings.LastIndex(key, "@")
	if i < 0 {
		if scoped {
			return "@" + key
		}
		return key
	}
	name := key[:i]
	if scoped {
		name = "@" + name
	}
	return name
}
