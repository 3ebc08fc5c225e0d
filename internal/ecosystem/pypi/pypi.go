// Package pypi implements the PyPI ecosystem scanner: poetry.lock and
// Pipfile.lock give a fully pinned graph; requirements.txt gives a flat,
// usually-pinned list; a bare pyproject.toml yields direct dependencies with
// whatever version constraint the project declared.
package pypi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/cboyd0319/bazbom"
	"github.com/cboyd0319/bazbom/internal/licensecache"
)

const (
	poetryLock     = "poetry.lock"
	pipfileLock    = "Pipfile.lock"
	requirementsTX = "requirements.txt"
	pyprojectTOML  = "pyproject.toml"
)

// Scanner implements scanner.Scanner for PyPI.
type Scanner struct{}

// New returns a PyPI Scanner.
func New() *Scanner { return &Scanner{} }

func (*Scanner) Name() bazbom.Ecosystem { return bazbom.EcosystemPyPI }

func (*Scanner) Detect(_ context.Context, root fs.FS) (bool, error) {
	for _, name := range []string{poetryLock, pipfileLock, requirementsTX, pyprojectTOML} {
		if exists(root, name) {
			return true, nil
		}
	}
	return false, nil
}

func exists(root fs.FS, name string) bool {
	_, err := fs.Stat(root, name)
	return err == nil
}

func (s *Scanner) Scan(_ context.Context, root fs.FS, cache *licensecache.Cache) (bazbom.EcosystemScanResult, error) {
	res := bazbom.EcosystemScanResult{Ecosystem: bazbom.EcosystemPyPI}

	var present []string
	for _, name := range []string{poetryLock, pipfileLock} {
		if exists(root, name) {
			present = append(present, name)
		}
	}

	switch {
	case len(present) > 1:
		chosen, rest := mostRecentlyModified(root, present)
		for _, other := range rest {
			res.Warnings = append(res.Warnings, fmt.Sprintf("pypi: multiple lockfiles present, using %q over %q", chosen, other))
		}
		present = []string{chosen}
	}

	if len(present) == 1 {
		res.Evidence = append(res.Evidence, present[0])
		var (
			pkgs []bazbom.Package
			err  error
		)
		switch present[0] {
		case poetryLock:
			pkgs, err = scanPoetryLock(root, cache)
		case pipfileLock:
			pkgs, err = scanPipfileLock(root, cache)
		}
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("pypi: %v", err))
			return res, nil
		}
		res.Packages = pkgs
		return res, nil
	}

	if exists(root, requirementsTX) {
		res.Evidence = append(res.Evidence, requirementsTX)
		pkgs, err := scanRequirementsTXT(root, cache)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("pypi: %v", err))
			return res, nil
		}
		res.Packages = pkgs
		return res, nil
	}

	if exists(root, pyprojectTOML) {
		res.Evidence = append(res.Evidence, pyprojectTOML)
		pkgs, err := scanPyprojectTOML(root, cache)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("pypi: %v", err))
			return res, nil
		}
		res.Packages = pkgs
	}
	return res, nil
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

// poetry.lock is TOML with repeated [[package]] tables.
type poetryLockFile struct {
	Package []poetryPackage `toml:"package"`
}

type poetryPackage struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	License string `toml:"license"`
	Category string `toml:"category"`
}

func scanPoetryLock(root fs.FS, cache *licensecache.Cache) ([]bazbom.Package, error) {
	data, err := fs.ReadFile(root, poetryLock)
	if err != nil {
		return nil, err
	}
	var lock poetryLockFile
	if _, err := toml.Decode(string(data), &lock); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", poetryLock, err)
	}
	pkgs := make([]bazbom.Package, 0, len(lock.Package))
	for _, p := range lock.Package {
		pkgs = append(pkgs, buildPackage(cache, p.Name, p.Version, p.License, p.Category != "dev", poetryLock))
	}
	sortPackages(pkgs)
	return pkgs, nil
}

// Pipfile.lock is JSON with "default" and "develop" sections, each mapping
// name to a record carrying a "version" field like "==1.2.3".
type pipfileLockFile struct {
	Default map[string]pipfileEntry `json:"default"`
	Develop map[string]pipfileEntry `json:"develop"`
}

type pipfileEntry struct {
	Version string `json:"version"`
}

func scanPipfileLock(root fs.FS, cache *licensecache.Cache) ([]bazbom.Package, error) {
	data, err := fs.ReadFile(root, pipfileLock)
	if err != nil {
		return nil, err
	}
	var lock pipfileLockFile
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pipfileLock, err)
	}
	var pkgs []bazbom.Package
	for name, e := range lock.Default {
		pkgs = append(pkgs, buildPackage(cache, name, strings.TrimPrefix(e.Version, "=="), "", true, pipfileLock))
	}
	for name, e := range lock.Develop {
		pkgs = append(pkgs, buildPackage(cache, name, strings.TrimPrefix(e.Version, "=="), "", false, pipfileLock))
	}
	sortPackages(pkgs)
	return pkgs, nil
}

// requirements.txt: one "name==version" (or bare "name") per line; comments
// and -r/--hash/-e options are skipped rather than resolved.
func scanRequirementsTXT(root fs.FS, cache *licensecache.Cache) ([]bazbom.Package, error) {
	f, err := root.Open(requirementsTX)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pkgs []bazbom.Package
	scan := bufio.NewScanner(f)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if i := strings.Index(line, "#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		name, version := splitRequirement(line)
		if name == "" {
			continue
		}
		pkgs = append(pkgs, buildPackage(cache, name, version, "", true, requirementsTX))
	}
	if err := scan.Err(); err != nil {
		return nil, err
	}
	sortPackages(pkgs)
	return pkgs, nil
}

func splitRequirement(line string) (name, version string) {
	for _, op := range []string{"===", "==", "~=", ">=", "<=", "!=", ">", "<"} {
		if i := strings.Index(line, op); i >= 0 {
			return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+len(op):])
		}
	}
	return strings.TrimSpace(line), ""
}

// pyproject.toml fallback: PEP 621 [project.dependencies] array of
// requirement strings, direct only.
type pyprojectFile struct {
	Project struct {
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
}

func scanPyprojectTOML(root fs.FS, cache *licensecache.Cache) ([]bazbom.Package, error) {
	data, err := fs.ReadFile(root, pyprojectTOML)
	if err != nil {
		return nil, err
	}
	var pf pyprojectFile
	if _, err := toml.Decode(string(data), &pf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pyprojectTOML, err)
	}
	var pkgs []bazbom.Package
	for _, dep := range pf.Project.Dependencies {
		name, version := splitRequirement(dep)
		pkgs = append(pkgs, buildPackage(cache, name, version, "", true, pyprojectTOML))
	}
	sortPackages(pkgs)
	return pkgs, nil
}

func buildPackage(cache *licensecache.Cache, name, version, declaredLicense string, direct bool, manifest string) bazbom.Package {
	name = normalizeName(name)
	if version == "" {
		version = bazbom.UnknownVersion
	}
	coord := bazbom.Coordinate{Ecosystem: bazbom.EcosystemPyPI, Name: name, Version: version}
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

// FetchLicense resolves the license for a single PyPI coordinate, normalizing
// name per PEP 503 so it hits the same cache key Scan would have used.
func (*Scanner) FetchLicense(ctx context.Context, pkg bazbom.Package, cache *licensecache.Cache) (bazbom.License, error) {
	declared := ""
	if pkg.License != nil {
		declared = pkg.License.SPDXID
	}
	coord := pkg.Coordinate
	coord.Name = normalizeName(coord.Name)
	return resolveLicense(ctx, cache, coord, declared)
}

// normalizeName applies PEP 503 name normalization so the same distribution
// isn't duplicated under "Foo-Bar" and "foo_bar".
func normalizeName(name string) string {
	name = strings.ToLower(name)
	var b strings.Builder
	lastDash := false
	for _, r := range name {
		if r == '-' || r == '_' || r == '.' {
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
			continue
		}
		b.WriteRune(r)
		lastDash = false
	}
	return b.String()
}

func sortPackages(pkgs []bazbom.Package) {
	for i := 1; i < len(pkgs); i++ {
		for j := i; j > 0 && pkgs[j].Coordinate.Less(pkgs[j-1].Coordinate); j-- {
			pkgs[j], pkgs[j-1] = pkgs[j-1], pkgs[j]
		}
	}
}
