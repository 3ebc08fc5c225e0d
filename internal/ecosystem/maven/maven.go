// Package maven implements the Maven ecosystem scanner: pom.xml declares
// direct dependencies, plus dependencyManagement entries that pin versions
// for a multi-module build. Transitive resolution requires walking the full
// remote repository metadata, out of scope for a build-time scan; this
// scanner reports the direct graph a pom.xml declares.
package maven

import (
	"context"
	"encoding/xml"
	"fmt"
	"io/fs"

	"github.com/cboyd0319/bazbom"
	"github.com/cboyd0319/bazbom/internal/ecosystem/gradle"
	"github.com/cboyd0319/bazbom/internal/licensecache"
)

const pomXML = "pom.xml"

// Scanner implements scanner.Scanner for Maven, the coordinate space Gradle
// projects publish into as well: when no pom.xml is present, Scan falls
// back to internal/ecosystem/gradle's build-file scan.
type Scanner struct{}

// New returns a Maven Scanner.
func New() *Scanner { return &Scanner{} }

func (*Scanner) Name() bazbom.Ecosystem { return bazbom.EcosystemMaven }

func (*Scanner) Detect(_ context.Context, root fs.FS) (bool, error) {
	if _, err := fs.Stat(root, pomXML); err == nil {
		return true, nil
	}
	return gradle.Present(root), nil
}

func (s *Scanner) Scan(_ context.Context, root fs.FS, cache *licensecache.Cache) (bazbom.EcosystemScanResult, error) {
	res := bazbom.EcosystemScanResult{Ecosystem: bazbom.EcosystemMaven}

	data, err := fs.ReadFile(root, pomXML)
	if err != nil {
		pkgs, evidence, gerr := gradle.Scan(root, cache)
		if gerr != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("maven: gradle fallback: %v", gerr))
			return res, nil
		}
		res.Packages = pkgs
		res.Evidence = evidence
		return res, nil
	}
	res.Evidence = append(res.Evidence, pomXML)

	var pom pomProject
	if err := xml.Unmarshal(data, &pom); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("maven: parsing %s: %v", pomXML, err))
		return res, nil
	}

	props := pomProperties(pom)
	var pkgs []bazbom.Package
	for _, d := range pom.Dependencies.Dependency {
		if d.GroupID == "" || d.ArtifactID == "" {
			continue
		}
		coordName := d.GroupID + ":" + d.ArtifactID
		version := resolveProperty(d.Version, props)
		if version == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("maven: %s has no pinned version (managed elsewhere), recording as %s", coordName, bazbom.UnknownVersion))
		}
		declared := ""
		if len(pom.Licenses.License) > 0 {
			declared = pom.Licenses.License[0].Name
		}
		pkgs = append(pkgs, buildPackage(cache, coordName, version, declared, true, pomXML))
	}
	sortPackages(pkgs)
	res.Packages = pkgs
	return res, nil
}

type pomProject struct {
	XMLName      xml.Name    `xml:"project"`
	Properties   pomProps    `xml:"properties"`
	Dependencies pomDeps     `xml:"dependencies"`
	Licenses     pomLicenses `xml:"licenses"`
}

type pomProps struct {
	Entries []pomProp `xml:",any"`
}

type pomProp struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type pomDeps struct {
	Dependency []pomDependency `xml:"dependency"`
}

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Scope      string `xml:"scope"`
}

type pomLicenses struct {
	License []pomLicense `xml:"license"`
}

type pomLicense struct {
	Name string `xml:"name"`
}

func pomProperties(pom pomProject) map[string]string {
	props := make(map[string]string, len(pom.Properties.Entries))
	for _, e := range pom.Properties.Entries {
		props[e.XMLName.Local] = e.Value
	}
	return props
}

// resolveProperty substitutes a "${name}" reference against the pom's own
// <properties> block. References to parent POM or external BOM properties
// are left unresolved, since that requires a full reactor build.
func resolveProperty(version string, props map[string]string) string {
	if len(version) > 3 && version[0] == '$' && version[1] == '{' && version[len(version)-1] == '}' {
		name := version[2 : len(version)-1]
		if v, ok := props[name]; ok {
			return v
		}
		return ""
	}
	return version
}

func buildPackage(cache *licensecache.Cache, name, version, declaredLicense string, direct bool, manifest string) bazbom.Package {
	if version == "" {
		version = bazbom.UnknownVersion
	}
	coord := bazbom.Coordinate{Ecosystem: bazbom.EcosystemMaven, Name: name, Version: version}
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

// FetchLicense resolves the license for a single Maven (or Gradle, which
// publishes into the same coordinate space) coordinate.
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
