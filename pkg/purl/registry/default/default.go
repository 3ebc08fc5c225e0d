// Package defaults wires up a purl.Registry pre-registered with a
// generator and parser for each of BazBOM's eight ecosystems.
package defaults

import (
	"fmt"
	"strings"

	"github.com/package-url/packageurl-go"

	"github.com/cboyd0319/bazbom"
	"github.com/cboyd0319/bazbom/pkg/purl"
)

// New constructs a registry pre-registered with every built-in ecosystem.
func New() *purl.Registry {
	r := purl.NewRegistry()
	r.Register(bazbom.EcosystemMaven, packageurl.TypeMaven, generateMaven, parseMaven)
	r.Register(bazbom.EcosystemNPM, packageurl.TypeNPM, generateNPM, parseNPM)
	r.Register(bazbom.EcosystemPyPI, packageurl.TypePyPi, generatePyPI, parsePyPI)
	r.Register(bazbom.EcosystemCargo, packageurl.TypeCargo, generateCargo, parseCargo)
	r.Register(bazbom.EcosystemGo, packageurl.TypeGolang, generateGo, parseGo)
	r.Register(bazbom.EcosystemRubyGems, packageurl.TypeGem, generateRubyGems, parseRubyGems)
	r.Register(bazbom.EcosystemComposer, packageurl.TypeComposer, generateComposer, parseComposer)
	r.Register(bazbom.EcosystemGeneric, packageurl.TypeGeneric, generateGeneric, parseGeneric)
	return r
}

// Maven PURLs carry the groupId as namespace and the artifactId as name
// (packageurl-go type "maven"): pkg:maven/groupId/artifactId@version.
func generateMaven(c bazbom.Coordinate) (packageurl.PackageURL, error) {
	ns, name := splitLast(c.Name, ":")
	if ns == "" {
		return packageurl.PackageURL{}, fmt.Errorf("purl: maven coordinate %q missing groupId:artifactId separator", c.Name)
	}
	return packageurl.PackageURL{Type: packageurl.TypeMaven, Namespace: ns, Name: name, Version: c.Version}, nil
}

func parseMaven(p packageurl.PackageURL) (bazbom.Coordinate, error) {
	return bazbom.Coordinate{Ecosystem: bazbom.EcosystemMaven, Name: p.Namespace + ":" + p.Name, Version: p.Version}, nil
}

// npm PURLs lowercase the name and place a scope (if any) in the namespace:
// pkg:npm/%40scope/name@version.
func generateNPM(c bazbom.Coordinate) (packageurl.PackageURL, error) {
	if strings.HasPrefix(c.Name, "@") {
		ns, name := splitLast(strings.TrimPrefix(c.Name, "@"), "/")
		return packageurl.PackageURL{Type: packageurl.TypeNPM, Namespace: "@" + ns, Name: strings.ToLower(name), Version: c.Version}, nil
	}
	return packageurl.PackageURL{Type: packageurl.TypeNPM, Name: strings.ToLower(c.Name), Version: c.Version}, nil
}

func parseNPM(p packageurl.PackageURL) (bazbom.Coordinate, error) {
	name := p.Name
	if p.Namespace != "" {
		name = p.Namespace + "/" + p.Name
	}
	return bazbom.Coordinate{Ecosystem: bazbom.EcosystemNPM, Name: name, Version: p.Version}, nil
}

// PyPI PURLs normalize the name per PEP 503: lowercase, runs of
// -._ collapsed to a single dash.
func generatePyPI(c bazbom.Coordinate) (packageurl.PackageURL, error) {
	return packageurl.PackageURL{Type: packageurl.TypePyPi, Name: normalizePyPIName(c.Name), Version: c.Version}, nil
}

func parsePyPI(p packageurl.PackageURL) (bazbom.Coordinate, error) {
	return bazbom.Coordinate{Ecosystem: bazbom.EcosystemPyPI, Name: p.Name, Version: p.Version}, nil
}

func normalizePyPIName(name string) string {
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

func generateCargo(c bazbom.Coordinate) (packageurl.PackageURL, error) {
	return packageurl.PackageURL{Type: packageurl.TypeCargo, Name: c.Name, Version: c.Version}, nil
}

func parseCargo(p packageurl.PackageURL) (bazbom.Coordinate, error) {
	return bazbom.Coordinate{Ecosystem: bazbom.EcosystemCargo, Name: p.Name, Version: p.Version}, nil
}

// Go module PURLs put everything but the final path segment in the
// namespace: pkg:golang/github.com/pkg/errors@v0.9.1 becomes
// namespace="github.com/pkg", name="errors".
func generateGo(c bazbom.Coordinate) (packageurl.PackageURL, error) {
	ns, name := splitLast(c.Name, "/")
	return packageurl.PackageURL{Type: packageurl.TypeGolang, Namespace: ns, Name: name, Version: c.Version}, nil
}

func parseGo(p packageurl.PackageURL) (bazbom.Coordinate, error) {
	name := p.Name
	if p.Namespace != "" {
		name = p.Namespace + "/" + p.Name
	}
	return bazbom.Coordinate{Ecosystem: bazbom.EcosystemGo, Name: name, Version: p.Version}, nil
}

func generateRubyGems(c bazbom.Coordinate) (packageurl.PackageURL, error) {
	return packageurl.PackageURL{Type: packageurl.TypeGem, Name: c.Name, Version: c.Version}, nil
}

func parseRubyGems(p packageurl.PackageURL) (bazbom.Coordinate, error) {
	return bazbom.Coordinate{Ecosystem: bazbom.EcosystemRubyGems, Name: p.Name, Version: p.Version}, nil
}

// Composer PURLs carry the vendor as namespace: pkg:composer/vendor/name@version.
func generateComposer(c bazbom.Coordinate) (packageurl.PackageURL, error) {
	ns, name := splitLast(c.Name, "/")
	if ns == "" {
		return packageurl.PackageURL{}, fmt.Errorf("purl: composer coordinate %q missing vendor/name separator", c.Name)
	}
	return packageurl.PackageURL{Type: packageurl.TypeComposer, Namespace: ns, Name: name, Version: c.Version}, nil
}

func parseComposer(p packageurl.PackageURL) (bazbom.Coordinate, error) {
	return bazbom.Coordinate{Ecosystem: bazbom.EcosystemComposer, Name: p.Namespace + "/" + p.Name, Version: p.Version}, nil
}

func generateGeneric(c bazbom.Coordinate) (packageurl.PackageURL, error) {
	return packageurl.PackageURL{Type: packageurl.TypeGeneric, Name: c.Name, Version: c.Version}, nil
}

func parseGeneric(p packageurl.PackageURL) (bazbom.Coordinate, error) {
	return bazbom.Coordinate{Ecosystem: bazbom.EcosystemGeneric, Name: p.Name, Version: p.Version}, nil
}

// splitLast splits s on the final occurrence of sep, returning ("", s) if
// sep is absent.
func splitLast(s, sep string) (prefix, suffix string) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return "", s
	}
	return s[:i], s[i+len(sep):]
}
