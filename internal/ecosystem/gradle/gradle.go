// Package gradle recovers Maven-coordinate-space dependencies from Gradle
// build files. Gradle has no single declarative manifest format (build
// scripts are Groovy or Kotlin), so unlike the other ecosystems there is no
// format to unmarshal: dependency declarations are recovered with a
// line-oriented scan of the common "configuration 'group:artifact:version'"
// and "configuration(\"group:...\")" forms, plus a resolved gradle.lockfile
// when the project enables Gradle's dependency locking.
//
// Gradle artifacts are published to the same Maven Central coordinate space
// a pom.xml declares, so this package is consumed by
// internal/ecosystem/maven as a fallback rather than registered as its own
// ecosystem back-end.
package gradle

import (
	"bufio"
	"context"
	"io/fs"
	"regexp"
	"strings"

	"github.com/cboyd0319/bazbom"
	"github.com/cboyd0319/bazbom/internal/licensecache"
)

const (
	BuildGradle    = "build.gradle"
	BuildGradleKTS = "build.gradle.kts"
	Lockfile       = "gradle.lockfile"
)

// Present reports whether any Gradle build file or lockfile exists at root.
func Present(root fs.FS) bool {
	for _, name := range []string{BuildGradle, BuildGradleKTS, Lockfile} {
		if _, err := fs.Stat(root, name); err == nil {
			return true
		}
	}
	return false
}

// gavRE matches a "group:artifact:version" coordinate string appearing
// inside a dependency declaration, in either Groovy single quotes or Kotlin
// double quotes.
var gavRE = regexp.MustCompile(`['"]([\w.\-]+):([\w.\-]+):([\w.\-\+]+)['"]`)

// configurationRE matches the leading Gradle configuration keyword of a
// dependency declaration line; lines without one are skipped. Every match
// is treated as direct, since Gradle build files never declare transitive
// dependencies explicitly.
var configurationRE = regexp.MustCompile(`^\s*(implementation|api|compile|runtimeOnly|testImplementation|testRuntimeOnly|compileOnly)\b`)

// Scan prefers a resolved gradle.lockfile when present (the fully resolved
// graph, including transitive dependencies); otherwise it falls back to
// scanning the build file for direct dependency declarations.
func Scan(root fs.FS, cache *licensecache.Cache) (pkgs []bazbom.Package, evidence []string, err error) {
	if _, statErr := fs.Stat(root, Lockfile); statErr == nil {
		pkgs, err = scanLockfile(root, cache)
		if err == nil {
			return pkgs, []string{Lockfile}, nil
		}
	}

	buildFile := ""
	for _, name := range []string{BuildGradleKTS, BuildGradle} {
		if _, statErr := fs.Stat(root, name); statErr == nil {
			buildFile = name
			break
		}
	}
	if buildFile == "" {
		return nil, nil, nil
	}
	pkgs, err = scanBuildFile(root, buildFile, cache)
	if err != nil {
		return nil, nil, err
	}
	return pkgs, []string{buildFile}, nil
}

func scanBuildFile(root fs.FS, name string, cache *licensecache.Cache) ([]bazbom.Package, error) {
	f, err := root.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pkgs []bazbom.Package
	scan := bufio.NewScanner(f)
	for scan.Scan() {
		line := scan.Text()
		if !configurationRE.MatchString(line) {
			continue
		}
		m := gavRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		group, artifact, version := m[1], m[2], m[3]
		pkgs = append(pkgs, buildPackage(cache, group+":"+artifact, version, true, name))
	}
	if err := scan.Err(); err != nil {
		return nil, err
	}
	sortPackages(pkgs)
	return pkgs, nil
}

// gradle.lockfile lines look like "group:artifact:version=configurationHash"
// once resolved by `./gradlew dependencies --write-locks`.
func scanLockfile(root fs.FS, cache *licensecache.Cache) ([]bazbom.Package, error) {
	f, err := root.Open(Lockfile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pkgs []bazbom.Package
	scan := bufio.NewScanner(f)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "empty=") {
			continue
		}
		coord := line
		if i := strings.Index(coord, "="); i >= 0 {
			coord = coord[:i]
		}
		parts := strings.Split(coord, ":")
		if len(parts) != 3 {
			continue
		}
		pkgs = append(pkgs, buildPackage(cache, parts[0]+":"+parts[1], parts[2], false, Lockfile))
	}
	if err := scan.Err(); err != nil {
		return nil, err
	}
	sortPackages(pkgs)
	return pkgs, nil
}

func buildPackage(cache *licensecache.Cache, name, version string, direct bool, manifest string) bazbom.Package {
	key := licensecache.Key{Ecosystem: bazbom.EcosystemMaven, Name: name, Version: version}
	lic, err := cache.GetOrInsert(context.Background(), key, func(context.Context) (*bazbom.License, error) {
		return bazbom.NewLicense(""), nil
	})
	if err != nil {
		lic = nil
	}
	if version == "" {
		version = bazbom.UnknownVersion
	}
	return bazbom.Package{
		Coordinate:        bazbom.Coordinate{Ecosystem: bazbom.EcosystemMaven, Name: name, Version: version},
		License:           lic,
		Direct:            direct,
		DeclaringManifest: manifest,
	}
}

func sortPackages(pkgs []bazbom.Package) {
	for i := 1; i < len(pkgs); i++ {
		for j := i; j > 0 && pkgs[j].Coordinate.Less(pkgs[j-1].Coordinate); j-- {
			pkgs[j], pkgs[j-1] = pkgs[j-1], pkgs[j]
		}
	}
}
