// Package purl generates and parses package URLs (PURLs) per ecosystem,
// using github.com/package-url/packageurl-go for the escaping and type
// rules each ecosystem's PURL spec defines.
package purl

import (
	"fmt"
	"sync"

	"github.com/package-url/packageurl-go"

	"github.com/cboyd0319/bazbom"
)

// NoneNamespace labels the namespace of ecosystems whose PURL type carries
// no namespace segment (npm unscoped, pypi, cargo, rubygems). Registry keys
// its parsers by PURL type alone and does not refer to it.
const NoneNamespace = "none"

// ErrUnPurlable is returned when no generator is registered for an
// ecosystem.
type ErrUnPurlable struct{ Ecosystem bazbom.Ecosystem }

func (e ErrUnPurlable) Error() string {
	return fmt.Sprintf("no PURL generator registered for ecosystem %q", e.Ecosystem)
}

// ErrUnknownPurl is returned when no parser is registered for a PURL type.
type ErrUnknownPurl struct {
	Type      string
	Namespace string
}

func (e ErrUnknownPurl) Error() string {
	return fmt.Sprintf("no PURL parser registered for type %q and namespace %q", e.Type, e.Namespace)
}

// GenerateFunc produces a PackageURL for a Coordinate.
type GenerateFunc func(c bazbom.Coordinate) (packageurl.PackageURL, error)

// ParseFunc produces a Coordinate for a PackageURL.
type ParseFunc func(p packageurl.PackageURL) (bazbom.Coordinate, error)

// Registry is a thread-safe registry of per-ecosystem PURL generators and
// parsers. The SPDX and CycloneDX encoders each build one Registry via the
// default package and use it for every package URL they emit; SARIF output
// uses Coordinate.PURL instead.
type Registry struct {
	mu          sync.RWMutex
	genByEco    map[bazbom.Ecosystem]GenerateFunc
	parseByType map[string]ParseFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		genByEco:    make(map[bazbom.Ecosystem]GenerateFunc),
		parseByType: make(map[string]ParseFunc),
	}
}

// Register adds a generator for ecosystem and a parser for the PURL type
// that generator produces. Namespace handling (scoped npm, maven groupId,
// go module paths, and so on) is the ParseFunc's own responsibility, since
// a PURL type can carry arbitrarily many distinct namespace values.
func (r *Registry) Register(eco bazbom.Ecosystem, purlType string, gen GenerateFunc, parse ParseFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != nil {
		r.genByEco[eco] = gen
	}
	if parse != nil {
		r.parseByType[purlType] = parse
	}
}

// Generate finds a registered generator for c.Ecosystem and returns the
// PackageURL.
func (r *Registry) Generate(c bazbom.Coordinate) (packageurl.PackageURL, error) {
	r.mu.RLock()
	gen, ok := r.genByEco[c.Ecosystem]
	r.mu.RUnlock()
	if !ok {
		return packageurl.PackageURL{}, ErrUnPurlable{Ecosystem: c.Ecosystem}
	}
	return gen(c)
}

// Parse finds a registered parser for p's type and returns a Coordinate.
func (r *Registry) Parse(p packageurl.PackageURL) (bazbom.Coordinate, error) {
	r.mu.RLock()
	f, ok := r.parseByType[p.Type]
	r.mu.RUnlock()
	if !ok {
		return bazbom.Coordinate{}, ErrUnknownPurl{Type: p.Type, Namespace: p.Namespace}
	}
	return f(p)
}
