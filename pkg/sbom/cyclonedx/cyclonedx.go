// Package cyclonedx encodes a UnifiedScanReport as a CycloneDX 1.5 BOM,
// the workspace-scan counterpart to pkg/sbom/spdx's SPDX encoder.
package cyclonedx

import (
	"fmt"
	"io"

	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/cboyd0319/bazbom"
	defaultpurl "github.com/cboyd0319/bazbom/pkg/purl/registry/default"
)

// purlRegistry generates the ecosystem-correct PURL form used for both a
// component's PackageURL field and its bom-ref; Coordinate.PURL's plain
// fallback form is used only when no generator is registered for the
// coordinate's ecosystem.
var purlRegistry = defaultpurl.New()

func packageURL(c bazbom.Coordinate) string {
	p, err := purlRegistry.Generate(c)
	if err != nil {
		return c.PURL()
	}
	return p.String()
}

// Encode builds a CycloneDX BOM from report, with one Component per scanned
// Package and one Vulnerability entry per Finding (§7: BazBOM ships both an
// SBOM and the vulnerability findings that apply to it, rather than
// requiring a separate pass to join them back together).
func Encode(report *bazbom.UnifiedScanReport, toolVersion string) *cdx.BOM {
	bom := cdx.NewBOM()
	bom.Metadata = &cdx.Metadata{
		Tools: &cdx.ToolsChoice{
			Components: &[]cdx.Component{
				{Type: cdx.ComponentTypeApplication, Name: "bazbom", Version: toolVersion},
			},
		},
	}

	components := make([]cdx.Component, 0, len(report.Packages()))
	refs := make(map[bazbom.Coordinate]string, len(report.Packages()))
	for _, tag := range report.OrderedEcosystems() {
		for _, pkg := range report.Ecosystems[tag].Packages {
			ref := componentRef(pkg.Coordinate)
			refs[pkg.Coordinate] = ref
			components = append(components, toComponent(pkg, ref))
		}
	}
	bom.Components = &components

	if len(report.Findings) > 0 {
		vulns := make([]cdx.Vulnerability, 0, len(report.Findings))
		for _, f := range report.Findings {
			vulns = append(vulns, toVulnerability(f, refs[f.AffectedPackage]))
		}
		bom.Vulnerabilities = &vulns
	}
	return bom
}

// Write marshals bom in the given format (cdx.BOMFileFormatJSON or
// cdx.BOMFileFormatXML) to w.
func Write(w io.Writer, bom *cdx.BOM, format cdx.BOMFileFormat) error {
	return cdx.NewBOMEncoder(w, format).Encode(bom)
}

func toComponent(pkg bazbom.Package, ref string) cdx.Component {
	c := cdx.Component{
		BOMRef:     ref,
		Type:       cdx.ComponentTypeLibrary,
		Name:       pkg.Coordinate.Name,
		Version:    pkg.Coordinate.Version,
		PackageURL: packageURL(pkg.Coordinate),
	}
	if pkg.Homepage != "" {
		c.ExternalReferences = &[]cdx.ExternalReference{
			{Type: cdx.ERTypeWebsite, URL: pkg.Homepage},
		}
	}
	if pkg.License != nil {
		c.Licenses = &cdx.Licenses{
			{License: &cdx.License{ID: pkg.License.SPDXID}},
		}
	}
	if pkg.SHA256.Algorithm() == bazbom.SHA256 {
		c.Hashes = &[]cdx.Hash{
			{Algorithm: cdx.HashAlgoSHA256, Value: fmt.Sprintf("%x", pkg.SHA256.Checksum())},
		}
	}
	return c
}

func toVulnerability(f bazbom.Finding, componentRef string) cdx.Vulnerability {
	v := cdx.Vulnerability{
		ID:          f.Vulnerability.ID,
		Description: f.Vulnerability.Description,
		Affects: &[]cdx.Affects{
			{Ref: componentRef},
		},
	}
	if f.Vulnerability.CVSSScore > 0 {
		v.Ratings = &[]cdx.VulnerabilityRating{
			{
				Score:    &f.Vulnerability.CVSSScore,
				Severity: severityOf(f.SeverityTier),
				Vector:   f.Vulnerability.CVSSVector,
				Method:   cdx.ScoringMethodCVSSv3,
			},
		}
	}
	if len(f.Vulnerability.References) > 0 {
		refs := make([]cdx.VulnerabilityReference, 0, len(f.Vulnerability.References))
		for _, r := range f.Vulnerability.References {
			refs = append(refs, cdx.VulnerabilityReference{Source: &cdx.Source{URL: r}})
		}
		v.References = &refs
	}
	return v
}

func severityOf(s bazbom.Severity) cdx.Severity {
	switch s {
	case bazbom.Critical:
		return cdx.SeverityCritical
	case bazbom.High:
		return cdx.SeverityHigh
	case bazbom.Medium:
		return cdx.SeverityMedium
	case bazbom.Low:
		return cdx.SeverityLow
	default:
		return cdx.SeverityInfo
	}
}

// componentRef derives a stable bom-ref for a coordinate so Vulnerabilities
// can point back at the Component they affect.
func componentRef(c bazbom.Coordinate) string {
	return packageURL(c)
}
