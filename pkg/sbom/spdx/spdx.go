// Package spdx encodes a UnifiedScanReport as an SPDX 2.3 document,
// grounded on claircore's pkg/sbom/spdx's IndexReport encoder and
// generalized from "one container image's layers" to "one workspace's
// scanned packages".
package spdx

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spdx/tools-golang/spdx/v2/common"
	spdxtools "github.com/spdx/tools-golang/spdx/v2/v2_3"

	"github.com/cboyd0319/bazbom"
	defaultpurl "github.com/cboyd0319/bazbom/pkg/purl/registry/default"
)

// purlRegistry generates the ecosystem-correct PURL form for each
// coordinate's external reference. Coordinate.PURL's plain fallback form
// is used only when no generator is registered for the coordinate's
// ecosystem.
var purlRegistry = defaultpurl.New()

func packageURL(c bazbom.Coordinate) string {
	p, err := purlRegistry.Generate(c)
	if err != nil {
		return c.PURL()
	}
	return p.String()
}

// Encode builds an SPDX 2.3 Document from report. toolVersion is recorded
// in the document's creation info and comment. Every scanned Package
// becomes one SPDX Package, related to the document by a DESCRIBES
// relationship; BazBOM doesn't track a dependency graph between packages
// (§3 carries only the declaring manifest, not a parent/child edge), so no
// DEPENDS_ON relationships are emitted.
func Encode(report *bazbom.UnifiedScanReport, toolVersion string) (*spdxtools.Document, error) {
	doc := &spdxtools.Document{
		SPDXVersion:       spdxtools.Version,
		DataLicense:       spdxtools.DataLicense,
		SPDXIdentifier:    "DOCUMENT",
		DocumentName:      documentName(report.Root),
		DocumentNamespace: fmt.Sprintf("https://bazbom.invalid/spdxdocs/%s-%s", documentName(report.Root), uuid.New().String()),
		CreationInfo: &spdxtools.CreationInfo{
			Creators: []common.Creator{
				{CreatorType: "Tool", Creator: "bazbom-" + toolVersion},
			},
			Created: time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		},
		DocumentComment: fmt.Sprintf("Generated by bazbom (%s) from a workspace scan.", toolVersion),
	}

	var rels []*spdxtools.Relationship
	for _, tag := range report.OrderedEcosystems() {
		for _, pkg := range report.Ecosystems[tag].Packages {
			spdxPkg := toSPDXPackage(pkg)
			doc.Packages = append(doc.Packages, spdxPkg)
			rels = append(rels, &spdxtools.Relationship{
				RefA:         common.MakeDocElementID("", "DOCUMENT"),
				RefB:         common.MakeDocElementID("", string(spdxPkg.PackageSPDXIdentifier)),
				Relationship: "DESCRIBES",
			})
		}
	}
	doc.Relationships = rels
	return doc, nil
}

func toSPDXPackage(pkg bazbom.Package) *spdxtools.Package {
	id := spdxID(pkg.Coordinate)
	out := &spdxtools.Package{
		PackageName:             pkg.Coordinate.Name,
		PackageSPDXIdentifier:   common.ElementID(id),
		PackageVersion:          pkg.Coordinate.Version,
		PackageDownloadLocation: bazbom.NoAssertion,
		PackageHomePage:         pkg.Homepage,
		FilesAnalyzed:           false,
		PackageComment:          pkg.DeclaringManifest,
	}
	if pkg.License != nil {
		out.PackageLicenseConcluded = pkg.License.SPDXID
		out.PackageLicenseDeclared = pkg.License.SPDXID
	} else {
		out.PackageLicenseConcluded = bazbom.NoAssertion
		out.PackageLicenseDeclared = bazbom.NoAssertion
	}
	if pkg.SHA256.Algorithm() == bazbom.SHA256 {
		out.PackageChecksums = []common.Checksum{
			{Algorithm: common.SHA256, Value: fmt.Sprintf("%x", pkg.SHA256.Checksum())},
		}
	}
	out.PackageExternalReferences = []*spdxtools.PackageExternalReference{
		{
			Category: "PACKAGE-MANAGER",
			RefType:  "purl",
			Locator:  packageURL(pkg.Coordinate),
		},
	}
	return out
}

// spdxID derives a stable, SPDX-legal identifier from a coordinate. SPDX
// element IDs may only contain letters, digits, '.', and '-'.
func spdxID(c bazbom.Coordinate) string {
	raw := fmt.Sprintf("%s-%s-%s", c.Ecosystem, c.Name, c.Version)
	var b strings.Builder
	b.WriteString("SPDXRef-Package-")
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

func documentName(root string) string {
	if root == "" {
		return "bazbom-scan"
	}
	name := strings.TrimSuffix(strings.TrimPrefix(root, "/"), "/")
	name = strings.ReplaceAll(name, "/", "-")
	if name == "" {
		return "bazbom-scan"
	}
	return name
}
