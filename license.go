package bazbom

// LicenseCategory buckets an SPDX identifier by the obligations it imposes,
// used for policy-facing SBOM summaries.
type LicenseCategory string

const (
	LicensePermissive      LicenseCategory = "permissive"
	LicenseWeakCopyleft    LicenseCategory = "weak-copyleft"
	LicenseStrongCopyleft  LicenseCategory = "strong-copyleft"
	LicenseNetworkCopyleft LicenseCategory = "network-copyleft"
	LicenseProprietary     LicenseCategory = "proprietary"
	LicenseUnknown         LicenseCategory = "unknown"
)

// NoAssertion and Unspecified are the two sentinel SPDX identifiers used
// when a license cannot be determined. Neither is ever inferred from a
// package's name (§4.1).
const (
	NoAssertion = "NOASSERTION"
	Unspecified = "UNKNOWN"
)

// License is an SPDX identifier (or one of the sentinels above) plus its
// category tag (§3).
type License struct {
	SPDXID   string          `json:"spdx_id"`
	Category LicenseCategory `json:"category"`
}

// permissiveIDs, weakCopyleftIDs, strongCopyleftIDs, and networkCopyleftIDs
// list the SPDX IDs ClassifyLicense recognizes without a full SPDX
// license-list dependency: the set a build-time SCA tool encounters in practice, not an
// exhaustive mirror of the SPDX license list.
var (
	permissiveIDs = map[string]bool{
		"MIT": true, "Apache-2.0": true, "BSD-2-Clause": true, "BSD-3-Clause": true,
		"ISC": true, "Unlicense": true, "0BSD": true, "Zlib": true, "Python-2.0": true,
		"BSL-1.0": true, "CC0-1.0": true, "WTFPL": true,
	}
	weakCopyleftIDs = map[string]bool{
		"LGPL-2.1-only": true, "LGPL-2.1-or-later": true, "LGPL-3.0-only": true,
		"LGPL-3.0-or-later": true, "MPL-2.0": true, "EPL-2.0": true, "CDDL-1.0": true,
	}
	strongCopyleftIDs = map[string]bool{
		"GPL-2.0-only": true, "GPL-2.0-or-later": true, "GPL-3.0-only": true,
		"GPL-3.0-or-later": true,
	}
	networkCopyleftIDs = map[string]bool{
		"AGPL-3.0-only": true, "AGPL-3.0-or-later": true,
	}
)

// ClassifyLicense categorizes an SPDX identifier. Unrecognized and sentinel
// identifiers classify as LicenseUnknown rather than being guessed at.
func ClassifyLicense(spdxID string) LicenseCategory {
	switch {
	case spdxID == "" || spdxID == NoAssertion || spdxID == Unspecified:
		return LicenseUnknown
	case permissiveIDs[spdxID]:
		return LicensePermissive
	case weakCopyleftIDs[spdxID]:
		return LicenseWeakCopyleft
	case strongCopyleftIDs[spdxID]:
		return LicenseStrongCopyleft
	case networkCopyleftIDs[spdxID]:
		return LicenseNetworkCopyleft
	default:
		return LicenseUnknown
	}
}

// NewLicense builds a License, classifying its category from the SPDX ID.
func NewLicense(spdxID string) *License {
	if spdxID == "" {
		spdxID = NoAssertion
	}
	return &License{SPDXID: spdxID, Category: ClassifyLicense(spdxID)}
}
