// Package vulnmatch evaluates a Vulnerability's affected VersionRanges
// against a Coordinate's version, using each ecosystem's native ordering.
//
// An ecosystem with no implemented comparator falls back to a conservative
// "unknown-affected" verdict: every version is reported as matching rather
// than silently under-reporting. That policy resolves the scan's open
// question about unimplemented orderings by favoring false positives over
// false negatives; deciding whether an unresolved verdict should fail a
// build outright is left to the policy layer outside this module.
package vulnmatch

import (
	"github.com/Masterminds/semver"
	xsemver "golang.org/x/mod/semver"

	"github.com/cboyd0319/bazbom"
	"github.com/cboyd0319/bazbom/pkg/mavenver"
	"github.com/cboyd0319/bazbom/pkg/pep440"
)

// Comparator orders two version strings the way one ecosystem's package
// manager does: negative if a < b, zero if equal, positive if a > b. It
// returns an error if either string fails to parse in that ecosystem's
// grammar.
type Comparator func(a, b string) (int, error)

// comparators maps each ecosystem with an implemented native ordering to
// its Comparator. Ecosystems absent from this map use the conservative
// unknown-affected fallback in Matches.
var comparators = map[bazbom.Ecosystem]Comparator{
	bazbom.EcosystemNPM:   semverCompare,
	bazbom.EcosystemCargo: semverCompare,
	bazbom.EcosystemPyPI:  pep440Compare,
	bazbom.EcosystemMaven: mavenCompare,
	bazbom.EcosystemGo:    goCompare,
}

func semverCompare(a, b string) (int, error) {
	va, err := semver.NewVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := semver.NewVersion(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

func pep440Compare(a, b string) (int, error) {
	va, err := pep440.Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := pep440.Parse(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(&vb), nil
}

func mavenCompare(a, b string) (int, error) {
	va, err := mavenver.Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := mavenver.Parse(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// goCompare wraps golang.org/x/mod/semver, which requires the "v" prefix Go
// module versions always carry; bare version strings get it added.
func goCompare(a, b string) (int, error) {
	return xsemver.Compare(canonicalGoVersion(a), canonicalGoVersion(b)), nil
}

func canonicalGoVersion(v string) string {
	if len(v) == 0 || v[0] != 'v' {
		return "v" + v
	}
	return v
}

// Matches reports whether version is affected by rng under ecosystem's
// native ordering. A parse failure on either boundary, or an ecosystem with
// no registered Comparator, resolves to true (unknown-affected).
func Matches(eco bazbom.Ecosystem, rng bazbom.VersionRange, version string) bool {
	if rng.Withdrawn {
		return false
	}
	cmp, ok := comparators[eco]
	if !ok {
		return true
	}

	if rng.Introduced != "" {
		c, err := cmp(version, rng.Introduced)
		if err != nil {
			return true
		}
		if c < 0 {
			return false
		}
	}
	if rng.Fixed != "" {
		c, err := cmp(version, rng.Fixed)
		if err != nil {
			return true
		}
		if c >= 0 {
			return false
		}
	}
	return true
}

// HasComparator reports whether ecosystem has a native ordering registered,
// as opposed to falling back to the conservative unknown-affected policy.
func HasComparator(eco bazbom.Ecosystem) bool {
	_, ok := comparators[eco]
	return ok
}

// Compare orders a and b under ecosystem's native comparator, reporting ok
// false if ecosystem has none registered. Exported for internal/upgrade,
// which needs the same ordering to rank candidate fix versions without
// duplicating the per-ecosystem parser set.
func Compare(eco bazbom.Ecosystem, a, b string) (cmp int, ok bool, err error) {
	c, ok := comparators[eco]
	if !ok {
		return 0, false, nil
	}
	cmp, err = c(a, b)
	return cmp, true, err
}

// MatchesAny reports whether version is affected by any of v's Affected
// ranges.
func MatchesAny(eco bazbom.Ecosystem, v bazbom.Vulnerability, version string) bool {
	for _, rng := range v.Affected {
		if Matches(eco, rng, version) {
			return true
		}
	}
	return len(v.Affected) == 0 // no ranges recorded means "affects every version"
}
