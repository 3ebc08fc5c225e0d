// Package upgrade proposes the nearest non-vulnerable fix version for a
// Finding. It never attempts recursive breaking-change analysis: a
// Recommendation names a version that resolves every affected range the
// Finding's Vulnerability records, nothing more.
package upgrade

import (
	"sort"

	"github.com/cboyd0319/bazbom"
	"github.com/cboyd0319/bazbom/internal/vulnmatch"
)

// Recommendation is the nearest fix version proposed for one Finding, or
// the zero value with Resolvable false when no fix is known.
type Recommendation struct {
	Finding    bazbom.Finding
	FixVersion string
	Resolvable bool
}

// Recommend proposes, for each Finding, the lowest version at or above the
// Finding's affected package version that appears in the Vulnerability's
// own FixVersions and that vulnmatch confirms is no longer affected by any
// of the Vulnerability's ranges. Findings whose Vulnerability records no
// FixVersions, or whose ecosystem has no registered comparator, come back
// unresolved rather than guessed at.
func Recommend(findings []bazbom.Finding) []Recommendation {
	recs := make([]Recommendation, len(findings))
	for i, f := range findings {
		recs[i] = recommendOne(f)
	}
	return recs
}

func recommendOne(f bazbom.Finding) Recommendation {
	eco := f.AffectedPackage.Ecosystem
	if len(f.Vulnerability.FixVersions) == 0 || !vulnmatch.HasComparator(eco) {
		return Recommendation{Finding: f}
	}

	candidates := make([]string, len(f.Vulnerability.FixVersions))
	copy(candidates, f.Vulnerability.FixVersions)
	sort.Slice(candidates, func(i, j int) bool {
		c, _, err := vulnmatch.Compare(eco, candidates[i], candidates[j])
		if err != nil {
			return false
		}
		return c < 0
	})

	for _, candidate := range candidates {
		c, _, err := vulnmatch.Compare(eco, candidate, f.AffectedPackage.Version)
		if err != nil || c < 0 {
			continue // candidate parses oddly, or sorts below the current version
		}
		if !vulnmatch.MatchesAny(eco, f.Vulnerability, candidate) {
			return Recommendation{Finding: f, FixVersion: candidate, Resolvable: true}
		}
	}
	return Recommendation{Finding: f}
}
