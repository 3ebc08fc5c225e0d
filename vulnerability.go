package bazbom

// VersionRange is one affected range in an advisory: the version that
// introduced it and the version that fixed it, each a raw version string in
// the ecosystem's own syntax (semver, PEP 440, Maven), plus a withdrawn
// flag. Evaluating it against a coordinate's version is the job of the
// ecosystem-specific comparator in internal/vulnmatch; this type only
// carries the raw bounds.
type VersionRange struct {
	// Introduced is the version at which the range begins being affected;
	// empty means "from the beginning of history".
	Introduced string `json:"introduced,omitempty"`
	// Fixed is the version at which this range stops being affected.
	// Empty means "still affected at HEAD".
	Fixed string `json:"fixed,omitempty"`
	// Withdrawn marks the whole range retracted by the advisory source,
	// independent of Fixed.
	Withdrawn bool `json:"withdrawn,omitempty"`
}

// Vulnerability is a structured advisory record affecting one or more
// coordinates (§3).
type Vulnerability struct {
	ID          string         `json:"id"` // advisory id, e.g. "CVE-2023-1234" or "GHSA-xxxx"
	Coordinate  Coordinate     `json:"coordinate"`
	Affected    []VersionRange `json:"affected"`
	Severity    Severity       `json:"severity"`
	CVSSVector  string         `json:"cvss_vector,omitempty"`
	CVSSScore   float64        `json:"cvss_score,omitempty"`
	CWEs        []string       `json:"cwes,omitempty"`
	Description string         `json:"description"`
	FixVersions []string       `json:"fix_versions,omitempty"`
	References  []string       `json:"references,omitempty"`
}

// ReachabilityVerdict records whether static or dynamic analysis could
// confirm a vulnerable symbol is actually reachable from the scanned
// project's own code. BazBOM's core never performs reachability analysis
// itself (that's an external dataflow SAST collaborator per §1); it only
// carries the verdict through to the Finding when one is supplied.
type ReachabilityVerdict string

const (
	ReachabilityReachable   ReachabilityVerdict = "reachable"
	ReachabilityUnreachable ReachabilityVerdict = "unreachable"
	ReachabilityUnknown     ReachabilityVerdict = "unknown"
)

// Enrichment carries the two locally-cached signals the Vulnerability
// Client attaches to each advisory match (§3, §4.3). A nil ExploitScore or
// InKnownExploited of false-by-absence means the feed was unavailable, not
// that the signal was evaluated and came up negative; callers distinguish
// the two via the ExploitScoreUnknown and KnownExploitedUnknown flags.
type Enrichment struct {
	ExploitScore           *float64             `json:"exploit_score,omitempty"`
	ExploitScoreUnknown    bool                 `json:"exploit_score_unknown,omitempty"`
	InKnownExploited       bool                 `json:"in_known_exploited"`
	KnownExploitedUnknown  bool                 `json:"known_exploited_unknown,omitempty"`
	Reachability           ReachabilityVerdict  `json:"reachability"`
}

// SourceLocation pins a Finding to the manifest or lockfile that declared
// the affected package, carried through to the SARIF Merger's
// physicalLocation output (§4.5). Line and Column are best-effort: most
// ecosystem scanners only know the declaring file, not an exact line, so
// both are frequently zero.
type SourceLocation struct {
	Path   string `json:"path"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// Finding is a Vulnerability matched against a specific scanned Package
// (§3). I3/P6: AffectedPackage must be present in the scan's package set.
type Finding struct {
	Vulnerability   Vulnerability   `json:"vulnerability"`
	AffectedPackage Coordinate      `json:"affected_package"`
	Location        SourceLocation  `json:"location,omitempty"`
	Enrichment      Enrichment      `json:"enrichment"`
	SeverityTier    Severity        `json:"severity_tier"`
}
