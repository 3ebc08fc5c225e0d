package bazbom

import "fmt"

// Severity is a Finding's severity tier, derived from an advisory's CVSS
// base score or, absent one, its qualitative rating.
type Severity uint

const (
	Informational Severity = iota
	Low
	Medium
	High
	Critical
)

var severityName = [...]string{
	Informational: "informational",
	Low:           "low",
	Medium:        "medium",
	High:          "high",
	Critical:      "critical",
}

func (s Severity) String() string {
	if int(s) >= len(severityName) {
		return "informational"
	}
	return severityName[s]
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	for i, name := range severityName {
		if name == string(b) {
			*s = Severity(i)
			return nil
		}
	}
	return fmt.Errorf("unknown severity %q", string(b))
}

// SeverityFromCVSS maps a CVSS v3 base score to a Severity tier per §4.3:
// critical >= 9.0, high >= 7.0, medium >= 4.0, low > 0, informational == 0.
func SeverityFromCVSS(baseScore float64) Severity {
	switch {
	case baseScore >= 9.0:
		return Critical
	case baseScore >= 7.0:
		return High
	case baseScore >= 4.0:
		return Medium
	case baseScore > 0:
		return Low
	default:
		return Informational
	}
}

// MergeSeverity resolves two severities to the higher tier, per the
// "ties prefer the higher tier" rule in §4.3.
func MergeSeverity(a, b Severity) Severity {
	if a > b {
		return a
	}
	return b
}
