package bazbom

// SARIFRun is one ecosystem scanner's contribution to a merged SARIF log:
// its own findings plus enough identity to build that run's tool
// descriptor (§4.5). The SARIF Merger produces exactly one SARIF run per
// SARIFRun — it never folds two analyzers' results into a single run,
// even when they flag the same underlying advisory.
type SARIFRun struct {
	AnalyzerName    string    `json:"analyzer_name"`
	AnalyzerVersion string    `json:"analyzer_version"`
	Ecosystem       Ecosystem `json:"ecosystem"`
	Findings        []Finding `json:"findings"`
}

// MergedReport is the SARIF Merger's output (§4.5): an encoded SARIF 2.1.0
// log plus any warnings recorded while producing it. A failed structural
// self-check does not block the merge — the log is still emitted, and the
// failure is recorded as a warning instead.
type MergedReport struct {
	SARIF    []byte   `json:"-"`
	Warnings []string `json:"warnings,omitempty"`
}
