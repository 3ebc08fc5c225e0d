// Package sarifmerge combines one SARIF run per contributing ecosystem
// scanner into a single SARIF 2.1.0 log (§4.5). No SARIF-writing library
// appears anywhere in the retrieval pack, so the wire format here is a
// hand-rolled struct layout grounded on OpenSSF Scorecard's pkg/sarif.go.
package sarifmerge

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cboyd0319/bazbom"
)

const (
	schemaURL    = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"
	sarifVersion = "2.1.0"
)

type text struct {
	Text string `json:"text,omitempty"`
}

type region struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
}

type artifactLocation struct {
	URI string `json:"uri"`
}

type physicalLocation struct {
	ArtifactLocation artifactLocation `json:"artifactLocation"`
	Region           region           `json:"region,omitempty"`
}

type location struct {
	PhysicalLocation physicalLocation `json:"physicalLocation"`
}

type partialFingerprints map[string]string

type rule struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortDesc text   `json:"shortDescription"`
	FullDesc  text   `json:"fullDescription,omitempty"`
	HelpURI   string `json:"helpUri,omitempty"`
}

type driver struct {
	Name           string `json:"name"`
	InformationURI string `json:"informationUri,omitempty"`
	Version        string `json:"version,omitempty"`
	Rules          []rule `json:"rules"`
}

type tool struct {
	Driver driver `json:"driver"`
}

type result struct {
	RuleID              string              `json:"ruleId"`
	RuleIndex           int                 `json:"ruleIndex"`
	Level               string              `json:"level,omitempty"`
	Message             text                `json:"message"`
	Locations           []location          `json:"locations,omitempty"`
	PartialFingerprints partialFingerprints `json:"partialFingerprints,omitempty"`
}

type run struct {
	Tool    tool     `json:"tool"`
	Results []result `json:"results"`
}

type sarifLog struct {
	Schema  string `json:"$schema"`
	Version string `json:"version"`
	Runs    []run  `json:"runs"`
}

// severityLevel maps a Severity tier to the SARIF "level" a consuming tool
// (GitHub code scanning, most SARIF viewers) understands.
func severityLevel(s bazbom.Severity) string {
	switch s {
	case bazbom.Critical, bazbom.High:
		return "error"
	case bazbom.Medium:
		return "warning"
	default:
		return "note"
	}
}

// Merger produces a MergedReport from a set of per-ecosystem SARIFRuns.
// Results are deduplicated within a run by (artifact URI, start line, start
// column, rule id, matched data digest), the matched data being the
// affected package's coordinate; the same advisory surfaced in two
// different runs (e.g. flagged independently by the npm and the maven
// scanner) is reported once per run by design — there is no cross-run
// dedup.
type Merger struct{}

// NewMerger constructs a Merger. It carries no state: every Merge call is
// independent.
func NewMerger() *Merger { return &Merger{} }

// Merge combines runs into a single SARIF 2.1.0 log, ordered by descending
// severity then ascending artifact URI within each run. A run whose
// encoded output fails Merge's own structural self-check is still emitted
// — the failure is recorded as a warning, never dropped silently.
func (m *Merger) Merge(runs []bazbom.SARIFRun) bazbom.MergedReport {
	var warnings []string
	out := sarifLog{Schema: schemaURL, Version: sarifVersion, Runs: make([]run, 0, len(runs))}

	for _, r := range runs {
		out.Runs = append(out.Runs, m.buildRun(r))
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("sarifmerge: encoding merged log failed: %v", err))
		data, _ = json.Marshal(sarifLog{Schema: schemaURL, Version: sarifVersion, Runs: []run{}})
	}
	if serr := selfCheck(data); serr != nil {
		warnings = append(warnings, fmt.Sprintf("sarifmerge: structural self-check failed, emitting unchanged: %v", serr))
	}

	return bazbom.MergedReport{SARIF: data, Warnings: warnings}
}

// buildRun converts one SARIFRun into a SARIF run: its own tool
// descriptor, its own rule catalog (one rule per distinct vulnerability
// id, sorted for determinism), and its deduplicated, ordered results.
func (m *Merger) buildRun(r bazbom.SARIFRun) run {
	rules, ruleIndex := buildRuleCatalog(r.Findings)

	seen := make(map[string]bool, len(r.Findings))
	results := make([]result, 0, len(r.Findings))
	for _, f := range r.Findings {
		uri := f.Location.Path
		if uri == "" {
			uri = f.AffectedPackage.PURL()
		}
		fp := fingerprint(f.Vulnerability.ID, uri, f.Location.Line, f.Location.Column, f.AffectedPackage.PURL())
		if seen[fp] {
			continue
		}
		seen[fp] = true

		idx := ruleIndex[f.Vulnerability.ID]
		results = append(results, result{
			RuleID:    f.Vulnerability.ID,
			RuleIndex: idx,
			Level:     severityLevel(f.SeverityTier),
			Message:   text{Text: findingMessage(f)},
			Locations: []location{{PhysicalLocation: physicalLocation{
				ArtifactLocation: artifactLocation{URI: uri},
				Region:           region{StartLine: f.Location.Line, StartColumn: f.Location.Column},
			}}},
			PartialFingerprints: partialFingerprints{"bazbomFingerprint/v1": fp},
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		si, sj := severityOf(results[i], r.Findings), severityOf(results[j], r.Findings)
		if si != sj {
			return si > sj // descending severity
		}
		return results[i].Locations[0].PhysicalLocation.ArtifactLocation.URI <
			results[j].Locations[0].PhysicalLocation.ArtifactLocation.URI
	})

	return run{
		Tool: tool{Driver: driver{
			Name:           r.AnalyzerName,
			Version:        r.AnalyzerVersion,
			InformationURI: "",
			Rules:          rules,
		}},
		Results: results,
	}
}

// severityOf recovers the Severity backing a built result by matching its
// rule id back against the original findings, since the intermediate
// result type doesn't carry Severity directly.
func severityOf(res result, findings []bazbom.Finding) bazbom.Severity {
	for _, f := range findings {
		if f.Vulnerability.ID == res.RuleID {
			return f.SeverityTier
		}
	}
	return bazbom.Informational
}

func findingMessage(f bazbom.Finding) string {
	return fmt.Sprintf("%s affects %s (%s)", f.Vulnerability.ID, f.AffectedPackage.PURL(), f.SeverityTier)
}

// buildRuleCatalog returns one rule per distinct vulnerability id present
// in findings, sorted by id for deterministic output, plus each id's index
// into that slice for Result.RuleIndex.
func buildRuleCatalog(findings []bazbom.Finding) ([]rule, map[string]int) {
	byID := make(map[string]bazbom.Vulnerability, len(findings))
	for _, f := range findings {
		byID[f.Vulnerability.ID] = f.Vulnerability
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rules := make([]rule, len(ids))
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		v := byID[id]
		rules[i] = rule{
			ID:        id,
			Name:      id,
			ShortDesc: text{Text: v.Description},
			FullDesc:  text{Text: v.Description},
		}
		if len(v.References) > 0 {
			rules[i].HelpURI = v.References[0]
		}
		index[id] = i
	}
	return rules, index
}

// fingerprint identifies a result within a run for dedup purposes, per the
// (artifact URI, start line, start column, rule id, matched data digest) key
// named in §4.5. matchedData is the affected package's coordinate: Location
// line/column are frequently zero (no scanner here records a source line),
// so without it two distinct packages matched by the same advisory at the
// same manifest path would otherwise collide to one fingerprint.
func fingerprint(ruleID, uri string, line, col int, matchedData string) string {
	d := bazbom.SumBytes([]byte(fmt.Sprintf("%s\x00%s\x00%d\x00%d\x00%s", ruleID, uri, line, col, matchedData)))
	return d.String()
}

// selfCheck is the minimal structural validation Merge runs against its
// own output: no real SARIF schema validator appears anywhere in the
// pack, so this only checks the invariants Merge itself must uphold
// (version string, non-nil run/result arrays) rather than the full SARIF
// 2.1.0 schema.
func selfCheck(data []byte) error {
	var out sarifLog
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("decoding merged log: %w", err)
	}
	if out.Version != sarifVersion {
		return fmt.Errorf("unexpected version %q", out.Version)
	}
	if out.Runs == nil {
		return fmt.Errorf("runs array is nil")
	}
	for i, r := range out.Runs {
		if r.Results == nil {
			return fmt.Errorf("run %d: results array is nil", i)
		}
	}
	return nil
}
