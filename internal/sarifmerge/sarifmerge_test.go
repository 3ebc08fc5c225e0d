package sarifmerge

import (
	"encoding/json"
	"testing"

	"github.com/cboyd0319/bazbom"
)

func finding(id string, sev bazbom.Severity, path string, line int) bazbom.Finding {
	return bazbom.Finding{
		Vulnerability:   bazbom.Vulnerability{ID: id, Description: id + " description"},
		AffectedPackage: bazbom.Coordinate{Ecosystem: bazbom.EcosystemNPM, Name: "left-pad", Version: "1.3.0"},
		Location:        bazbom.SourceLocation{Path: path, Line: line},
		SeverityTier:    sev,
	}
}

func TestMergeOneRunPerAnalyzer(t *testing.T) {
	runs := []bazbom.SARIFRun{
		{AnalyzerName: "bazbom-npm", AnalyzerVersion: "1.0", Ecosystem: bazbom.EcosystemNPM, Findings: []bazbom.Finding{
			finding("CVE-2024-0001", bazbom.High, "package-lock.json", 10),
		}},
		{AnalyzerName: "bazbom-pypi", AnalyzerVersion: "1.0", Ecosystem: bazbom.EcosystemPyPI, Findings: []bazbom.Finding{
			finding("CVE-2024-0002", bazbom.Medium, "poetry.lock", 5),
		}},
	}

	report := NewMerger().Merge(runs)
	if len(report.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", report.Warnings)
	}

	var decoded sarifLog
	if err := json.Unmarshal(report.SARIF, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Runs) != 2 {
		t.Fatalf("got %d runs, want 2 (one per analyzer)", len(decoded.Runs))
	}
	if decoded.Runs[0].Tool.Driver.Name != "bazbom-npm" {
		t.Fatalf("run 0 tool name = %q, want bazbom-npm", decoded.Runs[0].Tool.Driver.Name)
	}
}

func TestMergeDedupsWithinRunOnly(t *testing.T) {
	dup := finding("CVE-2024-0001", bazbom.High, "package-lock.json", 10)
	runs := []bazbom.SARIFRun{
		{AnalyzerName: "bazbom-npm", Findings: []bazbom.Finding{dup, dup}},
		{AnalyzerName: "bazbom-maven", Findings: []bazbom.Finding{dup}},
	}

	report := NewMerger().Merge(runs)
	var decoded sarifLog
	if err := json.Unmarshal(report.SARIF, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Runs[0].Results) != 1 {
		t.Fatalf("expected the duplicate within run 0 to be collapsed, got %d results", len(decoded.Runs[0].Results))
	}
	if len(decoded.Runs[1].Results) != 1 {
		t.Fatalf("expected run 1's identical finding to still be reported (no cross-run dedup), got %d", len(decoded.Runs[1].Results))
	}
}

func TestMergeKeepsDistinctPackagesAtSameLocation(t *testing.T) {
	// Two different resolved versions of the same package name, declared in
	// the same lockfile and matched by the same advisory: a zero line/column
	// means (ruleID, uri, line, col) alone would collide.
	a := finding("CVE-2024-0001", bazbom.High, "package-lock.json", 0)
	b := finding("CVE-2024-0001", bazbom.High, "package-lock.json", 0)
	b.AffectedPackage.Version = "2.0.0"

	runs := []bazbom.SARIFRun{{AnalyzerName: "bazbom-npm", Findings: []bazbom.Finding{a, b}}}
	report := NewMerger().Merge(runs)

	var decoded sarifLog
	if err := json.Unmarshal(report.SARIF, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Runs[0].Results) != 2 {
		t.Fatalf("expected both distinct package versions to survive dedup, got %d results", len(decoded.Runs[0].Results))
	}
}

func TestMergeOrdersBySeverityThenURI(t *testing.T) {
	findings := []bazbom.Finding{
		finding("CVE-LOW", bazbom.Low, "z-manifest.json", 1),
		finding("CVE-CRIT", bazbom.Critical, "a-manifest.json", 1),
		finding("CVE-CRIT-2", bazbom.Critical, "b-manifest.json", 1),
	}
	runs := []bazbom.SARIFRun{{AnalyzerName: "bazbom-npm", Findings: findings}}

	report := NewMerger().Merge(runs)
	var decoded sarifLog
	if err := json.Unmarshal(report.SARIF, &decoded); err != nil {
		t.Fatal(err)
	}
	results := decoded.Runs[0].Results
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].RuleID != "CVE-CRIT" || results[1].RuleID != "CVE-CRIT-2" || results[2].RuleID != "CVE-LOW" {
		t.Fatalf("unexpected order: %q, %q, %q", results[0].RuleID, results[1].RuleID, results[2].RuleID)
	}
}

func TestMergeEmptyRunsProducesValidLog(t *testing.T) {
	report := NewMerger().Merge(nil)
	if len(report.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", report.Warnings)
	}
	var decoded sarifLog
	if err := json.Unmarshal(report.SARIF, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Version != sarifVersion {
		t.Fatalf("version = %q, want %q", decoded.Version, sarifVersion)
	}
	if decoded.Runs == nil {
		t.Fatal("expected a non-nil, empty runs array")
	}
}

func TestRuleCatalogSortedAndDeduped(t *testing.T) {
	findings := []bazbom.Finding{
		finding("CVE-B", bazbom.Medium, "x.json", 1),
		finding("CVE-A", bazbom.Medium, "y.json", 1),
		finding("CVE-A", bazbom.Medium, "z.json", 1),
	}
	rules, index := buildRuleCatalog(findings)
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2 distinct ids", len(rules))
	}
	if rules[0].ID != "CVE-A" || rules[1].ID != "CVE-B" {
		t.Fatalf("rules not sorted: %q, %q", rules[0].ID, rules[1].ID)
	}
	if index["CVE-A"] != 0 || index["CVE-B"] != 1 {
		t.Fatalf("unexpected rule index: %+v", index)
	}
}
