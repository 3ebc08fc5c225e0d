package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/cboyd0319/bazbom"
	"github.com/cboyd0319/bazbom/config"
	"github.com/cboyd0319/bazbom/internal/upgrade"
	"github.com/cboyd0319/bazbom/pkg/sbom/cyclonedx"
	"github.com/cboyd0319/bazbom/pkg/sbom/spdx"
)

func runScan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	configPath := fs.String("config", "bazbom.toml", "path to bazbom.toml")
	root := fs.String("root", ".", "workspace root to scan")
	format := fs.String("format", "cyclonedx", "SBOM format to emit: spdx or cyclonedx")
	sbomOut := fs.String("sbom-out", "", "SBOM output path (defaults to stdout)")
	sarifOut := fs.String("sarif-out", "", "merged SARIF output path (omit to skip)")
	recommendUpgrades := fs.Bool("recommend-upgrades", false, "log a nearest-fix-version recommendation for every finding")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg.Logging)
	orch, err := newOrchestrator(ctx, cfg, log)
	if err != nil {
		return err
	}

	report, sarif, err := orch.ScanDirectory(ctx, os.DirFS(*root), *root, toolVersion, cfg.FeatureFlags)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	for _, w := range report.Warnings {
		log.Warn(w)
	}
	if *recommendUpgrades {
		logUpgradeRecommendations(log, report.Findings)
	}

	if err := writeSBOM(report, *format, *sbomOut); err != nil {
		return err
	}
	if *sarifOut != "" {
		if err := os.WriteFile(*sarifOut, sarif.SARIF, 0o644); err != nil {
			return fmt.Errorf("writing SARIF output: %w", err)
		}
	}
	return nil
}

// logUpgradeRecommendations logs the nearest non-vulnerable fix version for
// every finding that has one, so a scan's output can be actioned without a
// separate tool pass over the same findings.
func logUpgradeRecommendations(log *slog.Logger, findings []bazbom.Finding) {
	for _, rec := range upgrade.Recommend(findings) {
		if !rec.Resolvable {
			log.Info("no upgrade recommendation", "vulnerability", rec.Finding.Vulnerability.ID, "package", rec.Finding.AffectedPackage.Name)
			continue
		}
		log.Info("upgrade recommendation",
			"vulnerability", rec.Finding.Vulnerability.ID,
			"package", rec.Finding.AffectedPackage.Name,
			"current", rec.Finding.AffectedPackage.Version,
			"fix", rec.FixVersion)
	}
}

// writeSBOM encodes report in format and writes it to path, or to stdout
// when path is empty.
func writeSBOM(report *bazbom.UnifiedScanReport, format, path string) error {
	out := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating SBOM output: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch format {
	case "spdx":
		doc, err := spdx.Encode(report, toolVersion)
		if err != nil {
			return fmt.Errorf("encoding SPDX document: %w", err)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "cyclonedx":
		bom := cyclonedx.Encode(report, toolVersion)
		return cyclonedx.Write(out, bom, cdx.BOMFileFormatJSON)
	default:
		return fmt.Errorf("unknown SBOM format %q (want spdx or cyclonedx)", format)
	}
}
