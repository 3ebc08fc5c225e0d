package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cboyd0319/bazbom/config"
	"github.com/cboyd0319/bazbom/pkg/scanstats"
)

// runServe scans root once, then serves its Prometheus counters
// indefinitely so a sidecar scraper can observe the last run's stats
// without the process exiting. It does not rescan on an interval; that's
// left to whatever invokes bazbom scan on a schedule.
func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "bazbom.toml", "path to bazbom.toml")
	root := fs.String("root", ".", "workspace root to scan")
	addr := fs.String("addr", ":9090", "address to serve /metrics on")
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(scanstats.NewCollector(orch, *root))

	report, _, err := orch.ScanDirectory(ctx, os.DirFS(*root), *root, toolVersion, cfg.FeatureFlags)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	log.Info("scan complete", "packages", len(report.Packages()), "findings", len(report.Findings))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: *addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
