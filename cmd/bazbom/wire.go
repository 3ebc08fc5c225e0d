package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/cboyd0319/bazbom/config"
	"github.com/cboyd0319/bazbom/internal/ecosystem/cargo"
	"github.com/cboyd0319/bazbom/internal/ecosystem/composer"
	"github.com/cboyd0319/bazbom/internal/ecosystem/gomod"
	"github.com/cboyd0319/bazbom/internal/ecosystem/maven"
	"github.com/cboyd0319/bazbom/internal/ecosystem/npm"
	"github.com/cboyd0319/bazbom/internal/ecosystem/pypi"
	"github.com/cboyd0319/bazbom/internal/ecosystem/rubygems"
	"github.com/cboyd0319/bazbom/internal/orchestrator"
	"github.com/cboyd0319/bazbom/internal/scancache"
	"github.com/cboyd0319/bazbom/internal/scanner"
	"github.com/cboyd0319/bazbom/internal/vulnclient"
)

// toolVersion is overridden at build time with -ldflags, mirroring the
// pattern claircore's cmd binaries use for their own version strings.
var toolVersion = "dev"

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newRegistry() *scanner.Registry {
	reg := scanner.NewRegistry()
	reg.Register(npm.New())
	reg.Register(pypi.New())
	reg.Register(cargo.New())
	reg.Register(gomod.New())
	reg.Register(maven.New())
	reg.Register(rubygems.New())
	reg.Register(composer.New())
	return reg
}

func newOrchestrator(ctx context.Context, cfg *config.Config, log *slog.Logger) (*orchestrator.Orchestrator, error) {
	if cfg.Advisory.Endpoint == "" {
		return nil, fmt.Errorf("advisory.endpoint is required in bazbom.toml")
	}
	base, err := url.Parse(cfg.Advisory.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("advisory.endpoint: %w", err)
	}

	var vulnOpts []vulnclient.Option
	vulnOpts = append(vulnOpts, vulnclient.WithRateLimit(cfg.Advisory.RateLimitRPS, cfg.Advisory.RateLimitBurst))
	vulnOpts = append(vulnOpts, vulnclient.WithRefreshInterval(time.Duration(cfg.Advisory.RefreshInterval)))
	if cfg.Advisory.ExploitScoreFeed != "" && cfg.Advisory.KnownExploitedFeed != "" {
		exploitURL, err := url.Parse(cfg.Advisory.ExploitScoreFeed)
		if err != nil {
			return nil, fmt.Errorf("advisory.exploit_score_feed: %w", err)
		}
		exploitedURL, err := url.Parse(cfg.Advisory.KnownExploitedFeed)
		if err != nil {
			return nil, fmt.Errorf("advisory.known_exploited_feed: %w", err)
		}
		vulnOpts = append(vulnOpts, vulnclient.WithEnrichmentFeeds(exploitURL, exploitedURL))
	}
	if cfg.Advisory.Dir != "" {
		vulnOpts = append(vulnOpts, vulnclient.WithAdvisoryDir(cfg.Advisory.Dir))
	}
	vc := vulnclient.New(base, log, vulnOpts...)
	vc.StartEnrichmentRefresh(ctx)

	var orchOpts []orchestrator.Option
	orchOpts = append(orchOpts, orchestrator.WithLogger(log))
	if cfg.Orchestrator.MaxConcurrency > 0 {
		orchOpts = append(orchOpts, orchestrator.WithMaxConcurrency(cfg.Orchestrator.MaxConcurrency))
	}
	if cfg.ScanCache.Dir != "" {
		cache, err := scancache.New(cfg.ScanCache.Dir, scancache.WithTTL(time.Duration(cfg.ScanCache.TTL)))
		if err != nil {
			return nil, fmt.Errorf("scan_cache: %w", err)
		}
		orchOpts = append(orchOpts, orchestrator.WithScanCache(cache))
	}

	return orchestrator.New(newRegistry(), vc, orchOpts...), nil
}
