// Package config loads bazbom.toml into a Config struct, mirroring
// claircore's libindex.Options/libvuln.Options: every field is optional
// on disk, and New fills in defaults rather than leaving zero values for
// callers to special-case.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/cboyd0319/bazbom"
)

const (
	DefaultMaxConcurrency  = 0 // 0 means runtime.NumCPU(), resolved by the orchestrator itself
	DefaultRateLimitRPS    = 10.0
	DefaultRateLimitBurst  = 10
	DefaultRefreshInterval = bazbom.Duration(24 * time.Hour)
	DefaultScanCacheTTL    = bazbom.Duration(24 * time.Hour)
)

// Config is the parsed form of bazbom.toml.
type Config struct {
	// Workspace names a root directory for scans. The CLI entrypoint does
	// not read it: its scan and serve subcommands always scan the directory
	// given by their -root flag, which defaults to ".".
	Workspace string `toml:"workspace"`

	// FeatureFlags gates optional scanner behavior (e.g. enabling a
	// still-experimental ecosystem back-end) and is threaded verbatim into
	// every ScanParameters as part of the Scan Cache key.
	FeatureFlags map[string]bool `toml:"feature_flags"`

	Orchestrator OrchestratorConfig `toml:"orchestrator"`
	Advisory     AdvisoryConfig     `toml:"advisory"`
	ScanCache    ScanCacheConfig    `toml:"scan_cache"`
	Logging      LoggingConfig      `toml:"logging"`
}

type OrchestratorConfig struct {
	// MaxConcurrency bounds concurrently running ecosystem scanners. Zero
	// means the orchestrator's own default (runtime.NumCPU()).
	MaxConcurrency int `toml:"max_concurrency"`
}

type AdvisoryConfig struct {
	// Endpoint is the advisory batch-query endpoint's base URL.
	Endpoint string `toml:"endpoint"`
	// RateLimitRPS and RateLimitBurst bound outbound requests against
	// Endpoint.
	RateLimitRPS   float64 `toml:"rate_limit_rps"`
	RateLimitBurst int     `toml:"rate_limit_burst"`
	// ExploitScoreFeed and KnownExploitedFeed are the two enrichment feed
	// URLs refreshed on RefreshInterval.
	ExploitScoreFeed   string          `toml:"exploit_score_feed"`
	KnownExploitedFeed string          `toml:"known_exploited_feed"`
	// RefreshInterval accepts TOML's native duration strings ("24h",
	// "30m") via bazbom.Duration's UnmarshalText, rather than requiring a
	// raw nanosecond integer the way a plain time.Duration field would.
	RefreshInterval bazbom.Duration `toml:"refresh_interval"`
	// Dir persists both enrichment feeds to disk under this prefix
	// (conventionally ".bazbom/advisories", per §6). Empty disables
	// persistence: feeds are refreshed from the network on every process
	// start instead of reusing what a previous invocation fetched.
	Dir string `toml:"dir"`
}

type ScanCacheConfig struct {
	// Dir is the Scan Cache's on-disk directory. Empty disables caching.
	Dir string          `toml:"dir"`
	TTL bazbom.Duration `toml:"ttl"`
}

type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `toml:"level"`
	// JSON selects slog's JSON handler over its text handler.
	JSON bool `toml:"json"`
}

// Load parses path as TOML into a Config and applies defaults to every
// field left at its zero value.
func Load(path string) (*Config, error) {
	var c Config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	applyDefaults(&c)
	return &c, nil
}

// New builds a Config from already-decoded TOML data (e.g. embedded
// defaults, or a file already read by the caller), applying the same
// defaults Load does.
func New(data []byte) (*Config, error) {
	var c Config
	if _, err := toml.Decode(string(data), &c); err != nil {
		return nil, fmt.Errorf("config: decoding data: %w", err)
	}
	applyDefaults(&c)
	return &c, nil
}

func applyDefaults(c *Config) {
	if c.FeatureFlags == nil {
		c.FeatureFlags = make(map[string]bool)
	}
	if c.Advisory.RateLimitRPS <= 0 {
		c.Advisory.RateLimitRPS = DefaultRateLimitRPS
	}
	if c.Advisory.RateLimitBurst <= 0 {
		c.Advisory.RateLimitBurst = DefaultRateLimitBurst
	}
	if c.Advisory.RefreshInterval <= 0 {
		c.Advisory.RefreshInterval = DefaultRefreshInterval
	}
	if c.ScanCache.TTL <= 0 {
		c.ScanCache.TTL = DefaultScanCacheTTL
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}
