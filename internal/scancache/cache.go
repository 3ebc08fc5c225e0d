// Package scancache implements the content-addressed scan cache: a
// UnifiedScanReport is stored, together with its CacheEntry, in one JSON
// file under a directory keyed by the SHA-256 of the ScanParameters that
// produced it (§4.5). SBOM and SARIF bytes are not stored; the entry's
// SBOMPath and SARIFPath fields are left empty.
//
// A stored entry is invalidated by either its TTL expiring or any
// manifest's content digest no longer matching what was recorded at store
// time — whichever happens first. A cache entry that fails to parse is
// treated as a miss and removed, never surfaced as an error.
package scancache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cboyd0319/bazbom"
	"github.com/cboyd0319/bazbom/pkg/tmp"
)

// DefaultTTL is how long a cache entry remains valid absent any manifest
// change, per §4.5.
const DefaultTTL = 24 * time.Hour

// Cache is a directory-backed store of CacheEntry records plus the
// UnifiedScanReport each one describes.
type Cache struct {
	dir string
	ttl time.Duration
	log *slog.Logger
}

// New creates a Cache rooted at dir, creating it if necessary.
func New(dir string, opts ...Option) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("scancache: creating cache dir: %w", err)
	}
	c := &Cache{dir: dir, ttl: DefaultTTL, log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Option configures a Cache constructed by New.
type Option func(*Cache)

// WithTTL overrides DefaultTTL.
func WithTTL(d time.Duration) Option { return func(c *Cache) { c.ttl = d } }

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option { return func(c *Cache) { c.log = l } }

type entryFile struct {
	Entry  bazbom.CacheEntry       `json:"entry"`
	Report bazbom.UnifiedScanReport `json:"report"`
}

func (c *Cache) entryPath(key bazbom.Digest) string {
	return filepath.Join(c.dir, key.String()+".json")
}

// TryLoad returns the cached report for params if a valid, unexpired entry
// exists whose recorded manifest digests still match currentManifests. A
// miss (absent, expired, digest-mismatched, or corrupt entry) returns
// (nil, false, nil); corrupt entries are deleted as a side effect.
func (c *Cache) TryLoad(ctx context.Context, params bazbom.ScanParameters, currentManifests map[string]bazbom.Digest) (*bazbom.UnifiedScanReport, bool, error) {
	key := params.Key()
	path := c.entryPath(key)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("scancache: reading entry: %w", err)
	}

	var ef entryFile
	if err := json.Unmarshal(data, &ef); err != nil {
		c.log.WarnContext(ctx, "scan cache entry corrupt, evicting", "path", path, "error", err)
		_ = os.Remove(path)
		return nil, false, nil
	}

	if time.Since(time.Unix(ef.Entry.CreatedAt, 0)) > c.ttl {
		c.log.DebugContext(ctx, "scan cache entry expired", "path", path)
		_ = os.Remove(path)
		return nil, false, nil
	}

	for p, digest := range ef.Entry.ManifestDigests {
		current, ok := currentManifests[p]
		if !ok || current.String() != digest.String() {
			c.log.DebugContext(ctx, "scan cache entry stale, manifest changed", "manifest", p)
			_ = os.Remove(path)
			return nil, false, nil
		}
	}
	for p := range currentManifests {
		if _, ok := ef.Entry.ManifestDigests[p]; !ok {
			// A manifest appeared that wasn't part of the cached scan.
			_ = os.Remove(path)
			return nil, false, nil
		}
	}

	report := ef.Report
	return &report, true, nil
}

// Store writes report under params' cache key, staging it through a
// temporary file in the cache directory so a crash mid-write never leaves a
// corrupt entry visible to TryLoad.
func (c *Cache) Store(ctx context.Context, params bazbom.ScanParameters, report bazbom.UnifiedScanReport, now time.Time) error {
	key := params.Key()
	entry := bazbom.CacheEntry{
		ParametersHash:  key,
		CreatedAt:       now.Unix(),
		TTL:             bazbom.Duration(c.ttl),
		ManifestDigests: params.ManifestDigests,
	}
	data, err := json.Marshal(entryFile{Entry: entry, Report: report})
	if err != nil {
		return fmt.Errorf("scancache: encoding entry: %w", err)
	}

	staged, err := tmp.NewFile(c.dir, "entry-*.json.tmp")
	if err != nil {
		return fmt.Errorf("scancache: staging entry: %w", err)
	}
	if _, err := staged.Write(data); err != nil {
		staged.Close()
		return fmt.Errorf("scancache: writing staged entry: %w", err)
	}
	stagedName := staged.Name()
	if err := staged.File.Close(); err != nil {
		os.Remove(stagedName)
		return fmt.Errorf("scancache: closing staged entry: %w", err)
	}

	path := c.entryPath(key)
	if err := os.Rename(stagedName, path); err != nil {
		os.Remove(stagedName)
		return fmt.Errorf("scancache: committing entry: %w", err)
	}
	c.log.DebugContext(ctx, "stored scan cache entry", "path", path)
	return nil
}
