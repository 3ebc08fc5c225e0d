package vulnclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cboyd0319/bazbom/internal/httputil"
	"github.com/cboyd0319/bazbom/pkg/tmp"
)

// Filenames under advisoryDir that persist the enrichment feeds and the
// timestamps they were last fetched at (§6's "Persisted state layout").
const (
	exploitScoreFile     = "exploit-scores.json"
	knownExploitedFile   = "known-exploited.json"
	advisoryManifestFile = "manifest.json"
)

// persistedExploitScores/persistedKnownExploited are the on-disk shape of
// the two feeds, distinct from the remote feed's own wire format so a
// change to the upstream feed shape doesn't require migrating local state.
type persistedExploitScores struct {
	Scores map[string]float64 `json:"scores"`
}

type persistedKnownExploited struct {
	CVEIDs map[string]bool `json:"cve_ids"`
}

// advisoryManifest records when each feed was last fetched from its network
// source, so a later process can tell whether a persisted feed is still
// within RefreshInterval without re-fetching.
type advisoryManifest struct {
	ExploitScoreFetchedAt   int64 `json:"exploit_score_fetched_at,omitempty"`
	KnownExploitedFetchedAt int64 `json:"known_exploited_fetched_at,omitempty"`
}

// knownExploitedEntry mirrors the shape of a CISA-KEV-style catalog entry:
// the advisory identifier plus the catalog metadata BazBOM doesn't use but
// decodes past to stay forward-compatible with additional fields.
type knownExploitedEntry struct {
	CVEID string `json:"cveID"`
}

type knownExploitedCatalog struct {
	Vulnerabilities []knownExploitedEntry `json:"vulnerabilities"`
}

// exploitScoreEntry mirrors an EPSS-style feed row: an advisory id and its
// exploit-likelihood score in [0, 1].
type exploitScoreEntry struct {
	CVE   string  `json:"cve"`
	Score float64 `json:"score"`
}

type exploitScoreFeed struct {
	Scores []exploitScoreEntry `json:"scores"`
}

// StartEnrichmentRefresh loads any persisted feeds from advisoryDir, then
// fetches both enrichment feeds once immediately (skipping a feed whose
// persisted copy is still within RefreshInterval) and again on
// RefreshInterval until ctx is canceled. It returns after the first refresh
// attempt; subsequent refreshes run in a background goroutine so a slow or
// unreachable feed never blocks a scan.
func (c *Client) StartEnrichmentRefresh(ctx context.Context) {
	c.loadPersisted(ctx)
	c.refreshOnce(ctx)
	go func() {
		t := time.NewTicker(c.refreshInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.refreshOnce(ctx)
			}
		}
	}()
}

func (c *Client) refreshOnce(ctx context.Context) {
	now := time.Now()
	if c.exploitedFeed != nil && !c.isFresh(c.exploitedFetchedAt, now) {
		if err := c.refreshKnownExploited(ctx); err != nil {
			c.log.WarnContext(ctx, "known-exploited feed refresh failed", "error", err)
		}
	}
	if c.exploitFeed != nil && !c.isFresh(c.exploitFetchedAt, now) {
		if err := c.refreshExploitScore(ctx); err != nil {
			c.log.WarnContext(ctx, "exploit-score feed refresh failed", "error", err)
		}
	}
}

// isFresh reports whether a feed last fetched at fetchedAt is still within
// RefreshInterval as of now. A zero fetchedAt (never fetched) is never
// fresh.
func (c *Client) isFresh(fetchedAt, now time.Time) bool {
	return !fetchedAt.IsZero() && now.Sub(fetchedAt) < c.refreshInterval
}

func (c *Client) refreshKnownExploited(ctx context.Context) error {
	rc, err := c.fetchFeed(ctx, c.exploitedFeed.String())
	if err != nil {
		return err
	}
	defer rc.Close()

	var catalog knownExploitedCatalog
	if err := json.NewDecoder(rc).Decode(&catalog); err != nil {
		return fmt.Errorf("parsing known-exploited feed: %w", err)
	}

	exploited := make(map[string]bool, len(catalog.Vulnerabilities))
	for _, e := range catalog.Vulnerabilities {
		exploited[e.CVEID] = true
	}

	fetchedAt := time.Now()
	c.mu.Lock()
	c.exploited = exploited
	c.exploitedFetchedAt = fetchedAt
	c.mu.Unlock()

	if data, err := json.Marshal(persistedKnownExploited{CVEIDs: exploited}); err == nil {
		if err := c.persistFile(knownExploitedFile, data); err != nil {
			c.log.WarnContext(ctx, "persisting known-exploited feed failed", "error", err)
		}
	}
	c.updateManifest(ctx, func(m *advisoryManifest) { m.KnownExploitedFetchedAt = fetchedAt.Unix() })
	return nil
}

func (c *Client) refreshExploitScore(ctx context.Context) error {
	rc, err := c.fetchFeed(ctx, c.exploitFeed.String())
	if err != nil {
		return err
	}
	defer rc.Close()

	var feed exploitScoreFeed
	if err := json.NewDecoder(rc).Decode(&feed); err != nil {
		return fmt.Errorf("parsing exploit-score feed: %w", err)
	}

	scores := make(map[string]float64, len(feed.Scores))
	for _, e := range feed.Scores {
		scores[e.CVE] = e.Score
	}

	fetchedAt := time.Now()
	c.mu.Lock()
	c.exploit = scores
	c.exploitFetchedAt = fetchedAt
	c.mu.Unlock()

	if data, err := json.Marshal(persistedExploitScores{Scores: scores}); err == nil {
		if err := c.persistFile(exploitScoreFile, data); err != nil {
			c.log.WarnContext(ctx, "persisting exploit-score feed failed", "error", err)
		}
	}
	c.updateManifest(ctx, func(m *advisoryManifest) { m.ExploitScoreFetchedAt = fetchedAt.Unix() })
	return nil
}

// loadPersisted seeds the in-memory feeds and their fetch timestamps from
// advisoryDir, if set and populated. A missing or corrupt file is treated
// as "never fetched" rather than an error.
func (c *Client) loadPersisted(ctx context.Context) {
	if c.advisoryDir == "" {
		return
	}
	manifest := c.readManifest()

	if c.exploitFeed != nil {
		var p persistedExploitScores
		if c.readJSONFile(exploitScoreFile, &p) {
			c.mu.Lock()
			c.exploit = p.Scores
			if manifest.ExploitScoreFetchedAt > 0 {
				c.exploitFetchedAt = time.Unix(manifest.ExploitScoreFetchedAt, 0)
			}
			c.mu.Unlock()
			c.log.DebugContext(ctx, "loaded persisted exploit-score feed", "dir", c.advisoryDir)
		}
	}
	if c.exploitedFeed != nil {
		var p persistedKnownExploited
		if c.readJSONFile(knownExploitedFile, &p) {
			c.mu.Lock()
			c.exploited = p.CVEIDs
			if manifest.KnownExploitedFetchedAt > 0 {
				c.exploitedFetchedAt = time.Unix(manifest.KnownExploitedFetchedAt, 0)
			}
			c.mu.Unlock()
			c.log.DebugContext(ctx, "loaded persisted known-exploited feed", "dir", c.advisoryDir)
		}
	}
}

func (c *Client) readManifest() advisoryManifest {
	var m advisoryManifest
	c.readJSONFile(advisoryManifestFile, &m)
	return m
}

// readJSONFile decodes name (relative to advisoryDir) into v, reporting
// whether it found and parsed a file.
func (c *Client) readJSONFile(name string, v interface{}) bool {
	data, err := os.ReadFile(filepath.Join(c.advisoryDir, name))
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// updateManifest read-modify-writes manifest.json under advisoryDir,
// applying mutate to whatever is currently persisted.
func (c *Client) updateManifest(ctx context.Context, mutate func(*advisoryManifest)) {
	if c.advisoryDir == "" {
		return
	}
	m := c.readManifest()
	mutate(&m)
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := c.persistFile(advisoryManifestFile, data); err != nil {
		c.log.WarnContext(ctx, "persisting advisory manifest failed", "error", err)
	}
}

// persistFile stages data under advisoryDir and renames it into place as
// name, mirroring internal/scancache.Cache's staged-write pattern so a
// crash mid-write never leaves a corrupt feed visible to loadPersisted.
func (c *Client) persistFile(name string, data []byte) error {
	if c.advisoryDir == "" {
		return nil
	}
	if err := os.MkdirAll(c.advisoryDir, 0o755); err != nil {
		return fmt.Errorf("creating advisory dir: %w", err)
	}
	staged, err := tmp.NewFile(c.advisoryDir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("staging %s: %w", name, err)
	}
	if _, err := staged.Write(data); err != nil {
		staged.Close()
		return fmt.Errorf("writing staged %s: %w", name, err)
	}
	stagedName := staged.Name()
	if err := staged.File.Close(); err != nil {
		os.Remove(stagedName)
		return fmt.Errorf("closing staged %s: %w", name, err)
	}
	path := filepath.Join(c.advisoryDir, name)
	if err := os.Rename(stagedName, path); err != nil {
		os.Remove(stagedName)
		return fmt.Errorf("committing %s: %w", name, err)
	}
	return nil
}

// fetchFeed spools a feed response to a self-cleaning temp file before
// decoding it, so a large feed never holds the response body connection
// open across the parse.
func (c *Client) fetchFeed(ctx context.Context, feedURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if err := httputil.CheckResponse(res, http.StatusOK); err != nil {
		return nil, err
	}

	out, err := tmp.NewFile("", "bazbom-feed.")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(out, res.Body); err != nil {
		out.Close()
		return nil, fmt.Errorf("spooling feed response: %w", err)
	}
	if _, err := out.Seek(0, io.SeekStart); err != nil {
		out.Close()
		return nil, fmt.Errorf("resetting feed spool: %w", err)
	}
	return out, nil
}
