// Package vulnclient queries an advisory source for the vulnerabilities
// affecting a set of package coordinates, enriching each match with two
// locally-cached feeds: an exploit-likelihood score and a known-exploited
// catalog membership flag.
//
// The batch/enrichment split is grounded on claircore's
// libvuln/driver.{Fetcher,Parser,Updater} separation and its
// enricher/kev and enricher/epss packages, generalized from "vulnerabilities
// affecting a container manifest's layers" to "vulnerabilities affecting a
// set of package coordinates".
package vulnclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cboyd0319/bazbom"
	"github.com/cboyd0319/bazbom/internal/httputil"
)

// maxBatchSize is the largest number of coordinates queried in a single
// request; a caller with more coordinates is paginated across several
// requests by Client.Query.
const maxBatchSize = 1000

// batchQueryRequest/batchQueryResponse model the advisory source's JSON
// batch protocol: a page of up to maxBatchSize coordinates in, a page of
// matching vulnerabilities plus an opaque continuation token out.
type batchQueryRequest struct {
	Coordinates []string `json:"coordinates"`
	PageToken   string   `json:"page_token,omitempty"`
}

type batchQueryResponse struct {
	Vulnerabilities []bazbom.Vulnerability `json:"vulnerabilities"`
	NextPageToken   string                  `json:"next_page_token,omitempty"`
}

// Client queries an advisory batch endpoint and enriches matches with the
// exploit-score and known-exploited feeds.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	limiter    *rate.Limiter
	log        *slog.Logger

	mu                 sync.RWMutex
	exploit            map[string]float64 // CVE/advisory id -> EPSS-style score
	exploited          map[string]bool    // CVE/advisory id -> in known-exploited catalog
	exploitFetchedAt   time.Time
	exploitedFetchedAt time.Time

	refreshInterval time.Duration
	exploitFeed     *url.URL
	exploitedFeed   *url.URL

	// advisoryDir, when set, persists both enrichment feeds to disk under
	// this directory so a later one-shot invocation can reuse them across
	// process restarts without re-fetching inside RefreshInterval (§6).
	advisoryDir string
}

// Option configures a Client constructed by New.
type Option func(*Client)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(c *http.Client) Option { return func(cl *Client) { cl.httpClient = c } }

// WithRateLimit bounds outbound requests per second against the advisory
// endpoint.
func WithRateLimit(rps float64, burst int) Option {
	return func(cl *Client) { cl.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithRefreshInterval overrides the enrichment feeds' refresh cadence
// (default 24h).
func WithRefreshInterval(d time.Duration) Option {
	return func(cl *Client) { cl.refreshInterval = d }
}

// WithEnrichmentFeeds overrides the exploit-score and known-exploited feed
// URLs.
func WithEnrichmentFeeds(exploitScore, knownExploited *url.URL) Option {
	return func(cl *Client) {
		cl.exploitFeed = exploitScore
		cl.exploitedFeed = knownExploited
	}
}

// WithAdvisoryDir enables disk persistence of both enrichment feeds under
// dir, as exploit-scores.json, known-exploited.json, and manifest.json.
func WithAdvisoryDir(dir string) Option {
	return func(cl *Client) { cl.advisoryDir = dir }
}

// New builds a Client against baseURL, the advisory batch-query endpoint.
func New(baseURL *url.URL, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		httpClient:      http.DefaultClient,
		baseURL:         baseURL,
		limiter:         rate.NewLimiter(rate.Limit(10), 10),
		log:             logger,
		exploit:         make(map[string]float64),
		exploited:       make(map[string]bool),
		refreshInterval: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query batches coordinates into pages of up to maxBatchSize, queries each
// page, and returns the union of matching Vulnerabilities with every match
// enriched. If the batch endpoint fails outright, Query falls back to
// one-at-a-time single-coordinate queries and reports that fallback as a
// warning rather than failing the whole scan.
func (c *Client) Query(ctx context.Context, coords []bazbom.Coordinate) ([]bazbom.Vulnerability, []string, error) {
	var (
		all      []bazbom.Vulnerability
		warnings []string
	)

	for start := 0; start < len(coords); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(coords) {
			end = len(coords)
		}
		page := coords[start:end]

		vulns, err := c.queryBatch(ctx, page)
		if err != nil {
			c.log.WarnContext(ctx, "batch vulnerability query failed, falling back to per-package queries", "error", err, "batch_size", len(page))
			warnings = append(warnings, fmt.Sprintf("vulnclient: batch query failed (%v), fell back to individual queries", err))
			for _, coord := range page {
				v, qerr := c.queryOne(ctx, coord)
				if qerr != nil {
					warnings = append(warnings, fmt.Sprintf("vulnclient: query for %s failed: %v", coord.PURL(), qerr))
					continue
				}
				all = append(all, v...)
			}
			continue
		}
		all = append(all, vulns...)
	}

	return all, warnings, nil
}

// queryBatch performs one page of a batch query, following the
// next-page-token chain for that page's coordinate set.
func (c *Client) queryBatch(ctx context.Context, page []bazbom.Coordinate) ([]bazbom.Vulnerability, error) {
	purls := make([]string, len(page))
	for i, coord := range page {
		purls[i] = coord.PURL()
	}

	var (
		all       []bazbom.Vulnerability
		pageToken string
	)
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		body, err := json.Marshal(batchQueryRequest{Coordinates: purls, PageToken: pageToken})
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.String(), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		res, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		err = httputil.CheckResponse(res, http.StatusOK)
		if err != nil {
			res.Body.Close()
			return nil, err
		}
		var out batchQueryResponse
		decErr := json.NewDecoder(res.Body).Decode(&out)
		res.Body.Close()
		if decErr != nil {
			return nil, fmt.Errorf("decoding batch response: %w", decErr)
		}

		all = append(all, out.Vulnerabilities...)
		if out.NextPageToken == "" {
			break
		}
		pageToken = out.NextPageToken
	}
	return all, nil
}

func (c *Client) queryOne(ctx context.Context, coord bazbom.Coordinate) ([]bazbom.Vulnerability, error) {
	return c.queryBatch(ctx, []bazbom.Coordinate{coord})
}

// Enrich builds the Enrichment record for a Vulnerability from the locally
// cached feeds, marking each signal Unknown when its feed has never
// successfully refreshed and holds no entries loaded from disk. Reachability is always Unknown here: BazBOM's
// core never performs reachability analysis itself (§1), so callers that
// have a verdict from an external collaborator set it on the Finding
// afterward.
func (c *Client) Enrich(v bazbom.Vulnerability) bazbom.Enrichment {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e := bazbom.Enrichment{Reachability: bazbom.ReachabilityUnknown}
	if len(c.exploit) == 0 && c.exploitFetchedAt.IsZero() {
		e.ExploitScoreUnknown = true
	} else if score, ok := c.exploit[v.ID]; ok {
		s := score
		e.ExploitScore = &s
	}
	if len(c.exploited) == 0 && c.exploitedFetchedAt.IsZero() {
		e.KnownExploitedUnknown = true
	} else {
		e.InKnownExploited = c.exploited[v.ID]
	}
	return e
}
