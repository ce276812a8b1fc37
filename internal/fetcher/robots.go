package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"
)

const maxRobotsBytes = 512 * 1024

// PolicyCacheOptions parameterise robots.txt retrieval.
type PolicyCacheOptions struct {
	UserAgent string
	Timeout   time.Duration
}

// PolicyCache answers crawl-policy queries, fetching each origin's
// robots.txt at most once for the cache's lifetime. An unreachable,
// non-2xx, or unparsable policy permits fetching; only an explicit
// disallow blocks.
type PolicyCache struct {
	opts   PolicyCacheOptions
	logger zerolog.Logger
	client *http.Client

	mux      sync.Mutex
	byOrigin map[string]*robotstxt.RobotsData
}

// NewPolicyCache builds an empty cache. Create one per run so policy
// changes are picked up between runs.
func NewPolicyCache(opts PolicyCacheOptions, logger zerolog.Logger) *PolicyCache {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &PolicyCache{
		opts:     opts,
		logger:   logger.With().Str("component", "robots").Logger(),
		client:   &http.Client{Timeout: timeout},
		byOrigin: make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether the URL may be fetched under its origin's
// robots.txt for the configured User-Agent.
func (c *PolicyCache) Allowed(ctx context.Context, pageURL string) bool {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" || parsed.Scheme == "" {
		c.logger.Warn().Str("url", pageURL).Msg("unparsable url, treating policy as permitted")
		return true
	}

	data := c.policyFor(ctx, parsed)
	if data == nil {
		return true
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}

	allowed := data.TestAgent(path, c.opts.UserAgent)
	if !allowed {
		c.logger.Warn().Str("url", pageURL).Msg("robots.txt disallows fetching")
	}
	return allowed
}

func (c *PolicyCache) policyFor(ctx context.Context, parsed *url.URL) *robotstxt.RobotsData {
	origin := parsed.Scheme + "://" + parsed.Host

	c.mux.Lock()
	defer c.mux.Unlock()

	if data, ok := c.byOrigin[origin]; ok {
		return data
	}

	data := c.fetch(ctx, origin)
	c.byOrigin[origin] = data
	return data
}

// fetch returns nil whenever the policy cannot be obtained, which callers
// treat as permitted.
func (c *PolicyCache) fetch(ctx context.Context, origin string) *robotstxt.RobotsData {
	robotsURL := origin + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		c.logger.Info().Str("robots_url", robotsURL).Err(err).Msg("could not build robots.txt request, proceeding")
		return nil
	}
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Info().Str("robots_url", robotsURL).Err(err).Msg("could not fetch robots.txt, proceeding")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Info().Str("robots_url", robotsURL).Int("status", resp.StatusCode).Msg("robots.txt not available, proceeding")
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		c.logger.Info().Str("robots_url", robotsURL).Err(err).Msg("could not read robots.txt, proceeding")
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		c.logger.Info().Str("robots_url", robotsURL).Err(err).Msg("could not parse robots.txt, proceeding")
		return nil
	}

	c.logger.Debug().Str("robots_url", robotsURL).Msg("robots.txt cached")
	return data
}

var _ PolicyChecker = (*PolicyCache)(nil)
