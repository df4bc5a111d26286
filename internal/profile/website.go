package profile

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/temoto/robotstxt"

	"github.com/tjaddison/govbiz-ai-sub002/internal/chromium"
	"github.com/tjaddison/govbiz-ai-sub002/internal/extract"
	"github.com/tjaddison/govbiz-ai-sub002/internal/llmclient"
)

const (
	scraperUserAgent  = "govbiz-ai-sub002-crawler/1.0 (+https://example.invalid/bot)"
	crawlRateLimit    = 2 * time.Second
	perDomainPageBudget = 10
	maxCrawlDepth     = 3
)

var importantPagePattern = regexp.MustCompile(`(?i)(about|company|services|capabilities|overview|who-we-are)`)

// RobotsCache caches parsed robots.txt files for up to an hour per domain,
// avoiding a fetch per crawled page.
type RobotsCache struct {
	cache *lru.Cache[string, *robotstxt.RobotsData]
	ttl   time.Duration
	times map[string]time.Time
}

// NewRobotsCache builds a 1-hour-TTL robots.txt cache holding up to size
// domains.
func NewRobotsCache(size int) *RobotsCache {
	c, _ := lru.New[string, *robotstxt.RobotsData](size)
	return &RobotsCache{cache: c, ttl: time.Hour, times: map[string]time.Time{}}
}

// Allowed reports whether scraperUserAgent may fetch pagePath on host,
// fetching and caching /robots.txt on first use or after the TTL expires.
func (r *RobotsCache) Allowed(ctx context.Context, httpClient *http.Client, scheme, host, pagePath string) bool {
	key := scheme + "://" + host
	if data, ok := r.cache.Get(key); ok {
		if time.Since(r.times[key]) < r.ttl {
			return data.TestAgent(pagePath, scraperUserAgent)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key+"/robots.txt", nil)
	if err != nil {
		return true
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return true // unreachable robots.txt: default to allow, matching common crawler behavior
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return true
	}
	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return true
	}
	r.cache.Add(key, data)
	r.times[key] = time.Now()
	return data.TestAgent(pagePath, scraperUserAgent)
}

// Renderer fetches a page's rendered HTML; chromium.Renderer (a thin
// chromedp wrapper) is the production implementation.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

var _ Renderer = (*chromium.Renderer)(nil)

// CompanyOverview is the structured result of crawling a company website.
type CompanyOverview struct {
	PagesCrawled []string `json:"pagesCrawled"`
	Overview     string   `json:"overview"`
}

// Scraper crawls a company's website within robots.txt, rate, and budget
// limits, extracts each page's text via the C1 HTML pipeline, and asks the
// LLM to synthesize a structured company overview from the aggregate.
type Scraper struct {
	HTTPClient *http.Client
	Renderer   Renderer
	Robots     *RobotsCache
	LLM        llmclient.Client
}

// Scrape crawls up to perDomainPageBudget "important" pages starting from
// rootURL, depth-bounded to maxCrawlDepth, rate-limited to one request per
// crawlRateLimit.
func (s *Scraper) Scrape(ctx context.Context, rootURL string) (CompanyOverview, error) {
	parsed, err := url.Parse(rootURL)
	if err != nil {
		return CompanyOverview{}, fmt.Errorf("profile: parse website url: %w", err)
	}

	visited := map[string]struct{}{}
	queue := []crawlTarget{{url: rootURL, depth: 0}}
	var texts []string
	var pages []string

	for len(queue) > 0 && len(pages) < perDomainPageBudget {
		target := queue[0]
		queue = queue[1:]
		if _, ok := visited[target.url]; ok {
			continue
		}
		visited[target.url] = struct{}{}

		if target.depth > maxCrawlDepth {
			continue
		}
		pageURL, err := url.Parse(target.url)
		if err != nil || pageURL.Host != parsed.Host {
			continue
		}
		if s.Robots != nil && !s.Robots.Allowed(ctx, s.HTTPClient, pageURL.Scheme, pageURL.Host, pageURL.Path) {
			continue
		}
		if target.depth > 0 && !importantPagePattern.MatchString(pageURL.Path) {
			continue
		}

		html, err := s.Renderer.Render(ctx, target.url)
		if err != nil {
			continue
		}
		result := extract.Extract(ctx, []byte(html), "page.html", nil)
		if result.Success {
			texts = append(texts, result.FullText)
			pages = append(pages, target.url)
		}

		for _, link := range discoverLinks(html, pageURL) {
			queue = append(queue, crawlTarget{url: link, depth: target.depth + 1})
		}

		select {
		case <-time.After(crawlRateLimit):
		case <-ctx.Done():
			return CompanyOverview{}, ctx.Err()
		}
	}

	overview := strings.Join(texts, "\n\n")
	if s.LLM != nil && overview != "" {
		system := "Synthesize a concise structured company overview (name, mission, services, locations) from these crawled web pages."
		if summarized, err := s.LLM.Complete(ctx, system, overview); err == nil {
			overview = summarized
		}
	}

	return CompanyOverview{PagesCrawled: pages, Overview: overview}, nil
}

type crawlTarget struct {
	url   string
	depth int
}

var linkPattern = regexp.MustCompile(`(?i)href="([^"]+)"`)

func discoverLinks(html string, base *url.URL) []string {
	var out []string
	for _, m := range linkPattern.FindAllStringSubmatch(html, -1) {
		ref, err := url.Parse(m[1])
		if err != nil {
			continue
		}
		resolved := base.ResolveReference(ref)
		if resolved.Host != base.Host {
			continue
		}
		out = append(out, resolved.String())
	}
	return out
}
