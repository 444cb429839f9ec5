package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ArticleEnhancer/internal/config"
	"ArticleEnhancer/internal/domain"
	"ArticleEnhancer/internal/ports"
)

const (
	// MaxReferences caps how many sources one enhancement consults.
	MaxReferences = 2

	// anchors shorter than this in the loose pass are usually UI chrome
	minLooseAnchorText = 20
	maxSearchPageBytes = 2 << 20
)

// FallbackReferences is returned whenever the live search cannot be used.
var FallbackReferences = []domain.Reference{
	{
		URL:   "https://www.healthit.gov/topic/artificial-intelligence",
		Title: "Artificial Intelligence in Healthcare - HealthIT.gov",
	},
	{
		URL:   "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC6616181/",
		Title: "Artificial intelligence in healthcare - PMC",
	},
}

// Discoverer finds reference pages for a title through a web search results page.
type Discoverer struct {
	client     *http.Client
	endpoint   string
	userAgent  string
	excluded   []string
	maxResults int
	logger     *slog.Logger
}

var _ ports.ReferenceDiscoverer = (*Discoverer)(nil)

// NewDiscoverer wires an HTTP client; a nil client gets the configured timeout.
func NewDiscoverer(client *http.Client, cfg config.SearchConfig, logger *slog.Logger) *Discoverer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 || maxResults > MaxReferences {
		maxResults = MaxReferences
	}

	excluded := make([]string, 0, len(cfg.ExcludedDomains))
	for _, d := range cfg.ExcludedDomains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "www."))
		if d != "" {
			excluded = append(excluded, d)
		}
	}

	return &Discoverer{
		client:     client,
		endpoint:   cfg.Endpoint,
		userAgent:  cfg.UserAgent,
		excluded:   excluded,
		maxResults: maxResults,
		logger:     logger,
	}
}

// Discover returns at most maxResults references for title. Search failures never
// surface: the fixed FallbackReferences pair is returned instead.
func (d *Discoverer) Discover(ctx context.Context, title string) []domain.Reference {
	d.debug("search", "query", title)

	doc, err := d.fetchResults(ctx, title)
	if err != nil {
		d.warn("search failed, using fallback references", "query", title, "error", err)
		return d.fallback()
	}

	results := d.ParseResults(doc)
	d.debug("search done", "query", title, "results", len(results))
	return results
}

// ParseResults extracts result links from a search page, trying result blocks first
// and any long external anchor second.
func (d *Discoverer) ParseResults(doc *goquery.Document) []domain.Reference {
	collector := newCollector(d.maxResults, d.excluded)

	doc.Find("div.g, div[data-sokoban-container]").EachWithBreak(func(_ int, block *goquery.Selection) bool {
		title := cleanText(block.Find("h3").First().Text())
		if title == "" {
			return true
		}
		if href, ok := firstResultLink(block); ok {
			collector.add(href, title)
		}
		return !collector.full()
	})

	if collector.empty() {
		doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			text := cleanText(a.Text())
			if len([]rune(text)) <= minLooseAnchorText {
				return true
			}
			href, _ := a.Attr("href")
			collector.add(href, text)
			return !collector.full()
		})
	}

	return collector.results
}

func (d *Discoverer) fetchResults(ctx context.Context, title string) (*goquery.Document, error) {
	if d.endpoint == "" {
		return nil, fmt.Errorf("search endpoint is not configured")
	}

	searchURL, err := url.Parse(d.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid search endpoint %s: %w", d.endpoint, err)
	}
	query := searchURL.Query()
	query.Set("q", title)
	searchURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request search page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxSearchPageBytes))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}
	return doc, nil
}

func (d *Discoverer) fallback() []domain.Reference {
	n := d.maxResults
	if n > len(FallbackReferences) {
		n = len(FallbackReferences)
	}
	out := make([]domain.Reference, n)
	copy(out, FallbackReferences[:n])
	return out
}

func (d *Discoverer) debug(msg string, args ...interface{}) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}

func (d *Discoverer) warn(msg string, args ...interface{}) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}

type collector struct {
	limit    int
	excluded []string
	seen     map[string]struct{}
	results  []domain.Reference
}

func newCollector(limit int, excluded []string) *collector {
	return &collector{limit: limit, excluded: excluded, seen: map[string]struct{}{}}
}

func (c *collector) add(href, title string) {
	if c.full() {
		return
	}
	target, ok := resultURL(href)
	if !ok || isExcluded(target, c.excluded) {
		return
	}
	key := target.String()
	if _, dup := c.seen[key]; dup {
		return
	}
	c.seen[key] = struct{}{}
	c.results = append(c.results, domain.Reference{URL: key, Title: title})
}

func (c *collector) full() bool  { return len(c.results) >= c.limit }
func (c *collector) empty() bool { return len(c.results) == 0 }

// firstResultLink skips relative UI links (/search?..., #) that lead some result blocks.
func firstResultLink(block *goquery.Selection) (string, bool) {
	var href string
	block.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		candidate, _ := a.Attr("href")
		if _, ok := resultURL(candidate); ok {
			href = candidate
			return false
		}
		return true
	})
	return href, href != ""
}

// resultURL accepts absolute http(s) links and unwraps "/url?q=" redirect links.
func resultURL(href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "/url?") {
		if redirect, err := url.Parse(href); err == nil {
			href = redirect.Query().Get("q")
		}
	}

	u, err := url.Parse(href)
	if err != nil || u.Host == "" {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	return u, true
}

func isExcluded(u *url.URL, excluded []string) bool {
	host := strings.ToLower(u.Hostname())
	for _, d := range excluded {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
