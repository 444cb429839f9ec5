package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ArticleEnhancer/internal/config"
	"ArticleEnhancer/internal/ports"
)

const (
	truncationMarker = "..."
	maxPageBytes     = 5 << 20

	// element and class names only; containers such as form or body stay, they may wrap the article
	noiseSelector = "script, style, noscript, nav, header, footer, aside, iframe, .advertisement, .ads"
)

var paragraphBreak = regexp.MustCompile(`\s*\n\s*\n\s*`)

// Scraper fetches a page and extracts its main readable text.
type Scraper struct {
	client             *http.Client
	userAgent          string
	minContentLength   int
	maxContentLength   int
	minParagraphLength int
	logger             *slog.Logger
}

var _ ports.ContentScraper = (*Scraper)(nil)

// New wires an HTTP client; a nil client gets the configured timeout (15s by default).
func New(client *http.Client, cfg config.ScraperConfig, logger *slog.Logger) *Scraper {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	s := &Scraper{
		client:             client,
		userAgent:          cfg.UserAgent,
		minContentLength:   cfg.MinContentLength,
		maxContentLength:   cfg.MaxContentLength,
		minParagraphLength: cfg.MinParagraphLength,
		logger:             logger,
	}
	if s.minContentLength <= 0 {
		s.minContentLength = 200
	}
	if s.maxContentLength <= 0 {
		s.maxContentLength = 5000
	}
	if s.minParagraphLength <= 0 {
		s.minParagraphLength = 50
	}
	return s
}

// Scrape returns the extracted text of pageURL. Fetch or parse failures come back as a
// short message naming the URL instead of an error.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) string {
	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		s.warn("scrape failed", "url", pageURL, "error", err)
		return fmt.Sprintf("Error scraping content from %s: %v", pageURL, err)
	}

	content := s.Extract(doc)
	if content == "" {
		s.debug("no content extracted", "url", pageURL)
		return fmt.Sprintf("Content could not be extracted from %s.", pageURL)
	}

	s.debug("scraped", "url", pageURL, "chars", len([]rune(content)))
	return content
}

// Extract strips page chrome and applies the extraction strategies in priority order,
// stopping at the first one that yields at least minContentLength characters.
func (s *Scraper) Extract(doc *goquery.Document) string {
	doc.Find(noiseSelector).Remove()
	// block boundaries become blank lines so Normalize keeps them as paragraph breaks
	doc.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote, pre").AfterHtml("\n\n")

	strategies := []func(*goquery.Document) string{
		func(d *goquery.Document) string { return d.Find("article").First().Text() },
		func(d *goquery.Document) string { return d.Find("main").First().Text() },
		func(d *goquery.Document) string {
			return d.Find(`div[class*="content"], div[class*="article"], div[class*="post"]`).First().Text()
		},
		s.paragraphs,
	}

	var best string
	for _, strategy := range strategies {
		text := Normalize(strategy(doc))
		if len([]rune(text)) >= s.minContentLength {
			return Truncate(text, s.maxContentLength)
		}
		if len(text) > len(best) {
			best = text
		}
	}
	return Truncate(best, s.maxContentLength)
}

func (s *Scraper) paragraphs(doc *goquery.Document) string {
	var parts []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if len([]rune(text)) > s.minParagraphLength {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n\n")
}

func (s *Scraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

// Normalize collapses whitespace runs to single spaces and blank-line runs to one
// paragraph break.
func Normalize(text string) string {
	blocks := paragraphBreak.Split(strings.TrimSpace(text), -1)
	out := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if collapsed := strings.Join(strings.Fields(block), " "); collapsed != "" {
			out = append(out, collapsed)
		}
	}
	return strings.Join(out, "\n\n")
}

// Truncate cuts text to max characters and appends an ellipsis when it had to cut.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return text
	}
	return strings.TrimRight(string(runes[:max]), " \n") + truncationMarker
}

func (s *Scraper) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Scraper) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
