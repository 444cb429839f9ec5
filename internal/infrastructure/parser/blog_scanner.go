package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ArticleEnhancer/internal/domain"
	"ArticleEnhancer/internal/ports"
	"ArticleEnhancer/internal/scanner"
)

const (
	defaultBlogLimit    = 5
	defaultBlogElements = 10
	defaultBlogDelay    = time.Second
	blogExcerptLength   = 500
	maxListingBytes     = 5 << 20

	cardClassHints = "post article blog"
)

// BlogScanner reads a blog listing page, follows each post card and keeps the oldest
// entries of the page.
//
// Options: "limit" (entries kept, default 5), "elements" (cards inspected, default 10),
// "delay" (pause between posts, default 1s).
type BlogScanner struct {
	client    *http.Client
	content   ports.ContentScraper
	userAgent string
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time
}

var _ scanner.Scanner = (*BlogScanner)(nil)

// NewBlogScanner wires an HTTP client for listings and a content scraper for post bodies.
func NewBlogScanner(client *http.Client, content ports.ContentScraper, userAgent string, logger *slog.Logger) *BlogScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &BlogScanner{
		client:    client,
		content:   content,
		userAgent: userAgent,
		logger:    logger,
		sleep:     sleepContext,
		now:       time.Now,
	}
}

// Name identifies the strategy inside the registry.
func (b *BlogScanner) Name() string {
	return "blog"
}

// Scan walks each category listing. Cards that fail to parse are skipped.
func (b *BlogScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories provided for site %s", req.SiteName)
	}

	limit := intOption(req, "limit", defaultBlogLimit)
	elements := intOption(req, "elements", defaultBlogElements)
	delay := defaultBlogDelay
	if raw := req.Option("delay", ""); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
			delay = d
		}
	}

	var results []domain.Article
	for _, cat := range req.Categories {
		base, err := url.Parse(cat.URL)
		if err != nil {
			return nil, fmt.Errorf("category %s: invalid url: %w", cat.Name, err)
		}

		doc, err := b.fetchDocument(ctx, cat.URL)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", cat.Name, err)
		}

		cards := FindCards(doc)
		if cards.Length() > elements {
			cards = cards.Slice(0, elements)
		}
		b.debug("listing parsed", "category", cat.Name, "cards", cards.Length())

		var collected []domain.Article
		for i := range cards.Nodes {
			if i > 0 && delay > 0 {
				if err := b.sleep(ctx, delay); err != nil {
					return nil, fmt.Errorf("category %s: %w", cat.Name, err)
				}
			}

			article := ParseCard(cards.Eq(i), base, i, b.now())
			if article.URL != "" && article.URL != base.String() && b.content != nil {
				article.Content = b.content.Scrape(ctx, article.URL)
			} else {
				article.Content = article.Excerpt
			}
			if req.SiteName != "" {
				article.Source = req.SiteName
			}
			if article.Title != "" {
				collected = append(collected, article)
			}
		}

		// listings are newest first; the tail holds the oldest posts
		if len(collected) > limit {
			collected = collected[len(collected)-limit:]
		}
		results = append(results, collected...)
	}

	return results, nil
}

// FindCards selects post cards: article or div elements whose class mentions a post,
// falling back to blog links when no card matches.
func FindCards(doc *goquery.Document) *goquery.Selection {
	cards := doc.Find("article, div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class := strings.ToLower(s.AttrOr("class", ""))
		if class == "" {
			return false
		}
		for _, hint := range strings.Fields(cardClassHints) {
			if strings.Contains(class, hint) {
				return true
			}
		}
		return false
	})
	if cards.Length() > 0 {
		return cards
	}
	return doc.Find("a[href]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(strings.ToLower(s.AttrOr("href", "")), "/blog")
	})
}

// ParseCard extracts title, link, excerpt and date from one card.
func ParseCard(card *goquery.Selection, base *url.URL, idx int, now time.Time) domain.Article {
	isLink := goquery.NodeName(card) == "a"

	title := strings.TrimSpace(card.Find("h1, h2, h3, h4").First().Text())
	if title == "" && isLink {
		title = strings.TrimSpace(card.Text())
	}
	if title == "" {
		title = fmt.Sprintf("Article %d", idx+1)
	}

	link := card
	if !isLink {
		link = card.Find("a[href]").First()
	}
	articleURL := base.String()
	if href, ok := link.Attr("href"); ok && strings.TrimSpace(href) != "" {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			articleURL = base.ResolveReference(ref).String()
		}
	}

	excerpt := strings.TrimSpace(card.Find("p").First().Text())
	excerpt = truncateRunes(excerpt, blogExcerptLength)

	published := now.Format(domain.DateLayout)
	card.Find("time, span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(s.AttrOr("class", "")), "date") {
			if text := strings.TrimSpace(s.Text()); text != "" {
				published = text
				return false
			}
		}
		return true
	})

	return domain.Article{
		Title:         title,
		URL:           articleURL,
		Excerpt:       excerpt,
		PublishedDate: published,
		Source:        domain.DefaultSource,
		ScrapedAt:     now.UTC().Format(time.RFC3339),
	}
}

func (b *BlogScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if b.userAgent != "" {
		req.Header.Set("User-Agent", b.userAgent)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxListingBytes))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}
	return doc, nil
}

func (b *BlogScanner) debug(msg string, args ...interface{}) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}

func intOption(req scanner.Request, name string, def int) int {
	n, err := strconv.Atoi(req.Option(name, ""))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
