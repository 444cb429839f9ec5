package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrArticleNotFound is returned when no row matches the requested id.
	ErrArticleNotFound = errors.New("article not found")
	// ErrInvalidArticle marks input that cannot be persisted.
	ErrInvalidArticle = errors.New("invalid article")
)

// DefaultSource tags articles seeded from the origin blog.
const DefaultSource = "BeyondChats"

// DateLayout is the calendar format used for published_date.
const DateLayout = "2006-01-02"

// Article is the single persisted entity: an original post or a derivative of one.
type Article struct {
	ID              int64         `json:"id"`
	Title           string        `json:"title"`
	Content         string        `json:"content"`
	Excerpt         string        `json:"excerpt"`
	URL             string        `json:"url"`
	PublishedDate   string        `json:"published_date"`
	Source          string        `json:"source"`
	IsUpdated       Flag          `json:"is_updated"`
	ParentArticleID *int64        `json:"parent_article_id"`
	ReferenceURLs   ReferenceList `json:"reference_urls"`
	ScrapedAt       string        `json:"scraped_at"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// IsDerivative reports whether the row was produced from another article.
func (a Article) IsDerivative() bool {
	return a.ParentArticleID != nil
}

// Validate checks the fields required on create.
func (a Article) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidArticle)
	}
	return nil
}

// ArticlePatch carries a partial update; nil fields are left untouched.
type ArticlePatch struct {
	Title           *string        `json:"title"`
	Content         *string        `json:"content"`
	Excerpt         *string        `json:"excerpt"`
	URL             *string        `json:"url"`
	PublishedDate   *string        `json:"published_date"`
	Source          *string        `json:"source"`
	IsUpdated       *Flag          `json:"is_updated"`
	ParentArticleID *int64         `json:"parent_article_id"`
	ReferenceURLs   *ReferenceList `json:"reference_urls"`
	ScrapedAt       *string        `json:"scraped_at"`
}

// Empty reports whether the patch changes nothing.
func (p ArticlePatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Excerpt == nil && p.URL == nil &&
		p.PublishedDate == nil && p.Source == nil && p.IsUpdated == nil &&
		p.ParentArticleID == nil && p.ReferenceURLs == nil && p.ScrapedAt == nil
}

// Filter narrows list queries by provenance.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterOriginal  Filter = "original"
	FilterOptimized Filter = "optimized"
)

// ParseFilter maps a query value to a Filter; unknown values select everything.
func ParseFilter(v string) Filter {
	switch Filter(strings.ToLower(strings.TrimSpace(v))) {
	case FilterOriginal:
		return FilterOriginal
	case FilterOptimized, "updated", "enhanced":
		return FilterOptimized
	default:
		return FilterAll
	}
}

// Flag is a boolean that also accepts the 0/1 integers older clients send.
type Flag bool

// UnmarshalJSON accepts true/false, 0/1 and their quoted forms.
func (f *Flag) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch strings.ToLower(raw) {
	case "", "null":
		*f = false
		return nil
	case "true":
		*f = true
		return nil
	case "false":
		*f = false
		return nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("flag: cannot parse %q", raw)
	}
	*f = n != 0
	return nil
}

// FlagPtr is a helper for building patches.
func FlagPtr(v bool) *Flag {
	f := Flag(v)
	return &f
}
