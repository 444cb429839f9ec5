package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ArticleEnhancer/internal/domain"
	"ArticleEnhancer/internal/ports"
	"ArticleEnhancer/internal/usecase"
)

// EnhanceRunner triggers one enhancement run.
type EnhanceRunner interface {
	Run(ctx context.Context) (usecase.Result, error)
}

// ArticleHandler serves the article CRUD surface.
type ArticleHandler struct {
	store    ports.ArticleStore
	enhancer EnhanceRunner
	logger   *slog.Logger
}

// NewArticleHandler accepts a nil enhancer; the enhance route then answers 503.
func NewArticleHandler(store ports.ArticleStore, enhancer EnhanceRunner, logger *slog.Logger) *ArticleHandler {
	return &ArticleHandler{store: store, enhancer: enhancer, logger: logger}
}

type createArticleRequest struct {
	Title           string               `json:"title"`
	Content         string               `json:"content"`
	Excerpt         string               `json:"excerpt"`
	URL             string               `json:"url"`
	PublishedDate   string               `json:"published_date"`
	Source          string               `json:"source"`
	IsUpdated       domain.Flag          `json:"is_updated"`
	ParentArticleID *int64               `json:"parent_article_id"`
	ReferenceURLs   domain.ReferenceList `json:"reference_urls"`
	ScrapedAt       string               `json:"scraped_at"`
}

func (r createArticleRequest) article() domain.Article {
	return domain.Article{
		Title:           r.Title,
		Content:         r.Content,
		Excerpt:         r.Excerpt,
		URL:             r.URL,
		PublishedDate:   r.PublishedDate,
		Source:          r.Source,
		IsUpdated:       r.IsUpdated,
		ParentArticleID: r.ParentArticleID,
		ReferenceURLs:   r.ReferenceURLs,
		ScrapedAt:       r.ScrapedAt,
	}
}

// Index lists the available endpoints.
// GET /
func (h *ArticleHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "BeyondChats Article Management API",
		"version": "1.0",
		"endpoints": gin.H{
			"GET /articles":             "Get all articles (?filter=original|optimized)",
			"GET /articles/:id":         "Get a specific article",
			"GET /articles/:id/related": "Get the parent or derivatives of an article",
			"GET /articles/latest":      "Get the latest unupdated article",
			"POST /articles":            "Create a new article",
			"POST /articles/enhance":    "Enhance the newest unupdated article",
			"PUT /articles/:id":         "Update an article",
			"DELETE /articles/:id":      "Delete an article",
		},
	})
}

// List returns all articles, newest first.
// GET /articles?filter=original
func (h *ArticleHandler) List(c *gin.Context) {
	articles, err := h.store.List(c.Request.Context(), domain.ParseFilter(c.Query("filter")))
	if err != nil {
		h.fail(c, err)
		return
	}
	if articles == nil {
		articles = []domain.Article{}
	}
	respondList(c, articles, len(articles))
}

// Latest returns the newest article that has not been enhanced.
// GET /articles/latest
func (h *ArticleHandler) Latest(c *gin.Context) {
	article, err := h.store.Latest(c.Request.Context())
	if errors.Is(err, domain.ErrArticleNotFound) {
		respondMessage(c, http.StatusNotFound, "No articles found")
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	respondData(c, http.StatusOK, article)
}

// Get returns one article.
// GET /articles/:id
func (h *ArticleHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	article, err := h.store.Get(c.Request.Context(), id)
	if errors.Is(err, domain.ErrArticleNotFound) {
		respondMessage(c, http.StatusNotFound, "Article not found")
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	respondData(c, http.StatusOK, article)
}

// Related returns the parent of a derivative, or the derivatives of an original.
// GET /articles/:id/related
func (h *ArticleHandler) Related(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	article, err := h.store.Get(ctx, id)
	if errors.Is(err, domain.ErrArticleNotFound) {
		respondMessage(c, http.StatusNotFound, "Article not found")
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	related := []domain.Article{}
	if article.ParentArticleID != nil {
		parent, err := h.store.Get(ctx, *article.ParentArticleID)
		switch {
		case err == nil:
			related = append(related, parent)
		case !errors.Is(err, domain.ErrArticleNotFound):
			h.fail(c, err)
			return
		}
	} else {
		children, err := h.store.Derivatives(ctx, id)
		if err != nil {
			h.fail(c, err)
			return
		}
		related = append(related, children...)
	}
	respondList(c, related, len(related))
}

// Create stores a new article.
// POST /articles
func (h *ArticleHandler) Create(c *gin.Context) {
	var req createArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}
	if req.Title == "" {
		respondMessage(c, http.StatusBadRequest, "Title is required")
		return
	}

	id, err := h.store.Create(c.Request.Context(), req.article())
	switch {
	case errors.Is(err, domain.ErrInvalidArticle):
		respondError(c, http.StatusBadRequest, err)
		return
	case errors.Is(err, domain.ErrArticleNotFound):
		respondMessage(c, http.StatusBadRequest, "Parent article not found")
		return
	case err != nil:
		h.fail(c, err)
		return
	}
	respondCreated(c, id)
}

// Update applies a partial update.
// PUT /articles/:id
func (h *ArticleHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var patch domain.ArticlePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondError(c, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}
	if patch.Empty() {
		respondMessage(c, http.StatusBadRequest, "No fields to update")
		return
	}
	if patch.Title != nil && *patch.Title == "" {
		respondMessage(c, http.StatusBadRequest, "Title cannot be empty")
		return
	}

	err := h.store.Update(c.Request.Context(), id, patch)
	if errors.Is(err, domain.ErrArticleNotFound) {
		respondMessage(c, http.StatusNotFound, "Article not found")
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Article updated")
}

// Delete removes an article.
// DELETE /articles/:id
func (h *ArticleHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	err := h.store.Delete(c.Request.Context(), id)
	if errors.Is(err, domain.ErrArticleNotFound) {
		respondMessage(c, http.StatusNotFound, "Article not found")
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Article deleted")
}

// Enhance runs one enhancement pass synchronously.
// POST /articles/enhance
func (h *ArticleHandler) Enhance(c *gin.Context) {
	if h.enhancer == nil {
		respondMessage(c, http.StatusServiceUnavailable, "Enhancer is not configured")
		return
	}

	result, err := h.enhancer.Run(c.Request.Context())
	if errors.Is(err, usecase.ErrNothingToEnhance) {
		respondMessage(c, http.StatusNotFound, "Nothing to enhance")
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	respondData(c, http.StatusOK, result)
}

func (h *ArticleHandler) fail(c *gin.Context, err error) {
	if h.logger != nil {
		h.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	respondError(c, http.StatusInternalServerError, err)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondMessage(c, http.StatusBadRequest, "Invalid article id")
		return 0, false
	}
	return id, true
}
