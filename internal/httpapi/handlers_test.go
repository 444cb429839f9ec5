package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticleEnhancer/internal/domain"
	"ArticleEnhancer/internal/infrastructure/storage"
	"ArticleEnhancer/internal/usecase"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubRunner struct {
	result usecase.Result
	err    error
}

func (s stubRunner) Run(context.Context) (usecase.Result, error) {
	return s.result, s.err
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Count   *int            `json:"count"`
	ID      *int64          `json:"id"`
}

func newTestServer(t *testing.T, runner EnhanceRunner) (*gin.Engine, *storage.SQLRepository) {
	t.Helper()

	store, err := storage.Open(context.Background(), storage.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	router := NewRouter(RouterConfig{Articles: NewArticleHandler(store, runner, nil)})
	return router, store
}

func do(t *testing.T, router http.Handler, method, path, body string) (int, response) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec.Code, decoded
}

func TestCreateGetListFlow(t *testing.T) {
	t.Parallel()
	router, _ := newTestServer(t, nil)

	code, resp := do(t, router, http.MethodPost, "/articles", `{"title":"AI in Medicine","content":"body","is_updated":0}`)
	require.Equal(t, http.StatusCreated, code)
	require.True(t, resp.Success)
	require.NotNil(t, resp.ID)
	assert.Equal(t, "Article created", resp.Message)

	code, resp = do(t, router, http.MethodGet, "/articles/1", "")
	require.Equal(t, http.StatusOK, code)
	var article domain.Article
	require.NoError(t, json.Unmarshal(resp.Data, &article))
	assert.Equal(t, "AI in Medicine", article.Title)
	assert.Equal(t, domain.DefaultSource, article.Source)

	code, resp = do(t, router, http.MethodGet, "/articles", "")
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, resp.Count)
	assert.Equal(t, 1, *resp.Count)

	code, resp = do(t, router, http.MethodGet, "/articles/latest", "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()
	router, _ := newTestServer(t, nil)

	code, resp := do(t, router, http.MethodPost, "/articles", `{"content":"no title"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Title is required", resp.Message)

	code, resp = do(t, router, http.MethodPost, "/articles", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, resp.Error)

	code, resp = do(t, router, http.MethodPost, "/articles", `{"title":"child","parent_article_id":99}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Parent article not found", resp.Message)
}

func TestUpdateMissingArticleIsNotFound(t *testing.T) {
	t.Parallel()
	router, _ := newTestServer(t, nil)

	code, resp := do(t, router, http.MethodPut, "/articles/5", `{"is_updated": 1}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Article not found", resp.Message)
}

func TestUpdateAndDelete(t *testing.T) {
	t.Parallel()
	router, store := newTestServer(t, nil)

	id, err := store.Create(context.Background(), domain.Article{Title: "before"})
	require.NoError(t, err)

	code, resp := do(t, router, http.MethodPut, "/articles/1", `{"title":"after","is_updated":true}`)
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, "Article updated", resp.Message)

	got, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
	assert.True(t, bool(got.IsUpdated))

	code, resp = do(t, router, http.MethodPut, "/articles/1", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "No fields to update", resp.Message)

	code, _ = do(t, router, http.MethodDelete, "/articles/1", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, router, http.MethodDelete, "/articles/1", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestInvalidIDAndMissingRoutes(t *testing.T) {
	t.Parallel()
	router, _ := newTestServer(t, nil)

	code, resp := do(t, router, http.MethodGet, "/articles/abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid article id", resp.Message)

	code, _ = do(t, router, http.MethodGet, "/articles/42", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = do(t, router, http.MethodGet, "/articles/latest", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "No articles found", resp.Message)

	code, _ = do(t, router, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRelated(t *testing.T) {
	t.Parallel()
	router, store := newTestServer(t, nil)
	ctx := context.Background()

	parentID, err := store.Create(ctx, domain.Article{Title: "original"})
	require.NoError(t, err)
	childID, err := store.Create(ctx, domain.Article{Title: "original", IsUpdated: true, ParentArticleID: &parentID})
	require.NoError(t, err)

	code, resp := do(t, router, http.MethodGet, "/articles/1/related", "")
	require.Equal(t, http.StatusOK, code)
	var children []domain.Article
	require.NoError(t, json.Unmarshal(resp.Data, &children))
	require.Len(t, children, 1)
	assert.Equal(t, childID, children[0].ID)

	code, resp = do(t, router, http.MethodGet, "/articles/2/related", "")
	require.Equal(t, http.StatusOK, code)
	var parents []domain.Article
	require.NoError(t, json.Unmarshal(resp.Data, &parents))
	require.Len(t, parents, 1)
	assert.Equal(t, parentID, parents[0].ID)
}

func TestFilterQuery(t *testing.T) {
	t.Parallel()
	router, store := newTestServer(t, nil)
	ctx := context.Background()

	_, err := store.Create(ctx, domain.Article{Title: "original"})
	require.NoError(t, err)
	_, err = store.Create(ctx, domain.Article{Title: "optimized", IsUpdated: true})
	require.NoError(t, err)

	_, resp := do(t, router, http.MethodGet, "/articles?filter=optimized", "")
	require.NotNil(t, resp.Count)
	assert.Equal(t, 1, *resp.Count)
}

func TestEnhanceEndpoint(t *testing.T) {
	t.Parallel()

	router, _ := newTestServer(t, stubRunner{result: usecase.Result{OriginalID: 1, DerivativeID: 2}})
	code, resp := do(t, router, http.MethodPost, "/articles/enhance", "")
	require.Equal(t, http.StatusOK, code)
	var result usecase.Result
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, int64(2), result.DerivativeID)

	idle, _ := newTestServer(t, stubRunner{err: usecase.ErrNothingToEnhance})
	code, resp = do(t, idle, http.MethodPost, "/articles/enhance", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Nothing to enhance", resp.Message)

	disabled, _ := newTestServer(t, nil)
	code, _ = do(t, disabled, http.MethodPost, "/articles/enhance", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestIndex(t *testing.T) {
	t.Parallel()
	router, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "BeyondChats Article Management API")
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}
