package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"ArticleEnhancer/internal/domain"
	"ArticleEnhancer/internal/ports"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// fixed width keeps lexical and chronological order identical
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

var articleColumns = []string{
	"id", "title", "content", "excerpt", "url", "published_date", "source",
	"is_updated", "parent_article_id", "reference_urls", "scraped_at", "created_at", "updated_at",
}

// SQLRepository persists articles into SQLite or Postgres through squirrel-built queries.
type SQLRepository struct {
	db     *sql.DB
	sb     sq.StatementBuilderType
	driver string
	now    func() time.Time
}

var _ ports.ArticleStore = (*SQLRepository)(nil)

// Open connects to the database and makes sure the articles table exists.
func Open(ctx context.Context, driver, dsn string) (*SQLRepository, error) {
	if driver == DriverSQLite && !strings.Contains(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:") {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	if driver == DriverSQLite {
		dsn = withForeignKeys(dsn)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		// one connection so :memory: databases are shared and writes serialize
		db.SetMaxOpenConns(1)
	}

	repo, err := NewSQLRepository(db, driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// withForeignKeys asks modernc sqlite to enable foreign keys on every new connection.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

// NewSQLRepository wires an existing sql.DB for the given driver.
func NewSQLRepository(db *sql.DB, driver string) (*SQLRepository, error) {
	var placeholder sq.PlaceholderFormat
	switch driver {
	case DriverSQLite:
		placeholder = sq.Question
	case DriverPostgres:
		placeholder = sq.Dollar
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	return &SQLRepository{
		db:     db,
		sb:     sq.StatementBuilder.PlaceholderFormat(placeholder),
		driver: driver,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Migrate creates the articles table when missing.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	parentColumn := "parent_article_id INTEGER NULL REFERENCES articles(id) ON DELETE SET NULL"
	if r.driver == DriverPostgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
		parentColumn = "parent_article_id BIGINT NULL REFERENCES articles(id) ON DELETE SET NULL"
	}

	var statements []string
	if r.driver == DriverSQLite {
		// covers connections opened without the DSN pragma
		statements = append(statements, `PRAGMA foreign_keys = ON`)
	}
	statements = append(statements,
		`CREATE TABLE IF NOT EXISTS articles (
			` + idColumn + `,
			title TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			excerpt TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			published_date TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT 'BeyondChats',
			is_updated BOOLEAN NOT NULL DEFAULT FALSE,
			` + parentColumn + `,
			reference_urls TEXT NULL,
			scraped_at TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_parent ON articles (parent_article_id)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_created ON articles (created_at)`,
	)

	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate articles: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (r *SQLRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// List returns articles newest first.
func (r *SQLRepository) List(ctx context.Context, filter domain.Filter) ([]domain.Article, error) {
	query := r.selectArticles()
	switch filter {
	case domain.FilterOriginal:
		query = query.Where(sq.Eq{"is_updated": false})
	case domain.FilterOptimized:
		query = query.Where(sq.Eq{"is_updated": true})
	}
	return r.queryArticles(ctx, query)
}

// Get loads one article by id.
func (r *SQLRepository) Get(ctx context.Context, id int64) (domain.Article, error) {
	return r.queryOne(ctx, r.selectArticles().Where(sq.Eq{"id": id}))
}

// Latest returns the most recent article not yet marked as updated.
func (r *SQLRepository) Latest(ctx context.Context) (domain.Article, error) {
	return r.queryOne(ctx, r.selectArticles().Where(sq.Eq{"is_updated": false}).Limit(1))
}

// Derivatives lists the rows produced from parentID.
func (r *SQLRepository) Derivatives(ctx context.Context, parentID int64) ([]domain.Article, error) {
	return r.queryArticles(ctx, r.selectArticles().Where(sq.Eq{"parent_article_id": parentID}))
}

// Create inserts the article and returns the assigned id.
func (r *SQLRepository) Create(ctx context.Context, article domain.Article) (int64, error) {
	if err := article.Validate(); err != nil {
		return 0, err
	}
	if article.ParentArticleID != nil {
		if err := r.ensureExists(ctx, *article.ParentArticleID); err != nil {
			return 0, fmt.Errorf("parent article %d: %w", *article.ParentArticleID, err)
		}
	}

	now := r.now()
	if article.Source == "" {
		article.Source = domain.DefaultSource
	}
	if article.PublishedDate == "" {
		article.PublishedDate = now.Format(domain.DateLayout)
	}
	if article.ScrapedAt == "" {
		article.ScrapedAt = now.Format(time.RFC3339)
	}

	refs, err := encodeReferences(article.ReferenceURLs)
	if err != nil {
		return 0, err
	}

	query := r.sb.Insert("articles").
		Columns("title", "content", "excerpt", "url", "published_date", "source",
			"is_updated", "parent_article_id", "reference_urls", "scraped_at", "created_at", "updated_at").
		Values(article.Title, article.Content, article.Excerpt, article.URL, article.PublishedDate,
			article.Source, bool(article.IsUpdated), nullableID(article.ParentArticleID), refs,
			article.ScrapedAt, now.Format(timestampLayout), now.Format(timestampLayout)).
		Suffix("RETURNING id")

	var id int64
	if err := query.RunWith(r.db).QueryRowContext(ctx).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert article: %w", err)
	}
	return id, nil
}

// Update applies the non-nil patch fields; a missing id yields ErrArticleNotFound.
func (r *SQLRepository) Update(ctx context.Context, id int64, patch domain.ArticlePatch) error {
	if patch.ParentArticleID != nil {
		if err := r.ensureExists(ctx, *patch.ParentArticleID); err != nil {
			return fmt.Errorf("parent article %d: %w", *patch.ParentArticleID, err)
		}
	}

	set, err := patchColumns(patch)
	if err != nil {
		return err
	}
	set["updated_at"] = r.now().Format(timestampLayout)

	res, err := r.sb.Update("articles").SetMap(set).Where(sq.Eq{"id": id}).
		RunWith(r.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update article %d: %w", id, err)
	}
	return affectedOrNotFound(res)
}

// Delete removes the row; a missing id yields ErrArticleNotFound.
func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.sb.Delete("articles").Where(sq.Eq{"id": id}).RunWith(r.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("delete article %d: %w", id, err)
	}
	return affectedOrNotFound(res)
}

func (r *SQLRepository) ensureExists(ctx context.Context, id int64) error {
	var found int64
	err := r.sb.Select("id").From("articles").Where(sq.Eq{"id": id}).
		RunWith(r.db).QueryRowContext(ctx).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrArticleNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup article: %w", err)
	}
	return nil
}

func (r *SQLRepository) selectArticles() sq.SelectBuilder {
	return r.sb.Select(articleColumns...).From("articles").OrderBy("created_at DESC", "id DESC")
}

func (r *SQLRepository) queryOne(ctx context.Context, query sq.SelectBuilder) (domain.Article, error) {
	articles, err := r.queryArticles(ctx, query)
	if err != nil {
		return domain.Article{}, err
	}
	if len(articles) == 0 {
		return domain.Article{}, domain.ErrArticleNotFound
	}
	return articles[0], nil
}

func (r *SQLRepository) queryArticles(ctx context.Context, query sq.SelectBuilder) ([]domain.Article, error) {
	rows, err := query.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}

	result := make([]domain.Article, 0)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		result = append(result, article)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

func scanArticle(rows *sql.Rows) (domain.Article, error) {
	var (
		article              domain.Article
		content, excerpt     sql.NullString
		url, published       sql.NullString
		source, scrapedAt    sql.NullString
		refs                 sql.NullString
		parent               sql.NullInt64
		isUpdated            bool
		createdAt, updatedAt string
	)

	err := rows.Scan(&article.ID, &article.Title, &content, &excerpt, &url, &published, &source,
		&isUpdated, &parent, &refs, &scrapedAt, &createdAt, &updatedAt)
	if err != nil {
		return domain.Article{}, fmt.Errorf("scan article: %w", err)
	}

	article.Content = content.String
	article.Excerpt = excerpt.String
	article.URL = url.String
	article.PublishedDate = published.String
	article.Source = source.String
	article.IsUpdated = domain.Flag(isUpdated)
	article.ScrapedAt = scrapedAt.String
	if parent.Valid {
		id := parent.Int64
		article.ParentArticleID = &id
	}

	if refs.Valid {
		list, err := domain.ParseReferenceList(refs.String)
		if err != nil {
			return domain.Article{}, fmt.Errorf("article %d: %w", article.ID, err)
		}
		article.ReferenceURLs = list
	}

	article.CreatedAt = parseTimestamp(createdAt)
	article.UpdatedAt = parseTimestamp(updatedAt)
	return article, nil
}

func patchColumns(patch domain.ArticlePatch) (map[string]interface{}, error) {
	set := map[string]interface{}{}
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", domain.ErrInvalidArticle)
		}
		set["title"] = *patch.Title
	}
	if patch.Content != nil {
		set["content"] = *patch.Content
	}
	if patch.Excerpt != nil {
		set["excerpt"] = *patch.Excerpt
	}
	if patch.URL != nil {
		set["url"] = *patch.URL
	}
	if patch.PublishedDate != nil {
		set["published_date"] = *patch.PublishedDate
	}
	if patch.Source != nil {
		set["source"] = *patch.Source
	}
	if patch.IsUpdated != nil {
		set["is_updated"] = bool(*patch.IsUpdated)
	}
	if patch.ParentArticleID != nil {
		set["parent_article_id"] = *patch.ParentArticleID
	}
	if patch.ReferenceURLs != nil {
		refs, err := encodeReferences(*patch.ReferenceURLs)
		if err != nil {
			return nil, err
		}
		set["reference_urls"] = refs
	}
	if patch.ScrapedAt != nil {
		set["scraped_at"] = *patch.ScrapedAt
	}
	return set, nil
}

func encodeReferences(list domain.ReferenceList) (sql.NullString, error) {
	encoded, err := list.Encode()
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: encoded, Valid: encoded != ""}, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}

func parseTimestamp(v string) time.Time {
	for _, layout := range []string{timestampLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
