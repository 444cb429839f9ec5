package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"ArticleEnhancer/internal/domain"
)

type memoryStore struct {
	mu        sync.Mutex
	articles  map[int64]domain.Article
	nextID    int64
	createErr error
	updateErr error
	creates   int
	updates   []int64
}

func newMemoryStore(articles ...domain.Article) *memoryStore {
	s := &memoryStore{articles: map[int64]domain.Article{}}
	for _, a := range articles {
		s.articles[a.ID] = a
		if a.ID > s.nextID {
			s.nextID = a.ID
		}
	}
	return s
}

func (s *memoryStore) List(_ context.Context, _ domain.Filter) ([]domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Article, 0, len(s.articles))
	for _, a := range s.articles {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memoryStore) Get(_ context.Context, id int64) (domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return domain.Article{}, domain.ErrArticleNotFound
	}
	return a, nil
}

func (s *memoryStore) Latest(context.Context) (domain.Article, error) {
	return domain.Article{}, errors.New("not used")
}

func (s *memoryStore) Derivatives(context.Context, int64) ([]domain.Article, error) {
	return nil, errors.New("not used")
}

func (s *memoryStore) Create(_ context.Context, article domain.Article) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return 0, s.createErr
	}
	if err := article.Validate(); err != nil {
		return 0, err
	}
	s.creates++
	s.nextID++
	article.ID = s.nextID
	s.articles[article.ID] = article
	return article.ID, nil
}

func (s *memoryStore) Update(_ context.Context, id int64, patch domain.ArticlePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, id)
	if s.updateErr != nil {
		return s.updateErr
	}
	a, ok := s.articles[id]
	if !ok {
		return domain.ErrArticleNotFound
	}
	if patch.IsUpdated != nil {
		a.IsUpdated = *patch.IsUpdated
	}
	s.articles[id] = a
	return nil
}

func (s *memoryStore) Delete(context.Context, int64) error {
	return errors.New("not used")
}

type staticDiscoverer struct {
	refs   []domain.Reference
	titles []string
}

func (d *staticDiscoverer) Discover(_ context.Context, title string) []domain.Reference {
	d.titles = append(d.titles, title)
	return d.refs
}

type recordingScraper struct {
	calls []string
}

func (s *recordingScraper) Scrape(_ context.Context, url string) string {
	s.calls = append(s.calls, url)
	return "Error scraping content from " + url + ": simulated failure"
}

type stubGenerator struct {
	text    string
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, _, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.text, g.err
}

type recordingNotifier struct {
	digests []string
	err     error
}

func (n *recordingNotifier) PublishDigest(_ context.Context, digest string) error {
	n.digests = append(n.digests, digest)
	return n.err
}

func fixedClock() time.Time {
	return time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)
}
