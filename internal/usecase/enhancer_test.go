package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticleEnhancer/internal/domain"
)

func ptr(id int64) *int64 { return &id }

type enhancerFixture struct {
	store      *memoryStore
	discoverer *staticDiscoverer
	scraper    *recordingScraper
	notifier   *recordingNotifier
	delays     []time.Duration
	enhancer   *Enhancer
}

func newEnhancerFixture(store *memoryStore, markParent bool) *enhancerFixture {
	f := &enhancerFixture{
		store: store,
		discoverer: &staticDiscoverer{refs: []domain.Reference{
			{URL: "https://a.example/one", Title: "One"},
			{URL: "https://b.example/two", Title: "Two"},
		}},
		scraper:  &recordingScraper{},
		notifier: &recordingNotifier{},
	}
	synth := NewSynthesizer(nil, SynthesizerConfig{}, nil)
	synth.now = fixedClock

	f.enhancer = NewEnhancer(EnhancerDeps{
		Store:             store,
		Discoverer:        f.discoverer,
		Scraper:           f.scraper,
		Synthesizer:       synth,
		Notifier:          f.notifier,
		ScrapeDelay:       2 * time.Second,
		MarkParentUpdated: markParent,
	})
	f.enhancer.sleep = func(_ context.Context, d time.Duration) error {
		f.delays = append(f.delays, d)
		return nil
	}
	f.enhancer.newRunID = func() string { return "run-1" }
	return f
}

func TestEnhancerRunHappyPath(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	store := newMemoryStore(
		domain.Article{ID: 1, Title: "Older", Content: "old body", CreatedAt: base},
		domain.Article{ID: 2, Title: "Newer", Content: "new body", CreatedAt: base.Add(time.Hour)},
	)
	f := newEnhancerFixture(store, true)

	result, err := f.enhancer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, int64(2), result.OriginalID)
	assert.Equal(t, int64(3), result.DerivativeID)
	assert.Len(t, result.References, 2)
	assert.Empty(t, result.ParentMarkError)

	assert.Equal(t, []string{"Newer"}, f.discoverer.titles)
	assert.Equal(t, []string{"https://a.example/one", "https://b.example/two"}, f.scraper.calls)
	assert.Equal(t, []time.Duration{2 * time.Second}, f.delays)

	derivative, err := store.Get(context.Background(), result.DerivativeID)
	require.NoError(t, err)
	require.NotNil(t, derivative.ParentArticleID)
	assert.Equal(t, int64(2), *derivative.ParentArticleID)
	assert.Contains(t, derivative.Content, "new body")

	parent, err := store.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, bool(parent.IsUpdated))

	require.Len(t, f.notifier.digests, 1)
	assert.Contains(t, f.notifier.digests[0], "original #2 -> derivative #3")
}

func TestEnhancerNothingToDoWhenOriginalHasDerivative(t *testing.T) {
	t.Parallel()

	store := newMemoryStore(
		domain.Article{ID: 3, Title: "Original"},
		domain.Article{ID: 4, Title: "Original", IsUpdated: true, ParentArticleID: ptr(3)},
	)
	f := newEnhancerFixture(store, true)

	_, err := f.enhancer.Run(context.Background())
	require.ErrorIs(t, err, ErrNothingToEnhance)
	assert.Zero(t, store.creates)
	assert.Empty(t, store.updates)
	assert.Empty(t, f.discoverer.titles)
	assert.Empty(t, f.notifier.digests)
}

func TestEnhancerLeavesParentWhenMarkingDisabled(t *testing.T) {
	t.Parallel()

	store := newMemoryStore(domain.Article{ID: 1, Title: "Only"})
	f := newEnhancerFixture(store, false)

	_, err := f.enhancer.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, store.updates)

	parent, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, bool(parent.IsUpdated))

	// the child row alone keeps the original out of the next selection
	_, err = f.enhancer.Run(context.Background())
	require.ErrorIs(t, err, ErrNothingToEnhance)
}

func TestEnhancerStoreFailureAbortsRun(t *testing.T) {
	t.Parallel()

	store := newMemoryStore(domain.Article{ID: 1, Title: "Only"})
	store.createErr = errors.New("disk full")
	f := newEnhancerFixture(store, true)

	_, err := f.enhancer.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, store.updates)
	assert.Empty(t, f.notifier.digests)
}

func TestEnhancerParentFlipFailureIsWarning(t *testing.T) {
	t.Parallel()

	store := newMemoryStore(domain.Article{ID: 1, Title: "Only"})
	store.updateErr = errors.New("locked")
	f := newEnhancerFixture(store, true)

	result, err := f.enhancer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "locked", result.ParentMarkError)
	assert.Equal(t, 1, store.creates)
}

func TestEnhancerNotifierFailureDoesNotFailRun(t *testing.T) {
	t.Parallel()

	store := newMemoryStore(domain.Article{ID: 1, Title: "Only"})
	f := newEnhancerFixture(store, true)
	f.notifier.err = errors.New("telegram down")

	_, err := f.enhancer.Run(context.Background())
	require.NoError(t, err)
}

func TestEnhancerRunsWithZeroReferences(t *testing.T) {
	t.Parallel()

	store := newMemoryStore(domain.Article{ID: 1, Title: "Only"})
	f := newEnhancerFixture(store, true)
	f.discoverer.refs = nil

	result, err := f.enhancer.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.References)
	assert.Empty(t, f.scraper.calls)
	assert.Empty(t, f.delays)
}

func TestEnhancerCancelledDuringDelay(t *testing.T) {
	t.Parallel()

	store := newMemoryStore(domain.Article{ID: 1, Title: "Only"})
	f := newEnhancerFixture(store, true)
	f.enhancer.sleep = sleepContext
	f.enhancer.scrapeDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := f.enhancer.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.creates)
	assert.Len(t, f.scraper.calls, 1)
}

func TestSelectCandidate(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	articles := []domain.Article{
		{ID: 1, CreatedAt: base.Add(3 * time.Hour), IsUpdated: true},
		{ID: 2, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 3, CreatedAt: base.Add(4 * time.Hour), IsUpdated: true, ParentArticleID: ptr(2)},
		{ID: 4, CreatedAt: base},
		{ID: 5, CreatedAt: base},
	}

	got, ok := SelectCandidate(articles)
	require.True(t, ok)
	assert.Equal(t, int64(5), got.ID)

	_, ok = SelectCandidate(nil)
	assert.False(t, ok)
}

func TestBuildDigestMessage(t *testing.T) {
	t.Parallel()

	msg := buildDigestMessage(Result{
		OriginalID:   1,
		DerivativeID: 2,
		Title:        "AI in Medicine",
		References:   []domain.Reference{{URL: "https://a.example", Title: ""}},
	})
	assert.True(t, strings.HasPrefix(msg, "*Article enhanced*\nAI in Medicine\n"))
	assert.Contains(t, msg, "- https://a.example\nhttps://a.example")
}

func TestBuildDigestMessageEscapesMarkdown(t *testing.T) {
	t.Parallel()

	msg := buildDigestMessage(Result{
		OriginalID:   4,
		DerivativeID: 9,
		Title:        "AI_in *Medicine* [2025]",
		References: []domain.Reference{
			{URL: "https://en.wikipedia.org/wiki/Artificial_intelligence", Title: "Artificial_intelligence"},
		},
	})

	assert.True(t, strings.HasPrefix(msg, "*Article enhanced*\n"), msg)
	assert.Contains(t, msg, `AI\_in \*Medicine\* \[2025]`)
	assert.Contains(t, msg, `- Artificial\_intelligence`)
	assert.Contains(t, msg, `https://en.wikipedia.org/wiki/Artificial\_intelligence`)
	assert.NotContains(t, msg, "wiki/Artificial_intelligence")
}
