package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"ArticleEnhancer/internal/domain"
	"ArticleEnhancer/internal/ports"
)

// matches "## References", "References:" or "**References**" on a line of its own
var referencesHeading = regexp.MustCompile(`(?mi)^[ \t]*(?:#{1,6}[ \t]*)?(?:\*\*)?references:?(?:\*\*)?[ \t]*$`)

const defaultSystemPrompt = "You are an expert content writer and SEO specialist. Your task is to rewrite " +
	"and optimize articles based on top-ranking content while maintaining originality and adding value."

// SynthesizerConfig tunes prompt and excerpt sizes.
type SynthesizerConfig struct {
	SystemPrompt           string
	SourceSuffix           string
	ReferenceExcerptLength int
	ExcerptLength          int
}

// Synthesizer turns an original plus its reference corpus into a derivative article,
// through the generative backend when one is configured and a fixed template otherwise.
type Synthesizer struct {
	generator ports.TextGenerator
	cfg       SynthesizerConfig
	logger    *slog.Logger
	now       func() time.Time
}

var _ ports.Synthesizer = (*Synthesizer)(nil)

// NewSynthesizer accepts a nil generator; synthesis then never leaves the process.
func NewSynthesizer(generator ports.TextGenerator, cfg SynthesizerConfig, logger *slog.Logger) *Synthesizer {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if cfg.SourceSuffix == "" {
		cfg.SourceSuffix = "Optimized"
	}
	if cfg.ReferenceExcerptLength <= 0 {
		cfg.ReferenceExcerptLength = 1000
	}
	if cfg.ExcerptLength <= 0 {
		cfg.ExcerptLength = 200
	}
	return &Synthesizer{generator: generator, cfg: cfg, logger: logger, now: time.Now}
}

// Synthesize never fails: backend errors fall back to the template composition.
func (s *Synthesizer) Synthesize(ctx context.Context, original domain.Article, refs []domain.ReferenceContent) domain.Article {
	content := ""
	if s.generator != nil {
		generated, err := s.generator.Generate(ctx, s.cfg.SystemPrompt, BuildPrompt(original, refs, s.cfg.ReferenceExcerptLength))
		if err != nil {
			s.warn("generative backend failed, using template", "article_id", original.ID, "error", err)
		} else {
			content = ensureReferences(generated, refs)
			s.debug("generated content", "article_id", original.ID, "chars", len(content))
		}
	}
	if content == "" {
		content = ComposeTemplate(original, refs)
		s.debug("template content", "article_id", original.ID, "chars", len(content))
	}

	parentID := original.ID
	return domain.Article{
		Title:           original.Title,
		Content:         content,
		Excerpt:         Excerpt(content, s.cfg.ExcerptLength),
		URL:             original.URL,
		PublishedDate:   s.now().Format(domain.DateLayout),
		Source:          derivedSource(original.Source, s.cfg.SourceSuffix),
		IsUpdated:       true,
		ParentArticleID: &parentID,
		ReferenceURLs:   domain.References(refs),
		ScrapedAt:       s.now().UTC().Format(time.RFC3339),
	}
}

// BuildPrompt asks for a rewrite of original informed by a prefix of each reference.
func BuildPrompt(original domain.Article, refs []domain.ReferenceContent, excerptLength int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original Article Title: %s\n\n", original.Title)
	fmt.Fprintf(&b, "Original Content:\n%s\n\n", original.Content)
	b.WriteString("---\n\n")
	b.WriteString("Reference Articles (top-ranking content):\n\n")

	for i, ref := range refs {
		fmt.Fprintf(&b, "Reference %d: %s\n", i+1, ref.Title)
		fmt.Fprintf(&b, "URL: %s\n", ref.URL)
		fmt.Fprintf(&b, "Content: %s\n\n", clip(ref.Content, excerptLength))
	}

	b.WriteString("---\n\n")
	b.WriteString("Task: Rewrite the original article by:\n")
	b.WriteString("1. Analyzing the structure and formatting of the reference articles\n")
	b.WriteString("2. Incorporating best practices from top-ranking content\n")
	b.WriteString("3. Maintaining the original message but improving clarity and structure\n")
	b.WriteString("4. Making it more engaging and comprehensive\n")
	b.WriteString("5. Adding a \"References\" section at the end citing the reference articles\n\n")
	b.WriteString("Please provide the complete rewritten article:")
	return b.String()
}

// ComposeTemplate builds the deterministic derivative document. The original content is
// embedded verbatim.
func ComposeTemplate(original domain.Article, refs []domain.ReferenceContent) string {
	intro := strings.TrimSpace(original.Excerpt)
	if intro == "" {
		intro = clip(strings.TrimSpace(original.Content), 200)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", original.Title)
	b.WriteString("*This article has been optimized based on top-ranking content in this topic area.*\n\n")
	b.WriteString("## Introduction\n\n")
	b.WriteString(intro + "\n\n")
	b.WriteString("## Key Insights\n\n")
	b.WriteString("Based on analysis of leading articles in this space, we've identified several important considerations:\n\n")
	b.WriteString(original.Content + "\n\n")
	b.WriteString("## Best Practices from Industry Leaders\n\n")
	b.WriteString("After reviewing top-ranking content, including articles from authoritative sources, ")
	b.WriteString("we've incorporated the following best practices:\n\n")
	b.WriteString("- Clear, structured formatting that improves readability\n")
	b.WriteString("- Comprehensive coverage of the topic\n")
	b.WriteString("- Evidence-based insights and practical examples\n")
	b.WriteString("- Search-friendly structure and headings\n\n")
	b.WriteString("## Conclusion\n\n")
	b.WriteString("This topic requires careful consideration and ongoing attention. ")
	b.WriteString("The insights shared here are based on current best practices and industry research.")
	b.WriteString(RenderReferences(refs))
	return b.String()
}

// RenderReferences renders a numbered Markdown list under a References heading.
func RenderReferences(refs []domain.ReferenceContent) string {
	if len(refs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n## References\n\n")
	for i, ref := range refs {
		title := ref.Title
		if title == "" {
			title = ref.URL
		}
		fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, title, ref.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Excerpt takes the first prose paragraph, skipping Markdown headings and emphasis lines.
func Excerpt(content string, max int) string {
	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" || strings.HasPrefix(para, "#") || isEmphasisLine(para) {
			continue
		}
		return clip(para, max)
	}
	return clip(strings.TrimSpace(content), max)
}

func isEmphasisLine(p string) bool {
	return len(p) > 1 && strings.HasPrefix(p, "*") && strings.HasSuffix(p, "*") && !strings.Contains(p, "\n")
}

func ensureReferences(content string, refs []domain.ReferenceContent) string {
	content = strings.TrimSpace(content)
	if content == "" || len(refs) == 0 || referencesHeading.MatchString(content) {
		return content
	}
	return content + RenderReferences(refs)
}

func derivedSource(source, suffix string) string {
	if source == "" {
		source = domain.DefaultSource
	}
	if strings.HasSuffix(source, suffix) {
		return source
	}
	return source + " - " + suffix
}

func clip(text string, max int) string {
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return text
	}
	return strings.TrimSpace(string(runes[:max])) + "..."
}

func (s *Synthesizer) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Synthesizer) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
