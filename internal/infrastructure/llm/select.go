package llm

import (
	"context"
	"log/slog"

	"ArticleEnhancer/internal/config"
	"ArticleEnhancer/internal/ports"
)

// FromConfig picks the configured backend: ChatGPT first, Gemini second. It returns nil
// when neither has credentials, which leaves synthesis on the template path.
func FromConfig(ctx context.Context, cfg config.Config, logger *slog.Logger) ports.TextGenerator {
	if cfg.ChatGPT.APIKey != "" {
		return NewChatGPTClient(cfg.ChatGPT)
	}
	if cfg.Gemini.APIKey != "" {
		client, err := NewGeminiClient(ctx, cfg.Gemini)
		if err != nil {
			if logger != nil {
				logger.Warn("gemini backend unavailable", "error", err)
			}
			return nil
		}
		return client
	}
	return nil
}
