package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone      = "UTC"
	configPathEnv        = "ARTICLE_ENHANCER_CONFIG"
	logLevelEnv          = "LOG_LEVEL"
	databaseDriverEnv    = "DATABASE_DRIVER"
	databaseDSNEnv       = "DATABASE_DSN"
	portEnv              = "PORT"
	openAIAPIKeyEnv      = "OPENAI_API_KEY"
	chatGPTModelEnv      = "CHATGPT_MODEL"
	geminiAPIKeyEnv      = "GEMINI_API_KEY"
	markParentUpdatedEnv = "MARK_PARENT_UPDATED"
	telegramTokenEnv     = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv    = "TELEGRAM_CHAT_ID"

	// placeholder shipped in sample .env files; treated as unset
	apiKeyPlaceholder = "your_openai_api_key_here"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Server        ServerConfig       `yaml:"server"`
	Search        SearchConfig       `yaml:"search"`
	Scraper       ScraperConfig      `yaml:"scraper"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	Gemini        GeminiConfig       `yaml:"gemini"`
	Enhancer      EnhancerConfig     `yaml:"enhancer"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Sites         []SiteConfig       `yaml:"sites"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the article table location.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// ServerConfig is the CRUD API listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// SearchConfig drives reference discovery.
type SearchConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	Timeout         time.Duration `yaml:"timeout"`
	ExcludedDomains []string      `yaml:"excludedDomains"`
	MaxResults      int           `yaml:"maxResults"`
	UserAgent       string        `yaml:"userAgent"`
}

// ScraperConfig bounds page fetching and extraction.
type ScraperConfig struct {
	Timeout            time.Duration `yaml:"timeout"`
	UserAgent          string        `yaml:"userAgent"`
	MinContentLength   int           `yaml:"minContentLength"`
	MaxContentLength   int           `yaml:"maxContentLength"`
	MinParagraphLength int           `yaml:"minParagraphLength"`
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	MaxTokens    int           `yaml:"maxTokens"`
	Temperature  float64       `yaml:"temperature"`
	Timeout      time.Duration `yaml:"timeout"`
}

// GeminiConfig is the secondary generative backend.
type GeminiConfig struct {
	APIKey      string        `yaml:"apiKey"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"baseUrl"`
	MaxTokens   int           `yaml:"maxTokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// EnhancerConfig tunes the enhancement run.
type EnhancerConfig struct {
	MarkParentUpdated      bool          `yaml:"markParentUpdated"`
	ScrapeDelay            time.Duration `yaml:"scrapeDelay"`
	SourceSuffix           string        `yaml:"sourceSuffix"`
	ReferenceExcerptLength int           `yaml:"referenceExcerptLength"`
	ExcerptLength          int           `yaml:"excerptLength"`
}

// SchedulerConfig defines how often the watch loop runs.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// SiteConfig describes a single seed site with its scanner strategy.
type SiteConfig struct {
	Name       string            `yaml:"name"`
	Scanner    string            `yaml:"scanner"`
	Categories []CategoryConfig  `yaml:"categories"`
	Options    map[string]string `yaml:"options"`
}

// CategoryConfig holds the concrete listing pages to crawl.
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Load reads the file named by ARTICLE_ENHANCER_CONFIG (if any) and applies env overrides.
func Load() Config {
	return LoadFrom(os.Getenv(configPathEnv))
}

// LoadFrom reads YAML from path over the defaults; an empty path skips the file.
func LoadFrom(path string) Config {
	cfg := Default()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if parsed, err := Parse(raw); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = parsed
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	return cfg
}

// Parse decodes YAML on top of the defaults, so omitted keys keep their default value.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode yaml: %w", err)
	}
	if len(cfg.Sites) == 0 {
		cfg.Sites = Default().Sites
	}
	cfg.bindTimezone()
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is empty")
	}
	if c.Scraper.MaxContentLength <= 0 {
		return fmt.Errorf("scraper maxContentLength must be positive")
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search maxResults must not be negative")
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(portEnv); v != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}
	if c.ChatGPT.APIKey == apiKeyPlaceholder {
		c.ChatGPT.APIKey = ""
	}
	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}

	if v := os.Getenv(geminiAPIKeyEnv); v != "" {
		c.Gemini.APIKey = v
	}

	if v := os.Getenv(markParentUpdatedEnv); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Enhancer.MarkParentUpdated = b
		} else {
			log.Printf("config: ignoring %s=%q: %v", markParentUpdatedEnv, v, err)
		}
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	browserUA := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "data/articles.sqlite"},
		Server:   ServerConfig{Addr: ":8000"},
		Search: SearchConfig{
			Endpoint:        "https://www.google.com/search",
			Timeout:         15 * time.Second,
			ExcludedDomains: []string{"google.com", "youtube.com", "beyondchats.com"},
			MaxResults:      2,
			UserAgent:       browserUA,
		},
		Scraper: ScraperConfig{
			Timeout:            15 * time.Second,
			UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			MinContentLength:   200,
			MaxContentLength:   5000,
			MinParagraphLength: 50,
		},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-3.5-turbo",
			SystemPrompt: "You are an expert content writer and SEO specialist. Your task is to rewrite and optimize articles based on top-ranking content while maintaining originality and adding value.",
			MaxTokens:    2000,
			Temperature:  0.7,
			Timeout:      30 * time.Second,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			MaxTokens:   2000,
			Temperature: 0.7,
			Timeout:     30 * time.Second,
		},
		Enhancer: EnhancerConfig{
			MarkParentUpdated:      true,
			ScrapeDelay:            2 * time.Second,
			SourceSuffix:           "Optimized",
			ReferenceExcerptLength: 1000,
			ExcerptLength:          200,
		},
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour, Timezone: defaultTimezone, location: tz},
		Sites: []SiteConfig{
			{
				Name:    "BeyondChats",
				Scanner: "blog",
				Categories: []CategoryConfig{
					{Name: "blogs", URL: "https://beyondchats.com/blogs"},
				},
				Options: map[string]string{"limit": "5"},
			},
		},
	}
}
