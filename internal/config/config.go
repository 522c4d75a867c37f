// Package config builds the immutable run configuration from the environment
// and the YAML source list.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/deusflow/dailybrief/internal/news"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Generator backends.
const (
	GeneratorAuto   = ""
	GeneratorOpenAI = "openai"
	GeneratorGemini = "gemini"
	GeneratorNone   = "none"
)

type Config struct {
	// Sources
	SourcesConfigPath string
	Sources           []news.SourceSpec
	Categories        []news.Category

	// Snapshot
	OutputDir  string
	LatestFile string
	MaxItems   int
	Timezone   string
	Location   *time.Location

	// Generation service
	Generator         string
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string
	GeminiAPIKey      string
	GeminiModel       string
	SummaryLanguage   string
	MaxInputChars     int
	MaxGenerations    int // 0 = unlimited
	GenerationTimeout time.Duration

	// Fallback + dedup
	FallbackSummaryChars int
	TitleKeyLength       int
	BodyKeyLength        int

	// Fetching
	FetchFullText  bool
	UserAgent      string
	RequestTimeout time.Duration
	ItemDelay      time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration

	// Delivery
	TelegramToken            string
	TelegramChatID           string
	TelegramItemsPerCategory int
	HTMLOutputPath           string

	// App settings
	Debug            bool
	Schedule         string
	EnableMonitoring bool
	MonitoringPort   string
}

// Load reads an optional .env file, then the environment, then the source
// list referenced by SOURCES_CONFIG_PATH.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := FromEnv()
	if err := cfg.LoadSources(cfg.SourcesConfigPath); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// FromEnv applies environment overrides on top of the defaults. It does not
// touch the source list.
func FromEnv() *Config {
	cfg := &Config{
		// Default values
		SourcesConfigPath:        "configs/sources.yaml",
		OutputDir:                "posts",
		LatestFile:               "latest.json",
		MaxItems:                 60,
		Timezone:                 "Asia/Seoul",
		OpenAIModel:              "gpt-4o-mini",
		GeminiModel:              "gemini-1.5-flash",
		SummaryLanguage:          "Korean",
		MaxInputChars:            3500,
		GenerationTimeout:        45 * time.Second,
		FallbackSummaryChars:     450,
		TitleKeyLength:           15,
		BodyKeyLength:            30,
		FetchFullText:            true,
		UserAgent:                defaultUserAgent,
		RequestTimeout:           15 * time.Second,
		ItemDelay:                500 * time.Millisecond,
		RetryAttempts:            2,
		RetryDelay:               2 * time.Second,
		TelegramItemsPerCategory: 3,
		MonitoringPort:           "8080",
	}

	cfg.SourcesConfigPath = getEnvOrDefault("SOURCES_CONFIG_PATH", cfg.SourcesConfigPath)
	cfg.OutputDir = getEnvOrDefault("OUTPUT_DIR", cfg.OutputDir)
	cfg.LatestFile = getEnvOrDefault("LATEST_FILE", cfg.LatestFile)
	cfg.MaxItems = getEnvIntOrDefault("MAX_ITEMS", cfg.MaxItems)

	cfg.Timezone = getEnvOrDefault("TIMEZONE", cfg.Timezone)
	cfg.Location = time.Local
	if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
		cfg.Location = loc
	}

	cfg.Generator = strings.ToLower(strings.TrimSpace(os.Getenv("GENERATOR")))
	if cfg.Generator == "auto" {
		cfg.Generator = GeneratorAuto
	}
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.GeminiModel = getEnvOrDefault("GEMINI_MODEL", cfg.GeminiModel)
	cfg.SummaryLanguage = getEnvOrDefault("SUMMARY_LANGUAGE", cfg.SummaryLanguage)

	if v := getEnvIntOrDefault("MAX_INPUT_CHARS", 0); v > 0 {
		cfg.MaxInputChars = v
	}
	if v := getEnvIntOrDefault("MAX_GENERATIONS", 0); v > 0 {
		cfg.MaxGenerations = v
	}
	if v := getEnvIntOrDefault("FALLBACK_SUMMARY_CHARS", 0); v > 0 {
		cfg.FallbackSummaryChars = v
	}
	if v := getEnvIntOrDefault("DEDUP_TITLE_KEY_LENGTH", 0); v > 0 {
		cfg.TitleKeyLength = v
	}
	cfg.GenerationTimeout = getEnvDurationOrDefault("GENERATION_TIMEOUT", cfg.GenerationTimeout)

	if v := os.Getenv("FETCH_FULL_TEXT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.FetchFullText = b
		}
	}
	cfg.UserAgent = getEnvOrDefault("USER_AGENT", cfg.UserAgent)
	cfg.RequestTimeout = getEnvDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.ItemDelay = getEnvDurationOrDefault("ITEM_DELAY", cfg.ItemDelay)
	if v := getEnvIntOrDefault("RETRY_ATTEMPTS", 0); v > 0 {
		cfg.RetryAttempts = v
	}
	cfg.RetryDelay = getEnvDurationOrDefault("RETRY_DELAY", cfg.RetryDelay)

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")
	if v := getEnvIntOrDefault("TELEGRAM_ITEMS_PER_CATEGORY", 0); v > 0 {
		cfg.TelegramItemsPerCategory = v
	}
	cfg.HTMLOutputPath = os.Getenv("HTML_OUTPUT_PATH")

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}
	cfg.Schedule = os.Getenv("SCHEDULE")
	cfg.EnableMonitoring = os.Getenv("ENABLE_HTTP_MONITORING") == "true"
	cfg.MonitoringPort = getEnvOrDefault("MONITORING_PORT", cfg.MonitoringPort)

	return cfg
}

// sourcesFile is the YAML layout:
//
//	categories:
//	  - {id: all, name: All}
//	sources:
//	  - {id: owid, name: Our World in Data, kind: rss, url: https://..., limit: 6}
type sourcesFile struct {
	Categories []news.Category `yaml:"categories"`
	Sources    []struct {
		ID    string `yaml:"id"`
		Name  string `yaml:"name"`
		Kind  string `yaml:"kind"`
		URL   string `yaml:"url"`
		Limit int    `yaml:"limit"`
	} `yaml:"sources"`
}

// LoadSources reads the source list from YAML. Sources keep file order.
func (c *Config) LoadSources(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open sources file: %w", err)
	}
	defer f.Close()

	var sf sourcesFile
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&sf); err != nil {
		return fmt.Errorf("failed to parse sources file %s: %w", path, err)
	}

	specs := make([]news.SourceSpec, 0, len(sf.Sources))
	for i, s := range sf.Sources {
		kind, ok := news.ParseKind(s.Kind)
		if !ok {
			return fmt.Errorf("source #%d (%s): unsupported kind %q", i+1, s.ID, s.Kind)
		}
		name := s.Name
		if name == "" {
			name = s.ID
		}
		specs = append(specs, news.SourceSpec{
			ID:    s.ID,
			Name:  name,
			Kind:  kind,
			URL:   s.URL,
			Limit: s.Limit,
		})
	}

	c.Sources = specs
	c.Categories = sf.Categories
	if len(c.Categories) == 0 {
		c.Categories = CategoriesFromSources(specs)
	}
	return nil
}

// CategoriesFromSources derives display categories from source ids in
// first-seen order.
func CategoriesFromSources(specs []news.SourceSpec) []news.Category {
	seen := make(map[string]bool, len(specs))
	var out []news.Category
	for _, s := range specs {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, news.Category{ID: s.ID, Name: s.Name})
	}
	return out
}

// GeneratorBackend resolves GENERATOR=auto to a concrete backend.
func (c *Config) GeneratorBackend() string {
	switch c.Generator {
	case GeneratorOpenAI, GeneratorGemini, GeneratorNone:
		return c.Generator
	}
	if c.OpenAIAPIKey != "" {
		return GeneratorOpenAI
	}
	if c.GeminiAPIKey != "" {
		return GeneratorGemini
	}
	return GeneratorNone
}

// TelegramEnabled reports whether chat delivery is configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d >= 0 {
			return d
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if s.ID == "" {
			return fmt.Errorf("source id is required")
		}
		if s.URL == "" {
			return fmt.Errorf("source %s: url is required", s.ID)
		}
		if s.Limit <= 0 {
			return fmt.Errorf("source %s: limit must be positive", s.ID)
		}
		key := s.ID + "|" + s.URL
		if seen[key] {
			return fmt.Errorf("source %s: duplicate entry for %s", s.ID, s.URL)
		}
		seen[key] = true
	}
	if c.MaxItems <= 0 {
		return fmt.Errorf("MAX_ITEMS must be positive")
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("TIMEZONE %q is invalid: %w", c.Timezone, err)
		}
	}
	if c.TitleKeyLength < 12 || c.TitleKeyLength > 15 {
		return fmt.Errorf("DEDUP_TITLE_KEY_LENGTH must be between 12 and 15")
	}
	switch c.Generator {
	case GeneratorAuto, GeneratorOpenAI, GeneratorGemini, GeneratorNone:
	default:
		return fmt.Errorf("GENERATOR must be 'openai', 'gemini' or 'none'")
	}
	if c.Generator == GeneratorOpenAI && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when GENERATOR=openai")
	}
	if c.Generator == GeneratorGemini && c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when GENERATOR=gemini")
	}
	return nil
}
