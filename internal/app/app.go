package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/dailybrief/internal/blog"
	"github.com/deusflow/dailybrief/internal/config"
	"github.com/deusflow/dailybrief/internal/logger"
	"github.com/deusflow/dailybrief/internal/metrics"
	"github.com/deusflow/dailybrief/internal/ratelimit"
	"github.com/deusflow/dailybrief/internal/retry"
	"github.com/deusflow/dailybrief/internal/scraper"
	"github.com/deusflow/dailybrief/internal/snapshot"
	"github.com/deusflow/dailybrief/internal/source"
	"github.com/deusflow/dailybrief/internal/summarize"
	"github.com/deusflow/dailybrief/internal/telegram"
)

// Run executes one full batch: collect, enrich, persist, deliver. Only a
// failure to persist the snapshot is returned; everything else is logged.
func Run(ctx context.Context, cfg *config.Config) error {
	start := time.Now()
	runID := uuid.NewString()
	log := logger.With("run_id", runID)
	log.Info("Run started", "sources", len(cfg.Sources), "max_items", cfg.MaxItems)

	gen, closeGen := newGenerator(ctx, cfg)
	defer closeGen()

	p := NewPipeline(cfg, gen, metrics.Global)
	items := p.Run(ctx, runID)

	now := time.Now().In(cfg.Location)
	snap := snapshot.Build(items, cfg.Sources, cfg.Categories, cfg.MaxItems, now)

	w := snapshot.NewWriter(cfg.OutputDir, cfg.LatestFile, cfg.Location)
	if err := w.Write(snap, now); err != nil {
		metrics.Global.SetError(err.Error())
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}
	metrics.Global.SetLastRun(runID, len(snap.Items))
	metrics.Global.RecordProcessingTime(time.Since(start))
	log.Info("Snapshot written", "items", len(snap.Items), "latest", w.LatestPath(), "dated", w.DatedPath(now))

	deliver(ctx, cfg, snap, now)
	return nil
}

// NewPipeline wires the live collaborators described by cfg.
func NewPipeline(cfg *config.Config, gen summarize.Generator, m *metrics.Metrics) *Pipeline {
	registry := source.NewRegistry(source.Options{
		Client:    &http.Client{Timeout: cfg.RequestTimeout},
		UserAgent: cfg.UserAgent,
		Retry: retry.RetryConfig{
			MaxAttempts: cfg.RetryAttempts,
			Delay:       cfg.RetryDelay,
			Backoff:     true,
		},
		Location: cfg.Location,
	})

	var content scraper.ContentFetcher
	if cfg.FetchFullText {
		content = scraper.NewPageFetcher(cfg.RequestTimeout, cfg.UserAgent)
	}

	budget := ratelimit.NewBudget(cfg.MaxGenerations)
	summarizer := summarize.New(gen, budget, summarize.Options{
		MaxInputChars: cfg.MaxInputChars,
		FallbackChars: cfg.FallbackSummaryChars,
		Timeout:       cfg.GenerationTimeout,
	})

	return &Pipeline{
		Sources:        cfg.Sources,
		Adapter:        registry,
		Content:        content,
		Summarizer:     summarizer,
		Budget:         budget,
		Throttle:       ratelimit.NewThrottle(cfg.ItemDelay),
		Metrics:        m,
		TitleKeyLength: cfg.TitleKeyLength,
		BodyKeyLength:  cfg.BodyKeyLength,
		MaxItems:       cfg.MaxItems,
	}
}

// newGenerator returns nil when no backend is configured or the client
// cannot be created; summaries then use the local fallback.
func newGenerator(ctx context.Context, cfg *config.Config) (summarize.Generator, func()) {
	noop := func() {}
	switch cfg.GeneratorBackend() {
	case config.GeneratorOpenAI:
		return summarize.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, cfg.SummaryLanguage), noop
	case config.GeneratorGemini:
		g, err := summarize.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.SummaryLanguage)
		if err != nil {
			logger.Warn("Gemini unavailable, summaries will use fallback", "err", err)
			return nil, noop
		}
		return g, g.Close
	default:
		logger.Info("No generator configured, summaries will use fallback")
		return nil, noop
	}
}

// deliver hands the snapshot to the optional collaborators. Their failures
// never fail the run.
func deliver(ctx context.Context, cfg *config.Config, snap *snapshot.Snapshot, now time.Time) {
	if cfg.TelegramEnabled() {
		sent, err := telegram.NewClient(cfg.TelegramToken, cfg.TelegramChatID).
			Deliver(ctx, snap, cfg.TelegramItemsPerCategory)
		for i := 0; i < sent; i++ {
			metrics.Global.IncrementTelegramMessagesSent()
		}
		if err != nil {
			logger.Error("Telegram delivery failed", "sent", sent, "err", err)
		} else {
			logger.Info("Telegram delivery done", "messages", sent)
		}
	}

	if cfg.HTMLOutputPath != "" {
		if err := blog.WriteFile(cfg.HTMLOutputPath, snap, cfg.TelegramItemsPerCategory, now); err != nil {
			logger.Error("Blog render failed", "path", cfg.HTMLOutputPath, "err", err)
		} else {
			logger.Info("Blog post written", "path", cfg.HTMLOutputPath)
		}
	}
}
