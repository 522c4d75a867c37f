package app

import (
	"context"
	"sync"

	"github.com/deusflow/dailybrief/internal/dedup"
	"github.com/deusflow/dailybrief/internal/logger"
	"github.com/deusflow/dailybrief/internal/metrics"
	"github.com/deusflow/dailybrief/internal/news"
	"github.com/deusflow/dailybrief/internal/normalize"
	"github.com/deusflow/dailybrief/internal/ratelimit"
	"github.com/deusflow/dailybrief/internal/scraper"
	"github.com/deusflow/dailybrief/internal/source"
	"github.com/deusflow/dailybrief/internal/summarize"
)

// Pipeline turns the configured sources into enriched items for one run.
// Sources are fetched concurrently; admission and enrichment then happen
// strictly in configured source order so the earliest source always wins
// a duplicate.
type Pipeline struct {
	Sources    []news.SourceSpec
	Adapter    source.Adapter
	Content    scraper.ContentFetcher // nil uses feed summaries only
	Summarizer *summarize.Summarizer
	Budget     *ratelimit.Budget // the Summarizer's quota, reported per run
	Throttle   *ratelimit.Throttle
	Metrics    *metrics.Metrics

	TitleKeyLength int
	BodyKeyLength  int
	// MaxItems stops enrichment once this many items were admitted; 0 or
	// less means no limit, as in snapshot.Build.
	MaxItems int
}

type fetchResult struct {
	candidates []news.Candidate
	err        error
}

// Run never fails: source and item errors are logged and skipped. It
// returns early with what it has if ctx ends.
func (p *Pipeline) Run(ctx context.Context, runID string) (items []news.EnrichedItem) {
	log := logger.With("run_id", runID)
	m := p.Metrics
	if m == nil {
		m = metrics.Global
	}
	summarizer := p.Summarizer
	if summarizer == nil {
		summarizer = summarize.New(nil, nil, summarize.Options{})
	}

	results := p.fetchAll(ctx)
	d := dedup.New(p.TitleKeyLength, p.BodyKeyLength)
	defer func() {
		log.Info("Pipeline finished",
			"items", len(items),
			"body_duplicates", d.Rejected(),
			"generation", p.Budget.Stats())
	}()

	for i, spec := range p.Sources {
		res := results[i]
		if res.err != nil {
			log.Warn("Source failed, skipping", "source", spec.ID, "err", res.err)
			m.IncrementSourcesFailed()
			continue
		}
		m.AddCandidatesFetched(len(res.candidates))
		log.Info("Source fetched", "source", spec.ID, "candidates", len(res.candidates))

		for _, c := range res.candidates {
			if p.MaxItems > 0 && len(items) >= p.MaxItems {
				log.Debug("Item cap reached", "max_items", p.MaxItems)
				return items
			}
			c.Title = normalize.Clean(c.Title)

			// Checked before the page fetch so duplicates cost nothing.
			if d.SeenTitle(c.Title) {
				m.IncrementDuplicatesFiltered()
				log.Debug("Duplicate title", "source", spec.ID, "title", c.Title)
				continue
			}

			if err := p.Throttle.Wait(ctx, spec.Kind); err != nil {
				log.Warn("Run interrupted", "err", err)
				return items
			}

			c.Body = scraper.Resolve(ctx, p.Content, c.URL, c.FeedSummary, c.Title)
			if !d.Admit(c) {
				m.IncrementDuplicatesFiltered()
				log.Debug("Duplicate body", "source", spec.ID, "title", c.Title)
				continue
			}

			summary, state := summarizer.Summarize(ctx, c.Title, c.Body)
			if state == news.StateGenerated {
				m.IncrementSummariesGenerated()
			} else {
				m.IncrementSummariesFallback()
			}
			items = append(items, news.Enrich(c, summary, state))
		}
	}
	return items
}

// fetchAll runs one goroutine per source and returns results indexed by
// source position.
func (p *Pipeline) fetchAll(ctx context.Context) []fetchResult {
	results := make([]fetchResult, len(p.Sources))
	var wg sync.WaitGroup
	for i, spec := range p.Sources {
		wg.Add(1)
		go func(i int, spec news.SourceSpec) {
			defer wg.Done()
			candidates, err := p.Adapter.Fetch(ctx, spec)
			results[i] = fetchResult{candidates: candidates, err: err}
		}(i, spec)
	}
	wg.Wait()
	return results
}
