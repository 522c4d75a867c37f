package source

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/deusflow/dailybrief/internal/news"
	"github.com/deusflow/dailybrief/internal/normalize"
)

const feedAccept = "application/rss+xml, application/atom+xml, application/xml, text/xml;q=0.9, */*;q=0.8"

// FeedAdapter reads RSS and Atom documents.
type FeedAdapter struct {
	opts Options
}

func NewFeedAdapter(opts Options) *FeedAdapter {
	return &FeedAdapter{opts: opts.withDefaults()}
}

// Fetch returns up to spec.Limit entries in feed order. A malformed document
// yields no candidates and an error.
func (a *FeedAdapter) Fetch(ctx context.Context, spec news.SourceSpec) ([]news.Candidate, error) {
	body, err := download(ctx, a.opts, spec.URL, feedAccept)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", spec.ID, err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("feed %s: failed to parse: %w", spec.ID, err)
	}

	items := feed.Items
	if spec.Limit > 0 && len(items) > spec.Limit {
		items = items[:spec.Limit]
	}

	candidates := make([]news.Candidate, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		title := normalize.Clean(item.Title)
		if title == "" {
			continue
		}
		published := strings.TrimSpace(item.Published)
		if published == "" {
			published = strings.TrimSpace(item.Updated)
		}
		if published == "" {
			published = a.opts.fallbackPublished()
		}

		candidates = append(candidates, news.Candidate{
			SourceID:    spec.ID,
			SourceName:  spec.Name,
			Title:       title,
			URL:         strings.TrimSpace(item.Link),
			Published:   published,
			FeedSummary: inlineBody(item),
		})
	}
	return candidates, nil
}

// inlineBody prefers full content over the summary when both are present.
func inlineBody(item *gofeed.Item) string {
	if text := normalize.HTMLToText(item.Content); text != "" {
		return text
	}
	return normalize.HTMLToText(item.Description)
}
