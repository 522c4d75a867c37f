package source

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/deusflow/dailybrief/internal/news"
	"github.com/deusflow/dailybrief/internal/normalize"
)

// SearchAdapter reads JSON search APIs whose response carries a
// "documents" container that is either a keyed mapping or a list.
type SearchAdapter struct {
	opts Options
}

func NewSearchAdapter(opts Options) *SearchAdapter {
	return &SearchAdapter{opts: opts.withDefaults()}
}

type searchResponse struct {
	Documents TextValue `json:"documents"`
}

func (a *SearchAdapter) Fetch(ctx context.Context, spec news.SourceSpec) ([]news.Candidate, error) {
	body, err := download(ctx, a.opts, spec.URL, "application/json")
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", spec.ID, err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("search %s: failed to decode response: %w", spec.ID, err)
	}

	var docs []TextValue
	switch resp.Documents.Kind {
	case ValueMapping:
		for _, f := range resp.Documents.Fields {
			docs = append(docs, f.Value)
		}
	case ValueSequence:
		docs = resp.Documents.Items
	}

	candidates := make([]news.Candidate, 0, len(docs))
	for _, doc := range docs {
		if spec.Limit > 0 && len(candidates) >= spec.Limit {
			break
		}
		// Mapping containers also carry bookkeeping entries (e.g. "facets").
		if doc.Kind != ValueMapping {
			continue
		}
		title := normalize.Clean(doc.First("title"))
		if title == "" {
			continue
		}
		published := doc.First("pub_date", "date")
		if published == "" {
			published = a.opts.fallbackPublished()
		}

		candidates = append(candidates, news.Candidate{
			SourceID:    spec.ID,
			SourceName:  spec.Name,
			Title:       title,
			URL:         doc.First("url", "link"),
			Published:   published,
			FeedSummary: normalize.HTMLToText(doc.First("body", "summary", "description")),
		})
	}
	return candidates, nil
}
