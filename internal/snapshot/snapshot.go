// Package snapshot assembles and persists the single output document of a
// run.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/deusflow/dailybrief/internal/news"
)

// SourceRef is the public face of a configured source.
type SourceRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Snapshot struct {
	GeneratedAt string              `json:"generated_at"`
	Categories  []news.Category     `json:"categories"`
	Sources     []SourceRef         `json:"sources"`
	Items       []news.EnrichedItem `json:"items"`
}

// Build caps items to limit keeping their order, and attaches every
// configured source whether or not it contributed items. A limit of 0 or
// less means no cap.
func Build(items []news.EnrichedItem, specs []news.SourceSpec, categories []news.Category, limit int, now time.Time) *Snapshot {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]news.EnrichedItem, len(items))
	copy(out, items)

	sources := make([]SourceRef, 0, len(specs))
	for _, s := range specs {
		sources = append(sources, SourceRef{ID: s.ID, Name: s.Name})
	}
	if categories == nil {
		categories = []news.Category{}
	}

	return &Snapshot{
		GeneratedAt: now.Format(time.RFC3339),
		Categories:  categories,
		Sources:     sources,
		Items:       out,
	}
}

// ByCategory returns up to perCategory items for each category in
// category order. Categories without items are omitted. Category ids
// listed in skip are ignored.
func (s *Snapshot) ByCategory(perCategory int, skip ...string) []Group {
	skipped := make(map[string]bool, len(skip))
	for _, id := range skip {
		skipped[id] = true
	}

	var groups []Group
	for _, c := range s.Categories {
		if skipped[c.ID] {
			continue
		}
		g := Group{Category: c}
		for _, it := range s.Items {
			if it.Category != c.ID {
				continue
			}
			if perCategory > 0 && len(g.Items) >= perCategory {
				break
			}
			g.Items = append(g.Items, it)
		}
		if len(g.Items) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

// Group is one category's slice of a snapshot, as delivered to readers.
type Group struct {
	Category news.Category
	Items    []news.EnrichedItem
}

// Load reads a snapshot previously written by Writer.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", path, err)
	}
	return &s, nil
}
