package news

import "strings"

// Kind selects which adapter handles a source.
type Kind string

const (
	KindFeed   Kind = "syndication"
	KindSearch Kind = "json-search"
)

// ParseKind accepts the canonical names plus the aliases used in older
// source files ("rss", "atom", "worldbank_json", "json").
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "syndication", "rss", "atom", "feed", "":
		return KindFeed, true
	case "json-search", "json", "search", "worldbank_json":
		return KindSearch, true
	}
	return "", false
}

// SourceSpec configures one source. ID doubles as the display category.
type SourceSpec struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Kind  Kind   `yaml:"-" json:"-"`
	URL   string `yaml:"url" json:"-"`
	Limit int    `yaml:"limit" json:"-"`
}

// Category is an id + display label pair shown to readers.
type Category struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Candidate is a discovered record before dedup and enrichment.
type Candidate struct {
	SourceID   string
	SourceName string
	Title      string
	URL        string
	Published  string // free text, as the source reported it

	// FeedSummary is the inline body the source shipped, already plain text.
	FeedSummary string
	// Body is the resolved article text (page, then feed summary, then title).
	Body string
}

// SummaryState records how an item's summary was produced.
type SummaryState string

const (
	StateGenerated SummaryState = "ai-generated"
	StateFallback  SummaryState = "fallback-truncated"
)

// EnrichedItem is the externally visible unit of a snapshot.
type EnrichedItem struct {
	Category     string       `json:"category"`
	SourceID     string       `json:"source_id"`
	Source       string       `json:"source"`
	Title        string       `json:"title"`
	URL          string       `json:"url"`
	PublishedAt  string       `json:"published_at"`
	Summary      string       `json:"summary"`
	SummaryState SummaryState `json:"summary_state"`
}

// Enrich attaches a summary to the candidate.
func Enrich(c Candidate, summary string, state SummaryState) EnrichedItem {
	return EnrichedItem{
		Category:     c.SourceID,
		SourceID:     c.SourceID,
		Source:       c.SourceName,
		Title:        c.Title,
		URL:          c.URL,
		PublishedAt:  c.Published,
		Summary:      summary,
		SummaryState: state,
	}
}
