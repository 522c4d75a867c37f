// Package summarize produces the digest text for each admitted story, using
// an external generator when one is configured and a local extractive
// truncation otherwise.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deusflow/dailybrief/internal/logger"
	"github.com/deusflow/dailybrief/internal/news"
	"github.com/deusflow/dailybrief/internal/normalize"
	"github.com/deusflow/dailybrief/internal/ratelimit"
)

var (
	ErrEmptyResponse = errors.New("generator returned an empty response")
	ErrNoGenerator   = errors.New("no generator configured")
)

const (
	DefaultMaxInputChars = 3500
	DefaultFallbackChars = 450
	DefaultTimeout       = 45 * time.Second

	// Bodies at or below this many runes are replaced by the title as
	// generator input.
	shortBodyRunes = 150
	// A sentence end before this rune offset is too early to cut at.
	minSentenceCut = 140
	ellipsis       = "…"
)

// Generator turns a title and body prefix into a digest.
type Generator interface {
	Name() string
	Generate(ctx context.Context, title, text string) (string, error)
}

type Options struct {
	MaxInputChars int
	FallbackChars int
	Timeout       time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxInputChars <= 0 {
		o.MaxInputChars = DefaultMaxInputChars
	}
	if o.FallbackChars <= 0 {
		o.FallbackChars = DefaultFallbackChars
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Summarizer never fails: every generator error ends in Fallback.
type Summarizer struct {
	gen    Generator
	budget *ratelimit.Budget
	opts   Options
}

// New returns a Summarizer. gen may be nil, in which case every summary is
// a fallback. budget may be nil for unlimited calls.
func New(gen Generator, budget *ratelimit.Budget, opts Options) *Summarizer {
	return &Summarizer{gen: gen, budget: budget, opts: opts.withDefaults()}
}

// Summarize returns the digest for one story and how it was produced.
func (s *Summarizer) Summarize(ctx context.Context, title, body string) (string, news.SummaryState) {
	source := body
	if normalize.Clean(source) == "" {
		source = title
	}

	text, err := s.generate(ctx, title, body)
	if err == nil {
		return text, news.StateGenerated
	}
	if !errors.Is(err, ErrNoGenerator) {
		logger.Warn("Summary generation failed, using fallback", "title", title, "err", err)
	}
	return Fallback(source, s.opts.FallbackChars), news.StateFallback
}

func (s *Summarizer) generate(ctx context.Context, title, body string) (string, error) {
	if s.gen == nil {
		return "", ErrNoGenerator
	}
	if err := s.budget.Take(s.gen.Name()); err != nil {
		return "", err
	}

	input := body
	if utf8.RuneCountInString(body) <= shortBodyRunes {
		input = title
	}
	input = truncateRunes(input, s.opts.MaxInputChars)

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	text, err := s.gen.Generate(ctx, title, input)
	if err != nil {
		return "", fmt.Errorf("%s: %w", s.gen.Name(), err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%s: %w", s.gen.Name(), ErrEmptyResponse)
	}
	return text, nil
}

// Fallback collapses whitespace and cuts text to at most maxLen runes,
// preferring to end on the last sentence terminator past a minimum offset
// and otherwise appending an ellipsis. Text within budget is returned
// unchanged.
func Fallback(text string, maxLen int) string {
	t := normalize.Clean(text)
	runes := []rune(t)
	if len(runes) <= maxLen {
		return t
	}
	cut := runes[:maxLen]
	for i := len(cut) - 1; i > minSentenceCut; i-- {
		switch cut[i] {
		case '.', '!', '?':
			return string(cut[:i+1])
		}
	}
	return strings.TrimRight(string(cut), " ") + ellipsis
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// systemPrompt is shared by every backend.
func systemPrompt(language string) string {
	if language == "" {
		language = "Korean"
	}
	return fmt.Sprintf(`You are an editor who condenses news from many international sources into a daily brief.
Always write in %s. Rephrase instead of copying long sentences from the source.
Do not exaggerate or speculate; if something is unclear, say so.
Write 3 to 5 sentences structured as:
1. Core facts: what happened.
2. Context: why it matters.
3. Outlook: what effect or next step to expect.`, language)
}

func userPrompt(title, text string) string {
	return fmt.Sprintf("Title: %s\n\nBody: %s", title, text)
}
