// Package source fetches configured sources and turns their entries into
// candidates.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/deusflow/dailybrief/internal/news"
	"github.com/deusflow/dailybrief/internal/retry"
)

var (
	ErrUnsupportedKind  = errors.New("unsupported source kind")
	ErrUnexpectedStatus = errors.New("unexpected status")
)

const (
	maxDocumentBytes     = 10 * 1024 * 1024
	defaultFetchTimeout  = 15 * time.Second
	defaultRetryAttempts = 1
)

// Adapter fetches one source. A failed fetch returns an error and no
// candidates; it never aborts other sources.
type Adapter interface {
	Fetch(ctx context.Context, spec news.SourceSpec) ([]news.Candidate, error)
}

// Options are shared by both adapters.
type Options struct {
	Client    *http.Client
	UserAgent string
	Retry     retry.RetryConfig
	// Now supplies the published fallback for entries without a date.
	Now      func() time.Time
	Location *time.Location
}

func (o Options) withDefaults() Options {
	if o.Client == nil {
		o.Client = &http.Client{Timeout: defaultFetchTimeout}
	}
	if o.Retry.MaxAttempts <= 0 {
		o.Retry.MaxAttempts = defaultRetryAttempts
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

func (o Options) fallbackPublished() string {
	return o.Now().In(o.Location).Format("2006-01-02 15:04")
}

// Registry dispatches on SourceSpec.Kind.
type Registry map[news.Kind]Adapter

// NewRegistry wires the feed and search adapters with shared options.
func NewRegistry(opts Options) Registry {
	return Registry{
		news.KindFeed:   NewFeedAdapter(opts),
		news.KindSearch: NewSearchAdapter(opts),
	}
}

func (r Registry) Fetch(ctx context.Context, spec news.SourceSpec) ([]news.Candidate, error) {
	a, ok := r[spec.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, spec.Kind)
	}
	return a.Fetch(ctx, spec)
}

// download GETs a document with retry. 4xx responses are not retried.
func download(ctx context.Context, opts Options, url, accept string) ([]byte, error) {
	var body []byte
	err := retry.WithRetry(ctx, opts.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		if opts.UserAgent != "" {
			req.Header.Set("User-Agent", opts.UserAgent)
		}
		if accept != "" {
			req.Header.Set("Accept", accept)
		}

		resp, err := opts.Client.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode)
			if !retry.HTTPStatusRetryable(resp.StatusCode) {
				return retry.Permanent(err)
			}
			return err
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		return nil
	})
	return body, err
}
