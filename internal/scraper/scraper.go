package scraper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/deusflow/dailybrief/internal/logger"
	"github.com/deusflow/dailybrief/internal/normalize"
)

// ContentFetcher returns the main text of an article page, or "" when the
// page cannot be fetched or has no recognizable content container.
type ContentFetcher interface {
	FetchText(ctx context.Context, url string) string
}

// PageFetcher is the live ContentFetcher backed by goquery.
type PageFetcher struct {
	client    *http.Client
	userAgent string
}

func NewPageFetcher(timeout time.Duration, userAgent string) *PageFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PageFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// noise is removed before looking for the content container.
const noise = "script, style, header, footer, nav, aside, form, iframe, noscript"

// containers are tried in order; the first match wins. They cover the
// generic article element plus the body ids/classes common news CMS
// templates use.
var containers = []string{
	"article",
	"div#articleBody",
	"div.article_view",
	"div#news_body_area",
	"div.news_text",
	"div#article-view-content-div",
	"div.article-body",
	"div.entry-content",
}

func (f *PageFetcher) FetchText(ctx context.Context, url string) string {
	text, err := f.extract(ctx, url)
	if err != nil {
		logger.Debug("article fetch failed", "url", url, "err", err)
		return ""
	}
	return text
}

func (f *PageFetcher) extract(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("error decoding charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("error parsing HTML: %w", err)
	}

	return ExtractMainText(doc), nil
}

// ExtractMainText strips non-content elements and returns the text of the
// first known content container, or "".
func ExtractMainText(doc *goquery.Document) string {
	doc.Find(noise).Remove()
	for _, selector := range containers {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		return normalize.NodeText(sel)
	}
	return ""
}

// Resolve fills the body for one candidate: live page text, else the
// feed-supplied summary, else the title.
func Resolve(ctx context.Context, f ContentFetcher, url, feedSummary, title string) string {
	if f != nil && url != "" {
		if text := normalize.Clean(f.FetchText(ctx, url)); text != "" {
			return text
		}
	}
	if s := normalize.Clean(feedSummary); s != "" {
		return s
	}
	return normalize.Clean(title)
}
