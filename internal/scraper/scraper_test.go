package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const articlePage = `<html><head><title>t</title><style>.x{}</style></head>
<body>
<nav>Home | World | Sports</nav>
<header>Site header</header>
<article>
  <h1>Headline</h1>
  <p>First paragraph of the story.</p>
  <script>track()</script>
  <form><input value="subscribe"></form>
  <p>Second paragraph.</p>
</article>
<footer>Copyright</footer>
</body></html>`

func TestPageFetcherArticle(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(articlePage))
	}))
	defer srv.Close()

	f := NewPageFetcher(time.Second, "Mozilla/5.0 Test")
	got := f.FetchText(context.Background(), srv.URL)
	if got != "Headline First paragraph of the story. Second paragraph." {
		t.Errorf("unexpected text: %q", got)
	}
	if ua != "Mozilla/5.0 Test" {
		t.Errorf("expected browser user agent, got %q", ua)
	}
}

func TestExtractMainTextContainerOrder(t *testing.T) {
	page := `<html><body>
<div class="news_text">legacy container</div>
<div id="articleBody">Body by <b>id</b></div>
</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := ExtractMainText(doc); got != "Body by id" {
		t.Errorf("expected articleBody container to win, got %q", got)
	}
}

func TestPageFetcherFailuresReturnEmpty(t *testing.T) {
	noContainer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div class="other">nothing here</div></body></html>`))
	}))
	defer noContainer.Close()

	missing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer missing.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(articlePage))
	}))
	defer slow.Close()

	f := NewPageFetcher(50*time.Millisecond, "")
	for name, url := range map[string]string{
		"no container": noContainer.URL,
		"not found":    missing.URL,
		"timeout":      slow.URL,
		"bad url":      "http://%zz",
	} {
		if got := f.FetchText(context.Background(), url); got != "" {
			t.Errorf("%s: expected empty text, got %q", name, got)
		}
	}
}

type cannedFetcher struct {
	text  string
	calls int
}

func (c *cannedFetcher) FetchText(ctx context.Context, url string) string {
	c.calls++
	return c.text
}

func TestResolveCascade(t *testing.T) {
	ctx := context.Background()

	page := &cannedFetcher{text: "  page   text "}
	if got := Resolve(ctx, page, "https://x", "feed summary", "Title"); got != "page text" {
		t.Errorf("expected page text, got %q", got)
	}

	empty := &cannedFetcher{}
	if got := Resolve(ctx, empty, "https://x", " feed\nsummary ", "Title"); got != "feed summary" {
		t.Errorf("expected feed summary, got %q", got)
	}
	if got := Resolve(ctx, empty, "https://x", "", " The  Title "); got != "The Title" {
		t.Errorf("expected title, got %q", got)
	}

	if got := Resolve(ctx, nil, "https://x", "", "Title"); got != "Title" {
		t.Errorf("nil fetcher should fall through, got %q", got)
	}

	noURL := &cannedFetcher{text: "unused"}
	Resolve(ctx, noURL, "", "s", "t")
	if noURL.calls != 0 {
		t.Error("fetcher should not be called without a URL")
	}
}
