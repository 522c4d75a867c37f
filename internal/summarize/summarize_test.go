package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"

	"github.com/deusflow/dailybrief/internal/news"
	"github.com/deusflow/dailybrief/internal/ratelimit"
)

type fakeGenerator struct {
	text  string
	err   error
	delay time.Duration
	calls int
	input string
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, title, text string) (string, error) {
	f.calls++
	f.input = text
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func longBody() string {
	// 50 sentences of 21 runes each.
	return strings.Repeat("Sentence number one. ", 50)
}

func TestFallbackWithinBudget(t *testing.T) {
	if got := Fallback("  short   text  ", 450); got != "short text" {
		t.Errorf("expected cleaned text, got %q", got)
	}
}

func TestFallbackCutsAtSentence(t *testing.T) {
	body := longBody()
	got := Fallback(body, 450)
	if !strings.HasSuffix(got, ".") {
		t.Errorf("expected sentence boundary, got %q", got)
	}
	if !strings.HasPrefix(strings.TrimSpace(body), got) {
		t.Error("fallback must be a prefix of the body")
	}
	if n := len([]rune(got)); n > 450 || n < 400 {
		t.Errorf("unexpected length %d", n)
	}
}

func TestFallbackEllipsis(t *testing.T) {
	body := strings.Repeat("가", 1000)
	got := Fallback(body, 450)
	if got != strings.Repeat("가", 450)+"…" {
		t.Errorf("expected 450 runes plus ellipsis, got %d runes", len([]rune(got)))
	}

	// A terminator before the minimum offset is ignored.
	early := "Short one. " + strings.Repeat("x", 600)
	if got := Fallback(early, 450); !strings.HasSuffix(got, "…") {
		t.Errorf("expected ellipsis when only early terminator exists, got suffix %q", got[len(got)-10:])
	}
}

func TestSummarizeGenerated(t *testing.T) {
	gen := &fakeGenerator{text: "  A digest.  "}
	s := New(gen, nil, Options{})
	text, state := s.Summarize(context.Background(), "Title", longBody())
	if text != "A digest." || state != news.StateGenerated {
		t.Errorf("got %q %q", text, state)
	}
}

func TestSummarizeShortBodyUsesTitle(t *testing.T) {
	gen := &fakeGenerator{text: "ok"}
	New(gen, nil, Options{}).Summarize(context.Background(), "The title", "tiny body")
	if gen.input != "The title" {
		t.Errorf("expected title as input, got %q", gen.input)
	}
}

func TestSummarizeTruncatesInput(t *testing.T) {
	gen := &fakeGenerator{text: "ok"}
	New(gen, nil, Options{MaxInputChars: 200}).Summarize(context.Background(), "T", longBody())
	if n := len([]rune(gen.input)); n != 200 {
		t.Errorf("expected 200 rune input, got %d", n)
	}
}

func TestSummarizeFailuresFallBack(t *testing.T) {
	body := longBody()
	want := Fallback(body, 450)

	cases := map[string]Generator{
		"error":   &fakeGenerator{err: errors.New("503")},
		"empty":   &fakeGenerator{text: "   "},
		"timeout": &fakeGenerator{text: "late", delay: time.Second},
		"none":    nil,
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			s := New(gen, nil, Options{Timeout: 20 * time.Millisecond})
			text, state := s.Summarize(context.Background(), "Title", body)
			if state != news.StateFallback {
				t.Errorf("expected fallback state, got %q", state)
			}
			if text != want {
				t.Errorf("expected fallback text, got %q", text)
			}
		})
	}
}

func TestSummarizeEmptyBodyFallsBackToTitle(t *testing.T) {
	text, state := New(nil, nil, Options{}).Summarize(context.Background(), "Only a title", "")
	if text != "Only a title" || state != news.StateFallback {
		t.Errorf("got %q %q", text, state)
	}
}

func TestSummarizeBudget(t *testing.T) {
	gen := &fakeGenerator{text: "digest"}
	s := New(gen, ratelimit.NewBudget(1), Options{})

	if _, state := s.Summarize(context.Background(), "a", longBody()); state != news.StateGenerated {
		t.Fatalf("first call should be generated, got %q", state)
	}
	if _, state := s.Summarize(context.Background(), "b", longBody()); state != news.StateFallback {
		t.Errorf("second call should fall back, got %q", state)
	}
	if gen.calls != 1 {
		t.Errorf("expected one generator call, got %d", gen.calls)
	}
}

func TestOpenAIGenerator(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"요약입니다."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("sk-test", "gpt-test", srv.URL+"/v1", "Korean")
	text, err := g.Generate(context.Background(), "Title", "Body")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if text != "요약입니다." {
		t.Errorf("unexpected text %q", text)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("expected bearer credential, got %q", auth)
	}
	if got.Model != "gpt-test" || len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("unexpected request: %+v", got)
	}
	if !strings.Contains(got.Messages[0].Content, "Korean") || !strings.Contains(got.Messages[1].Content, "Title") {
		t.Errorf("prompt missing language or title: %+v", got.Messages)
	}
}

func TestOpenAIGeneratorErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	s := New(NewOpenAIGenerator("k", "", srv.URL+"/v1", "English"), nil, Options{})
	text, state := s.Summarize(context.Background(), "Title", "Body text that is short.")
	if state != news.StateFallback || text != "Body text that is short." {
		t.Errorf("expected fallback, got %q %q", text, state)
	}
}

func TestGeminiResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("Part one. "), genai.Text("Part two.")}},
		}},
	}
	text, err := responseText(resp)
	if err != nil || text != "Part one. Part two." {
		t.Errorf("got %q, %v", text, err)
	}

	for _, empty := range []*genai.GenerateContentResponse{
		nil,
		{},
		{Candidates: []*genai.Candidate{{}}},
		{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Text(" ")}}}}},
	} {
		if _, err := responseText(empty); !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("expected ErrEmptyResponse, got %v", err)
		}
	}
}
