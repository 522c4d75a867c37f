package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deusflow/dailybrief/internal/logger"
	"github.com/deusflow/dailybrief/internal/news"
	"github.com/deusflow/dailybrief/internal/retry"
	"github.com/deusflow/dailybrief/internal/snapshot"
)

const DefaultAPIBase = "https://api.telegram.org"

// AllCategory is the catch-all display category that is never pushed.
const AllCategory = "all"

const (
	maxMessageRunes  = 4096 // Bot API limit
	summaryHeadRunes = 200
	minTitleRunes    = 50
)

type Client struct {
	token   string
	chatID  string
	apiBase string
	http    *http.Client
	retry   retry.RetryConfig
}

func NewClient(token, chatID string) *Client {
	return &Client{
		token:   token,
		chatID:  chatID,
		apiBase: DefaultAPIBase,
		http:    &http.Client{Timeout: 30 * time.Second},
		retry:   retry.RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true},
	}
}

// WithAPIBase points the client at another Bot API host.
func (c *Client) WithAPIBase(base string) *Client {
	c.apiBase = strings.TrimRight(base, "/")
	return c
}

// WithRetry overrides the send retry policy.
func (c *Client) WithRetry(cfg retry.RetryConfig) *Client {
	c.retry = cfg
	return c
}

// SendMessage sends text message to the chat with retry logic.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	attempt := 0
	err := retry.WithRetry(ctx, c.retry, func() error {
		attempt++
		err := c.sendMessageOnce(ctx, text)
		if err != nil {
			logger.Warn("Telegram send failed", "attempt", attempt, "err", err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("can't send message: %w", err)
	}
	logger.Debug("Message sent to Telegram", "attempt", attempt)
	return nil
}

func (c *Client) sendMessageOnce(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, c.token)

	payload := map[string]interface{}{
		"chat_id":                  c.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return retry.Permanent(fmt.Errorf("error make JSON: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("error creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logger.Warn("failed to close response body", "err", err)
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("telegram API error: status %d", resp.StatusCode)
		if !retry.HTTPStatusRetryable(resp.StatusCode) {
			return retry.Permanent(err)
		}
		return err
	}
	return nil
}

// Deliver pushes one message per display category with up to perCategory
// items each. It returns how many messages were sent; the first send error
// stops delivery.
func (c *Client) Deliver(ctx context.Context, s *snapshot.Snapshot, perCategory int) (int, error) {
	sent := 0
	for _, g := range s.ByCategory(perCategory, AllCategory) {
		if err := c.SendMessage(ctx, FormatGroup(g)); err != nil {
			return sent, fmt.Errorf("category %s: %w", g.Category.ID, err)
		}
		sent++
	}
	return sent, nil
}

// FormatGroup renders one category as an HTML-mode Telegram message. Items
// that do not fit are dropped whole, except the first, which is shortened
// so the message never carries only the header.
func FormatGroup(g snapshot.Group) string {
	name := g.Category.Name
	if name == "" {
		name = g.Category.ID
	}

	text := fmt.Sprintf("<b>📰 %s</b>\n", html.EscapeString(name))
	for i, it := range g.Items {
		entry := formatItem(it, -1, summaryHeadRunes)
		room := maxMessageRunes - utf8.RuneCountInString(text)
		if utf8.RuneCountInString(entry) > room {
			if i > 0 {
				break
			}
			entry = shrinkItem(it, room)
		}
		text += entry
	}
	return strings.TrimRight(text, "\n")
}

// formatItem renders one entry. A negative titleRunes keeps the whole
// title; summaryRunes <= 0 omits the summary.
func formatItem(it news.EnrichedItem, titleRunes, summaryRunes int) string {
	title := it.Title
	if titleRunes >= 0 {
		title = headRunes(title, titleRunes)
	}

	var sb strings.Builder
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "• <b>%s</b>\n", html.EscapeString(title))
	if summaryRunes > 0 {
		if head := headRunes(it.Summary, summaryRunes); head != "" {
			sb.WriteString(html.EscapeString(head))
			sb.WriteString("\n")
		}
	}
	if it.URL != "" {
		fmt.Fprintf(&sb, "<a href=\"%s\">🔗 원문</a>\n", html.EscapeString(it.URL))
	}
	return sb.String()
}

// shrinkItem cuts the title down to minTitleRunes, then the summary, then
// the title again until the entry fits in room. It returns "" if even an
// empty title does not fit.
func shrinkItem(it news.EnrichedItem, room int) string {
	titleN := utf8.RuneCountInString(it.Title)
	summaryN := summaryHeadRunes
	for {
		entry := formatItem(it, titleN, summaryN)
		over := utf8.RuneCountInString(entry) - room
		switch {
		case over <= 0:
			return entry
		case titleN > minTitleRunes:
			titleN = max(titleN-over, minTitleRunes)
		case summaryN > 0:
			summaryN -= over
		case titleN > 0:
			titleN = max(titleN-over, 0)
		default:
			return ""
		}
	}
}

func headRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n])) + "…"
}
