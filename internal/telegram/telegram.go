package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/deusflow/aiinsight/internal/news"
	"github.com/deusflow/aiinsight/internal/retry"
)

const (
	defaultAPI = "https://api.telegram.org"
	// Telegram rejects messages above 4096 characters.
	maxMessageRunes = 4000
)

type Options struct {
	Token   string
	ChatID  string
	BaseURL string
	Client  *http.Client
	Retry   retry.RetryConfig
	Logger  *slog.Logger
}

// Notifier posts the run digest to one chat or channel.
type Notifier struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
	retry   retry.RetryConfig
	logger  *slog.Logger
}

func NewNotifier(opts Options) *Notifier {
	n := &Notifier{
		token:   opts.Token,
		chatID:  opts.ChatID,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  opts.Client,
		retry:   opts.Retry,
		logger:  opts.Logger,
	}
	if n.baseURL == "" {
		n.baseURL = defaultAPI
	}
	if n.client == nil {
		n.client = &http.Client{Timeout: 30 * time.Second}
	}
	if n.logger == nil {
		n.logger = slog.Default()
	}
	return n
}

// SendMessage sends an HTML message, retrying on transient failures.
func (n *Notifier) SendMessage(ctx context.Context, text string) error {
	attempt := 0
	err := retry.WithRetry(ctx, n.retry, func() error {
		attempt++
		err := n.sendMessageOnce(ctx, text)
		if err != nil {
			n.logger.Warn("telegram send failed", "attempt", attempt, "error", err)
		}
		return err
	})
	if err != nil {
		return err
	}
	n.logger.Info("message sent to telegram", "attempt", attempt, "runes", utf8.RuneCountInString(text))
	return nil
}

func (n *Notifier) sendMessageOnce(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)

	payload := map[string]interface{}{
		"chat_id":                  n.chatID,
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
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		err := fmt.Errorf("telegram API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return retry.Permanent(err)
		}
		return err
	}
	return nil
}

// FormatDigest renders the ranked selection as a Telegram HTML message.
// Items that would push the message over the size limit are left out.
func FormatDigest(items []news.CuratedArticle, date time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🤖 <b>Daily AI Insight</b> | %s\n\n", date.UTC().Format("2006-01-02"))
	footer := fmt.Sprintf("\n%d articles selected", len(items))

	for i, a := range items {
		var e strings.Builder
		title := strings.TrimSpace(a.Title)
		if title == "" {
			title = a.OriginalTitle
		}
		fmt.Fprintf(&e, "<b>%d.</b> <a href=\"%s\">%s</a>\n", i+1, html.EscapeString(a.URL), html.EscapeString(title))
		fmt.Fprintf(&e, "Score: %d | %s\n", a.ImportanceScore, html.EscapeString(strings.Join(a.Tags, ", ")))
		for _, s := range a.Summary {
			fmt.Fprintf(&e, "• %s\n", html.EscapeString(s))
		}
		e.WriteString("\n")

		if utf8.RuneCountInString(b.String())+utf8.RuneCountInString(e.String())+utf8.RuneCountInString(footer) > maxMessageRunes {
			break
		}
		b.WriteString(e.String())
	}

	b.WriteString(footer)
	return b.String()
}
