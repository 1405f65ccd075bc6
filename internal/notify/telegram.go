package notify

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
)

const (
	telegramAPIBase = "https://api.telegram.org"
	senderTimeout   = 10 * time.Second
)

// TelegramSender posts council alerts to one chat through the Bot API.
type TelegramSender struct {
	token   string
	chatID  string
	apiBase string
	client  *http.Client
}

// NewTelegramSender creates a TelegramSender for the bot token and chat.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		token:   token,
		chatID:  chatID,
		apiBase: telegramAPIBase,
		client:  &http.Client{Timeout: senderTimeout},
	}
}

// Send posts a with HTML formatting. Market titles, option names and errors
// come from outside, so every piece is escaped.
func (t *TelegramSender) Send(ctx context.Context, a Alert) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)

	payload := map[string]any{
		"chat_id":                  t.chatID,
		"text":                     telegramText(a),
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Name returns "telegram".
func (t *TelegramSender) Name() string {
	return "telegram"
}

func telegramText(a Alert) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(a.Headline()))
	b.WriteString("</b>\n")
	if a.Event == EventCouncilFailed {
		fmt.Fprintf(&b, "Market <code>%s</code>\n%s", html.EscapeString(a.MarketID), html.EscapeString(a.Reason))
		return b.String()
	}
	for _, o := range a.Options {
		fmt.Fprintf(&b, "%s: <b>%.1f%%</b>\n", html.EscapeString(o.Name), o.Probability*100)
	}
	b.WriteString("<i>")
	b.WriteString(html.EscapeString(a.MembersLine()))
	b.WriteString("</i>")
	return b.String()
}
