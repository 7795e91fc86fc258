package notifications

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TelegramNotifier pushes trading alerts to a Telegram chat through the Bot
// API. Severity maps onto a header line so stop-loss fires and emergency
// halts stand out from routine fills in the chat history.
type TelegramNotifier struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		baseURL: "https://api.telegram.org",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

var alertHeaders = map[string]string{
	"info":    "ℹ️ *Polymarket Bot*",
	"success": "✅ *Trade Executed*",
	"warning": "⚠️ *Risk Warning*",
	"error":   "🚨 *Trading Alert*",
}

func (t *TelegramNotifier) SendAlert(level, message string) error {
	header, ok := alertHeaders[level]
	if !ok {
		header = alertHeaders["info"]
	}

	text := fmt.Sprintf("%s\n\n%s\n\n_%s_", header, message,
		time.Now().UTC().Format("2006-01-02 15:04 UTC"))

	data := url.Values{}
	data.Set("chat_id", t.chatID)
	data.Set("text", text)
	data.Set("parse_mode", "Markdown")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	resp, err := t.client.Post(endpoint, "application/x-www-form-urlencoded",
		strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("telegram API returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
