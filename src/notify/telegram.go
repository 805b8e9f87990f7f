package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

// Telegram delivers execution notifications to an operator chat through the
// Bot API. Messages go out as plain text; Telegram markup characters in
// order identifiers would otherwise break parsing.
type Telegram struct {
	chatID string
	http   *resty.Client
	log    *logger.Entry
}

func NewTelegram(cfg Config) *Telegram {
	client := resty.New().
		SetBaseURL(fmt.Sprintf("%s/bot%s", cfg.BaseURL, cfg.BotToken)).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Telegram{
		chatID: cfg.ChatID,
		http:   client,
		log:    logger.WithField("component", "notify.Telegram"),
	}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify posts one message to the configured chat.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	body := map[string]string{
		"chat_id": t.chatID,
		"text":    StripMarkup(text),
	}

	resp, err := t.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}

	// The Bot API wraps failures in the same envelope with a non-200 status,
	// so the body is decoded unconditionally to keep the description.
	var parsed telegramResponse
	_ = json.Unmarshal(resp.Body(), &parsed)

	if resp.StatusCode() != 200 || !parsed.OK {
		return fmt.Errorf("telegram sendMessage: status %d: %s", resp.StatusCode(), parsed.Description)
	}

	t.log.WithField("chat_id", t.chatID).Debug("notification delivered")
	return nil
}

// StripMarkup removes Telegram formatting characters from untrusted text so
// a plain-text message never fails to parse.
func StripMarkup(text string) string {
	return strings.NewReplacer("*", "", "_", "", "`", "", "[", "(", "]", ")").Replace(text)
}

// Noop is a Notifier that discards messages. Used when notifications are
// disabled in configuration.
type Noop struct{}

func (Noop) Notify(context.Context, string) error { return nil }
