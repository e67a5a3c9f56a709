package notifier

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	DefaultTelegramURL = "https://api.telegram.org"

	sendTimeout = 15 * time.Second
	// telegram allows about one message per second per chat
	sendInterval = time.Second
	sendBurst    = 3
)

// ErrDisabled returned when the bot token or chat id is missing.
var ErrDisabled = errors.New("telegram disabled: missing token or chat id")

// Telegram posts messages through the Telegram Bot API.
type Telegram struct {
	client  *resty.Client
	token   string
	chatID  string
	limiter *rate.Limiter
}

// Option configures Telegram.
type Option func(*Telegram)

// WithBaseURL overrides the Bot API endpoint.
func WithBaseURL(url string) Option {
	return func(t *Telegram) {
		t.client.SetBaseURL(strings.TrimRight(url, "/"))
	}
}

// WithRateLimit overrides the send rate.
func WithRateLimit(every time.Duration, burst int) Option {
	return func(t *Telegram) {
		t.limiter = rate.NewLimiter(rate.Every(every), burst)
	}
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(token, chatID string, opts ...Option) *Telegram {
	client := resty.New()
	client.SetBaseURL(DefaultTelegramURL)
	client.SetTimeout(sendTimeout)

	t := &Telegram{
		client:  client,
		token:   strings.TrimSpace(token),
		chatID:  strings.TrimSpace(chatID),
		limiter: rate.NewLimiter(rate.Every(sendInterval), sendBurst),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Enabled reports whether both token and chat id are set.
func (t *Telegram) Enabled() bool {
	return t.token != "" && t.chatID != ""
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts text to the configured chat. Errors never contain the bot token.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Enabled() {
		return ErrDisabled
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "telegram rate limit")
	}

	var out sendMessageResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(sendMessageRequest{ChatID: t.chatID, Text: text}).
		SetResult(&out).
		SetError(&out).
		Post("/bot" + t.token + "/sendMessage")
	if err != nil {
		return errors.New(t.sanitize(errors.Wrap(err, "telegram send").Error()))
	}
	if resp.IsError() || !out.OK {
		return errors.Errorf("telegram send: status %d: %s", resp.StatusCode(), t.sanitize(out.Description))
	}
	return nil
}

func (t *Telegram) sanitize(text string) string {
	if t.token == "" {
		return text
	}
	text = strings.ReplaceAll(text, "bot"+t.token, "bot***")
	return strings.ReplaceAll(text, t.token, "***")
}
