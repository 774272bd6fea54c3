// Package notify sends outbound messages over Slack, Telegram, and email.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/slack-go/slack"
)

// ErrChannelDisabled is returned when a channel has no configuration.
var ErrChannelDisabled = errors.New("notification channel is not configured")

// Slack posts messages to an incoming webhook.
type Slack struct {
	webhookURL string
}

// NewSlack returns a Slack notifier. Empty webhookURL disables it.
func NewSlack(webhookURL string) *Slack {
	return &Slack{webhookURL: webhookURL}
}

// Send posts text to the configured webhook.
func (s *Slack) Send(ctx context.Context, text string) error {
	if s.webhookURL == "" {
		return ErrChannelDisabled
	}
	msg := &slack.WebhookMessage{Text: text}
	if err := slack.PostWebhookContext(ctx, s.webhookURL, msg); err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	return nil
}

// Telegram sends messages to a fixed chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram connects the bot API. Empty token disables the channel.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return &Telegram{}, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	slog.Info("telegram notifier ready", slog.String("bot", bot.Self.UserName))
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// Send delivers text to the configured chat.
func (t *Telegram) Send(_ context.Context, text string) error {
	if t.bot == nil {
		return ErrChannelDisabled
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// Mailer sends plain-text email over SMTP with a static sender.
type Mailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// NewMailer returns a Mailer. Empty host disables it.
func NewMailer(host, port, username, password, from string) *Mailer {
	if from == "" {
		from = username
	}
	return &Mailer{host: host, port: port, username: username, password: password, from: from}
}

// Send delivers one message. The body is sent as plain text.
func (m *Mailer) Send(_ context.Context, to, subject, body string) error {
	if m.host == "" {
		return ErrChannelDisabled
	}
	headers := []string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
	}
	msg := strings.Join(headers, "\r\n") + "\r\n\r\n" + body

	addr := m.host + ":" + m.port
	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
