// Package notify delivers booking lifecycle messages to guests,
// stakeholders, and the property admin over email and Telegram.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

// Message is one outbound notification.
type Message struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// Dispatcher delivers messages over one channel.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig carries mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
	UseTLS   bool
}

// SMTPMailer sends HTML email through a single SMTP account.
type SMTPMailer struct {
	client *mail.Client
	sender string
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	}
	if cfg.UseTLS {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPMailer{client: client, sender: cfg.Sender}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}

	mm := mail.NewMsg()
	if err := mm.From(m.sender); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := mm.To(msg.To...); err != nil {
		return fmt.Errorf("set recipients: %w", err)
	}
	mm.Subject(msg.Subject)
	if msg.TextBody != "" {
		mm.SetBodyString(mail.TypeTextPlain, msg.TextBody)
		if msg.HTMLBody != "" {
			mm.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
		}
	} else {
		mm.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	}

	if err := m.client.DialAndSendWithContext(ctx, mm); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// TelegramNotifier posts notifications to the admin chat. Recipients in
// the message are ignored; everything goes to the configured chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

func NewTelegramNotifier(botToken string, chatID int64, logger zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{
		bot:    bot,
		chatID: chatID,
		logger: logger.With().Str("component", "telegram").Logger(),
	}, nil
}

func (t *TelegramNotifier) Send(_ context.Context, msg Message) error {
	text := msg.Subject
	if msg.TextBody != "" {
		text += "\n\n" + msg.TextBody
	}

	out := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(out); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
