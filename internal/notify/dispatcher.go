package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"adtime-landing/internal/config"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrTelegramNotConfigured is returned before any delivery is attempted.
var ErrTelegramNotConfigured = errors.New("telegram credentials not configured")

const emailNotConfigured = "not configured"

// Delivery outcomes reported to the Observer.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

type TelegramSender interface {
	SendMessage(ctx context.Context, chatID, text string) (json.RawMessage, error)
}

type EmailSender interface {
	SendEmail(ctx context.Context, e Email) (EmailReceipt, error)
}

// Observer receives one call per delivery attempt.
type Observer interface {
	ObserveDelivery(channel, outcome string)
}

type TelegramResult struct {
	ChatID  string          `json:"chatId"`
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type EmailResult struct {
	Success   bool   `json:"success"`
	Status    int    `json:"status,omitempty"`
	Recipient string `json:"recipient"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Result aggregates every channel. OK is true iff at least one Telegram
// delivery succeeded; the email outcome never affects it.
type Result struct {
	OK       bool             `json:"ok"`
	Telegram []TelegramResult `json:"telegram"`
	Email    *EmailResult     `json:"email"`
}

type Options struct {
	TelegramEndpoint string
	TelegramTimeout  time.Duration
	SendGridHost     string
	EmailTimeout     time.Duration
	PhoneRegion      string
	Observer         Observer
}

type Dispatcher struct {
	logger *zap.Logger
	opts   Options
	now    func() time.Time

	newTelegram func(token string) TelegramSender
	newEmail    func(n config.Notify) EmailSender
}

func NewDispatcher(opts Options, logger *zap.Logger) *Dispatcher {
	if opts.TelegramTimeout <= 0 {
		opts.TelegramTimeout = 5 * time.Second
	}
	if opts.EmailTimeout <= 0 {
		opts.EmailTimeout = 5 * time.Second
	}

	httpClient := &http.Client{}
	return &Dispatcher{
		logger: logger,
		opts:   opts,
		now:    time.Now,
		newTelegram: func(token string) TelegramSender {
			return NewTelegramClient(token, opts.TelegramEndpoint, httpClient)
		},
		newEmail: func(n config.Notify) EmailSender {
			return NewSendGridClient(n.EmailAPIKey, opts.SendGridHost, n.EmailFrom, n.EmailFromName)
		},
	}
}

// Dispatch renders the lead once and delivers it to every configured chat
// and to the email recipient concurrently. It returns after all attempts
// have settled. Per-channel failures are reported in the Result, never as
// an error; the only error is ErrTelegramNotConfigured.
func (d *Dispatcher) Dispatch(ctx context.Context, lead Lead, cfg config.Notify) (Result, error) {
	if cfg.BotToken == "" || len(cfg.ChatIDs) == 0 {
		return Result{}, ErrTelegramNotConfigured
	}

	n := BuildNotification(lead, d.now(), d.opts.PhoneRegion)
	text := n.Markdown()

	res := Result{Telegram: make([]TelegramResult, len(cfg.ChatIDs))}
	telegram := d.newTelegram(cfg.BotToken)

	var g errgroup.Group
	for i, chatID := range cfg.ChatIDs {
		i, chatID := i, chatID
		g.Go(func() error {
			res.Telegram[i] = d.sendTelegram(ctx, telegram, chatID, text)
			return nil
		})
	}
	g.Go(func() error {
		email := d.sendEmail(ctx, cfg, n)
		res.Email = &email
		return nil
	})
	_ = g.Wait()

	for _, r := range res.Telegram {
		if r.Success {
			res.OK = true
			break
		}
	}

	d.logger.Info("Lead dispatched",
		zap.String("source", n.Source),
		zap.Bool("ok", res.OK),
		zap.Int("telegram_sent", countSent(res.Telegram)),
		zap.Int("telegram_total", len(res.Telegram)),
		zap.Bool("email_sent", res.Email.Success))

	return res, nil
}

func (d *Dispatcher) sendTelegram(ctx context.Context, sender TelegramSender, chatID, text string) TelegramResult {
	ctx, cancel := context.WithTimeout(ctx, d.opts.TelegramTimeout)
	defer cancel()

	raw, err := sender.SendMessage(ctx, chatID, text)
	if err != nil {
		d.logger.Warn("Failed to deliver lead to Telegram chat",
			zap.String("chat_id", chatID),
			zap.Error(err))
		d.observe("telegram", OutcomeFailure)
		return TelegramResult{ChatID: chatID, Error: telegramErrorText(err)}
	}

	d.observe("telegram", OutcomeSuccess)
	return TelegramResult{ChatID: chatID, Success: true, Result: raw}
}

func (d *Dispatcher) sendEmail(ctx context.Context, cfg config.Notify, n Notification) EmailResult {
	res := EmailResult{Recipient: cfg.EmailRecipient}
	if cfg.EmailAPIKey == "" {
		d.logger.Debug("Email delivery disabled - no API key configured")
		d.observe("email", OutcomeSkipped)
		res.Error = emailNotConfigured
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, d.opts.EmailTimeout)
	defer cancel()

	receipt, err := d.newEmail(cfg).SendEmail(ctx, Email{
		To:        cfg.EmailRecipient,
		Subject:   n.Subject(),
		PlainText: n.PlainText(),
		HTML:      n.HTML(),
	})
	res.Status = receipt.Status
	res.MessageID = receipt.MessageID
	if err != nil {
		d.logger.Warn("Failed to deliver lead by email",
			zap.String("recipient", cfg.EmailRecipient),
			zap.Error(err))
		d.observe("email", OutcomeFailure)
		res.Error = err.Error()
		return res
	}

	d.observe("email", OutcomeSuccess)
	res.Success = true
	return res
}

func (d *Dispatcher) observe(channel, outcome string) {
	if d.opts.Observer != nil {
		d.opts.Observer.ObserveDelivery(channel, outcome)
	}
}

func countSent(results []TelegramResult) int {
	sent := 0
	for _, r := range results {
		if r.Success {
			sent++
		}
	}
	return sent
}
