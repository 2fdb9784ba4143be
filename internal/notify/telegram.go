// Package notify tells the owner about confirmed booking requests.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookingdesk/internal/booking"
	"bookingdesk/internal/events"
	"bookingdesk/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Sender sends Telegram messages. *tgbotapi.BotAPI implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// RetryConfig holds configuration for retry logic.
type RetryConfig struct {
	MaxRetries  int
	RetryDelays []time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		RetryDelays: []time.Duration{
			1 * time.Second,
			5 * time.Second,
			30 * time.Second,
		},
	}
}

// Config configures a Telegram notifier.
type Config struct {
	ChatIDs   []int64
	QueueSize int
	// PerSecond caps outgoing messages across all chats.
	PerSecond float64
	Retry     RetryConfig
}

// Telegram queues booking notifications and delivers them from Run.
// Delivery is best effort: failures are logged and counted, never returned
// to the booking flow.
type Telegram struct {
	sender  Sender
	chatIDs []int64
	limiter *rate.Limiter
	retry   RetryConfig
	queue   chan string
	logger  *zerolog.Logger
}

// NewTelegram creates a notifier.
func NewTelegram(sender Sender, cfg Config, logger *zerolog.Logger) *Telegram {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.PerSecond <= 0 {
		cfg.PerSecond = 25
	}
	if cfg.Retry.RetryDelays == nil {
		cfg.Retry = DefaultRetryConfig()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Telegram{
		sender:  sender,
		chatIDs: cfg.ChatIDs,
		limiter: rate.NewLimiter(rate.Limit(cfg.PerSecond), 1),
		retry:   cfg.Retry,
		queue:   make(chan string, cfg.QueueSize),
		logger:  logger,
	}
}

// HandleBookingConfirmed is an events.EventHandler for booking.confirmed.
func (t *Telegram) HandleBookingConfirmed(e events.Event) error {
	var p events.BookingConfirmedPayload
	if err := e.Decode(&p); err != nil {
		return fmt.Errorf("decode %s: %w", e.Type, err)
	}
	t.Enqueue(booking.FormatConfirmation(p.Service, p.Booking, p.Slot))
	return nil
}

// Enqueue schedules text for delivery. It never blocks; when the queue is
// full the message is dropped.
func (t *Telegram) Enqueue(text string) bool {
	select {
	case t.queue <- text:
		return true
	default:
		metrics.IncNotification("telegram", "dropped")
		t.logger.Warn().Msg("telegram queue full, notification dropped")
		return false
	}
}

// Run delivers queued messages until ctx is done.
func (t *Telegram) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-t.queue:
			for _, chatID := range t.chatIDs {
				if err := t.sendWithRetry(ctx, chatID, text); err != nil {
					if ctx.Err() != nil {
						return
					}
					metrics.IncNotification("telegram", "failed")
					t.logger.Error().Err(err).Int64("chat_id", chatID).Msg("telegram notification failed")
					continue
				}
				metrics.IncNotification("telegram", "sent")
			}
		}
	}
}

func (t *Telegram) sendWithRetry(ctx context.Context, chatID int64, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= t.retry.MaxRetries; attempt++ {
		_, err := t.sender.Send(tgbotapi.NewMessage(chatID, text))
		if err == nil {
			return nil
		}
		lastErr = err

		var wait time.Duration
		if attempt < len(t.retry.RetryDelays) {
			wait = t.retry.RetryDelays[attempt]
		}

		var tgErr *tgbotapi.Error
		if errors.As(err, &tgErr) {
			switch tgErr.Code {
			case 429:
				if tgErr.RetryAfter > 0 {
					wait = time.Duration(tgErr.RetryAfter) * time.Second
				}
				t.logger.Info().Dur("retry_after", wait).Int("attempt", attempt).Msg("rate limited by Telegram, waiting")
			case 400, 403:
				return err
			}
		}

		if attempt == t.retry.MaxRetries {
			break
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
