package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/m3rciful/subbot/core/logger"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// ErrNotBound is returned when a send is attempted before the notifier
// has been bound to a running bot.
var ErrNotBound = errors.New("notify: notifier not bound to a bot")

// Sender is the outbound surface of *tele.Bot the notifier depends on.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// RetryPolicy bounds retries for notifications that must make a best
// effort to reach the user (the expiry sweep).
type RetryPolicy struct {
	// Attempts is the retry budget for transient failures.
	Attempts int
	// BaseDelay is multiplied by the attempt number for linear backoff.
	BaseDelay time.Duration
}

// Notifier sends messages to explicit chat IDs outside the scope of an
// inbound update, e.g. admin decision requests and expiry notices.
// It is constructed unbound and attached to the bot once the runtime
// is up.
type Notifier struct {
	sender atomic.Pointer[senderBox]
}

type senderBox struct{ s Sender }

// New returns an unbound Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Bind attaches the running bot. Safe to call concurrently with sends.
func (n *Notifier) Bind(s Sender) {
	if s == nil {
		n.sender.Store(nil)
		return
	}
	n.sender.Store(&senderBox{s: s})
}

func (n *Notifier) current() (Sender, error) {
	box := n.sender.Load()
	if box == nil || box.s == nil {
		return nil, ErrNotBound
	}
	return box.s, nil
}

// SendMessage delivers a Markdown-formatted text message to a chat.
func (n *Notifier) SendMessage(ctx context.Context, chatID int64, text string, markup *tele.ReplyMarkup) error {
	s, err := n.current()
	if err != nil {
		return err
	}
	_, err = s.Send(tele.ChatID(chatID), text, &tele.SendOptions{
		ParseMode:   tele.ModeMarkdown,
		ReplyMarkup: markup,
	})
	if err != nil {
		kind, _ := Classify(err)
		logger.Warn(ctx, "notify", "send.fail",
			slog.Int64("chat_id", chatID),
			slog.String("error_kind", kind.String()),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
	return err
}

// SendPhoto delivers a photo by Telegram file ID with a caption and
// optional inline keyboard.
func (n *Notifier) SendPhoto(ctx context.Context, chatID int64, fileID, caption string, markup *tele.ReplyMarkup) error {
	s, err := n.current()
	if err != nil {
		return err
	}
	photo := &tele.Photo{File: tele.File{FileID: fileID}, Caption: caption}
	_, err = s.Send(tele.ChatID(chatID), photo, &tele.SendOptions{
		ParseMode:   tele.ModeMarkdown,
		ReplyMarkup: markup,
	})
	if err != nil {
		kind, _ := Classify(err)
		logger.Warn(ctx, "notify", "send_photo.fail",
			slog.Int64("chat_id", chatID),
			slog.String("error_kind", kind.String()),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
	return err
}

// SendDocument delivers a document by Telegram file ID with a caption
// and optional inline keyboard.
func (n *Notifier) SendDocument(ctx context.Context, chatID int64, fileID, caption string, markup *tele.ReplyMarkup) error {
	s, err := n.current()
	if err != nil {
		return err
	}
	doc := &tele.Document{File: tele.File{FileID: fileID}, Caption: caption}
	_, err = s.Send(tele.ChatID(chatID), doc, &tele.SendOptions{
		ParseMode:   tele.ModeMarkdown,
		ReplyMarkup: markup,
	})
	if err != nil {
		kind, _ := Classify(err)
		logger.Warn(ctx, "notify", "send_document.fail",
			slog.Int64("chat_id", chatID),
			slog.String("error_kind", kind.String()),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
	return err
}

// SendWithRetry delivers a text message applying the retry policy:
// rate limits wait out the transport-specified delay without consuming
// an attempt, permanent failures abort immediately, transient failures
// back off linearly until the budget is spent.
func (n *Notifier) SendWithRetry(ctx context.Context, chatID int64, text string, policy RetryPolicy) error {
	s, err := n.current()
	if err != nil {
		return err
	}
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := s.Send(tele.ChatID(chatID), text, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
		if err == nil {
			if attempt > 1 {
				logger.Info(ctx, "notify", "send.retry.success",
					slog.Int64("chat_id", chatID),
					slog.Int("attempt", attempt),
				)
			}
			return nil
		}
		lastErr = err

		kind, wait := Classify(err)
		switch kind {
		case FailureRateLimited:
			logger.Warn(ctx, "notify", "send.rate_limited",
				slog.Int64("chat_id", chatID),
				slog.Duration("backoff", wait),
			)
			if err := sleep(ctx, wait); err != nil {
				return err
			}
			// does not consume the attempt
			continue
		case FailurePermanent:
			logger.Warn(ctx, "notify", "send.unreachable",
				slog.Int64("chat_id", chatID),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
			return err
		default:
			logger.Warn(ctx, "notify", "send.retry",
				slog.Int64("chat_id", chatID),
				slog.Int("attempt", attempt),
				slog.Int("attempts", attempts),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
			if attempt < attempts {
				if err := sleep(ctx, time.Duration(attempt)*policy.BaseDelay); err != nil {
					return err
				}
			}
			attempt++
		}
	}
	return lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
