package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/m3rciful/subbot/core/logger"
	"github.com/m3rciful/subbot/internal/config"
	"github.com/m3rciful/subbot/internal/notify"
	"github.com/m3rciful/subbot/internal/subscription"
	"log/slog"
)

const expiredUserMessage = "⌛ *Your subscription has expired.*\n\n" +
	"Access to the channel will be revoked. Use /start to renew."

// defaultCooldown is how long the loop waits after an unexpected error
// before recomputing the next run.
const defaultCooldown = 60 * time.Second

// Notifier delivers expiry notices with bounded retry. Satisfied by
// *notify.Notifier.
type Notifier interface {
	SendWithRetry(ctx context.Context, chatID int64, text string, policy notify.RetryPolicy) error
}

// Config controls the sweep schedule and notification retry budget.
type Config struct {
	At       config.TimeOfDay
	Retry    notify.RetryPolicy
	Cooldown time.Duration
}

// Sweeper expires subscriptions that ran past their end date, once a day
// at the configured time. Expiry is a fact independent of whether the
// user could be told about it, so the status transition never depends on
// notification success.
type Sweeper struct {
	store    subscription.Store
	notifier Notifier
	cfg      Config
	now      func() time.Time
}

func New(store subscription.Store, notifier Notifier, cfg Config) *Sweeper {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}
	return &Sweeper{store: store, notifier: notifier, cfg: cfg, now: time.Now}
}

// NextRun returns the first wall-clock instant at or after now that
// matches the configured time of day. A run time earlier today that has
// already passed rolls over to tomorrow.
func NextRun(now time.Time, at config.TimeOfDay) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour, at.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run executes daily sweeps until ctx is cancelled. Unexpected sweep
// errors are logged and followed by a cool-down, never a crash.
func (s *Sweeper) Run(ctx context.Context) {
	for {
		next := NextRun(s.now(), s.cfg.At)
		logger.SVCSweeper.Info("sweep scheduled",
			slog.String("event", "schedule"),
			slog.Time("next_run", next),
		)
		if err := sleepUntil(ctx, s.now(), next); err != nil {
			return
		}

		if err := s.SweepOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.SVCSweeper.Error("sweep failed",
				slog.String("event", "sweep"),
				slog.String("err", err.Error()),
			)
			if err := sleep(ctx, s.cfg.Cooldown); err != nil {
				return
			}
		}
	}
}

// SweepOnce expires every active record whose end date is before today.
// Each record is handled in isolation: a failure on one never blocks the
// rest.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	today := subscription.Midnight(s.now())
	records, err := s.store.ListExpired(ctx, today)
	if err != nil {
		return fmt.Errorf("list expired: %w", err)
	}

	expired := 0
	for _, rec := range records {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := s.notifier.SendWithRetry(ctx, rec.UserID, expiredUserMessage, s.cfg.Retry); err != nil {
			logger.SVCSweeper.Warn("expiry notice not delivered",
				slog.String("event", "notify"),
				slog.Int64("target_user_id", rec.UserID),
				slog.String("err", err.Error()),
			)
		}

		if _, err := s.store.UpdateStatus(ctx, rec.UserID, subscription.StatusExpired); err != nil {
			logger.SVCSweeper.Error("status not updated",
				slog.String("event", "expire"),
				slog.Int64("target_user_id", rec.UserID),
				slog.String("err", err.Error()),
			)
			continue
		}
		expired++
	}

	logger.SVCSweeper.Info("sweep finished",
		slog.String("event", "sweep"),
		slog.Int("expired_total", expired),
	)
	return nil
}

func sleepUntil(ctx context.Context, now, t time.Time) error {
	return sleep(ctx, t.Sub(now))
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
