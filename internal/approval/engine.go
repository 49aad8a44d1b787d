package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/subbot/core/logger"
	"github.com/m3rciful/subbot/internal/subscription"
	"log/slog"
)

// ErrNotFound is returned when a decision targets a user with no record.
var ErrNotFound = errors.New("approval: no subscriber record")

// ErrUnauthorized is returned when a decision comes from anyone but the
// configured administrator. Nothing is read or written in that case.
var ErrUnauthorized = errors.New("approval: sender is not the administrator")

// Messenger sends outbound notifications. Satisfied by *notify.Notifier.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *tele.ReplyMarkup) error
}

// Config holds the settings the engine needs to finalize a decision.
type Config struct {
	AdminID           int64
	ChannelInviteLink string
	MonthlyDays       int
}

// Outcome describes a committed decision.
type Outcome struct {
	Record *subscription.Record
	Plan   subscription.Plan
	// Already reports the record was in the terminal state before the
	// decision ran. Repeated taps on old buttons land here.
	Already bool
	// UserNotified reports the user-facing notification was delivered.
	UserNotified bool
}

// Engine commits admin decisions to the record store and notifies the
// affected user. Persistence failures abort before any notification so
// nobody is told about a state change that did not commit.
type Engine struct {
	store subscription.Store
	msg   Messenger
	cfg   Config
	now   func() time.Time
}

func NewEngine(store subscription.Store, msg Messenger, cfg Config) *Engine {
	return &Engine{store: store, msg: msg, cfg: cfg, now: time.Now}
}

// Authorized reports whether senderID is the configured administrator.
func (e *Engine) Authorized(senderID int64) bool {
	return senderID != 0 && senderID == e.cfg.AdminID
}

// Decide checks the sender and dispatches a parsed decision to Approve
// or Decline. An unauthorized sender is rejected before any store access.
func (e *Engine) Decide(ctx context.Context, senderID int64, d Decision) (*Outcome, error) {
	if !e.Authorized(senderID) {
		logger.SVCApprovals.Warn("decision rejected",
			slog.String("event", "unauthorized"),
			slog.Int64("user_id", senderID),
			slog.Int64("target_user_id", d.UserID),
		)
		return nil, ErrUnauthorized
	}
	switch d.Action {
	case ActionApprove:
		return e.Approve(ctx, d.UserID)
	case ActionDecline:
		return e.Decline(ctx, d.UserID)
	default:
		return nil, fmt.Errorf("approval: unknown action %q", d.Action)
	}
}

// Approve activates the subscription for userID. The end date is
// recomputed from the stored start date: monthly runs for the configured
// number of days, lifetime stays unbounded (null end date).
func (e *Engine) Approve(ctx context.Context, userID int64) (*Outcome, error) {
	rec, err := e.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load subscriber %d: %w", userID, err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}

	plan := rec.PlanOrDefault()
	already := rec.Status == subscription.StatusActive

	start := subscription.Midnight(e.now())
	if rec.StartDate != nil {
		start = *rec.StartDate
	}
	var end *time.Time
	if plan == subscription.PlanMonthly {
		t := start.AddDate(0, 0, e.cfg.MonthlyDays)
		end = &t
	}

	if _, err := e.store.UpdateDates(ctx, userID, start, end, plan); err != nil {
		return nil, fmt.Errorf("persist dates for %d: %w", userID, err)
	}
	if _, err := e.store.UpdateStatus(ctx, userID, subscription.StatusActive); err != nil {
		return nil, fmt.Errorf("persist status for %d: %w", userID, err)
	}

	rec.StartDate = &start
	rec.EndDate = end
	rec.Status = subscription.StatusActive
	rec.Plan = &plan

	out := &Outcome{Record: rec, Plan: plan, Already: already}
	if !already {
		if err := e.msg.SendMessage(ctx, userID, ApprovedUserMessage(e.cfg.ChannelInviteLink), nil); err != nil {
			logger.SVCApprovals.Warn("approved user not notified",
				slog.String("event", "approve"),
				slog.Int64("target_user_id", userID),
				slog.String("err", err.Error()),
			)
		} else {
			out.UserNotified = true
		}
	}

	logger.SVCApprovals.Info("subscription approved",
		slog.String("event", "approve"),
		slog.Int64("target_user_id", userID),
		slog.String("plan", string(plan)),
		slog.Bool("already", already),
	)
	return out, nil
}

// Decline marks the request as expired and tells the user to retry.
func (e *Engine) Decline(ctx context.Context, userID int64) (*Outcome, error) {
	rec, err := e.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load subscriber %d: %w", userID, err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}

	already := rec.Status == subscription.StatusExpired
	if _, err := e.store.UpdateStatus(ctx, userID, subscription.StatusExpired); err != nil {
		return nil, fmt.Errorf("persist status for %d: %w", userID, err)
	}
	rec.Status = subscription.StatusExpired

	out := &Outcome{Record: rec, Plan: rec.PlanOrDefault(), Already: already}
	if !already {
		if err := e.msg.SendMessage(ctx, userID, DeclinedUserMessage(), nil); err != nil {
			logger.SVCApprovals.Warn("declined user not notified",
				slog.String("event", "decline"),
				slog.Int64("target_user_id", userID),
				slog.String("err", err.Error()),
			)
		} else {
			out.UserNotified = true
		}
	}

	logger.SVCApprovals.Info("subscription declined",
		slog.String("event", "decline"),
		slog.Int64("target_user_id", userID),
		slog.Bool("already", already),
	)
	return out, nil
}
