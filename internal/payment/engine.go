package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/subbot/core/logger"
	"github.com/m3rciful/subbot/core/telegram/state"
	"github.com/m3rciful/subbot/internal/approval"
	"github.com/m3rciful/subbot/internal/subscription"
	"log/slog"
)

// ErrWrongState is returned when an action arrives outside the state
// that allows it, e.g. a tap on a stale inline button.
var ErrWrongState = errors.New("payment: action not allowed in current state")

// ErrNoPlan is returned when the flow reaches a step that needs a chosen
// plan but the session carries none.
var ErrNoPlan = errors.New("payment: no plan selected")

// Receipt is a proof-of-payment attachment forwarded to the admin.
type Receipt struct {
	FileID     string
	IsDocument bool
}

// AdminNotifier forwards receipts to the admin chat. Satisfied by
// *notify.Notifier.
type AdminNotifier interface {
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string, markup *tele.ReplyMarkup) error
	SendDocument(ctx context.Context, chatID int64, fileID, caption string, markup *tele.ReplyMarkup) error
}

// Config holds the flow settings: tariffs, payment instructions, and the
// admin chat receipts are forwarded to.
type Config struct {
	AdminID        int64
	PaymentDetails string
	MonthlyDays    int
	MonthlyPrice   int
	LifetimePrice  int
}

// Engine drives the per-user purchase state machine. Conversation state
// lives in the session manager; the subscriber record is only written at
// receipt submission.
type Engine struct {
	store    subscription.Store
	users    *subscription.Service
	sessions Sessions
	admin    AdminNotifier
	cfg      Config
	now      func() time.Time
}

func NewEngine(store subscription.Store, users *subscription.Service, sessions Sessions, admin AdminNotifier, cfg Config) *Engine {
	return &Engine{store: store, users: users, sessions: sessions, admin: admin, cfg: cfg, now: time.Now}
}

// PriceFor returns the configured price of a plan.
func (e *Engine) PriceFor(plan subscription.Plan) int {
	if plan == subscription.PlanLifetime {
		return e.cfg.LifetimePrice
	}
	return e.cfg.MonthlyPrice
}

// EnsureSubscriber creates the subscriber row on first contact and resets
// any in-flight conversation. Reports whether a new row was created.
func (e *Engine) EnsureSubscriber(ctx context.Context, userID int64, username string) (bool, error) {
	e.sessions.Clear(userID)
	created, err := e.users.Ensure(ctx, userID, username)
	if err != nil {
		return false, fmt.Errorf("ensure subscriber %d: %w", userID, err)
	}
	return created, nil
}

// BeginPlanSelection opens the plan menu. Only allowed when no purchase
// is already in flight.
func (e *Engine) BeginPlanSelection(userID int64) error {
	st := e.sessions.GetState(userID)
	if st != state.StateIdle && st != StateAwaitingPlan {
		return ErrWrongState
	}
	e.sessions.SetState(userID, StateAwaitingPlan)
	return nil
}

// SelectPlan records the chosen plan and price and advances to payment
// acknowledgement.
func (e *Engine) SelectPlan(userID int64, plan subscription.Plan) (Pending, error) {
	if e.sessions.GetState(userID) != StateAwaitingPlan {
		return Pending{}, ErrWrongState
	}
	if !plan.Valid() {
		return Pending{}, fmt.Errorf("payment: unknown plan %q", plan)
	}
	pending := Pending{Plan: plan, Price: e.PriceFor(plan), SelectedAt: e.now()}
	e.sessions.SetData(userID, pending)
	e.sessions.SetState(userID, StateAwaitingPaymentAck)

	logger.SVCPayments.Info("plan selected",
		slog.String("event", "select_plan"),
		slog.Int64("user_id", userID),
		slog.String("plan", string(plan)),
		slog.Int("price", pending.Price),
	)
	return pending, nil
}

// ConfirmPaid advances from payment acknowledgement to receipt upload.
func (e *Engine) ConfirmPaid(userID int64) (Pending, error) {
	if e.sessions.GetState(userID) != StateAwaitingPaymentAck {
		return Pending{}, ErrWrongState
	}
	pending, ok := e.sessions.Data(userID)
	if !ok {
		return Pending{}, ErrNoPlan
	}
	e.sessions.SetState(userID, StateAwaitingReceipt)
	return pending, nil
}

// Cancel aborts the flow from any state and drops conversation data.
// The subscriber record is not touched.
func (e *Engine) Cancel(userID int64) {
	e.sessions.Clear(userID)
}

// InFlight returns the current conversation snapshot for a user.
func (e *Engine) InFlight(userID int64) (Pending, bool) {
	if !e.sessions.InProgress(userID) {
		return Pending{}, false
	}
	return e.sessions.Data(userID)
}

// SubmitReceipt persists the subscription request and hands the decision
// to the admin. The subscription window starts today: monthly runs for
// the configured number of days, lifetime has no end date. On a
// persistence failure the conversation stays in the receipt state so the
// user can retry.
func (e *Engine) SubmitReceipt(ctx context.Context, userID int64, username string, receipt Receipt) (Pending, error) {
	if e.sessions.GetState(userID) != StateAwaitingReceipt {
		return Pending{}, ErrWrongState
	}
	pending, ok := e.sessions.Data(userID)
	if !ok {
		return Pending{}, ErrNoPlan
	}

	start := subscription.Midnight(e.now())
	var end *time.Time
	if pending.Plan == subscription.PlanMonthly {
		t := start.AddDate(0, 0, e.cfg.MonthlyDays)
		end = &t
	}

	if _, err := e.users.Ensure(ctx, userID, username); err != nil {
		return Pending{}, fmt.Errorf("ensure subscriber %d: %w", userID, err)
	}
	if _, err := e.store.UpdateDates(ctx, userID, start, end, pending.Plan); err != nil {
		return Pending{}, fmt.Errorf("persist dates for %d: %w", userID, err)
	}
	if _, err := e.store.UpdateStatus(ctx, userID, subscription.StatusPending); err != nil {
		return Pending{}, fmt.Errorf("persist status for %d: %w", userID, err)
	}

	e.sessions.SetState(userID, StateAwaitingAdminDecision)

	caption := ReceiptCaption(userID, username, pending)
	markup := approval.DecisionKeyboard(userID)
	var err error
	if receipt.IsDocument {
		err = e.admin.SendDocument(ctx, e.cfg.AdminID, receipt.FileID, caption, markup)
	} else {
		err = e.admin.SendPhoto(ctx, e.cfg.AdminID, receipt.FileID, caption, markup)
	}
	if err != nil {
		logger.SVCPayments.Error("admin not notified of receipt",
			slog.String("event", "submit_receipt"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}

	logger.SVCPayments.Info("receipt submitted",
		slog.String("event", "submit_receipt"),
		slog.Int64("user_id", userID),
		slog.String("plan", string(pending.Plan)),
		slog.Int("price", pending.Price),
	)
	return pending, nil
}
