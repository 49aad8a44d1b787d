package payment

import (
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/subbot/core/logger"
	"github.com/m3rciful/subbot/core/telegram/callbacks"
	"github.com/m3rciful/subbot/core/telegram/helpers"
	"github.com/m3rciful/subbot/core/telegram/keyboard"
	"github.com/m3rciful/subbot/core/telegram/state"
	"github.com/m3rciful/subbot/internal/subscription"
	"log/slog"
)

// Callback uniques of the purchase flow buttons.
const (
	CallbackBuy     = "buy"
	CallbackTariff  = "tariff"
	CallbackPayment = "payment"
	CallbackCancel  = "cancel"
	CallbackMySub   = "mysub"
)

// Handlers adapts the flow engine to Telegram updates.
type Handlers struct {
	engine  *Engine
	service *subscription.Service
	cfg     Config
}

func NewHandlers(engine *Engine, service *subscription.Service, cfg Config) *Handlers {
	return &Handlers{engine: engine, service: service, cfg: cfg}
}

// RegisterStates binds the conversation states to their update handlers.
func (h *Handlers) RegisterStates() {
	state.RegisterHandler(StateAwaitingPlan, h.awaitingChoice)
	state.RegisterHandler(StateAwaitingPaymentAck, h.awaitingChoice)
	state.RegisterHandler(StateAwaitingReceipt, h.awaitingReceipt)
	state.RegisterHandler(StateAwaitingAdminDecision, h.awaitingDecision)
}

func mainMenuKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "💳 Buy access", Unique: CallbackBuy},
		{Text: "📋 My subscription", Unique: CallbackMySub},
	})
}

func planMenuKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "Monthly", Unique: CallbackTariff, Data: string(subscription.PlanMonthly)},
			{Text: "Lifetime", Unique: CallbackTariff, Data: string(subscription.PlanLifetime)},
		},
		[]keyboard.InlineBtn{
			{Text: "❌ Cancel", Unique: CallbackCancel},
		},
	)
}

func paymentAckKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "✅ I paid", Unique: CallbackPayment, Data: "confirm"},
			{Text: "❌ Cancel", Unique: CallbackPayment, Data: "cancel"},
		},
	)
}

// Start resets any in-flight purchase, registers the user on first
// contact, and shows the main menu.
func (h *Handlers) Start(c tele.Context) error {
	snd := c.Sender()
	ctx := helpers.BuildContext(c)
	if _, err := h.engine.EnsureSubscriber(ctx, snd.ID, snd.Username); err != nil {
		logger.SVCPayments.Error("start failed",
			slog.String("event", "start"),
			slog.Int64("user_id", snd.ID),
			slog.String("err", err.Error()),
		)
		return helpers.SendText(c, somethingWrongText)
	}
	return helpers.SendMD(c, welcomeText(displayName(snd)), mainMenuKeyboard())
}

// Help shows usage instructions.
func (h *Handlers) Help(c tele.Context) error {
	return helpers.SendMD(c, helpText)
}

// MySubscription reports the caller's subscription status.
func (h *Handlers) MySubscription(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	rec, err := helpers.CurrentUser(ctx, h.service, c.Sender().ID)
	if err != nil {
		return helpers.SendText(c, somethingWrongText)
	}
	return helpers.SendMD(c, subscriptionStatusText(rec))
}

// CancelCommand aborts the flow via /cancel.
func (h *Handlers) CancelCommand(c tele.Context) error {
	h.engine.Cancel(c.Sender().ID)
	return helpers.SendText(c, cancelledText)
}

// BuyCallback opens the plan menu. With a purchase already in flight the
// user is pointed at it instead of a second menu.
func (h *Handlers) BuyCallback(c tele.Context) error {
	if err := h.engine.BeginPlanSelection(c.Sender().ID); err != nil {
		if pending, ok := h.engine.InFlight(c.Sender().ID); ok {
			return helpers.SendMD(c, purchaseInFlightText(pending))
		}
		return helpers.SendText(c, staleActionText)
	}
	return helpers.EditOrSendMD(c,
		planMenuText(h.cfg.MonthlyPrice, h.cfg.LifetimePrice),
		planMenuKeyboard(),
	)
}

// TariffCallback records the chosen plan and shows payment instructions.
func (h *Handlers) TariffCallback(c tele.Context) error {
	plan, ok := subscription.ParsePlan(callbacks.CallbackPayload(c))
	if !ok {
		return helpers.SendText(c, staleActionText)
	}
	pending, err := h.engine.SelectPlan(c.Sender().ID, plan)
	if errors.Is(err, ErrWrongState) {
		return helpers.SendText(c, staleActionText)
	}
	if err != nil {
		return helpers.SendText(c, somethingWrongText)
	}
	return helpers.EditOrSendMD(c,
		paymentInstructionsText(pending, h.cfg.PaymentDetails),
		paymentAckKeyboard(),
	)
}

// PaymentCallback handles the "I paid" / "cancel" choice.
func (h *Handlers) PaymentCallback(c tele.Context) error {
	switch callbacks.CallbackPayload(c) {
	case "confirm":
		if _, err := h.engine.ConfirmPaid(c.Sender().ID); err != nil {
			return helpers.SendText(c, staleActionText)
		}
		return helpers.EditOrSendMD(c, receiptInstructionsText)
	case "cancel":
		h.engine.Cancel(c.Sender().ID)
		return helpers.EditOrSendMD(c, cancelledText)
	default:
		return helpers.SendText(c, staleActionText)
	}
}

// CancelCallback aborts the flow from an inline cancel button.
func (h *Handlers) CancelCallback(c tele.Context) error {
	h.engine.Cancel(c.Sender().ID)
	return helpers.EditOrSendMD(c, cancelledText)
}

// awaitingChoice re-prompts while the flow expects a button tap.
func (h *Handlers) awaitingChoice(c tele.Context) error {
	if done, err := h.interceptCommand(c); done {
		return err
	}
	return helpers.SendText(c, "Please use the buttons above, or /cancel to abort.")
}

// awaitingReceipt accepts a photo or an image document as proof of
// payment; anything else is rejected without a state change.
func (h *Handlers) awaitingReceipt(c tele.Context) error {
	if done, err := h.interceptCommand(c); done {
		return err
	}

	receipt, ok := extractReceipt(c.Message())
	if !ok {
		return helpers.SendMD(c, receiptRejectText)
	}

	snd := c.Sender()
	ctx := helpers.BuildContext(c)
	_, err := h.engine.SubmitReceipt(ctx, snd.ID, snd.Username, receipt)
	if errors.Is(err, ErrWrongState) || errors.Is(err, ErrNoPlan) {
		return helpers.SendText(c, staleActionText)
	}
	if err != nil {
		return helpers.SendText(c, somethingWrongText)
	}
	return helpers.SendMD(c, submittedText)
}

// awaitingDecision answers inputs that arrive while the admin reviews.
func (h *Handlers) awaitingDecision(c tele.Context) error {
	if done, err := h.interceptCommand(c); done {
		return err
	}
	return helpers.SendText(c, "⏳ Your receipt is under review, hang tight.")
}

// interceptCommand lets commands cut through an active conversation.
func (h *Handlers) interceptCommand(c tele.Context) (bool, error) {
	cmd, _, _ := strings.Cut(strings.TrimSpace(c.Text()), " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	switch cmd {
	case "/start":
		return true, h.Start(c)
	case "/cancel":
		return true, h.CancelCommand(c)
	case "/help":
		return true, h.Help(c)
	case "/mysubscription":
		return true, h.MySubscription(c)
	}
	return false, nil
}

// extractReceipt pulls a usable attachment out of the message.
func extractReceipt(msg *tele.Message) (Receipt, bool) {
	if msg == nil {
		return Receipt{}, false
	}
	if msg.Photo != nil {
		return Receipt{FileID: msg.Photo.FileID}, true
	}
	if doc := msg.Document; doc != nil && strings.HasPrefix(doc.MIME, "image/") {
		return Receipt{FileID: doc.FileID, IsDocument: true}, true
	}
	return Receipt{}, false
}

func displayName(u *tele.User) string {
	switch {
	case u == nil:
		return "there"
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return "@" + u.Username
	default:
		return "there"
	}
}
