package approval

import (
	"errors"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/subbot/core/logger"
	"github.com/m3rciful/subbot/core/telegram/callbacks"
	"github.com/m3rciful/subbot/core/telegram/helpers"
	"github.com/m3rciful/subbot/internal/subscription"
	"log/slog"
)

// SessionResetter drops a user's conversation session once a decision
// lands. Satisfied by the payment flow's state manager.
type SessionResetter interface {
	Clear(userID int64)
}

// Handlers adapts the decision engine to Telegram updates.
type Handlers struct {
	engine   *Engine
	service  *subscription.Service
	sessions SessionResetter
}

func NewHandlers(engine *Engine, service *subscription.Service, sessions SessionResetter) *Handlers {
	return &Handlers{engine: engine, service: service, sessions: sessions}
}

// DecisionCallback handles taps on the inline approve/decline buttons.
func (h *Handlers) DecisionCallback(c tele.Context) error {
	d, ok := ParsePayload(callbacks.CallbackPayload(c))
	if !ok {
		return helpers.SendText(c, decisionFailedText)
	}
	return h.decide(c, d)
}

// LegacyDecisionCallback inspects unrouted callbacks for the flat
// approve_<id>/decline_<id> encoding still present on old messages.
// Anything else falls through to next.
func (h *Handlers) LegacyDecisionCallback(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if cb := c.Callback(); cb != nil {
			if d, ok := ParseData(cb.Data); ok {
				return h.decide(c, d)
			}
		}
		if next != nil {
			return next(c)
		}
		return nil
	}
}

func (h *Handlers) decide(c tele.Context, d Decision) error {
	var senderID int64
	if snd := c.Sender(); snd != nil {
		senderID = snd.ID
	}

	ctx := helpers.BuildContext(c)
	out, err := h.engine.Decide(ctx, senderID, d)
	if errors.Is(err, ErrUnauthorized) {
		return helpers.SendText(c, accessDeniedText)
	}
	if errors.Is(err, ErrNotFound) {
		return editDecisionMessage(c, recordNotFoundText)
	}
	if err != nil {
		logger.SVCApprovals.Error("decision failed",
			slog.String("event", string(d.Action)),
			slog.Int64("target_user_id", d.UserID),
			slog.String("err", err.Error()),
		)
		return editDecisionMessage(c, decisionFailedText)
	}

	if h.sessions != nil {
		h.sessions.Clear(d.UserID)
	}
	return editDecisionMessage(c, DecisionResultText(out, d.Action))
}

// editDecisionMessage replaces the decision message in place. Receipts
// arrive as photos, so the caption is edited; legacy plain-text decision
// messages are edited as text.
func editDecisionMessage(c tele.Context, text string) error {
	if msg := c.Message(); msg != nil && (msg.Photo != nil || msg.Document != nil) {
		return c.EditCaption(text, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
	}
	return helpers.EditOrSendMD(c, text)
}

// RemoveCommand deletes a subscriber record: /remove <user_id>.
// Administrative cleanup only; registered admin-only.
func (h *Handlers) RemoveCommand(c tele.Context) error {
	arg := strings.TrimSpace(c.Message().Payload)
	userID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || userID <= 0 {
		return helpers.SendText(c, "Usage: /remove <user_id>")
	}

	ctx := helpers.BuildContext(c)
	deleted, err := h.service.Remove(ctx, userID)
	if err != nil {
		logger.SVCApprovals.Error("remove failed",
			slog.String("event", "remove"),
			slog.Int64("target_user_id", userID),
			slog.String("err", err.Error()),
		)
		return helpers.SendText(c, "⚠️ Could not remove the record, see logs.")
	}
	if !deleted {
		return helpers.SendText(c, "No record for that user.")
	}
	if h.sessions != nil {
		h.sessions.Clear(userID)
	}
	return helpers.SendText(c, "🗑 Record removed.")
}
