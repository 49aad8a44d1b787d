package approval

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/subbot/core/telegram/keyboard"
)

// CallbackUnique is the callback key the decision buttons are registered under.
const CallbackUnique = "admin"

// Action is the admin verdict carried inside a decision button.
type Action string

const (
	ActionApprove Action = "approve"
	ActionDecline Action = "decline"
)

// Decision is a parsed decision payload: the verdict and its target user.
type Decision struct {
	Action Action
	UserID int64
}

// EncodePayload builds the payload stored next to CallbackUnique,
// e.g. "approve:123456".
func EncodePayload(a Action, userID int64) string {
	return fmt.Sprintf("%s:%d", a, userID)
}

// DecisionKeyboard returns the inline approve/decline buttons attached
// to the receipt forwarded to the admin, one per row.
func DecisionKeyboard(userID int64) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "✅ Approve", Unique: CallbackUnique, Data: EncodePayload(ActionApprove, userID)},
		},
		[]keyboard.InlineBtn{
			{Text: "❌ Decline", Unique: CallbackUnique, Data: EncodePayload(ActionDecline, userID)},
		},
	)
}

// ParsePayload parses the "<action>:<userId>" payload of a decision button.
func ParsePayload(payload string) (Decision, bool) {
	parts := strings.SplitN(payload, ":", 2)
	if len(parts) != 2 {
		return Decision{}, false
	}
	action := Action(strings.TrimSpace(parts[0]))
	if action != ActionApprove && action != ActionDecline {
		return Decision{}, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil || id <= 0 {
		return Decision{}, false
	}
	return Decision{Action: action, UserID: id}, true
}

// ParseData parses raw callback data in any encoding produced over the
// bot's lifetime:
//
//	\fadmin|approve:123   current Telebot unique + payload
//	admin:approve:123     flattened triad
//	approve_123           legacy buttons still present in old chats
func ParseData(raw string) (Decision, bool) {
	data := strings.TrimSpace(strings.TrimPrefix(raw, "\f"))
	data = strings.TrimPrefix(data, "\\f")
	if data == "" {
		return Decision{}, false
	}

	if unique, payload, found := strings.Cut(data, "|"); found {
		if strings.TrimSpace(unique) != CallbackUnique {
			return Decision{}, false
		}
		return ParsePayload(payload)
	}

	if rest, found := strings.CutPrefix(data, CallbackUnique+":"); found {
		return ParsePayload(rest)
	}

	return parseLegacy(data)
}

// parseLegacy accepts the flat "approve_<id>" / "decline_<id>" form.
func parseLegacy(data string) (Decision, bool) {
	var action Action
	var rest string
	switch {
	case strings.HasPrefix(data, "approve_"):
		action = ActionApprove
		rest = strings.TrimPrefix(data, "approve_")
	case strings.HasPrefix(data, "decline_"):
		action = ActionDecline
		rest = strings.TrimPrefix(data, "decline_")
	default:
		return Decision{}, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return Decision{}, false
	}
	return Decision{Action: action, UserID: id}, true
}
