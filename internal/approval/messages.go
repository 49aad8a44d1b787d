package approval

import (
	"fmt"

	"github.com/m3rciful/subbot/core/telegram/format"
	"github.com/m3rciful/subbot/internal/subscription"
)

// ApprovedUserMessage is sent to the user once the admin confirms payment.
func ApprovedUserMessage(inviteLink string) string {
	return fmt.Sprintf(
		"✅ *Payment confirmed!*\n\n"+
			"Your subscription is active. Welcome aboard!\n\n"+
			"Join the channel: %s",
		inviteLink,
	)
}

// DeclinedUserMessage is sent to the user when payment was not verified.
func DeclinedUserMessage() string {
	return "❌ *Payment not verified.*\n\n" +
		"We could not confirm your payment. Please double-check the details " +
		"and send the receipt again — start over with /start."
}

// DecisionResultText replaces the decision-message caption after a verdict.
// The target is always named by user ID so the admin can tie the outcome
// to a user even when no username was stored.
func DecisionResultText(out *Outcome, action Action) string {
	who := targetLabel(out.Record)
	switch action {
	case ActionApprove:
		if out.Plan == subscription.PlanLifetime {
			return fmt.Sprintf("✅ Approved %s — lifetime access.", who)
		}
		until := "-"
		if out.Record.EndDate != nil {
			until = out.Record.EndDate.Format("2006-01-02")
		}
		return fmt.Sprintf("✅ Approved %s — %s plan, active until %s.", who, out.Plan, until)
	case ActionDecline:
		return fmt.Sprintf("❌ Declined %s — user was asked to retry.", who)
	default:
		return fmt.Sprintf("Decision recorded for %s.", who)
	}
}

// targetLabel renders "name (id)". The name is user controlled and has
// to be escaped.
func targetLabel(rec *subscription.Record) string {
	name := rec.DisplayName()
	if escaped, err := format.EscapeMarkdown(name, format.MarkdownV1, ""); err == nil {
		name = escaped
	}
	return fmt.Sprintf("%s (%d)", name, rec.UserID)
}

const accessDeniedText = "⛔ This action is for the administrator only."

const recordNotFoundText = "⚠️ No subscriber record found for this request."

const decisionFailedText = "⚠️ Could not apply the decision, please try again."
