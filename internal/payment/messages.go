package payment

import (
	"fmt"

	"github.com/m3rciful/subbot/core/telegram/format"
	"github.com/m3rciful/subbot/internal/subscription"
)

func welcomeText(name string) string {
	return fmt.Sprintf(
		"👋 Hi, %s!\n\n"+
			"This bot sells access to the private channel.\n"+
			"Pick an option below to get started.",
		name,
	)
}

const helpText = "ℹ️ *How it works*\n\n" +
	"1. Tap *Buy access* and pick a plan.\n" +
	"2. Pay using the details shown.\n" +
	"3. Send a photo of the receipt.\n" +
	"4. Wait for confirmation — you will get the invite link.\n\n" +
	"Commands:\n" +
	"/start — main menu\n" +
	"/mysubscription — subscription status\n" +
	"/help — this message"

func planMenuText(monthlyPrice, lifetimePrice int) string {
	return fmt.Sprintf(
		"💳 *Choose a plan:*\n\n"+
			"• Monthly — %d₽\n"+
			"• Lifetime — %d₽",
		monthlyPrice, lifetimePrice,
	)
}

func paymentInstructionsText(pending Pending, details string) string {
	return fmt.Sprintf(
		"💰 *%s plan — %d₽*\n\n"+
			"Payment details:\n%s\n\n"+
			"Tap *I paid* once the transfer is done.",
		planTitle(pending.Plan), pending.Price, details,
	)
}

const receiptInstructionsText = "📸 Now send a *photo of the receipt* " +
	"(a screenshot works too).\n\nIt will be reviewed shortly."

const receiptRejectText = "That doesn't look like a receipt. " +
	"Please send a *photo* or an image file of the payment receipt."

const submittedText = "✅ Receipt received!\n\n" +
	"It is now under review. You will get a message once the payment " +
	"is confirmed."

const cancelledText = "Purchase cancelled. Use /start to come back anytime."

const somethingWrongText = "⚠️ Something went wrong, please try again. " +
	"If it keeps failing, contact support."

const staleActionText = "This button is no longer active. Use /start to begin."

func purchaseInFlightText(pending Pending) string {
	return fmt.Sprintf(
		"You already have a *%s* purchase in progress.\n"+
			"Finish it, or /cancel to start over.",
		planTitle(pending.Plan),
	)
}

// ReceiptCaption heads the receipt forwarded to the admin chat.
// The username is user controlled and has to be escaped.
func ReceiptCaption(userID int64, username string, pending Pending) string {
	who := fmt.Sprintf("id %d", userID)
	if username != "" {
		if escaped, err := format.EscapeMarkdown(username, format.MarkdownV1, ""); err == nil {
			username = escaped
		}
		who = fmt.Sprintf("@%s (id %d)", username, userID)
	}
	return fmt.Sprintf(
		"🧾 *New payment to review*\n\n"+
			"User: %s\nPlan: %s\nPrice: %d₽",
		who, pending.Plan, pending.Price,
	)
}

func planTitle(plan subscription.Plan) string {
	if plan == subscription.PlanLifetime {
		return "Lifetime"
	}
	return "Monthly"
}

func subscriptionStatusText(rec *subscription.Record) string {
	if rec == nil || rec.Status == "" {
		return "You don't have a subscription yet. Use /start to buy access."
	}
	switch rec.Status {
	case subscription.StatusActive:
		if rec.EndDate == nil {
			return "✅ Your subscription is *active* — lifetime access."
		}
		return fmt.Sprintf("✅ Your subscription is *active* until %s.",
			rec.EndDate.Format("2006-01-02"))
	case subscription.StatusPending:
		return "⏳ Your payment is awaiting review."
	case subscription.StatusExpired:
		return "❌ Your subscription has *expired*. Use /start to renew."
	default:
		return "Subscription status unknown, contact support."
	}
}
