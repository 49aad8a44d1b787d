package payment

import (
	"time"

	"github.com/m3rciful/subbot/core/telegram/state"
	"github.com/m3rciful/subbot/internal/subscription"
)

// Conversation states of the purchase flow. A user advances strictly
// forward; cancel resets to idle from any point before receipt submission.
const (
	StateAwaitingPlan          state.State = "awaiting_plan"
	StateAwaitingPaymentAck    state.State = "awaiting_payment_ack"
	StateAwaitingReceipt       state.State = "awaiting_receipt"
	StateAwaitingAdminDecision state.State = "awaiting_admin_decision"
)

// Pending is the typed session payload carried while a purchase is in
// progress: the chosen plan, its price at selection time, and when the
// user picked it.
type Pending struct {
	Plan       subscription.Plan
	Price      int
	SelectedAt time.Time
}

// Sessions is the conversation-state manager used by the flow.
type Sessions = state.Manager[Pending]
