package subscription

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle status of a subscriber record.
type Status string

const (
	// StatusPending marks a subscriber awaiting payment verification.
	StatusPending Status = "pending"
	// StatusActive marks a subscriber with verified, unexpired access.
	StatusActive Status = "active"
	// StatusExpired marks a subscriber whose access lapsed or was declined.
	StatusExpired Status = "expired"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusExpired:
		return true
	}
	return false
}

// Plan identifies a subscription tariff.
type Plan string

const (
	// PlanMonthly is the recurring tariff bounded by MonthlyDays.
	PlanMonthly Plan = "monthly"
	// PlanLifetime is the unbounded one-time tariff.
	PlanLifetime Plan = "lifetime"
)

// Valid reports whether the plan is one of the known values.
func (p Plan) Valid() bool {
	return p == PlanMonthly || p == PlanLifetime
}

// ParsePlan parses a plan name, case-insensitively.
func ParsePlan(s string) (Plan, bool) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	return p, p.Valid()
}

// Record is one subscriber row keyed by Telegram user ID.
// Nullable columns are pointers; absence of a plan or dates means the
// subscription has not been finalized yet.
type Record struct {
	UserID    int64      `db:"user_id"`
	Username  *string    `db:"username"`
	StartDate *time.Time `db:"start_date"`
	EndDate   *time.Time `db:"end_date"`
	Status    Status     `db:"status"`
	Plan      *Plan      `db:"subscription_type"`
}

// DisplayName returns the stored username or a placeholder.
func (r *Record) DisplayName() string {
	if r == nil || r.Username == nil || *r.Username == "" {
		return "Unknown"
	}
	return *r.Username
}

// PlanOrDefault returns the stored plan, defaulting to monthly when unset.
func (r *Record) PlanOrDefault() Plan {
	if r == nil || r.Plan == nil || !r.Plan.Valid() {
		return PlanMonthly
	}
	return *r.Plan
}

// Validate checks the record invariants:
// end date only with a start date and never for lifetime plans,
// end date strictly after start date, active implies a start date.
func (r *Record) Validate() error {
	if r == nil {
		return fmt.Errorf("subscription: nil record")
	}
	if !r.Status.Valid() {
		return fmt.Errorf("subscription: invalid status %q", r.Status)
	}
	if r.Plan != nil && !r.Plan.Valid() {
		return fmt.Errorf("subscription: invalid plan %q", *r.Plan)
	}
	if r.EndDate != nil {
		if r.Plan != nil && *r.Plan == PlanLifetime {
			return fmt.Errorf("subscription: lifetime plan must not carry an end date")
		}
		if r.StartDate == nil {
			return fmt.Errorf("subscription: end date without start date")
		}
		if !r.EndDate.After(*r.StartDate) {
			return fmt.Errorf("subscription: end date must be after start date")
		}
	}
	if r.Status == StatusActive && r.StartDate == nil {
		return fmt.Errorf("subscription: active record without start date")
	}
	return nil
}

// Midnight truncates t to the start of its day in the local timezone.
// Subscription dates are day-granular.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
