package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlan(t *testing.T) {
	plan, ok := ParsePlan("monthly")
	require.True(t, ok)
	assert.Equal(t, PlanMonthly, plan)

	plan, ok = ParsePlan("  Lifetime ")
	require.True(t, ok)
	assert.Equal(t, PlanLifetime, plan)

	_, ok = ParsePlan("weekly")
	assert.False(t, ok)

	_, ok = ParsePlan("")
	assert.False(t, ok)
}

func TestRecordDisplayName(t *testing.T) {
	name := "alice"
	assert.Equal(t, "alice", (&Record{Username: &name}).DisplayName())
	assert.Equal(t, "Unknown", (&Record{}).DisplayName())
	assert.Equal(t, "Unknown", (*Record)(nil).DisplayName())
}

func TestRecordPlanOrDefault(t *testing.T) {
	lifetime := PlanLifetime
	assert.Equal(t, PlanLifetime, (&Record{Plan: &lifetime}).PlanOrDefault())
	assert.Equal(t, PlanMonthly, (&Record{}).PlanOrDefault())

	bogus := Plan("weekly")
	assert.Equal(t, PlanMonthly, (&Record{Plan: &bogus}).PlanOrDefault())
}

func TestRecordValidate(t *testing.T) {
	start := Midnight(time.Now())
	end := start.AddDate(0, 0, 30)
	monthly := PlanMonthly
	lifetime := PlanLifetime

	valid := &Record{
		UserID:    42,
		Status:    StatusActive,
		Plan:      &monthly,
		StartDate: &start,
		EndDate:   &end,
	}
	assert.NoError(t, valid.Validate())

	t.Run("lifetime with end date", func(t *testing.T) {
		rec := &Record{UserID: 42, Status: StatusActive, Plan: &lifetime, StartDate: &start, EndDate: &end}
		assert.Error(t, rec.Validate())
	})

	t.Run("lifetime without end date", func(t *testing.T) {
		rec := &Record{UserID: 42, Status: StatusActive, Plan: &lifetime, StartDate: &start}
		assert.NoError(t, rec.Validate())
	})

	t.Run("end before start", func(t *testing.T) {
		before := start.AddDate(0, 0, -1)
		rec := &Record{UserID: 42, Status: StatusPending, Plan: &monthly, StartDate: &start, EndDate: &before}
		assert.Error(t, rec.Validate())
	})

	t.Run("active needs start date", func(t *testing.T) {
		rec := &Record{UserID: 42, Status: StatusActive}
		assert.Error(t, rec.Validate())
	})

	t.Run("unknown status", func(t *testing.T) {
		rec := &Record{UserID: 42, Status: Status("banned")}
		assert.Error(t, rec.Validate())
	})
}

func TestMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	in := time.Date(2025, 6, 15, 18, 42, 7, 123, loc)
	out := Midnight(in)

	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, loc), out)
	assert.Equal(t, loc, out.Location())
}
