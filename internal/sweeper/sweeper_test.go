package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/subbot/internal/config"
	"github.com/m3rciful/subbot/internal/notify"
	"github.com/m3rciful/subbot/internal/subscription"
)

type fakeStore struct {
	records    map[int64]*subscription.Record
	listErr    error
	failStatus map[int64]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:    make(map[int64]*subscription.Record),
		failStatus: make(map[int64]bool),
	}
}

func (f *fakeStore) Create(_ context.Context, userID int64, username string) (bool, error) {
	if _, ok := f.records[userID]; ok {
		return false, nil
	}
	rec := &subscription.Record{UserID: userID, Status: subscription.StatusPending}
	if username != "" {
		rec.Username = &username
	}
	f.records[userID] = rec
	return true, nil
}

func (f *fakeStore) Get(_ context.Context, userID int64) (*subscription.Record, error) {
	rec, ok := f.records[userID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, userID int64, status subscription.Status) (bool, error) {
	if f.failStatus[userID] {
		return false, errors.New("status write failed")
	}
	rec, ok := f.records[userID]
	if !ok {
		return false, nil
	}
	rec.Status = status
	return true, nil
}

func (f *fakeStore) UpdateDates(_ context.Context, userID int64, start time.Time, end *time.Time, plan subscription.Plan) (bool, error) {
	rec, ok := f.records[userID]
	if !ok {
		return false, nil
	}
	rec.StartDate = &start
	rec.EndDate = end
	rec.Plan = &plan
	return true, nil
}

func (f *fakeStore) ListExpired(_ context.Context, today time.Time) ([]subscription.Record, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []subscription.Record
	for _, rec := range f.records {
		if rec.Status == subscription.StatusActive && rec.EndDate != nil && rec.EndDate.Before(today) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, userID int64) (bool, error) {
	if _, ok := f.records[userID]; !ok {
		return false, nil
	}
	delete(f.records, userID)
	return true, nil
}

type fakeNotifier struct {
	sent    []int64
	sendErr map[int64]error
}

func (f *fakeNotifier) SendWithRetry(_ context.Context, chatID int64, _ string, _ notify.RetryPolicy) error {
	if err := f.sendErr[chatID]; err != nil {
		return err
	}
	f.sent = append(f.sent, chatID)
	return nil
}

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestSweeper() (*Sweeper, *fakeStore, *fakeNotifier) {
	store := newFakeStore()
	notifier := &fakeNotifier{sendErr: make(map[int64]error)}
	s := New(store, notifier, Config{At: config.TimeOfDay{Hour: 12}})
	s.now = func() time.Time { return testNow }
	return s, store, notifier
}

func seedActive(store *fakeStore, userID int64, end time.Time) {
	plan := subscription.PlanMonthly
	start := end.AddDate(0, 0, -30)
	store.records[userID] = &subscription.Record{
		UserID:    userID,
		Status:    subscription.StatusActive,
		Plan:      &plan,
		StartDate: &start,
		EndDate:   &end,
	}
}

func TestNextRun(t *testing.T) {
	at := config.TimeOfDay{Hour: 12, Minute: 0}

	t.Run("before today's run", func(t *testing.T) {
		now := time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC), NextRun(now, at))
	})

	t.Run("after today's run", func(t *testing.T) {
		now := time.Date(2025, 6, 15, 13, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC), NextRun(now, at))
	})

	t.Run("exactly at run time rolls over", func(t *testing.T) {
		now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC), NextRun(now, at))
	})

	t.Run("keeps location", func(t *testing.T) {
		loc := time.FixedZone("UTC+3", 3*3600)
		now := time.Date(2025, 6, 15, 9, 0, 0, 0, loc)
		next := NextRun(now, config.TimeOfDay{Hour: 23, Minute: 59})
		assert.Equal(t, loc, next.Location())
		assert.Equal(t, 23, next.Hour())
		assert.Equal(t, 59, next.Minute())
	})
}

func TestSweepExpiresAndNotifies(t *testing.T) {
	s, store, notifier := newTestSweeper()
	yesterday := testNow.AddDate(0, 0, -1)
	seedActive(store, 7, subscription.Midnight(yesterday))

	require.NoError(t, s.SweepOnce(context.Background()))

	assert.Equal(t, []int64{7}, notifier.sent)
	assert.Equal(t, subscription.StatusExpired, store.records[7].Status)
}

func TestSweepSkipsUnexpiredRecords(t *testing.T) {
	s, store, notifier := newTestSweeper()
	seedActive(store, 1, subscription.Midnight(testNow))              // expires end of today
	seedActive(store, 2, subscription.Midnight(testNow.AddDate(0, 0, 5)))

	// lifetime records have no end date at all
	plan := subscription.PlanLifetime
	start := testNow.AddDate(0, 0, -400)
	store.records[3] = &subscription.Record{
		UserID: 3, Status: subscription.StatusActive, Plan: &plan, StartDate: &start,
	}

	require.NoError(t, s.SweepOnce(context.Background()))

	assert.Empty(t, notifier.sent)
	assert.Equal(t, subscription.StatusActive, store.records[1].Status)
	assert.Equal(t, subscription.StatusActive, store.records[2].Status)
	assert.Equal(t, subscription.StatusActive, store.records[3].Status)
}

func TestSweepExpiresEvenWhenUserUnreachable(t *testing.T) {
	s, store, notifier := newTestSweeper()
	yesterday := subscription.Midnight(testNow.AddDate(0, 0, -1))
	seedActive(store, 8, yesterday)
	notifier.sendErr[8] = errors.New("telegram: bot was blocked by the user (403)")

	require.NoError(t, s.SweepOnce(context.Background()))

	assert.Empty(t, notifier.sent)
	assert.Equal(t, subscription.StatusExpired, store.records[8].Status)
}

func TestSweepIsolatesRecordFailures(t *testing.T) {
	s, store, notifier := newTestSweeper()
	yesterday := subscription.Midnight(testNow.AddDate(0, 0, -1))
	seedActive(store, 1, yesterday)
	seedActive(store, 2, yesterday)
	notifier.sendErr[1] = errors.New("network down")
	store.failStatus[1] = true

	require.NoError(t, s.SweepOnce(context.Background()))

	// the broken record neither blocks nor hides the healthy one
	assert.Contains(t, notifier.sent, int64(2))
	assert.Equal(t, subscription.StatusExpired, store.records[2].Status)
	assert.Equal(t, subscription.StatusActive, store.records[1].Status)
}

func TestSweepTwiceNoDoubleWork(t *testing.T) {
	s, store, notifier := newTestSweeper()
	yesterday := subscription.Midnight(testNow.AddDate(0, 0, -1))
	seedActive(store, 7, yesterday)

	require.NoError(t, s.SweepOnce(context.Background()))
	require.NoError(t, s.SweepOnce(context.Background()))

	assert.Equal(t, []int64{7}, notifier.sent, "second run must not re-notify")
	assert.Equal(t, subscription.StatusExpired, store.records[7].Status)
}

func TestSweepListFailure(t *testing.T) {
	s, store, _ := newTestSweeper()
	store.listErr = errors.New("db gone")
	assert.Error(t, s.SweepOnce(context.Background()))
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _, _ := newTestSweeper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not observe cancellation")
	}
}
