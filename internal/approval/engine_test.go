package approval

import (
	"context"
	"errors"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/subbot/internal/subscription"
)

type fakeStore struct {
	records    map[int64]*subscription.Record
	failStatus bool
	failDates  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[int64]*subscription.Record)}
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
	if f.failStatus {
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
	if f.failDates {
		return false, errors.New("dates write failed")
	}
	rec, ok := f.records[userID]
	if !ok {
		return false, nil
	}
	rec.StartDate = &start
	rec.EndDate = end
	rec.Plan = &plan
	return true, nil
}

func (f *fakeStore) ListExpired(_ context.Context, _ time.Time) ([]subscription.Record, error) {
	return nil, nil
}

func (f *fakeStore) Delete(_ context.Context, userID int64) (bool, error) {
	if _, ok := f.records[userID]; !ok {
		return false, nil
	}
	delete(f.records, userID)
	return true, nil
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeMessenger struct {
	sent    []sentMessage
	sendErr error
}

func (f *fakeMessenger) SendMessage(_ context.Context, chatID int64, text string, _ *tele.ReplyMarkup) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func newTestEngine() (*Engine, *fakeStore, *fakeMessenger) {
	store := newFakeStore()
	msg := &fakeMessenger{}
	e := NewEngine(store, msg, Config{
		AdminID:           99,
		ChannelInviteLink: "https://t.me/+invite",
		MonthlyDays:       30,
	})
	e.now = func() time.Time { return time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC) }
	return e, store, msg
}

func seedPendingMonthly(store *fakeStore, userID int64) {
	plan := subscription.PlanMonthly
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)
	name := "alice"
	store.records[userID] = &subscription.Record{
		UserID:    userID,
		Username:  &name,
		Status:    subscription.StatusPending,
		Plan:      &plan,
		StartDate: &start,
		EndDate:   &end,
	}
}

func TestApproveActivatesAndNotifies(t *testing.T) {
	e, store, msg := newTestEngine()
	seedPendingMonthly(store, 42)

	out, err := e.Approve(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, out.Already)
	assert.True(t, out.UserNotified)
	assert.Equal(t, subscription.PlanMonthly, out.Plan)

	rec := store.records[42]
	assert.Equal(t, subscription.StatusActive, rec.Status)

	// window keeps ticking from the submission date
	wantStart := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	require.NotNil(t, rec.StartDate)
	assert.Equal(t, wantStart, *rec.StartDate)
	require.NotNil(t, rec.EndDate)
	assert.Equal(t, wantStart.AddDate(0, 0, 30), *rec.EndDate)

	require.Len(t, msg.sent, 1)
	assert.Equal(t, int64(42), msg.sent[0].chatID)
	assert.Contains(t, msg.sent[0].text, "https://t.me/+invite")
}

func TestApproveLifetimeClearsEndDate(t *testing.T) {
	e, store, _ := newTestEngine()
	plan := subscription.PlanLifetime
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	store.records[7] = &subscription.Record{
		UserID:    7,
		Status:    subscription.StatusPending,
		Plan:      &plan,
		StartDate: &start,
	}

	out, err := e.Approve(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, subscription.PlanLifetime, out.Plan)

	rec := store.records[7]
	assert.Equal(t, subscription.StatusActive, rec.Status)
	assert.Nil(t, rec.EndDate)
	require.NoError(t, rec.Validate())
}

func TestApproveMissingStartDateFallsBackToToday(t *testing.T) {
	e, store, _ := newTestEngine()
	plan := subscription.PlanMonthly
	store.records[5] = &subscription.Record{
		UserID: 5,
		Status: subscription.StatusPending,
		Plan:   &plan,
	}

	_, err := e.Approve(context.Background(), 5)
	require.NoError(t, err)

	rec := store.records[5]
	wantStart := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	require.NotNil(t, rec.StartDate)
	assert.Equal(t, wantStart, *rec.StartDate)
	require.NotNil(t, rec.EndDate)
	assert.Equal(t, wantStart.AddDate(0, 0, 30), *rec.EndDate)
}

func TestDeclineExpiresAndNotifies(t *testing.T) {
	e, store, msg := newTestEngine()
	seedPendingMonthly(store, 42)

	out, err := e.Decline(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, out.Already)
	assert.True(t, out.UserNotified)
	assert.Equal(t, subscription.StatusExpired, store.records[42].Status)

	require.Len(t, msg.sent, 1)
	assert.Equal(t, int64(42), msg.sent[0].chatID)
	assert.Contains(t, msg.sent[0].text, "not verified")
}

func TestDecideUnknownUserReturnsNotFound(t *testing.T) {
	e, _, msg := newTestEngine()

	_, err := e.Approve(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.Decline(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Empty(t, msg.sent)
}

func TestRepeatedDecisionsAreIdempotent(t *testing.T) {
	e, store, msg := newTestEngine()
	seedPendingMonthly(store, 42)

	_, err := e.Approve(context.Background(), 42)
	require.NoError(t, err)

	// second tap on the same button
	out, err := e.Approve(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, out.Already)
	assert.Equal(t, subscription.StatusActive, store.records[42].Status)
	assert.Len(t, msg.sent, 1, "user must not be notified twice")

	_, err = e.Decline(context.Background(), 42)
	require.NoError(t, err)
	out, err = e.Decline(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, out.Already)
	assert.Equal(t, subscription.StatusExpired, store.records[42].Status)
}

func TestPersistenceFailureAbortsBeforeNotify(t *testing.T) {
	e, store, msg := newTestEngine()
	seedPendingMonthly(store, 42)

	store.failStatus = true
	_, err := e.Approve(context.Background(), 42)
	require.Error(t, err)
	assert.Empty(t, msg.sent)

	_, err = e.Decline(context.Background(), 42)
	require.Error(t, err)
	assert.Empty(t, msg.sent)

	store.failStatus = false
	store.failDates = true
	_, err = e.Approve(context.Background(), 42)
	require.Error(t, err)
	assert.Empty(t, msg.sent)
	assert.Equal(t, subscription.StatusPending, store.records[42].Status)
}

func TestUserNotifyFailureDoesNotFailDecision(t *testing.T) {
	e, store, msg := newTestEngine()
	seedPendingMonthly(store, 42)

	msg.sendErr = errors.New("bot was blocked by the user")
	out, err := e.Approve(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, out.UserNotified)
	assert.Equal(t, subscription.StatusActive, store.records[42].Status)
}

func TestAuthorized(t *testing.T) {
	e, _, _ := newTestEngine()
	assert.True(t, e.Authorized(99))
	assert.False(t, e.Authorized(42))
	assert.False(t, e.Authorized(0))
}

func TestDecideDispatchesForAdmin(t *testing.T) {
	e, store, _ := newTestEngine()
	seedPendingMonthly(store, 42)

	out, err := e.Decide(context.Background(), 99, Decision{Action: ActionApprove, UserID: 42})
	require.NoError(t, err)
	assert.False(t, out.Already)
	assert.Equal(t, subscription.StatusActive, store.records[42].Status)

	_, err = e.Decide(context.Background(), 99, Decision{Action: "ban", UserID: 42})
	assert.Error(t, err)
}

func TestUnauthorizedDecisionLeavesRecordUntouched(t *testing.T) {
	e, store, msg := newTestEngine()
	seedPendingMonthly(store, 42)
	before := *store.records[42]

	for _, senderID := range []int64{0, 42, 123} {
		_, err := e.Decide(context.Background(), senderID, Decision{Action: ActionApprove, UserID: 42})
		assert.ErrorIs(t, err, ErrUnauthorized)
		_, err = e.Decide(context.Background(), senderID, Decision{Action: ActionDecline, UserID: 42})
		assert.ErrorIs(t, err, ErrUnauthorized)
	}

	after := store.records[42]
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.StartDate, after.StartDate)
	assert.Equal(t, before.EndDate, after.EndDate)
	assert.Empty(t, msg.sent, "nobody gets notified about a rejected decision")
}

func TestDecisionResultTextNamesUserID(t *testing.T) {
	e, store, _ := newTestEngine()
	seedPendingMonthly(store, 42)

	out, err := e.Approve(context.Background(), 42)
	require.NoError(t, err)
	text := DecisionResultText(out, ActionApprove)
	assert.Contains(t, text, "alice")
	assert.Contains(t, text, "(42)")
	assert.Contains(t, text, "2025-07-10")

	// no stored username still pins the outcome to the user
	store.records[7] = &subscription.Record{UserID: 7, Status: subscription.StatusPending}
	out, err = e.Decline(context.Background(), 7)
	require.NoError(t, err)
	text = DecisionResultText(out, ActionDecline)
	assert.Contains(t, text, "(7)")
}
