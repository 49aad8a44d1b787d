package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSender fails with the queued errors in order, then succeeds.
type scriptedSender struct {
	errs  []error
	calls int
}

func (s *scriptedSender) Send(_ tele.Recipient, _ interface{}, _ ...interface{}) (*tele.Message, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return &tele.Message{}, nil
}

func boundNotifier(s Sender) *Notifier {
	n := New()
	n.Bind(s)
	return n
}

func TestUnboundNotifier(t *testing.T) {
	n := New()
	ctx := context.Background()

	assert.ErrorIs(t, n.SendMessage(ctx, 1, "hi", nil), ErrNotBound)
	assert.ErrorIs(t, n.SendPhoto(ctx, 1, "f", "c", nil), ErrNotBound)
	assert.ErrorIs(t, n.SendDocument(ctx, 1, "f", "c", nil), ErrNotBound)
	assert.ErrorIs(t, n.SendWithRetry(ctx, 1, "hi", RetryPolicy{Attempts: 3}), ErrNotBound)
}

func TestSendMessage(t *testing.T) {
	sender := &scriptedSender{}
	n := boundNotifier(sender)

	require.NoError(t, n.SendMessage(context.Background(), 42, "hi", nil))
	assert.Equal(t, 1, sender.calls)
}

func TestSendWithRetryFirstAttemptSucceeds(t *testing.T) {
	sender := &scriptedSender{}
	n := boundNotifier(sender)

	err := n.SendWithRetry(context.Background(), 42, "hi", RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, 1, sender.calls)
}

func TestSendWithRetryTransientBackoff(t *testing.T) {
	sender := &scriptedSender{errs: []error{
		errors.New("timeout"),
		errors.New("timeout"),
	}}
	n := boundNotifier(sender)

	err := n.SendWithRetry(context.Background(), 42, "hi", RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, 3, sender.calls)
}

func TestSendWithRetryExhaustsBudget(t *testing.T) {
	transient := errors.New("timeout")
	sender := &scriptedSender{errs: []error{transient, transient, transient}}
	n := boundNotifier(sender)

	err := n.SendWithRetry(context.Background(), 42, "hi", RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond})
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, sender.calls)
}

func TestSendWithRetryPermanentAbortsImmediately(t *testing.T) {
	sender := &scriptedSender{errs: []error{
		&tele.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"},
	}}
	n := boundNotifier(sender)

	err := n.SendWithRetry(context.Background(), 42, "hi", RetryPolicy{Attempts: 5, BaseDelay: time.Millisecond})
	require.Error(t, err)
	assert.Equal(t, 1, sender.calls, "permanent failures must not be retried")
}

func TestSendWithRetryFloodDoesNotConsumeAttempt(t *testing.T) {
	flood := tele.FloodError{
		Error:      &tele.Error{Code: 429, Description: "Too Many Requests: retry after 1"},
		RetryAfter: 1,
	}
	sender := &scriptedSender{errs: []error{flood}}
	n := boundNotifier(sender)

	// budget of one attempt still succeeds after the flood wait
	err := n.SendWithRetry(context.Background(), 42, "hi", RetryPolicy{Attempts: 1, BaseDelay: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, 2, sender.calls)
}

func TestSendWithRetryObservesCancellation(t *testing.T) {
	transient := errors.New("timeout")
	sender := &scriptedSender{errs: []error{transient, transient, transient}}
	n := boundNotifier(sender)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.SendWithRetry(ctx, 42, "hi", RetryPolicy{Attempts: 3, BaseDelay: time.Hour})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRebind(t *testing.T) {
	first := &scriptedSender{}
	second := &scriptedSender{}
	n := boundNotifier(first)
	n.Bind(second)

	require.NoError(t, n.SendMessage(context.Background(), 42, "hi", nil))
	assert.Zero(t, first.calls)
	assert.Equal(t, 1, second.calls)
}
