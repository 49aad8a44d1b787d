package notify

import (
	"errors"
	"fmt"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/stretchr/testify/assert"
)

func TestClassifyNil(t *testing.T) {
	kind, wait := Classify(nil)
	assert.Equal(t, FailureNone, kind)
	assert.Zero(t, wait)
}

func TestClassifyFlood(t *testing.T) {
	flood := tele.FloodError{
		Error:      &tele.Error{Code: 429, Description: "Too Many Requests: retry after 2"},
		RetryAfter: 2,
	}
	kind, wait := Classify(flood)
	assert.Equal(t, FailureRateLimited, kind)
	assert.Equal(t, 2*time.Second, wait)

	// wrapped errors classify the same
	kind, wait = Classify(fmt.Errorf("send: %w", flood))
	assert.Equal(t, FailureRateLimited, kind)
	assert.Equal(t, 2*time.Second, wait)
}

func TestClassifyFloodWithoutRetryAfter(t *testing.T) {
	flood := tele.FloodError{
		Error: &tele.Error{Code: 429, Description: "Too Many Requests"},
	}
	kind, wait := Classify(flood)
	assert.Equal(t, FailureRateLimited, kind)
	assert.Equal(t, time.Second, wait, "zero transport wait falls back to one second")
}

func TestClassifyPermanent(t *testing.T) {
	cases := []*tele.Error{
		{Code: 403, Description: "Forbidden: bot was blocked by the user"},
		{Code: 403, Description: "Forbidden: user is deactivated"},
		{Code: 400, Description: "Bad Request: chat not found"},
		{Code: 403, Description: "Forbidden"},
	}
	for _, apiErr := range cases {
		kind, _ := Classify(apiErr)
		assert.Equal(t, FailurePermanent, kind, "description %q", apiErr.Description)
	}
}

func TestClassifyTransient(t *testing.T) {
	cases := []error{
		errors.New("dial tcp: i/o timeout"),
		&tele.Error{Code: 400, Description: "Bad Request: message is too long"},
		&tele.Error{Code: 500, Description: "Internal Server Error"},
	}
	for _, err := range cases {
		kind, _ := Classify(err)
		assert.Equal(t, FailureTransient, kind, "error %q", err)
	}
}

func TestFailureKindString(t *testing.T) {
	assert.Equal(t, "none", FailureNone.String())
	assert.Equal(t, "rate_limited", FailureRateLimited.String())
	assert.Equal(t, "permanent", FailurePermanent.String())
	assert.Equal(t, "transient", FailureTransient.String())
}
