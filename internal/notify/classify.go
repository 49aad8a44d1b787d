package notify

import (
	"errors"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

// FailureKind partitions transport errors into the retry classes the
// engines care about.
type FailureKind int

const (
	// FailureNone means the call succeeded.
	FailureNone FailureKind = iota
	// FailureRateLimited means the transport asked us to wait; retrying
	// after the given delay does not consume a retry attempt.
	FailureRateLimited
	// FailurePermanent means the target is unreachable (blocked the bot,
	// deleted the chat, deactivated the account). Never retried.
	FailurePermanent
	// FailureTransient covers everything else; retried with linear backoff.
	FailureTransient
)

// String returns the log-friendly name of the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureRateLimited:
		return "rate_limited"
	case FailurePermanent:
		return "permanent"
	default:
		return "transient"
	}
}

// permanentMarkers are Telegram API descriptions that mean the recipient
// can never be reached again from this bot.
var permanentMarkers = []string{
	"bot was blocked",
	"user is deactivated",
	"chat not found",
	"user not found",
	"bot can't initiate conversation",
}

// Classify maps a transport error to its failure kind. For rate-limited
// failures it also returns the transport-specified wait.
func Classify(err error) (FailureKind, time.Duration) {
	if err == nil {
		return FailureNone, 0
	}

	var flood tele.FloodError
	if errors.As(err, &flood) {
		wait := time.Duration(flood.RetryAfter) * time.Second
		if wait <= 0 {
			wait = time.Second
		}
		return FailureRateLimited, wait
	}

	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		desc := strings.ToLower(apiErr.Description)
		for _, marker := range permanentMarkers {
			if strings.Contains(desc, marker) {
				return FailurePermanent, 0
			}
		}
		if apiErr.Code == 403 {
			return FailurePermanent, 0
		}
	}

	return FailureTransient, 0
}
