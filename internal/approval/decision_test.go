package approval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePayload(t *testing.T) {
	assert.Equal(t, "approve:42", EncodePayload(ActionApprove, 42))
	assert.Equal(t, "decline:123456789", EncodePayload(ActionDecline, 123456789))
}

func TestParsePayload(t *testing.T) {
	d, ok := ParsePayload("approve:42")
	require.True(t, ok)
	assert.Equal(t, Decision{Action: ActionApprove, UserID: 42}, d)

	d, ok = ParsePayload("decline:7")
	require.True(t, ok)
	assert.Equal(t, Decision{Action: ActionDecline, UserID: 7}, d)

	for _, bad := range []string{"", "approve", "approve:", "approve:abc", "approve:-5", "ban:42"} {
		_, ok := ParsePayload(bad)
		assert.False(t, ok, "payload %q must not parse", bad)
	}
}

func TestParseDataEncodings(t *testing.T) {
	want := Decision{Action: ActionApprove, UserID: 42}

	cases := map[string]string{
		"telebot":   "\fadmin|approve:42",
		"flat":      "admin:approve:42",
		"legacy":    "approve_42",
		"no prefix": "admin|approve:42",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			d, ok := ParseData(raw)
			require.True(t, ok)
			assert.Equal(t, want, d)
		})
	}

	d, ok := ParseData("decline_7")
	require.True(t, ok)
	assert.Equal(t, Decision{Action: ActionDecline, UserID: 7}, d)
}

func TestParseDataRejectsForeignPayloads(t *testing.T) {
	for _, raw := range []string{
		"",
		"\ftariff|monthly",
		"payment|confirm",
		"other:approve:42",
		"approve_",
		"approve_zero",
		"decline_-1",
	} {
		_, ok := ParseData(raw)
		assert.False(t, ok, "data %q must not parse", raw)
	}
}

func TestDecisionKeyboard(t *testing.T) {
	markup := DecisionKeyboard(42)
	require.NotNil(t, markup)
	require.Len(t, markup.InlineKeyboard, 2)
	require.Len(t, markup.InlineKeyboard[0], 1)
	require.Len(t, markup.InlineKeyboard[1], 1)

	approve := markup.InlineKeyboard[0][0]
	decline := markup.InlineKeyboard[1][0]
	assert.Equal(t, CallbackUnique, approve.Unique)
	assert.Equal(t, "approve:42", approve.Data)
	assert.Equal(t, CallbackUnique, decline.Unique)
	assert.Equal(t, "decline:42", decline.Data)
}
