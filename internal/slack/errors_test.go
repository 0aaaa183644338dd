package slack

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		env       Envelope
		category  ErrorCategory
		contains  string
		retryable bool
	}{
		{
			name:      "rate limited",
			env:       Envelope{Error: "rate_limited"},
			category:  CategoryRateLimited,
			contains:  "retry",
			retryable: true,
		},
		{
			name:      "rate limited alternate spelling",
			env:       Envelope{Error: "ratelimited"},
			category:  CategoryRateLimited,
			contains:  "retry",
			retryable: true,
		},
		{
			name:     "invalid auth",
			env:      Envelope{Error: "invalid_auth"},
			category: CategoryAuthFailed,
			contains: "SLACK_BOT_USER_OAUTH_TOKEN",
		},
		{
			name:     "token revoked",
			env:      Envelope{Error: "token_revoked"},
			category: CategoryAuthFailed,
			contains: "SLACK_BOT_USER_OAUTH_TOKEN",
		},
		{
			name:     "channel not found",
			env:      Envelope{Error: "channel_not_found"},
			category: CategoryChannelNotFound,
			contains: "channel",
		},
		{
			name:     "not in channel",
			env:      Envelope{Error: "not_in_channel"},
			category: CategoryNotInChannel,
			contains: "invite the bot",
		},
		{
			name:     "missing scope embeds needed",
			env:      Envelope{Error: "missing_scope", Needed: "channels:read"},
			category: CategoryMissingScope,
			contains: "channels:read",
		},
		{
			name:     "unknown code echoed verbatim",
			env:      Envelope{Error: "snooze_end_failed"},
			category: CategoryUnknown,
			contains: "snooze_end_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := Classify(tt.env, "")

			assert.Equal(t, tt.category, apiErr.Category)
			assert.Equal(t, tt.env.Error, apiErr.Code)
			assert.Contains(t, apiErr.Error(), tt.contains)
			assert.Equal(t, tt.retryable, apiErr.IsRetryable())
		})
	}
}

func TestClassify_ContextLabel(t *testing.T) {
	withLabel := Classify(Envelope{Error: "channel_not_found"}, "send_notification")
	assert.Contains(t, withLabel.Error(), "send_notification")

	withoutLabel := Classify(Envelope{Error: "channel_not_found"}, "")
	assert.NotContains(t, withoutLabel.Error(), "()")
}

func TestCategoryOf(t *testing.T) {
	apiErr := Classify(Envelope{Error: "not_in_channel"}, "")
	wrapped := fmt.Errorf("send failed: %w", apiErr)

	assert.Equal(t, CategoryNotInChannel, CategoryOf(wrapped))
	assert.Equal(t, CategoryUnknown, CategoryOf(errors.New("plain error")))
}

func TestPreconditionError(t *testing.T) {
	err := &PreconditionError{Message: "token is required"}

	assert.Equal(t, "token is required", err.Error())
	assert.False(t, err.IsRetryable())
	require.True(t, IsPrecondition(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsPrecondition(errors.New("other")))
}
