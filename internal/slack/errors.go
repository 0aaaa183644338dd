package slack

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies a Slack API error code into an actionable
// outcome. Only RateLimited is worth retrying; everything else requires
// operator intervention.
type ErrorCategory string

// API error categories.
const (
	CategoryRateLimited     ErrorCategory = "rate_limited"
	CategoryAuthFailed      ErrorCategory = "auth_failed"
	CategoryChannelNotFound ErrorCategory = "channel_not_found"
	CategoryNotInChannel    ErrorCategory = "not_in_channel"
	CategoryMissingScope    ErrorCategory = "missing_scope"
	CategoryUnknown         ErrorCategory = "unknown"
)

// APIError is a classified `ok:false` response from the Slack Web API.
type APIError struct {
	Category ErrorCategory
	Code     string // raw error code from the envelope
	Needed   string // OAuth scope from the `needed` field, if any
	Context  string // caller-supplied operation label
	Message  string
}

func (e *APIError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Context)
	}
	return e.Message
}

// IsRetryable returns true only for rate limit errors; all other API
// errors are permanent until an operator fixes the cause.
func (e *APIError) IsRetryable() bool {
	return e.Category == CategoryRateLimited
}

// Classify maps a non-ok API envelope to an APIError with a human
// message. opContext is an optional caller label such as
// "send_notification" appended to the message.
func Classify(env Envelope, opContext string) *APIError {
	apiErr := &APIError{Code: env.Error, Needed: env.Needed, Context: opContext}

	switch env.Error {
	case "rate_limited", "ratelimited":
		apiErr.Category = CategoryRateLimited
		apiErr.Message = "Slack rate limit exceeded; the surrounding retry loop will back off and retry"
	case "invalid_auth", "token_revoked", "token_expired", "account_inactive", "not_authed":
		apiErr.Category = CategoryAuthFailed
		apiErr.Message = fmt.Sprintf("authentication failed (%s): check SLACK_BOT_USER_OAUTH_TOKEN", env.Error)
	case "channel_not_found":
		apiErr.Category = CategoryChannelNotFound
		apiErr.Message = "channel not found: verify the channel exists and is visible to the bot"
	case "not_in_channel":
		apiErr.Category = CategoryNotInChannel
		apiErr.Message = "the bot is not a member of the channel: invite the bot and try again"
	case "missing_scope":
		apiErr.Category = CategoryMissingScope
		apiErr.Message = fmt.Sprintf("the token is missing the %q OAuth scope", env.Needed)
	default:
		apiErr.Category = CategoryUnknown
		apiErr.Message = fmt.Sprintf("Slack API error: %s", env.Error)
	}

	return apiErr
}

// CategoryOf extracts the error category from err, or CategoryUnknown if
// err is not a classified API error.
func CategoryOf(err error) ErrorCategory {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Category
	}
	return CategoryUnknown
}
