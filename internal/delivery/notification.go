// Package delivery turns validated notifications into Slack messages:
// the primary send with optional threading, permalink resolution, and
// best-effort cross-posting to additional channels.
package delivery

import (
	"encoding/json"
	"errors"
)

// Validation errors.
var (
	ErrThreadConflict = errors.New("thread_ts and create_thread are mutually exclusive")
	ErrMissingChannel = errors.New("notification channel is required")
	ErrEmptyPayload   = errors.New("notification has no blocks")
)

// Notification is one logical message to deliver. Channel may hold a
// mention ("#ops", "@alice") before resolution or a platform ID after.
type Notification struct {
	Channel      string
	Text         string // fallback text
	Blocks       []json.RawMessage
	ThreadTS     string // raw timestamp or permalink
	CreateThread bool
	Crosspost    *CrosspostSpec
	DryRun       bool
	Debug        bool

	// DisableUnfurl suppresses link previews; set on crossposted copies
	// so the backlink does not unfurl.
	DisableUnfurl bool
}

// Validate checks the notification shape. These are precondition errors,
// distinct from delivery errors: they are raised before any network call
// and are never retried.
func (n *Notification) Validate() error {
	if n.Channel == "" {
		return ErrMissingChannel
	}
	if len(n.Blocks) == 0 {
		return ErrEmptyPayload
	}
	if n.ThreadTS != "" && n.CreateThread {
		return ErrThreadConflict
	}
	return nil
}

// CrosspostSpec describes replication of the message to further
// channels after the primary send succeeds. It is consumed once during
// fan-out and discarded.
type CrosspostSpec struct {
	Channels []string
	Blocks   []json.RawMessage
	Text     string
	NoLink   bool
}

// DeliveryResult describes one successful send. Immutable once produced,
// except for the permalink which is resolved in a follow-up call.
type DeliveryResult struct {
	Sent      bool
	Timestamp string
	ChannelID string
	Permalink string
}
