package delivery

import (
	"context"
	"encoding/json"

	"github.com/bissquit/slack-courier/internal/pkg/ctxlog"
	"github.com/bissquit/slack-courier/internal/slack"
)

// crosspostLinkLabel captions the backlink to the original message.
const crosspostLinkLabel = "View original message"

// Outcome is the per-destination result of a crosspost fan-out.
type Outcome struct {
	Channel   string
	Timestamp string
	Err       error
}

// Orchestrator replicates a delivered notification to additional
// channels. Fan-out is best effort: one destination failing is logged
// and recorded, not propagated, so the remaining destinations still get
// their copy.
type Orchestrator struct {
	sender *Sender
}

// NewOrchestrator creates a crosspost orchestrator.
func NewOrchestrator(sender *Sender) *Orchestrator {
	return &Orchestrator{sender: sender}
}

// Crosspost sends an independent copy of the notification to every
// destination in the crosspost spec, strictly in listed order, each send
// completing before the next begins. Unless NoLink is set, a context
// block linking back to the original message is appended so the copy is
// not orphaned from its origin.
//
// Returns nil when no crosspost is configured; otherwise one Outcome per
// destination, in order.
func (o *Orchestrator) Crosspost(ctx context.Context, n Notification, permalink string) []Outcome {
	logger := ctxlog.FromContext(ctx)

	spec := n.Crosspost
	if spec == nil || len(spec.Channels) == 0 {
		logger.Debug("no crosspost destinations configured")
		return nil
	}

	blocks := spec.Blocks
	if len(blocks) == 0 {
		blocks = n.Blocks
	}

	if !spec.NoLink {
		if permalink == "" {
			logger.Warn("no permalink available, crossposting without backlink")
		} else if raw, err := slack.ContextLinkBlock(permalink, crosspostLinkLabel).Raw(); err == nil {
			blocks = append(append([]json.RawMessage{}, blocks...), raw)
		}
	}

	text := spec.Text
	if text == "" {
		text = n.Text
	}

	outcomes := make([]Outcome, 0, len(spec.Channels))
	for _, channel := range spec.Channels {
		replica := Notification{
			Channel:       channel,
			Text:          text,
			Blocks:        blocks,
			DryRun:        n.DryRun,
			DisableUnfurl: true,
		}

		result, err := o.sender.Send(ctx, replica)
		if err != nil {
			logger.Error("crosspost failed",
				"channel", channel,
				"error", err,
			)
			outcomes = append(outcomes, Outcome{Channel: channel, Err: err})
			continue
		}

		logger.Info("crosspost sent",
			"channel", channel,
			"ts", result.Timestamp,
		)
		outcomes = append(outcomes, Outcome{Channel: channel, Timestamp: result.Timestamp})
	}

	return outcomes
}
