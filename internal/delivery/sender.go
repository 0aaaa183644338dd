package delivery

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/bissquit/slack-courier/internal/pkg/ctxlog"
	"github.com/bissquit/slack-courier/internal/slack"
)

// Sender delivers notifications through the Slack client, wrapping every
// outbound call in the configured retry policy.
type Sender struct {
	client *slack.Client
	policy slack.RetryPolicy
}

// NewSender creates a notification sender. A zero policy falls back to
// the default retry policy.
func NewSender(client *slack.Client, policy slack.RetryPolicy) *Sender {
	if policy.MaxAttempts == 0 {
		policy = slack.DefaultRetryPolicy()
	}
	return &Sender{client: client, policy: policy}
}

// Send delivers the notification and returns the resulting timestamp and
// channel ID.
//
// Threading rules:
//   - ThreadTS set: all blocks go out as a single threaded reply.
//   - CreateThread with more than one block: the first block becomes the
//     parent message, the rest go out as one reply to it.
//   - CreateThread with a single block degrades to a plain send; a thread
//     with no replies is meaningless.
func (s *Sender) Send(ctx context.Context, n Notification) (*DeliveryResult, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	logger := ctxlog.FromContext(ctx)

	threadTS := ""
	if n.ThreadTS != "" {
		ts, err := NormalizeThreadTS(n.ThreadTS)
		if err != nil {
			return nil, err
		}
		threadTS = ts
	}

	if n.DryRun {
		logger.Info("dry run: skipping delivery",
			"channel", n.Channel,
			"blocks", len(n.Blocks),
			"thread_ts", threadTS,
			"create_thread", n.CreateThread,
		)
		return &DeliveryResult{
			Sent:      true,
			Timestamp: fmt.Sprintf("%d.000000", time.Now().Unix()),
			ChannelID: n.Channel,
		}, nil
	}

	if n.CreateThread && len(n.Blocks) > 1 {
		return s.sendAsThread(ctx, n)
	}

	resp, err := s.post(ctx, slack.MessageRequest{
		Channel:     n.Channel,
		Text:        n.Text,
		Blocks:      n.Blocks,
		ThreadTS:    threadTS,
		UnfurlLinks: unfurl(n),
	})
	if err != nil {
		return nil, err
	}

	logger.Info("notification sent",
		"channel", resp.Channel,
		"ts", resp.TS,
		"threaded", threadTS != "",
	)

	return &DeliveryResult{Sent: true, Timestamp: resp.TS, ChannelID: resp.Channel}, nil
}

// sendAsThread posts the first block as the parent message and the
// remaining blocks as one threaded reply.
func (s *Sender) sendAsThread(ctx context.Context, n Notification) (*DeliveryResult, error) {
	logger := ctxlog.FromContext(ctx)

	parent, err := s.post(ctx, slack.MessageRequest{
		Channel:     n.Channel,
		Text:        n.Text,
		Blocks:      n.Blocks[:1],
		UnfurlLinks: unfurl(n),
	})
	if err != nil {
		return nil, err
	}

	_, err = s.post(ctx, slack.MessageRequest{
		Channel:     parent.Channel,
		Blocks:      n.Blocks[1:],
		ThreadTS:    parent.TS,
		UnfurlLinks: unfurl(n),
	})
	if err != nil {
		return nil, fmt.Errorf("thread reply: %w", err)
	}

	logger.Info("notification sent as thread",
		"channel", parent.Channel,
		"ts", parent.TS,
		"reply_blocks", len(n.Blocks)-1,
	)

	return &DeliveryResult{Sent: true, Timestamp: parent.TS, ChannelID: parent.Channel}, nil
}

func (s *Sender) post(ctx context.Context, req slack.MessageRequest) (*slack.MessageResponse, error) {
	return slack.Retry(ctx, s.policy, func(ctx context.Context) (*slack.MessageResponse, error) {
		return s.client.PostMessage(ctx, req)
	})
}

// ResolvePermalink fetches the shareable URL for a delivered message.
func (s *Sender) ResolvePermalink(ctx context.Context, channel, ts string) (string, error) {
	return slack.Retry(ctx, s.policy, func(ctx context.Context) (string, error) {
		return s.client.GetPermalink(ctx, channel, ts)
	})
}

func unfurl(n Notification) *bool {
	if !n.DisableUnfurl {
		return nil
	}
	f := false
	return &f
}

// NormalizeThreadTS accepts either a raw message timestamp or a message
// permalink and returns a timestamp suitable for thread_ts. A permalink's
// trailing path segment like "p1763161862880069" becomes
// "1763161862.880069": strip the leading p, insert a decimal point after
// the first 10 digits.
func NormalizeThreadTS(ref string) (string, error) {
	segment := ref
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("malformed thread permalink %q: %w", ref, err)
		}
		segment = path.Base(u.Path)
	}

	digits, ok := strings.CutPrefix(segment, "p")
	if !ok {
		// Already a raw timestamp.
		return segment, nil
	}
	if _, err := strconv.ParseUint(digits, 10, 64); err != nil || len(digits) <= 10 {
		return "", fmt.Errorf("malformed thread permalink segment %q", segment)
	}

	return digits[:10] + "." + digits[10:], nil
}
