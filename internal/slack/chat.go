package slack

import (
	"context"
	"encoding/json"
	"net/url"
)

// MessageRequest is the chat.postMessage payload.
type MessageRequest struct {
	Channel     string            `json:"channel"`
	Text        string            `json:"text,omitempty"`
	Blocks      []json.RawMessage `json:"blocks,omitempty"`
	ThreadTS    string            `json:"thread_ts,omitempty"`
	UnfurlLinks *bool             `json:"unfurl_links,omitempty"`
}

// MessageResponse is the chat.postMessage result.
type MessageResponse struct {
	Envelope
	TS      string `json:"ts"`
	Channel string `json:"channel"`
}

// PostMessage posts a message and returns the resolved timestamp and
// channel ID.
func (c *Client) PostMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	if req.Channel == "" {
		return nil, &PreconditionError{Message: "post message: channel is required"}
	}
	if len(req.Blocks) == 0 && req.Text == "" {
		return nil, &PreconditionError{Message: "post message: payload is empty"}
	}

	var resp MessageResponse
	if err := c.postJSON(ctx, "chat.postMessage", req, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, Classify(resp.Envelope, "send_notification")
	}

	return &resp, nil
}

type permalinkResponse struct {
	Envelope
	Permalink string `json:"permalink"`
}

// GetPermalink resolves the shareable URL for a delivered message.
// Missing inputs are precondition errors; a non-ok response is fatal
// (channel_not_found is the common case when the channel was deleted
// between send and resolve).
func (c *Client) GetPermalink(ctx context.Context, channel, messageTS string) (string, error) {
	if channel == "" {
		return "", &PreconditionError{Message: "get permalink: channel is required"}
	}
	if messageTS == "" {
		return "", &PreconditionError{Message: "get permalink: message timestamp is required"}
	}

	query := url.Values{
		"channel":    {channel},
		"message_ts": {messageTS},
	}

	var resp permalinkResponse
	if err := c.getForm(ctx, "chat.getPermalink", query, &resp); err != nil {
		return "", err
	}
	if !resp.OK {
		return "", Classify(resp.Envelope, "resolve_permalink")
	}

	return resp.Permalink, nil
}
