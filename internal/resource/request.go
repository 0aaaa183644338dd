// Package resource defines the wire contract of the out step: the
// {source, params} request read from stdin and the {version, metadata}
// response written to stdout.
package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/bissquit/slack-courier/internal/delivery"
	"github.com/go-playground/validator/v10"
)

// Request is the full inbound payload.
type Request struct {
	Source Source `json:"source"`
	Params Params `json:"params"`
}

// Source carries the credential and output shaping flags configured on
// the resource itself.
type Source struct {
	Token             string `json:"token" validate:"required"`
	SuppressMetadata  bool   `json:"suppress_metadata"`
	PayloadInMetadata bool   `json:"payload_in_metadata"`
}

// Params describes one delivery.
type Params struct {
	Channel      string            `json:"channel" validate:"required"`
	Blocks       []json.RawMessage `json:"blocks" validate:"required,min=1"`
	Text         string            `json:"text"`
	ThreadTS     string            `json:"thread_ts"`
	CreateThread bool              `json:"create_thread"`
	Crosspost    *CrosspostParams  `json:"crosspost"`
	Files        []FileParam       `json:"files" validate:"dive"`
	DryRun       bool              `json:"dry_run"`
	Debug        bool              `json:"debug"`
}

// FileParam describes one file attachment to upload out-of-band.
type FileParam struct {
	Path    string `json:"path" validate:"required"`
	Title   string `json:"title"`
	Comment string `json:"comment"`
}

// CrosspostParams mirrors delivery.CrosspostSpec on the wire. The
// destination accepts a single string or an ordered list, under either a
// "channel" or a "channels" key.
type CrosspostParams struct {
	Channels []string
	Blocks   []json.RawMessage
	Text     string
	NoLink   bool
}

// UnmarshalJSON normalizes the channel/channels synonyms.
func (p *CrosspostParams) UnmarshalJSON(data []byte) error {
	var raw struct {
		Channel  json.RawMessage   `json:"channel"`
		Channels json.RawMessage   `json:"channels"`
		Blocks   []json.RawMessage `json:"blocks"`
		Text     string            `json:"text"`
		NoLink   bool              `json:"no_link"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	channels, err := decodeChannelList(raw.Channel)
	if err != nil {
		return fmt.Errorf("crosspost channel: %w", err)
	}
	more, err := decodeChannelList(raw.Channels)
	if err != nil {
		return fmt.Errorf("crosspost channels: %w", err)
	}

	p.Channels = append(channels, more...)
	p.Blocks = raw.Blocks
	p.Text = raw.Text
	p.NoLink = raw.NoLink
	return nil
}

// decodeChannelList accepts a JSON string, a JSON array of strings, or
// nothing.
func decodeChannelList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil, nil
		}
		return []string{single}, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, errors.New("expected a string or a list of strings")
	}
	return list, nil
}

// ParseRequest decodes and validates the inbound payload. Violations are
// validation errors, never delivery errors.
func ParseRequest(r io.Reader) (*Request, error) {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	if err := validator.New().Struct(req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	if req.Params.ThreadTS != "" && req.Params.CreateThread {
		return nil, delivery.ErrThreadConflict
	}

	return &req, nil
}

// Notification converts the params to the delivery-layer value.
func (r *Request) Notification() delivery.Notification {
	n := delivery.Notification{
		Channel:      r.Params.Channel,
		Text:         r.Params.Text,
		Blocks:       r.Params.Blocks,
		ThreadTS:     r.Params.ThreadTS,
		CreateThread: r.Params.CreateThread,
		DryRun:       r.Params.DryRun,
		Debug:        r.Params.Debug,
	}

	if r.Params.Crosspost != nil {
		n.Crosspost = &delivery.CrosspostSpec{
			Channels: r.Params.Crosspost.Channels,
			Blocks:   r.Params.Crosspost.Blocks,
			Text:     r.Params.Crosspost.Text,
			NoLink:   r.Params.Crosspost.NoLink,
		}
	}

	return n
}
