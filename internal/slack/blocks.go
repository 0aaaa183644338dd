package slack

import (
	"encoding/json"
	"fmt"
)

// Block is a Slack Block Kit block. Only the block shapes this tool
// produces itself are modeled; blocks arriving in the request payload
// stay opaque json.RawMessage values.
type Block struct {
	Type     string       `json:"type"`
	Text     *TextObject  `json:"text,omitempty"`
	Elements []TextObject `json:"elements,omitempty"`
	ImageURL string       `json:"image_url,omitempty"`
	AltText  string       `json:"alt_text,omitempty"`
}

// TextObject is a Block Kit text object.
type TextObject struct {
	Type string `json:"type"` // "mrkdwn" or "plain_text"
	Text string `json:"text"`
}

// SectionBlock builds a section block with mrkdwn text.
func SectionBlock(text string) Block {
	return Block{
		Type: "section",
		Text: &TextObject{Type: "mrkdwn", Text: text},
	}
}

// ContextLinkBlock builds a context block containing a single link,
// rendered as `<url|label>`.
func ContextLinkBlock(url, label string) Block {
	return Block{
		Type: "context",
		Elements: []TextObject{
			{Type: "mrkdwn", Text: fmt.Sprintf("<%s|%s>", url, label)},
		},
	}
}

// ImageBlock builds an image block.
func ImageBlock(url, altText string) Block {
	return Block{Type: "image", ImageURL: url, AltText: altText}
}

// Raw marshals the block into the opaque form used in message payloads.
func (b Block) Raw() (json.RawMessage, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal block: %w", err)
	}
	return json.RawMessage(data), nil
}
