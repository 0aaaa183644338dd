package slack

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// pageSize bounds each directory listing request.
const pageSize = 200

// ErrNotFound is returned when a name matches nothing after every page of
// the directory listing has been scanned.
var ErrNotFound = fmt.Errorf("not found")

var (
	userIDPattern         = regexp.MustCompile(`^U[A-Z0-9]{8,}$`)
	conversationIDPattern = regexp.MustCompile(`^[CGDZ][A-Z0-9]{8,}$`)
	dmIDPattern           = regexp.MustCompile(`^D[A-Z0-9]{8,}$`)
)

// stripSigil removes a leading @ or # mention prefix.
func stripSigil(ref string) string {
	ref = strings.TrimPrefix(ref, "@")
	return strings.TrimPrefix(ref, "#")
}

type member struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Profile struct {
		DisplayName string `json:"display_name"`
	} `json:"profile"`
}

type userListResponse struct {
	Envelope
	Members          []member `json:"members"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

type conversation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type conversationListResponse struct {
	Envelope
	Channels         []conversation `json:"channels"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

type openConversationResponse struct {
	Envelope
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
}

// ResolveUserID turns a user reference (ID, @name, or bare name) into a
// user ID. A reference already shaped like a user ID is returned as-is
// without any network call; otherwise the full user directory is scanned
// page by page until the first exact name match.
func (c *Client) ResolveUserID(ctx context.Context, ref string) (string, error) {
	name := stripSigil(ref)
	if name == "" {
		return "", &PreconditionError{Message: "resolve user: reference is empty"}
	}
	if userIDPattern.MatchString(name) {
		return name, nil
	}

	users := newPager(func(ctx context.Context, cursor string) ([]member, string, error) {
		query := url.Values{"limit": {fmt.Sprint(pageSize)}}
		if cursor != "" {
			query.Set("cursor", cursor)
		}
		var resp userListResponse
		if err := c.getForm(ctx, "users.list", query, &resp); err != nil {
			return nil, "", err
		}
		if !resp.OK {
			return nil, "", Classify(resp.Envelope, "user_lookup")
		}
		return resp.Members, resp.ResponseMetadata.NextCursor, nil
	})

	match, found, err := findFirst(ctx, users, func(m member) bool {
		return m.Name == name || m.Profile.DisplayName == name
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("user %q %w", name, ErrNotFound)
	}

	return match.ID, nil
}

// ResolveChannelID turns a channel reference (ID, #name, or bare name)
// into a conversation ID, scanning public and private channels.
func (c *Client) ResolveChannelID(ctx context.Context, ref string) (string, error) {
	name := stripSigil(ref)
	if name == "" {
		return "", &PreconditionError{Message: "resolve channel: reference is empty"}
	}
	if conversationIDPattern.MatchString(name) {
		return name, nil
	}

	channels := newPager(func(ctx context.Context, cursor string) ([]conversation, string, error) {
		query := url.Values{
			"limit": {fmt.Sprint(pageSize)},
			"types": {"public_channel,private_channel"},
		}
		if cursor != "" {
			query.Set("cursor", cursor)
		}
		var resp conversationListResponse
		if err := c.getForm(ctx, "conversations.list", query, &resp); err != nil {
			return nil, "", err
		}
		if !resp.OK {
			return nil, "", Classify(resp.Envelope, "channel_lookup")
		}
		return resp.Channels, resp.ResponseMetadata.NextCursor, nil
	})

	match, found, err := findFirst(ctx, channels, func(ch conversation) bool {
		return ch.Name == name
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("channel %q %w", name, ErrNotFound)
	}

	return match.ID, nil
}

// ResolveDMID turns a user reference into a direct-message conversation
// ID. It composes ResolveUserID and then opens (or re-opens) the DM.
func (c *Client) ResolveDMID(ctx context.Context, ref string) (string, error) {
	name := stripSigil(ref)
	if dmIDPattern.MatchString(name) {
		return name, nil
	}

	userID, err := c.ResolveUserID(ctx, name)
	if err != nil {
		return "", err
	}

	var resp openConversationResponse
	if err := c.postJSON(ctx, "conversations.open", map[string]string{"users": userID}, &resp); err != nil {
		return "", err
	}
	if !resp.OK {
		return "", Classify(resp.Envelope, "open_dm")
	}

	return resp.Channel.ID, nil
}
