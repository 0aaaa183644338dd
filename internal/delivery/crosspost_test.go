package delivery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrosspost_NoSpecIsNoOp(t *testing.T) {
	cs := newChatServer(t)
	orch := NewOrchestrator(newTestSender(t, cs))

	outcomes := orch.Crosspost(context.Background(), Notification{
		Channel: "C12345678",
		Blocks:  rawBlocks(1),
	}, "https://example.slack.com/archives/C12345678/p1000000000000001")

	assert.Nil(t, outcomes)
	assert.Empty(t, cs.sent())
}

func TestCrosspost_FanOutContinuesPastFailure(t *testing.T) {
	cs := newChatServer(t)
	cs.failChannels["B"] = "not_in_channel"
	orch := NewOrchestrator(newTestSender(t, cs))

	outcomes := orch.Crosspost(context.Background(), Notification{
		Channel:   "C12345678",
		Blocks:    rawBlocks(2),
		Crosspost: &CrosspostSpec{Channels: []string{"A", "B", "C"}},
	}, "https://example.slack.com/archives/C12345678/p1000000000000001")

	require.Len(t, outcomes, 3)

	sent := cs.sent()
	require.Len(t, sent, 3, "every destination must be attempted")
	assert.Equal(t, "A", sent[0].Channel)
	assert.Equal(t, "B", sent[1].Channel)
	assert.Equal(t, "C", sent[2].Channel)

	assert.NoError(t, outcomes[0].Err)
	assert.NotEmpty(t, outcomes[0].Timestamp)
	assert.Error(t, outcomes[1].Err)
	assert.Empty(t, outcomes[1].Timestamp)
	assert.NoError(t, outcomes[2].Err)
	assert.NotEmpty(t, outcomes[2].Timestamp)
}

func TestCrosspost_AppendsBacklinkBlock(t *testing.T) {
	cs := newChatServer(t)
	orch := NewOrchestrator(newTestSender(t, cs))

	orch.Crosspost(context.Background(), Notification{
		Channel:   "C12345678",
		Blocks:    rawBlocks(2),
		Crosspost: &CrosspostSpec{Channels: []string{"A"}},
	}, "https://example.slack.com/archives/C12345678/p1000000000000001")

	sent := cs.sent()
	require.Len(t, sent, 1)
	require.Len(t, sent[0].Blocks, 3, "backlink block is appended after the payload")
	last := string(sent[0].Blocks[2])
	assert.Contains(t, last, "context")
	assert.Contains(t, last, "p1000000000000001")
	assert.Contains(t, last, crosspostLinkLabel)
}

func TestCrosspost_NoLinkSkipsBacklink(t *testing.T) {
	cs := newChatServer(t)
	orch := NewOrchestrator(newTestSender(t, cs))

	orch.Crosspost(context.Background(), Notification{
		Channel:   "C12345678",
		Blocks:    rawBlocks(2),
		Crosspost: &CrosspostSpec{Channels: []string{"A"}, NoLink: true},
	}, "https://example.slack.com/archives/C12345678/p1000000000000001")

	sent := cs.sent()
	require.Len(t, sent, 1)
	assert.Len(t, sent[0].Blocks, 2)
}

func TestCrosspost_MissingPermalinkStillSends(t *testing.T) {
	cs := newChatServer(t)
	orch := NewOrchestrator(newTestSender(t, cs))

	outcomes := orch.Crosspost(context.Background(), Notification{
		Channel:   "C12345678",
		Blocks:    rawBlocks(1),
		Crosspost: &CrosspostSpec{Channels: []string{"A"}},
	}, "")

	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)

	sent := cs.sent()
	require.Len(t, sent, 1)
	assert.Len(t, sent[0].Blocks, 1, "no backlink without a permalink")
}

func TestCrosspost_OverridesPayload(t *testing.T) {
	cs := newChatServer(t)
	orch := NewOrchestrator(newTestSender(t, cs))

	orch.Crosspost(context.Background(), Notification{
		Channel: "C12345678",
		Text:    "original text",
		Blocks:  rawBlocks(3),
		Crosspost: &CrosspostSpec{
			Channels: []string{"A"},
			Text:     "short form",
			Blocks:   rawBlocks(1),
			NoLink:   true,
		},
	}, "")

	sent := cs.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "short form", sent[0].Text)
	assert.Len(t, sent[0].Blocks, 1)
}

func TestCrosspost_DisablesUnfurl(t *testing.T) {
	cs := newChatServer(t)
	orch := NewOrchestrator(newTestSender(t, cs))

	orch.Crosspost(context.Background(), Notification{
		Channel:   "C12345678",
		Blocks:    rawBlocks(1),
		Crosspost: &CrosspostSpec{Channels: []string{"A"}, NoLink: true},
	}, "")

	sent := cs.sent()
	require.Len(t, sent, 1)
	require.NotNil(t, sent[0].UnfurlLinks)
	assert.False(t, *sent[0].UnfurlLinks)
}
