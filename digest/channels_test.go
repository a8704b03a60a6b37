package digest

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seanrmurphy/tgdigest/tdlib"
)

func testSourceConfig() ChannelSourceConfig {
	return ChannelSourceConfig{CollectQuiet: 20 * time.Millisecond}
}

func TestChannelSourceFetchUnread(t *testing.T) {
	td := newFakeTDLib()
	td.chats = []tdlib.Chat{
		channel(-200, 2, "Zeta", 2, 2<<20),
		channel(-100, 1, "Alpha", 3, 5<<20),
		channel(-300, 3, "Quiet", 0, 0),
	}
	td.usernames[1] = "alpha_news"
	td.history[-100] = []tdlib.Message{
		textMessage(-100, 7<<20, "seven"),
		textMessage(-100, 6<<20, "six"),
		textMessage(-100, 5<<20, "already read"),
		{ID: 8 << 20, ChatID: -100, Content: tdlib.MessageContent{Kind: "messageSticker"}},
		{ID: 9 << 20, ChatID: -100, Content: tdlib.MessageContent{
			Kind:    "messagePhoto",
			Caption: &tdlib.FormattedText{Text: "photo caption"},
		}},
	}
	td.history[-200] = []tdlib.Message{textMessage(-200, 3<<20, "private channel post")}

	src := NewChannelSource(td, testSourceConfig(), zap.NewNop())
	msgs, err := src.FetchUnread(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	assert.Equal(t, "Alpha", msgs[0].ChannelTitle)
	assert.Equal(t, "six", msgs[0].Content)
	assert.Equal(t, "https://t.me/alpha_news/6", msgs[0].Link)
	assert.Equal(t, "seven", msgs[1].Content)
	assert.Equal(t, "photo caption", msgs[2].Content)
	assert.Equal(t, "https://t.me/alpha_news/9", msgs[2].Link)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), msgs[0].Date)

	assert.Equal(t, "Zeta", msgs[3].ChannelTitle)
	assert.Empty(t, msgs[3].Link)
}

func TestChannelSourceAllowlist(t *testing.T) {
	td := newFakeTDLib()
	td.chats = []tdlib.Chat{
		channel(-100, 1, "Alpha", 1, 0),
		channel(-200, 2, "Beta", 1, 0),
		channel(-300, 3, "Gamma", 1, 0),
	}
	td.usernames[1] = "Alpha_News"
	for _, id := range []int64{-100, -200, -300} {
		td.history[id] = []tdlib.Message{textMessage(id, 1<<20, "post")}
	}

	cfg := testSourceConfig()
	cfg.Allowlist = []string{"@alpha_news", "Gamma"}
	msgs, err := NewChannelSource(td, cfg, zap.NewNop()).FetchUnread(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Alpha", msgs[0].ChannelTitle)
	assert.Equal(t, "Gamma", msgs[1].ChannelTitle)
}

func TestChannelSourcePartialFailure(t *testing.T) {
	td := newFakeTDLib()
	td.chats = []tdlib.Chat{
		channel(-100, 1, "Alpha", 1, 0),
		channel(-200, 2, "Beta", 1, 0),
	}
	td.history[-100] = []tdlib.Message{textMessage(-100, 1<<20, "ok")}
	td.historyErr[-200] = &tdlib.Error{Code: 400, Message: "CHANNEL_PRIVATE"}

	msgs, err := NewChannelSource(td, testSourceConfig(), zap.NewNop()).FetchUnread(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Alpha", msgs[0].ChannelTitle)
}

func TestChannelSourceAllChannelsFail(t *testing.T) {
	td := newFakeTDLib()
	td.chats = []tdlib.Chat{channel(-100, 1, "Alpha", 1, 0)}
	td.historyErr[-100] = errors.New("boom")

	_, err := NewChannelSource(td, testSourceConfig(), zap.NewNop()).FetchUnread(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestChannelSourceAllAllowedChannelsFail(t *testing.T) {
	td := newFakeTDLib()
	td.chats = []tdlib.Chat{
		channel(-100, 1, "Alpha", 1, 0),
		channel(-200, 2, "Beta", 1, 0),
	}
	td.historyErr[-100] = errors.New("boom")
	td.history[-200] = []tdlib.Message{textMessage(-200, 1<<20, "not on the list")}

	cfg := testSourceConfig()
	cfg.Allowlist = []string{"Alpha"}
	msgs, err := NewChannelSource(td, cfg, zap.NewNop()).FetchUnread(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Empty(t, msgs)
}

func TestChannelSourceNoUnread(t *testing.T) {
	td := newFakeTDLib()
	td.chats = []tdlib.Chat{channel(-100, 1, "Alpha", 0, 0)}

	msgs, err := NewChannelSource(td, testSourceConfig(), zap.NewNop()).FetchUnread(context.Background())
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, 2, td.loadCalls)
}

func TestChannelSourceMarkAsRead(t *testing.T) {
	td := newFakeTDLib()
	td.viewErr[-200] = errors.New("timeout")
	src := NewChannelSource(td, testSourceConfig(), zap.NewNop())

	err := src.MarkAsRead(context.Background(), []SourceMessage{
		{ChatID: -100, MessageID: 3 << 20},
		{ChatID: -100, MessageID: 9 << 20},
		{ChatID: -200, MessageID: 1 << 20},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat -200")
	assert.Equal(t, []int64{9 << 20}, td.viewed[-100])
}
