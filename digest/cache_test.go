package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanrmurphy/tgdigest/tdlib"
)

func TestChannelCache(t *testing.T) {
	c := NewChannelCache()

	b := channel(-2, 20, "Beta", 3, 10)
	a := channel(-1, 10, "Alpha", 1, 5)
	read := channel(-3, 30, "Read", 0, 99)
	private := tdlib.Chat{ID: 7, Title: "Friend", UnreadCount: 4, Type: tdlib.ChatType{Kind: tdlib.ChatTypePrivate}}
	group := channel(-4, 40, "Group", 2, 0)
	group.Type.IsChannel = false

	for _, chat := range []tdlib.Chat{b, a, read, private, group} {
		chat := chat
		c.Apply(tdlib.Update{Kind: tdlib.UpdateNewChatType, NewChat: &chat})
	}
	assert.Equal(t, 3, c.Len())

	unread := c.Unread()
	require.Len(t, unread, 2)
	assert.Equal(t, "Alpha", unread[0].Title)
	assert.Equal(t, "Beta", unread[1].Title)
	assert.EqualValues(t, 10, unread[0].SupergroupID)

	assert.True(t, c.Apply(tdlib.Update{
		Kind:      tdlib.UpdateChatReadInboxType,
		ReadInbox: &tdlib.ChatReadInbox{ChatID: -1, LastReadInboxMessageID: 6, UnreadCount: 0},
	}))
	assert.False(t, c.UpdateReadInbox(12345, 1, 1))

	unread = c.Unread()
	require.Len(t, unread, 1)
	assert.Equal(t, "Beta", unread[0].Title)

	info, ok := c.Get(-1)
	require.True(t, ok)
	assert.EqualValues(t, 6, info.LastReadInboxMessageID)

	c.SetUsername(-2, "beta_news")
	info, _ = c.Get(-2)
	assert.Equal(t, "beta_news", info.Username)

	c.Remove(-2)
	assert.Empty(t, c.Unread())
}
