package digest

import (
	"sort"
	"sync"

	"github.com/seanrmurphy/tgdigest/tdlib"
)

// ChannelCache tracks channels from updateNewChat and their unread state
// from updateChatReadInbox.
type ChannelCache struct {
	mu       sync.RWMutex
	channels map[int64]ChannelInfo
}

func NewChannelCache() *ChannelCache {
	return &ChannelCache{channels: map[int64]ChannelInfo{}}
}

// Apply feeds an update into the cache. It reports whether the update was
// relevant.
func (c *ChannelCache) Apply(u tdlib.Update) bool {
	switch {
	case u.NewChat != nil:
		return c.Add(*u.NewChat)
	case u.ReadInbox != nil:
		return c.UpdateReadInbox(u.ReadInbox.ChatID, u.ReadInbox.LastReadInboxMessageID, u.ReadInbox.UnreadCount)
	}
	return false
}

// Add stores chat if it is a broadcast channel.
func (c *ChannelCache) Add(chat tdlib.Chat) bool {
	if !chat.Type.Channel() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	info := c.channels[chat.ID]
	info.ChatID = chat.ID
	info.Title = chat.Title
	info.UnreadCount = chat.UnreadCount
	info.LastReadInboxMessageID = chat.LastReadInboxMessageID
	info.SupergroupID = chat.Type.SupergroupID
	c.channels[chat.ID] = info
	return true
}

// UpdateReadInbox ignores chats the cache has not seen.
func (c *ChannelCache) UpdateReadInbox(chatID, lastRead int64, unread int32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.channels[chatID]
	if !ok {
		return false
	}
	info.LastReadInboxMessageID = lastRead
	info.UnreadCount = unread
	c.channels[chatID] = info
	return true
}

func (c *ChannelCache) SetUsername(chatID int64, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if info, ok := c.channels[chatID]; ok {
		info.Username = username
		c.channels[chatID] = info
	}
}

func (c *ChannelCache) Get(chatID int64) (ChannelInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.channels[chatID]
	return info, ok
}

func (c *ChannelCache) Remove(chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.channels, chatID)
}

func (c *ChannelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.channels)
}

// Unread returns channels with unread posts ordered by title.
func (c *ChannelCache) Unread() []ChannelInfo {
	c.mu.RLock()
	out := make([]ChannelInfo, 0, len(c.channels))
	for _, info := range c.channels {
		if info.UnreadCount > 0 {
			out = append(out, info)
		}
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ChatID < out[j].ChatID
	})
	return out
}
