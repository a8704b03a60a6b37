package digest

import (
	"context"
	"sync"

	"github.com/seanrmurphy/tgdigest/tdlib"
)

// fakeTDLib serves a fixed chat list and per-chat history.
type fakeTDLib struct {
	mu         sync.Mutex
	chats      []tdlib.Chat
	history    map[int64][]tdlib.Message
	historyErr map[int64]error
	usernames  map[int64]string
	viewed     map[int64][]int64
	viewErr    map[int64]error
	loadCalls  int
	sub        chan tdlib.Update
}

func newFakeTDLib() *fakeTDLib {
	return &fakeTDLib{
		history:    map[int64][]tdlib.Message{},
		historyErr: map[int64]error{},
		usernames:  map[int64]string{},
		viewed:     map[int64][]int64{},
		viewErr:    map[int64]error{},
	}
}

func (f *fakeTDLib) Subscribe() (<-chan tdlib.Update, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sub = make(chan tdlib.Update, 64)
	ch := f.sub
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			f.sub = nil
			f.mu.Unlock()
			close(ch)
		})
	}
}

func (f *fakeTDLib) LoadChats(_ context.Context, _ tdlib.ChatList, _ int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls++
	if f.loadCalls > 1 {
		return tdlib.ErrAllChatsLoaded
	}
	for i := range f.chats {
		chat := f.chats[i]
		f.sub <- tdlib.Update{Kind: tdlib.UpdateNewChatType, NewChat: &chat}
	}
	return nil
}

func (f *fakeTDLib) GetChatHistory(_ context.Context, chatID, _ int64, _, _ int32, _ bool) (*tdlib.Messages, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.historyErr[chatID]; err != nil {
		return nil, err
	}
	msgs := f.history[chatID]
	return &tdlib.Messages{TotalCount: int32(len(msgs)), Messages: msgs}, nil
}

func (f *fakeTDLib) GetSupergroup(_ context.Context, id int64) (*tdlib.Supergroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sg := &tdlib.Supergroup{ID: id, IsChannel: true}
	if name := f.usernames[id]; name != "" {
		sg.Usernames = &tdlib.Usernames{ActiveUsernames: []string{name}}
	}
	return sg, nil
}

func (f *fakeTDLib) ViewMessages(_ context.Context, chatID int64, ids []int64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.viewErr[chatID]; err != nil {
		return err
	}
	f.viewed[chatID] = append(f.viewed[chatID], ids...)
	return nil
}

func channel(id, supergroupID int64, title string, unread int32, lastRead int64) tdlib.Chat {
	return tdlib.Chat{
		ID:                     id,
		Title:                  title,
		UnreadCount:            unread,
		LastReadInboxMessageID: lastRead,
		Type: tdlib.ChatType{
			Kind:         tdlib.ChatTypeSupergroup,
			SupergroupID: supergroupID,
			IsChannel:    true,
		},
	}
}

func textMessage(chatID, id int64, text string) tdlib.Message {
	return tdlib.Message{
		ID:     id,
		ChatID: chatID,
		Date:   1700000000,
		Content: tdlib.MessageContent{
			Kind: "messageText",
			Text: &tdlib.FormattedText{Text: text},
		},
	}
}
