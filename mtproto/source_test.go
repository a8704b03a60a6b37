package mtproto

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seanrmurphy/tgdigest/digest"
)

type fakeAPI struct {
	mu         sync.Mutex
	dialogs    tg.MessagesDialogsClass
	history    map[int64][]tg.MessageClass
	historyErr map[int64]error
	minIDs     map[int64]int
	read       map[int64]int
}

func (f *fakeAPI) MessagesGetDialogs(context.Context, *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error) {
	return f.dialogs, nil
}

func (f *fakeAPI) MessagesGetHistory(_ context.Context, req *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := req.Peer.(*tg.InputPeerChannel)
	f.minIDs[p.ChannelID] = req.MinID
	if err := f.historyErr[p.ChannelID]; err != nil {
		return nil, err
	}
	return &tg.MessagesChannelMessages{Messages: f.history[p.ChannelID]}, nil
}

func (f *fakeAPI) ChannelsReadHistory(_ context.Context, req *tg.ChannelsReadHistoryRequest) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := req.Channel.(*tg.InputChannel)
	f.read[ch.ChannelID] = req.MaxID
	return true, nil
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		history:    map[int64][]tg.MessageClass{},
		historyErr: map[int64]error{},
		minIDs:     map[int64]int{},
		read:       map[int64]int{},
	}
}

func dialog(channelID int64, unread, readMax int) *tg.Dialog {
	return &tg.Dialog{
		Peer:           &tg.PeerChannel{ChannelID: channelID},
		UnreadCount:    unread,
		ReadInboxMaxID: readMax,
	}
}

func post(id int, text string) *tg.Message {
	return &tg.Message{ID: id, Message: text, Date: 1700000000}
}

func sampleDialogs() *tg.MessagesDialogs {
	return &tg.MessagesDialogs{
		Dialogs: []tg.DialogClass{
			dialog(1, 2, 10),
			dialog(2, 1, 5),
			dialog(3, 0, 7),
			dialog(4, 3, 0),
			&tg.Dialog{Peer: &tg.PeerUser{UserID: 9}, UnreadCount: 4},
		},
		Chats: []tg.ChatClass{
			&tg.Channel{ID: 1, AccessHash: 11, Title: "Beta", Username: "beta", Broadcast: true},
			&tg.Channel{ID: 2, AccessHash: 22, Title: "Alpha", Broadcast: true},
			&tg.Channel{ID: 3, AccessHash: 33, Title: "Read", Broadcast: true},
			&tg.Channel{ID: 4, AccessHash: 44, Title: "Chatter", Megagroup: true},
		},
	}
}

func TestSourceFetchUnread(t *testing.T) {
	api := newFakeAPI()
	api.dialogs = sampleDialogs()
	api.history[1] = []tg.MessageClass{post(12, "twelve"), post(11, "eleven"), post(10, "read"), &tg.MessageService{ID: 13}}
	api.history[2] = []tg.MessageClass{post(6, "  "), post(7, "seven")}

	src := NewSource(api, SourceConfig{}, zap.NewNop())
	msgs, err := src.FetchUnread(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.Equal(t, "Alpha", msgs[0].ChannelTitle)
	assert.Equal(t, "seven", msgs[0].Content)
	assert.Empty(t, msgs[0].Link)

	assert.Equal(t, "eleven", msgs[1].Content)
	assert.Equal(t, "https://t.me/beta/11", msgs[1].Link)
	assert.Equal(t, "twelve", msgs[2].Content)

	assert.Equal(t, 10, api.minIDs[1])
	assert.Equal(t, 5, api.minIDs[2])
	assert.NotContains(t, api.minIDs, int64(3))
	assert.NotContains(t, api.minIDs, int64(4))

	require.NoError(t, src.MarkAsRead(context.Background(), msgs))
	assert.Equal(t, map[int64]int{1: 12, 2: 7}, api.read)
}

func TestSourceAllowlist(t *testing.T) {
	api := newFakeAPI()
	api.dialogs = sampleDialogs()
	api.history[1] = []tg.MessageClass{post(11, "beta post")}
	api.history[2] = []tg.MessageClass{post(6, "alpha post")}

	src := NewSource(api, SourceConfig{Allowlist: []string{"@BETA"}}, zap.NewNop())
	msgs, err := src.FetchUnread(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "beta post", msgs[0].Content)
}

func TestSourceFailures(t *testing.T) {
	api := newFakeAPI()
	api.dialogs = sampleDialogs()
	api.history[2] = []tg.MessageClass{post(6, "alpha post")}
	api.historyErr[1] = errors.New("CHANNEL_PRIVATE")

	src := NewSource(api, SourceConfig{}, zap.NewNop())
	msgs, err := src.FetchUnread(context.Background())
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	api.historyErr[2] = errors.New("FLOOD")
	_, err = src.FetchUnread(context.Background())
	assert.Error(t, err)
}

func TestSourceMarkUnknownChannel(t *testing.T) {
	src := NewSource(newFakeAPI(), SourceConfig{}, zap.NewNop())
	err := src.MarkAsRead(context.Background(), []digest.SourceMessage{{ChatID: 77, MessageID: 1}})
	assert.ErrorContains(t, err, "unknown channel 77")
}

func TestSourceDialogsNotModified(t *testing.T) {
	api := newFakeAPI()
	api.dialogs = &tg.MessagesDialogsNotModified{}
	msgs, err := NewSource(api, SourceConfig{}, zap.NewNop()).FetchUnread(context.Background())
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
