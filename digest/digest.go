// Package digest collects unread channel posts, summarizes them and delivers
// the summary.
package digest

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	ErrMessageTooLong = errors.New("message too long")
	ErrUnauthorized   = errors.New("openai: unauthorized")
	ErrRateLimited    = errors.New("openai: rate limited")
	ErrEmptyResponse  = errors.New("openai: empty response")
)

// SourceMessage is a single unread post.
type SourceMessage struct {
	ChatID       int64
	MessageID    int64
	Content      string
	ChannelTitle string
	// Link is empty for channels without a public username.
	Link string
	Date time.Time
	// PageTitle is the title of the first page linked from Content, if
	// resolved.
	PageTitle string
}

// ChannelInfo describes a channel as seen in the chat list.
type ChannelInfo struct {
	ChatID                 int64
	Title                  string
	UnreadCount            int32
	LastReadInboxMessageID int64
	Username               string
	SupergroupID           int64
}

// Source yields unread messages and marks them read.
type Source interface {
	FetchUnread(ctx context.Context) ([]SourceMessage, error)
	MarkAsRead(ctx context.Context, msgs []SourceMessage) error
}

type Summarizer interface {
	Summarize(ctx context.Context, msgs []SourceMessage) (string, error)
}

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// groupByChat maps chat ids to the message ids of msgs.
func groupByChat(msgs []SourceMessage) map[int64][]int64 {
	out := make(map[int64][]int64)
	for _, m := range msgs {
		out[m.ChatID] = append(out[m.ChatID], m.MessageID)
	}
	return out
}
