package tdlib

import "github.com/go-faster/errors"

const (
	UpdateNewChatType            = "updateNewChat"
	UpdateChatReadInboxType      = "updateChatReadInbox"
	UpdateAuthorizationStateType = "updateAuthorizationState"
)

// ChatReadInbox is the payload of updateChatReadInbox.
type ChatReadInbox struct {
	ChatID                 int64 `json:"chat_id"`
	LastReadInboxMessageID int64 `json:"last_read_inbox_message_id"`
	UnreadCount            int32 `json:"unread_count"`
}

// Update is a decoded TDLib update. Exactly one payload field is set for the
// known kinds; other kinds only carry Kind.
type Update struct {
	Kind               string
	NewChat            *Chat
	ReadInbox          *ChatReadInbox
	AuthorizationState *AuthorizationState
}

func decodeUpdate(kind string, raw []byte) (Update, error) {
	u := Update{Kind: kind}
	switch kind {
	case UpdateNewChatType:
		var v struct {
			Chat Chat `json:"chat"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return u, errors.Wrap(err, "decode updateNewChat")
		}
		u.NewChat = &v.Chat
	case UpdateChatReadInboxType:
		var v ChatReadInbox
		if err := json.Unmarshal(raw, &v); err != nil {
			return u, errors.Wrap(err, "decode updateChatReadInbox")
		}
		u.ReadInbox = &v
	case UpdateAuthorizationStateType:
		var v struct {
			State AuthorizationState `json:"authorization_state"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return u, errors.Wrap(err, "decode updateAuthorizationState")
		}
		u.AuthorizationState = &v.State
	}
	return u, nil
}
