package tdlib

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Error is a TDLib error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("tdlib error %d: %s", e.Code, e.Message)
}

// IsNotFound reports a 404, which loadChats uses to signal the end of a list.
func (e *Error) IsNotFound() bool { return e.Code == 404 }

type Ok struct{}

// Usernames holds the public usernames of a user or supergroup.
type Usernames struct {
	ActiveUsernames  []string `json:"active_usernames"`
	EditableUsername string   `json:"editable_username"`
}

// Primary returns the first active username, or "" when there is none.
func (u *Usernames) Primary() string {
	if u == nil {
		return ""
	}
	if len(u.ActiveUsernames) > 0 {
		return u.ActiveUsernames[0]
	}
	return u.EditableUsername
}

type User struct {
	ID          int64      `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	PhoneNumber string     `json:"phone_number"`
	Usernames   *Usernames `json:"usernames"`
}

func (u *User) Username() string { return u.Usernames.Primary() }

type Chats struct {
	TotalCount int32   `json:"total_count"`
	ChatIDs    []int64 `json:"chat_ids"`
}

const (
	ChatListMainType    = "chatListMain"
	ChatListArchiveType = "chatListArchive"
	ChatListFolderType  = "chatListFolder"
)

// ChatList identifies the main list, the archive or a chat folder.
type ChatList struct {
	Type         string `json:"@type"`
	ChatFolderID int32  `json:"chat_folder_id,omitempty"`
}

func ChatListMain() ChatList    { return ChatList{Type: ChatListMainType} }
func ChatListArchive() ChatList { return ChatList{Type: ChatListArchiveType} }
func ChatListFolder(id int32) ChatList {
	return ChatList{Type: ChatListFolderType, ChatFolderID: id}
}

func (l *ChatList) UnmarshalJSON(data []byte) error {
	type plain ChatList
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v.Type {
	case ChatListMainType, ChatListArchiveType, ChatListFolderType:
	default:
		return errors.Errorf("unknown chat list %q", v.Type)
	}
	*l = ChatList(v)
	return nil
}

type ChatPosition struct {
	List     ChatList `json:"list"`
	Order    Int64    `json:"order"`
	IsPinned Bool     `json:"is_pinned"`
}

const (
	ChatTypePrivate    = "chatTypePrivate"
	ChatTypeBasicGroup = "chatTypeBasicGroup"
	ChatTypeSupergroup = "chatTypeSupergroup"
	ChatTypeSecret     = "chatTypeSecret"
)

type ChatType struct {
	Kind         string `json:"@type"`
	UserID       int64  `json:"user_id,omitempty"`
	BasicGroupID int64  `json:"basic_group_id,omitempty"`
	SupergroupID int64  `json:"supergroup_id,omitempty"`
	IsChannel    Bool   `json:"is_channel,omitempty"`
	SecretChatID int32  `json:"secret_chat_id,omitempty"`
}

func (t *ChatType) UnmarshalJSON(data []byte) error {
	type plain ChatType
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v.Kind {
	case ChatTypePrivate, ChatTypeBasicGroup, ChatTypeSupergroup, ChatTypeSecret:
	default:
		return errors.Errorf("unknown chat type %q", v.Kind)
	}
	*t = ChatType(v)
	return nil
}

// Channel reports whether the chat is a broadcast channel.
func (t ChatType) Channel() bool {
	return t.Kind == ChatTypeSupergroup && bool(t.IsChannel)
}

type Chat struct {
	ID                     int64          `json:"id"`
	Type                   ChatType       `json:"type"`
	Title                  string         `json:"title"`
	UnreadCount            int32          `json:"unread_count"`
	LastReadInboxMessageID int64          `json:"last_read_inbox_message_id"`
	Positions              []ChatPosition `json:"positions"`
}

type TextEntityType struct {
	Kind string `json:"@type"`
	URL  string `json:"url,omitempty"`
}

type TextEntity struct {
	Offset int32          `json:"offset"`
	Length int32          `json:"length"`
	Type   TextEntityType `json:"type"`
}

type FormattedText struct {
	Text     string       `json:"text"`
	Entities []TextEntity `json:"entities"`
}

// MessageContent keeps the parts of a message this client cares about: the
// text of messageText and the caption of media messages.
type MessageContent struct {
	Kind    string         `json:"@type"`
	Text    *FormattedText `json:"text,omitempty"`
	Caption *FormattedText `json:"caption,omitempty"`
}

// UnmarshalJSON keeps text and caption only when they are formattedText
// objects. Some contents, such as messageCustomServiceAction, carry a plain
// string under the same key.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var v MessageContent
	d := jx.DecodeBytes(data)
	if d.Next() == jx.Null {
		*c = v
		return nil
	}
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var dst **FormattedText
		switch string(key) {
		case "@type":
			s, err := d.Str()
			v.Kind = s
			return err
		case "text":
			dst = &v.Text
		case "caption":
			dst = &v.Caption
		default:
			return d.Skip()
		}
		if d.Next() != jx.Object {
			return d.Skip()
		}
		raw, err := d.Raw()
		if err != nil {
			return err
		}
		ft := &FormattedText{}
		if err := json.Unmarshal(raw, ft); err != nil {
			return errors.Wrapf(err, "decode %s", key)
		}
		*dst = ft
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "decode message content")
	}
	*c = v
	return nil
}

// PlainText returns the message text or media caption.
func (c MessageContent) PlainText() string {
	switch c.Kind {
	case "messageText":
		if c.Text != nil {
			return c.Text.Text
		}
	case "messagePhoto", "messageVideo", "messageDocument", "messageAnimation", "messageAudio":
		if c.Caption != nil {
			return c.Caption.Text
		}
	}
	return ""
}

type Message struct {
	ID      int64          `json:"id"`
	ChatID  int64          `json:"chat_id"`
	Date    int32          `json:"date"`
	Content MessageContent `json:"content"`
}

// ServerID converts a TDLib message id to the id used in t.me links.
func (m Message) ServerID() int64 { return m.ID >> 20 }

type Messages struct {
	TotalCount int32     `json:"total_count"`
	Messages   []Message `json:"messages"`
}

type Supergroup struct {
	ID          int64      `json:"id"`
	Usernames   *Usernames `json:"usernames"`
	MemberCount int32      `json:"member_count"`
	IsChannel   Bool       `json:"is_channel"`
}

const (
	AuthorizationStateWaitTdlibParameters = "authorizationStateWaitTdlibParameters"
	AuthorizationStateWaitEncryptionKey   = "authorizationStateWaitEncryptionKey"
	AuthorizationStateWaitPhoneNumber     = "authorizationStateWaitPhoneNumber"
	AuthorizationStateWaitCode            = "authorizationStateWaitCode"
	AuthorizationStateWaitPassword        = "authorizationStateWaitPassword"
	AuthorizationStateReady               = "authorizationStateReady"
	AuthorizationStateLoggingOut          = "authorizationStateLoggingOut"
	AuthorizationStateClosing             = "authorizationStateClosing"
	AuthorizationStateClosed              = "authorizationStateClosed"
)

type AuthorizationState struct {
	Kind string `json:"@type"`
}
