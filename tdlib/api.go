package tdlib

import (
	"context"

	"github.com/go-faster/errors"
)

func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var u User
	if err := c.Send(ctx, &GetMe{}, &u); err != nil {
		return nil, errors.Wrap(err, "getMe")
	}
	return &u, nil
}

// LoadChats loads up to limit more chats of list. Chats are delivered as
// updateNewChat; ErrAllChatsLoaded is returned once the list is exhausted.
func (c *Client) LoadChats(ctx context.Context, list ChatList, limit int32) error {
	err := c.Send(ctx, &LoadChats{ChatList: list, Limit: limit}, nil)
	if tdErr, ok := asError(err); ok && tdErr.IsNotFound() {
		return ErrAllChatsLoaded
	}
	if err != nil {
		return errors.Wrap(err, "loadChats")
	}
	return nil
}

func (c *Client) GetChats(ctx context.Context, list ChatList, limit int32) (*Chats, error) {
	var chats Chats
	if err := c.Send(ctx, &GetChats{ChatList: list, Limit: limit}, &chats); err != nil {
		return nil, errors.Wrap(err, "getChats")
	}
	return &chats, nil
}

func (c *Client) GetChat(ctx context.Context, chatID int64) (*Chat, error) {
	var chat Chat
	if err := c.Send(ctx, &GetChat{ChatID: chatID}, &chat); err != nil {
		return nil, errors.Wrapf(err, "getChat %d", chatID)
	}
	return &chat, nil
}

func (c *Client) GetChatHistory(ctx context.Context, chatID, fromMessageID int64, offset, limit int32, onlyLocal bool) (*Messages, error) {
	var msgs Messages
	req := &GetChatHistory{
		ChatID:        chatID,
		FromMessageID: fromMessageID,
		Offset:        offset,
		Limit:         limit,
		OnlyLocal:     onlyLocal,
	}
	if err := c.Send(ctx, req, &msgs); err != nil {
		return nil, errors.Wrapf(err, "getChatHistory %d", chatID)
	}
	return &msgs, nil
}

func (c *Client) GetSupergroup(ctx context.Context, supergroupID int64) (*Supergroup, error) {
	var sg Supergroup
	if err := c.Send(ctx, &GetSupergroup{SupergroupID: supergroupID}, &sg); err != nil {
		return nil, errors.Wrapf(err, "getSupergroup %d", supergroupID)
	}
	return &sg, nil
}

func (c *Client) ViewMessages(ctx context.Context, chatID int64, messageIDs []int64, forceRead bool) error {
	req := &ViewMessages{ChatID: chatID, MessageIDs: messageIDs, ForceRead: forceRead}
	if err := c.Send(ctx, req, nil); err != nil {
		return errors.Wrapf(err, "viewMessages %d", chatID)
	}
	return nil
}
