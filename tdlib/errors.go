package tdlib

import "github.com/go-faster/errors"

var (
	// ErrClosed is returned by calls on a closed client.
	ErrClosed = errors.New("tdlib: client closed")
	// ErrAllChatsLoaded is returned by LoadChats once the list is exhausted.
	ErrAllChatsLoaded = errors.New("tdlib: all chats loaded")
	// ErrNoResult is returned when a synchronous request produced no
	// response, as happens with a transport built without TDLib.
	ErrNoResult = errors.New("tdlib: no result")
)

// asError unwraps a TDLib error object from err.
func asError(err error) (*Error, bool) {
	var tdErr *Error
	if errors.As(err, &tdErr) {
		return tdErr, true
	}
	return nil, false
}
