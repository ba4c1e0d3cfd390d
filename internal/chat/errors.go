package chat

import "errors"

// ErrChatNotFound hides foreign chats: a chat owned by another user and a
// chat that does not exist are indistinguishable to the caller.
var ErrChatNotFound = errors.New("chat not found")
