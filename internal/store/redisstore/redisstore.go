package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gopherchat/backend/internal/chat"
)

const chatListTTL = 30 * time.Second

// Store is a read-through cache in front of the chat listing. The database
// stays the source of truth; a cold or unreachable redis only costs a query.
type Store struct {
	client *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func chatListKey(userID uint64) string {
	return fmt.Sprintf("chatlist:%d", userID)
}

func (s *Store) GetChatList(ctx context.Context, userID uint64) ([]chat.Chat, bool) {
	raw, err := s.client.Get(ctx, chatListKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var chats []chat.Chat
	if err := json.Unmarshal(raw, &chats); err != nil {
		return nil, false
	}
	return chats, true
}

func (s *Store) SetChatList(ctx context.Context, userID uint64, chats []chat.Chat) {
	raw, err := json.Marshal(chats)
	if err != nil {
		return
	}
	_ = s.client.Set(ctx, chatListKey(userID), raw, chatListTTL).Err()
}

// InvalidateChatList drops the cached listing after a chat is created so a
// follow-up GET never misses the new chat.
func (s *Store) InvalidateChatList(ctx context.Context, userID uint64) {
	_ = s.client.Del(ctx, chatListKey(userID)).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
