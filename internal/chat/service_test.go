package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/gopherchat/backend/internal/ai"
)

type recordingProvider struct {
	last  []ai.Message
	reply string
}

func (p *recordingProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	_ = ctx
	// copy to avoid mutations
	p.last = append([]ai.Message(nil), messages...)
	if p.reply == "" {
		return "ok", nil
	}
	return p.reply, nil
}

type failingProvider struct{}

func (p *failingProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	_ = ctx
	_ = messages
	return "", errors.New("model unreachable")
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Chat{}, &Message{}, &Job{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, provider ai.Provider, window int) *Service {
	t.Helper()
	reg := ai.NewRegistry()
	reg.Register("fake", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		_ = model
		return provider, nil
	})
	return NewService(NewRepo(db), reg, "fake", "default", window)
}

func TestSendMessage_WritesUserAndAssistant(t *testing.T) {
	db := openTestDB(t)
	prov := &recordingProvider{}
	svc := newTestService(t, db, prov, 0)

	created, err := svc.CreateChat(context.Background(), 1)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if created.ChatID == "" || created.Title != DefaultTitle {
		t.Fatalf("unexpected chat: id=%q title=%q", created.ChatID, created.Title)
	}

	reply, assistantID, err := svc.SendMessage(context.Background(), 1, created.ChatID, "Hello")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if reply != "ok" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if assistantID == 0 {
		t.Fatalf("expected assistant message id to be set")
	}

	msgs, err := svc.GetMessages(context.Background(), 1, created.ChatID)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != "Hello" {
		t.Fatalf("unexpected user msg: role=%q content=%q", msgs[0].Role, msgs[0].Content)
	}
	if msgs[1].Role != RoleAssistant || msgs[1].Content != "ok" {
		t.Fatalf("unexpected assistant msg: role=%q content=%q", msgs[1].Role, msgs[1].Content)
	}
	if msgs[1].CreatedAt.Before(msgs[0].CreatedAt) {
		t.Fatalf("assistant message predates user message")
	}
}

func TestSendMessage_ForeignChatRejected(t *testing.T) {
	db := openTestDB(t)
	prov := &recordingProvider{}
	svc := newTestService(t, db, prov, 0)

	created, err := svc.CreateChat(context.Background(), 1)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	// user 2 guesses user 1's chat id
	if _, _, err := svc.SendMessage(context.Background(), 2, created.ChatID, "sneak"); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}

	// nothing was written against the chat
	msgs, err := svc.GetMessages(context.Background(), 1, created.ChatID)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no messages, got %d", len(msgs))
	}
}

func TestSendMessage_UnknownChatRejected(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db, &recordingProvider{}, 0)

	if _, _, err := svc.SendMessage(context.Background(), 1, "01NOSUCHCHAT00000000000000", "hi"); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
}

func TestSendMessage_GenerationFailureDegrades(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db, &failingProvider{}, 0)

	created, err := svc.CreateChat(context.Background(), 3)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	reply, _, err := svc.SendMessage(context.Background(), 3, created.ChatID, "Hello")
	if err != nil {
		t.Fatalf("generation failure must not fail the request: %v", err)
	}
	if !strings.HasPrefix(reply, ReplyErrorPrefix) {
		t.Fatalf("expected placeholder reply, got %q", reply)
	}

	msgs, err := svc.GetMessages(context.Background(), 3, created.ChatID)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected user+assistant despite failure, got %d messages", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != "Hello" {
		t.Fatalf("user input was lost: role=%q content=%q", msgs[0].Role, msgs[0].Content)
	}
	if msgs[1].Role != RoleAssistant || msgs[1].Content != reply {
		t.Fatalf("assistant placeholder not persisted: role=%q content=%q", msgs[1].Role, msgs[1].Content)
	}
}

func TestSendMessage_UnconfiguredProviderDegrades(t *testing.T) {
	db := openTestDB(t)
	// empty registry: the configured provider name resolves to nothing
	svc := NewService(NewRepo(db), ai.NewRegistry(), "gemini", "gemini-1.5-flash", 0)

	created, err := svc.CreateChat(context.Background(), 4)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	reply, _, err := svc.SendMessage(context.Background(), 4, created.ChatID, "Hello")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if reply != ReplyNotConfigured {
		t.Fatalf("expected %q, got %q", ReplyNotConfigured, reply)
	}
}

func TestSendMessage_FullTranscriptContext(t *testing.T) {
	db := openTestDB(t)
	prov := &recordingProvider{}
	svc := newTestService(t, db, prov, 0)
	repo := NewRepo(db)

	created, err := svc.CreateChat(context.Background(), 5)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	for i := 0; i < 5; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		if err := repo.InsertMessage(context.Background(), &Message{
			ChatID:  created.ChatID,
			UserID:  5,
			Role:    role,
			Content: "seed",
		}); err != nil {
			t.Fatalf("seed msg %d: %v", i, err)
		}
	}

	if _, _, err := svc.SendMessage(context.Background(), 5, created.ChatID, "new"); err != nil {
		t.Fatalf("send message: %v", err)
	}

	// whole transcript, just-written message included and last
	if len(prov.last) != 6 {
		t.Fatalf("expected provider to receive 6 messages, got %d", len(prov.last))
	}
	last := prov.last[len(prov.last)-1]
	if last.Role != RoleUser || last.Content != "new" {
		t.Fatalf("expected last provider msg to be new user msg, got role=%q content=%q", last.Role, last.Content)
	}
}

func TestSendMessage_UsesContextWindow(t *testing.T) {
	db := openTestDB(t)
	prov := &recordingProvider{}
	window := 3
	svc := newTestService(t, db, prov, window)
	repo := NewRepo(db)

	created, err := svc.CreateChat(context.Background(), 6)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	for i := 0; i < 5; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		if err := repo.InsertMessage(context.Background(), &Message{
			ChatID:  created.ChatID,
			UserID:  6,
			Role:    role,
			Content: "seed",
		}); err != nil {
			t.Fatalf("seed msg %d: %v", i, err)
		}
	}

	if _, _, err := svc.SendMessage(context.Background(), 6, created.ChatID, "new"); err != nil {
		t.Fatalf("send message: %v", err)
	}

	if len(prov.last) != window {
		t.Fatalf("expected provider to receive %d messages, got %d", window, len(prov.last))
	}
	last := prov.last[len(prov.last)-1]
	if last.Role != RoleUser || last.Content != "new" {
		t.Fatalf("expected last provider msg to be new user msg, got role=%q content=%q", last.Role, last.Content)
	}
}

// flakyStore fails the first assistantFailures assistant-message writes and
// delegates everything else to the real repo.
type flakyStore struct {
	*Repo
	assistantFailures int
	assistantCalls    int
	onFail            func()
}

func (s *flakyStore) InsertMessage(ctx context.Context, m *Message) error {
	if m.Role == RoleAssistant {
		s.assistantCalls++
		if s.assistantCalls <= s.assistantFailures {
			if s.onFail != nil {
				s.onFail()
			}
			return errors.New("insert failed")
		}
	}
	return s.Repo.InsertMessage(ctx, m)
}

func newStoreService(t *testing.T, store Store, provider ai.Provider) *Service {
	t.Helper()
	reg := ai.NewRegistry()
	reg.Register("fake", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		_ = model
		return provider, nil
	})
	return NewService(store, reg, "fake", "default", 0)
}

func TestSendMessage_RetriesAssistantWrite(t *testing.T) {
	db := openTestDB(t)
	store := &flakyStore{Repo: NewRepo(db), assistantFailures: 2}
	svc := newStoreService(t, store, &recordingProvider{})

	created, err := svc.CreateChat(context.Background(), 12)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	reply, assistantID, err := svc.SendMessage(context.Background(), 12, created.ChatID, "Hello")
	if err != nil {
		t.Fatalf("send message should survive transient write failures: %v", err)
	}
	if reply != "ok" || assistantID == 0 {
		t.Fatalf("unexpected result: reply=%q id=%d", reply, assistantID)
	}
	if store.assistantCalls != 3 {
		t.Fatalf("expected 3 write attempts, got %d", store.assistantCalls)
	}

	msgs, err := svc.GetMessages(context.Background(), 12, created.ChatID)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 2 || msgs[1].Role != RoleAssistant {
		t.Fatalf("expected user+assistant after retries, got %d messages", len(msgs))
	}
}

func TestSendMessage_AssistantWriteExhaustsRetries(t *testing.T) {
	db := openTestDB(t)
	store := &flakyStore{Repo: NewRepo(db), assistantFailures: assistantWriteAttempts}
	svc := newStoreService(t, store, &recordingProvider{})

	created, err := svc.CreateChat(context.Background(), 13)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	if _, _, err := svc.SendMessage(context.Background(), 13, created.ChatID, "Hello"); err == nil {
		t.Fatalf("expected error once every attempt failed")
	}
	if store.assistantCalls != assistantWriteAttempts {
		t.Fatalf("expected %d write attempts, got %d", assistantWriteAttempts, store.assistantCalls)
	}

	// the user message is still durable
	msgs, err := svc.GetMessages(context.Background(), 13, created.ChatID)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Role != RoleUser {
		t.Fatalf("expected only the user message, got %d messages", len(msgs))
	}
}

func TestSendMessage_AssistantWriteStopsOnCanceledContext(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &flakyStore{Repo: NewRepo(db), assistantFailures: assistantWriteAttempts, onFail: cancel}
	svc := newStoreService(t, store, &recordingProvider{})

	created, err := svc.CreateChat(context.Background(), 14)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	_, _, err = svc.SendMessage(ctx, 14, created.ChatID, "Hello")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// cancellation short-circuits the backoff, no second attempt
	if store.assistantCalls != 1 {
		t.Fatalf("expected 1 write attempt, got %d", store.assistantCalls)
	}
}

func TestGetMessages_OwnershipIsolation(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db, &recordingProvider{}, 0)

	created, err := svc.CreateChat(context.Background(), 7)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if _, _, err := svc.SendMessage(context.Background(), 7, created.ChatID, "secret"); err != nil {
		t.Fatalf("send message: %v", err)
	}

	// user 8 reads user 7's chat id: empty, not an error
	msgs, err := svc.GetMessages(context.Background(), 8, created.ChatID)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("foreign transcript leaked: %d messages", len(msgs))
	}
}

func TestListChats_ScopedAndNewestFirst(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db, &recordingProvider{}, 0)

	first, err := svc.CreateChat(context.Background(), 9)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	second, err := svc.CreateChat(context.Background(), 9)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if _, err := svc.CreateChat(context.Background(), 10); err != nil {
		t.Fatalf("create chat: %v", err)
	}

	chats, err := svc.ListChats(context.Background(), 9)
	if err != nil {
		t.Fatalf("list chats: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("expected 2 chats, got %d", len(chats))
	}
	if chats[0].ChatID != second.ChatID || chats[1].ChatID != first.ChatID {
		t.Fatalf("expected newest first, got %q then %q", chats[0].ChatID, chats[1].ChatID)
	}

	// pure read: a second call with no writes in between is identical
	again, err := svc.ListChats(context.Background(), 9)
	if err != nil {
		t.Fatalf("list chats again: %v", err)
	}
	if len(again) != len(chats) || again[0].ChatID != chats[0].ChatID || again[1].ChatID != chats[1].ChatID {
		t.Fatalf("listing changed between identical reads")
	}
}

func TestGetMessages_AppendOnlyOrder(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db, &recordingProvider{}, 0)

	created, err := svc.CreateChat(context.Background(), 11)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	var prev []Message
	for i := 0; i < 3; i++ {
		if _, _, err := svc.SendMessage(context.Background(), 11, created.ChatID, "turn"); err != nil {
			t.Fatalf("send message %d: %v", i, err)
		}
		msgs, err := svc.GetMessages(context.Background(), 11, created.ChatID)
		if err != nil {
			t.Fatalf("get messages: %v", err)
		}
		if len(msgs) != len(prev)+2 {
			t.Fatalf("expected %d messages, got %d", len(prev)+2, len(msgs))
		}
		for j := range prev {
			if msgs[j].ID != prev[j].ID {
				t.Fatalf("existing message order changed at %d", j)
			}
		}
		prev = msgs
	}
}
