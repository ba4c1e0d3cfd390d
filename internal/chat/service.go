package chat

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/gopherchat/backend/internal/ai"
	"github.com/gopherchat/backend/internal/common"
)

// Store is what the service needs from persistence. *Repo is the production
// implementation.
type Store interface {
	CreateChat(ctx context.Context, c *Chat) error
	GetChatByChatID(ctx context.Context, chatID string) (*Chat, error)
	ListChats(ctx context.Context, userID uint64) ([]Chat, error)
	InsertMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, userID uint64, chatID string) ([]Message, error)
	ListRecentMessagesDesc(ctx context.Context, userID uint64, chatID string, limit int) ([]Message, error)
	InsertUserMessageOrGetExisting(ctx context.Context, userID uint64, chatID string, content string, key *string) (*Message, bool, error)
	CreateJobOrGetExisting(ctx context.Context, job *Job) (*Job, bool, error)
	GetJobByID(ctx context.Context, id string) (*Job, error)
}

type Service struct {
	repo              Store
	registry          *ai.Registry
	provider          string
	model             string
	contextWindowSize int
}

// NewService wires the store to the completion gateway. contextWindowSize
// limits how many recent messages are folded into the gateway context;
// 0 sends the whole transcript.
func NewService(repo Store, registry *ai.Registry, provider, model string, contextWindowSize int) *Service {
	if contextWindowSize < 0 {
		contextWindowSize = 0
	}
	return &Service{
		repo:              repo,
		registry:          registry,
		provider:          provider,
		model:             model,
		contextWindowSize: contextWindowSize,
	}
}

// Generation failure is never a request failure: the reply degrades to one
// of these strings and the turn completes normally.
const (
	ReplyNotConfigured = "AI provider is not configured."
	ReplyErrorPrefix   = "[assistant error] "
)

const assistantWriteAttempts = 3

func (s *Service) CreateChat(ctx context.Context, userID uint64) (*Chat, error) {
	cid, err := common.NewULID()
	if err != nil {
		return nil, err
	}

	c := &Chat{
		ChatID: cid,
		UserID: userID,
		Title:  DefaultTitle,
	}
	if err := s.repo.CreateChat(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ListChats(ctx context.Context, userID uint64) ([]Chat, error) {
	return s.repo.ListChats(ctx, userID)
}

// GetMessages is scoped by both keys; a foreign or unknown chat id reads as
// an empty transcript.
func (s *Service) GetMessages(ctx context.Context, userID uint64, chatID string) ([]Message, error) {
	return s.repo.ListMessages(ctx, userID, chatID)
}

// ValidateChatOwner hides foreign chats behind ErrChatNotFound.
func (s *Service) ValidateChatOwner(ctx context.Context, userID uint64, chatID string) error {
	c, err := s.repo.GetChatByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChatNotFound
		}
		return err
	}
	if c.UserID != userID {
		return ErrChatNotFound
	}
	return nil
}

// SendMessage runs one conversation turn:
//
//	ownership check -> persist user message -> read transcript ->
//	generate -> persist assistant message -> reply
//
// The user message is written before generation is attempted, so input is
// never lost to a model outage.
func (s *Service) SendMessage(ctx context.Context, userID uint64, chatID string, content string) (string, uint64, error) {
	if err := s.ValidateChatOwner(ctx, userID, chatID); err != nil {
		return "", 0, err
	}

	userMsg := &Message{
		ChatID:  chatID,
		UserID:  userID,
		Role:    RoleUser,
		Content: content,
	}
	if err := s.repo.InsertMessage(ctx, userMsg); err != nil {
		return "", 0, err
	}

	reply, err := s.generateReply(ctx, userID, chatID)
	if err != nil {
		return "", 0, err
	}

	assistantMsg, err := s.insertAssistantMessage(ctx, userID, chatID, reply)
	if err != nil {
		return "", 0, err
	}

	return reply, assistantMsg.ID, nil
}

// generateReply folds the transcript into gateway context and asks for a
// completion. Gateway errors come back as a placeholder reply, not an error;
// only storage errors propagate.
func (s *Service) generateReply(ctx context.Context, userID uint64, chatID string) (string, error) {
	transcript, err := s.transcriptForContext(ctx, userID, chatID)
	if err != nil {
		return "", err
	}

	provider, err := s.registry.Get(ctx, s.provider, s.model)
	if err != nil {
		return ReplyNotConfigured, nil
	}

	reply, err := provider.Chat(ctx, transcript)
	if err != nil {
		return ReplyErrorPrefix + err.Error(), nil
	}
	if reply == "" {
		return ReplyErrorPrefix + "empty completion", nil
	}
	return reply, nil
}

func (s *Service) transcriptForContext(ctx context.Context, userID uint64, chatID string) ([]ai.Message, error) {
	var msgs []Message
	var err error

	if s.contextWindowSize > 0 {
		recentDesc, rerr := s.repo.ListRecentMessagesDesc(ctx, userID, chatID, s.contextWindowSize)
		if rerr != nil {
			return nil, rerr
		}
		// reverse to ASC (oldest -> newest)
		msgs = make([]Message, 0, len(recentDesc))
		for i := len(recentDesc) - 1; i >= 0; i-- {
			msgs = append(msgs, recentDesc[i])
		}
	} else {
		msgs, err = s.repo.ListMessages(ctx, userID, chatID)
		if err != nil {
			return nil, err
		}
	}

	out := make([]ai.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ai.Message{Role: m.Role, Content: m.Content})
	}
	return out, nil
}

// insertAssistantMessage retries the write a few times: by this point the
// user message is durable and the completion is in hand, so giving up
// cheaply would throw away a finished turn.
func (s *Service) insertAssistantMessage(ctx context.Context, userID uint64, chatID string, reply string) (*Message, error) {
	m := &Message{
		ChatID:  chatID,
		UserID:  userID,
		Role:    RoleAssistant,
		Content: reply,
	}

	var err error
	for attempt := 0; attempt < assistantWriteAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if err = s.repo.InsertMessage(ctx, m); err == nil {
			return m, nil
		}
	}
	return nil, err
}

// InsertUserMessage persists the caller's input ahead of async generation.
func (s *Service) InsertUserMessage(ctx context.Context, userID uint64, chatID string, content string, key *string) (*Message, bool, error) {
	if err := s.ValidateChatOwner(ctx, userID, chatID); err != nil {
		return nil, false, err
	}
	return s.repo.InsertUserMessageOrGetExisting(ctx, userID, chatID, content, key)
}

// GenerateAssistantReplyAndInsert is the worker half of an async turn: the
// user message is already stored, so it only assembles context, generates
// and appends the assistant message.
func (s *Service) GenerateAssistantReplyAndInsert(ctx context.Context, userID uint64, chatID string) (string, uint64, error) {
	if err := s.ValidateChatOwner(ctx, userID, chatID); err != nil {
		return "", 0, err
	}

	reply, err := s.generateReply(ctx, userID, chatID)
	if err != nil {
		return "", 0, err
	}

	assistantMsg, err := s.insertAssistantMessage(ctx, userID, chatID, reply)
	if err != nil {
		return "", 0, err
	}
	return reply, assistantMsg.ID, nil
}

func (s *Service) CreateJobOrGetExisting(ctx context.Context, job *Job) (*Job, bool, error) {
	return s.repo.CreateJobOrGetExisting(ctx, job)
}

func (s *Service) GetJob(ctx context.Context, jobID string) (*Job, error) {
	return s.repo.GetJobByID(ctx, jobID)
}
