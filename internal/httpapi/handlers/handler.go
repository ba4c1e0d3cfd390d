package handlers

import (
	"context"

	"gorm.io/gorm"

	"github.com/gopherchat/backend/internal/ai"
	"github.com/gopherchat/backend/internal/chat"
	"github.com/gopherchat/backend/internal/config"
	"github.com/gopherchat/backend/internal/media"
	"github.com/gopherchat/backend/internal/project"
	"github.com/gopherchat/backend/internal/store/redisstore"
)

// JobPublisher enqueues an async generation job. *rabbitmq.Publisher is the
// production implementation.
type JobPublisher interface {
	PublishJob(ctx context.Context, jobID string) error
}

type Handler struct {
	DB      *gorm.DB
	Cfg     config.Config
	Redis   *redisstore.Store
	Rabbit  JobPublisher
	ChatSvc *chat.Service

	Projects   *project.Repo
	Media      *media.Repo
	MediaStore *media.DiskStore
}

func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store, rabbit JobPublisher) *Handler {
	repo := chat.NewRepo(db)
	chatSvc := chat.NewService(repo, newProviderRegistry(cfg), cfg.AIProvider, modelForProvider(cfg), cfg.ChatContextWindowSize)

	return &Handler{
		DB:         db,
		Cfg:        cfg,
		Redis:      rds,
		Rabbit:     rabbit,
		ChatSvc:    chatSvc,
		Projects:   project.NewRepo(db),
		Media:      media.NewRepo(db),
		MediaStore: media.NewDiskStore(cfg.UploadDir),
	}
}

// newProviderRegistry registers every gateway the config can actually reach.
// An unregistered provider name surfaces downstream as a placeholder reply,
// never as a request failure.
func newProviderRegistry(cfg config.Config) *ai.Registry {
	reg := ai.NewRegistry()

	if cfg.GeminiAPIKey != "" {
		reg.Register("gemini", func(ctx context.Context, model string) (ai.Provider, error) {
			_ = ctx
			if model == "" {
				model = cfg.GeminiModel
			}
			return ai.NewGeminiProvider(cfg.GeminiBaseURL, cfg.GeminiAPIKey, model), nil
		})
	}

	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		if model == "" {
			model = cfg.OllamaModel
		}
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, model), nil
	})

	return reg
}

func modelForProvider(cfg config.Config) string {
	switch cfg.AIProvider {
	case "ollama":
		return cfg.OllamaModel
	default:
		return cfg.GeminiModel
	}
}
