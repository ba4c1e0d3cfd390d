package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gopherchat/backend/internal/common"
	"github.com/gopherchat/backend/internal/config"
	"github.com/gopherchat/backend/internal/httpapi/handlers"
	"github.com/gopherchat/backend/internal/httpapi/middleware"
	"github.com/gopherchat/backend/internal/identity"
	"github.com/gopherchat/backend/internal/store/redisstore"
)

func NewRouter(db *gorm.DB, cfg config.Config, rds *redisstore.Store, rabbit handlers.JobPublisher, resolver identity.Resolver) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = []string{cfg.FrontendURL}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"}
	corsCfg.AllowCredentials = true
	r.Use(cors.New(corsCfg))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(db, cfg, rds, rabbit)

	r.GET("/ping", h.Ping)

	// auth
	r.POST("/auth/signup", h.Signup)
	r.POST("/auth/login", h.Login)

	// uploaded media is public by URL; the names are unguessable
	r.Static("/uploads", cfg.UploadDir)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(resolver))

	authGroup.GET("/me", h.Me)

	// chats
	authGroup.POST("/chats", h.CreateChat)
	authGroup.GET("/chats", h.ListChats)
	authGroup.GET("/chats/:chat_id/messages", h.GetChatMessages)
	authGroup.POST("/chats/:chat_id/message", h.SendChatMessage)
	authGroup.POST("/chats/:chat_id/message/async", h.SendChatMessageAsync)
	authGroup.GET("/chat/jobs/:job_id", h.GetChatJob)

	// project notes
	authGroup.POST("/user/projects", h.CreateProject)
	authGroup.GET("/user/projects", h.ListProjects)
	authGroup.DELETE("/user/projects/:project_id", h.DeleteProject)
	authGroup.POST("/user/migrate", h.MigrateProjects)

	// media
	authGroup.POST("/user/media", h.UploadMedia)
	authGroup.GET("/user/media", h.ListMedia)
	authGroup.DELETE("/user/media/:media_id", h.DeleteMedia)

	return r
}
