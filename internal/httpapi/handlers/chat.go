package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gopherchat/backend/internal/chat"
	"github.com/gopherchat/backend/internal/common"
)

func (h *Handler) CreateChat(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	created, err := h.ChatSvc.CreateChat(c.Request.Context(), uid)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10010, "failed to create chat")
		return
	}

	if h.Redis != nil {
		h.Redis.InvalidateChatList(c.Request.Context(), uid)
	}

	common.OK(c, gin.H{
		"chat_id":    created.ChatID,
		"title":      created.Title,
		"created_at": created.CreatedAt,
	})
}

func (h *Handler) ListChats(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	if h.Redis != nil {
		if chats, hit := h.Redis.GetChatList(c.Request.Context(), uid); hit {
			common.OK(c, gin.H{"chats": chats})
			return
		}
	}

	chats, err := h.ChatSvc.ListChats(c.Request.Context(), uid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list chats")
		return
	}
	if chats == nil {
		chats = []chat.Chat{}
	}

	if h.Redis != nil {
		h.Redis.SetChatList(c.Request.Context(), uid, chats)
	}

	common.OK(c, gin.H{"chats": chats})
}

func (h *Handler) GetChatMessages(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	chatID := c.Param("chat_id")

	// Scoped by owner: a foreign chat id answers with an empty transcript,
	// indistinguishable from an owned chat with no messages.
	msgs, err := h.ChatSvc.GetMessages(c.Request.Context(), uid, chatID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to list messages")
		return
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}

	common.OK(c, gin.H{"messages": msgs})
}

type sendMessageReq struct {
	Message string `json:"message" binding:"required"`
}

func (h *Handler) SendChatMessage(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "message required")
		return
	}

	chatID := c.Param("chat_id")

	reply, msgID, err := h.ChatSvc.SendMessage(c.Request.Context(), uid, chatID, req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrChatNotFound) {
			common.Fail(c, http.StatusNotFound, 40404, "chat not found")
			return
		}
		log.Printf("send_message failed uid=%d chat_id=%s err=%v", uid, chatID, err)
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to send message")
		return
	}

	common.OK(c, gin.H{
		"chat_id":    chatID,
		"reply":      reply,
		"message_id": msgID,
	})
}

func (h *Handler) SendChatMessageAsync(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "message required")
		return
	}

	chatID := c.Param("chat_id")

	idempoKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if len(idempoKey) > 128 {
		common.Fail(c, http.StatusBadRequest, 10004, "idempotency key too long")
		return
	}
	var idempoKeyPtr *string
	if idempoKey != "" {
		idempoKeyPtr = &idempoKey
	}

	// The caller's input is durable before anything is queued.
	if _, _, err := h.ChatSvc.InsertUserMessage(c.Request.Context(), uid, chatID, req.Message, idempoKeyPtr); err != nil {
		if errors.Is(err, chat.ErrChatNotFound) {
			common.Fail(c, http.StatusNotFound, 40404, "chat not found")
			return
		}
		log.Printf("async insert user message failed uid=%d chat_id=%s err=%v", uid, chatID, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	jobID, err := common.NewULID()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	j := &chat.Job{
		ID:             jobID,
		UserID:         uid,
		ChatID:         chatID,
		Prompt:         req.Message,
		IdempotencyKey: idempoKeyPtr,
		Status:         chat.JobQueued,
	}

	job, created, err := h.ChatSvc.CreateJobOrGetExisting(c.Request.Context(), j)
	if err != nil {
		log.Printf("create job failed uid=%d chat_id=%s job_id=%s err=%v", uid, chatID, jobID, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	// A dedupe hit that is still queued means an earlier publish never made
	// it out; publish again rather than stranding the job.
	if created || job.Status == chat.JobQueued {
		if err := h.Rabbit.PublishJob(c.Request.Context(), job.ID); err != nil {
			log.Printf("publish job failed uid=%d chat_id=%s job_id=%s err=%v", uid, chatID, job.ID, err)
			common.Fail(c, http.StatusInternalServerError, 50005, "enqueue failed")
			return
		}
	}

	common.OK(c, gin.H{"job_id": job.ID})
}

func (h *Handler) GetChatJob(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	jobID := c.Param("job_id")
	if jobID == "" {
		common.Fail(c, http.StatusBadRequest, 10005, "job_id required")
		return
	}

	j, err := h.ChatSvc.GetJob(c.Request.Context(), jobID)
	if err != nil {
		common.Fail(c, http.StatusNotFound, 40405, "job not found")
		return
	}
	if j.UserID != uid {
		// hide existence
		common.Fail(c, http.StatusNotFound, 40405, "job not found")
		return
	}

	common.OK(c, gin.H{
		"job": gin.H{
			"id":                j.ID,
			"chat_id":           j.ChatID,
			"status":            j.Status,
			"result_message_id": j.ResultMessageID,
			"error":             j.Error,
			"created_at":        j.CreatedAt,
			"updated_at":        j.UpdatedAt,
		},
	})
}
