package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gopherchat/backend/internal/common"
	"github.com/gopherchat/backend/internal/media"
)

func (h *Handler) UploadMedia(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10007, "file required")
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	mediaType, allowed := media.TypeForMime(mimeType)
	if !allowed {
		common.Fail(c, http.StatusBadRequest, 10008, "unsupported file type, only images and videos allowed")
		return
	}

	maxSize := h.Cfg.MaxUploadBytes
	if maxSize <= 0 {
		maxSize = media.MaxFileSize
	}
	if fileHeader.Size > maxSize {
		common.Fail(c, http.StatusRequestEntityTooLarge, 10009, "file too large")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50009, "failed to read upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50009, "failed to read upload")
		return
	}
	if int64(len(data)) > maxSize {
		common.Fail(c, http.StatusRequestEntityTooLarge, 10009, "file too large")
		return
	}

	filename, url, err := h.MediaStore.Save(uid, fileHeader.Filename, data)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50010, "failed to store file")
		return
	}

	m := &media.Media{
		UserID:   uid,
		Type:     mediaType,
		Filename: filename,
		URL:      url,
		MimeType: mimeType,
		Size:     int64(len(data)),
	}
	if err := h.Media.Create(c.Request.Context(), m); err != nil {
		// the row is the record of truth; drop the orphaned file
		_ = h.MediaStore.Remove(uid, filename)
		common.Fail(c, http.StatusInternalServerError, 50011, "failed to save media record")
		return
	}

	common.OK(c, gin.H{"media": m})
}

func (h *Handler) ListMedia(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	items, err := h.Media.ListByUser(c.Request.Context(), uid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50012, "failed to list media")
		return
	}
	if items == nil {
		items = []media.Media{}
	}

	common.OK(c, gin.H{"media": items})
}

func (h *Handler) DeleteMedia(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	id, err := strconv.ParseUint(c.Param("media_id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10006, "invalid media id")
		return
	}

	m, err := h.Media.GetByUserAndID(c.Request.Context(), uid, id)
	if err != nil {
		if errors.Is(err, media.ErrMediaNotFound) {
			common.Fail(c, http.StatusNotFound, 40407, "media not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50013, "failed to delete media")
		return
	}

	if err := h.MediaStore.Remove(uid, m.Filename); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50013, "failed to delete media")
		return
	}
	if err := h.Media.Delete(c.Request.Context(), uid, id); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50013, "failed to delete media")
		return
	}

	common.OK(c, gin.H{"deleted": id})
}
