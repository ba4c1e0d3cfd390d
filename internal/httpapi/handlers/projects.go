package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gopherchat/backend/internal/common"
	"github.com/gopherchat/backend/internal/project"
)

type createProjectReq struct {
	Text  string  `json:"text" binding:"required"`
	Title *string `json:"title"`
	Link  *string `json:"link"`
}

func (h *Handler) CreateProject(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req createProjectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "text required")
		return
	}

	p := &project.Project{
		UserID: uid,
		Text:   req.Text,
		Title:  req.Title,
		Link:   req.Link,
	}
	if err := h.Projects.Create(c.Request.Context(), p); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50006, "failed to create project")
		return
	}

	common.OK(c, gin.H{"project": p})
}

func (h *Handler) ListProjects(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	projects, err := h.Projects.ListByUser(c.Request.Context(), uid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50007, "failed to list projects")
		return
	}
	if projects == nil {
		projects = []project.Project{}
	}

	common.OK(c, gin.H{"projects": projects})
}

type migrateReq struct {
	Projects []createProjectReq `json:"projects" binding:"required"`
}

// MigrateProjects bulk-imports projects the client kept locally before it
// had an account. Entries without text are skipped rather than failing the
// whole batch.
func (h *Handler) MigrateProjects(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req migrateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "projects required")
		return
	}

	rows := make([]project.Project, 0, len(req.Projects))
	for _, p := range req.Projects {
		if p.Text == "" {
			continue
		}
		rows = append(rows, project.Project{
			UserID: uid,
			Text:   p.Text,
			Title:  p.Title,
			Link:   p.Link,
		})
	}

	if err := h.Projects.CreateBatch(c.Request.Context(), rows); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50006, "failed to migrate projects")
		return
	}

	common.OK(c, gin.H{"migrated": len(rows)})
}

func (h *Handler) DeleteProject(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	id, err := strconv.ParseUint(c.Param("project_id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10006, "invalid project id")
		return
	}

	if err := h.Projects.Delete(c.Request.Context(), uid, id); err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			common.Fail(c, http.StatusNotFound, 40406, "project not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50008, "failed to delete project")
		return
	}

	common.OK(c, gin.H{"deleted": id})
}
