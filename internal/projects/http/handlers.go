package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apihttp "github.com/cutroom/cutroom-backend/internal/api/http"
	"github.com/cutroom/cutroom-backend/internal/auth"
	"github.com/cutroom/cutroom-backend/internal/projects/domain"
	"github.com/cutroom/cutroom-backend/internal/projects/service"
	"github.com/cutroom/cutroom-backend/internal/projects/workflow"
)

func view(actorID string, p *domain.Project) projectView {
	v := projectView{Project: p, AllowedTransitions: []domain.Status{}}
	if role, ok := p.RoleOf(actorID); ok {
		v.AllowedTransitions = workflow.AllowedTargets(role, p.Status)
	}
	return v
}

func respond(c *gin.Context, status int, actorID string, p *domain.Project) {
	c.Header("ETag", strconv.Quote(strconv.FormatInt(p.Version, 10)))
	c.JSON(status, gin.H{"ok": true, "project": view(actorID, p)})
}

// ifMatch reads the expected version from the If-Match header. Both
// "3" and the quoted ETag form are accepted.
func ifMatch(c *gin.Context) (*int64, bool) {
	raw := strings.TrimSpace(c.GetHeader("If-Match"))
	if raw == "" {
		return nil, true
	}
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 1 {
		return nil, false
	}
	return &v, true
}

func (h *Handler) create(c *gin.Context) {
	var req service.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apihttp.BadRequest(c, "invalid body")
		return
	}

	userID := auth.UserFirebaseUID(c)
	p, err := h.projects.CreateProject(c.Request.Context(), userID, req)
	if err != nil {
		apihttp.WriteError(c, err)
		return
	}
	respond(c, http.StatusCreated, userID, p)
}

func (h *Handler) list(c *gin.Context) {
	q := domain.ListQuery{Status: domain.Status(c.Query("status"))}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			apihttp.BadRequest(c, "limit must be a number")
			return
		}
		q.Limit = n
	}

	userID := auth.UserFirebaseUID(c)
	items, err := h.projects.ListProjects(c.Request.Context(), userID, q)
	if err != nil {
		apihttp.WriteError(c, err)
		return
	}
	views := make([]projectView, 0, len(items))
	for _, p := range items {
		views = append(views, view(userID, p))
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": views})
}

func (h *Handler) get(c *gin.Context) {
	userID := auth.UserFirebaseUID(c)
	p, err := h.projects.GetProject(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		apihttp.WriteError(c, err)
		return
	}
	respond(c, http.StatusOK, userID, p)
}

func (h *Handler) update(c *gin.Context) {
	var req service.MetadataPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		apihttp.BadRequest(c, "invalid body")
		return
	}
	if req.ExpectedVersion == nil {
		v, ok := ifMatch(c)
		if !ok {
			apihttp.BadRequest(c, "If-Match must carry a project version")
			return
		}
		req.ExpectedVersion = v
	}

	userID := auth.UserFirebaseUID(c)
	p, err := h.projects.UpdateMetadata(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		apihttp.WriteError(c, err)
		return
	}
	respond(c, http.StatusOK, userID, p)
}

func (h *Handler) changeStatus(c *gin.Context) {
	var req service.StatusChange
	if err := c.ShouldBindJSON(&req); err != nil {
		apihttp.BadRequest(c, "invalid body")
		return
	}
	if req.ExpectedVersion == nil {
		v, ok := ifMatch(c)
		if !ok {
			apihttp.BadRequest(c, "If-Match must carry a project version")
			return
		}
		req.ExpectedVersion = v
	}

	userID := auth.UserFirebaseUID(c)
	p, err := h.projects.ChangeStatus(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		apihttp.WriteError(c, err)
		return
	}
	respond(c, http.StatusOK, userID, p)
}

func (h *Handler) addFeedback(c *gin.Context) {
	var req feedbackReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apihttp.BadRequest(c, "invalid body")
		return
	}

	userID := auth.UserFirebaseUID(c)
	p, err := h.projects.AddFeedback(c.Request.Context(), userID, c.Param("id"), req.Message)
	if err != nil {
		apihttp.WriteError(c, err)
		return
	}
	respond(c, http.StatusCreated, userID, p)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.projects.DeleteProject(c.Request.Context(), auth.UserFirebaseUID(c), c.Param("id")); err != nil {
		apihttp.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
