package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apihttp "github.com/cutroom/cutroom-backend/internal/api/http"
	"github.com/cutroom/cutroom-backend/internal/auth"
	"github.com/cutroom/cutroom-backend/internal/auth/domain"
	projects "github.com/cutroom/cutroom-backend/internal/projects/domain"
)

// GetProfile returns the current user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.profiles.GetProfile(c.Request.Context(), auth.UserFirebaseUID(c))
	if err != nil {
		apihttp.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": profile})
}

// SyncUser creates or refreshes the caller's profile. It is called after
// every sign-in; the role is only read the first time.
func (h *Handler) SyncUser(c *gin.Context) {
	var body syncBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			apihttp.BadRequest(c, "invalid JSON body")
			return
		}
	}

	// email from the token wins over the body
	email := auth.UserEmail(c)
	if email == "" {
		email = body.Email
	}

	user, err := h.profiles.SyncUser(c.Request.Context(), domain.SyncRequest{
		FirebaseUID: auth.UserFirebaseUID(c),
		Email:       email,
		DisplayName: body.DisplayName,
		PhotoURL:    body.PhotoURL,
		Role:        projects.Role(body.Role),
	})
	if err != nil {
		apihttp.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})
}

// UpdateProfile updates the user's profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	var body updateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		apihttp.BadRequest(c, "invalid request body")
		return
	}

	user, err := h.profiles.UpdateProfile(c.Request.Context(), auth.UserFirebaseUID(c), domain.UpdateRequest{
		DisplayName: body.DisplayName,
		PhotoURL:    body.PhotoURL,
		Bio:         body.Bio,
	})
	if err != nil {
		apihttp.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})
}

// GetUser returns another user's public profile.
func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.profiles.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		apihttp.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})
}
