package http

import "github.com/gin-gonic/gin"

// Register mounts the profile routes. rg must already be authenticated.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/sync", h.SyncUser)
	rg.GET("/me", h.GetProfile)
	rg.PUT("/me", h.UpdateProfile)
	rg.GET("/:id", h.GetUser)
}
