package http

import "github.com/gin-gonic/gin"

// Register attaches project routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.create)
	rg.GET("", h.list)
	rg.GET("/:id", h.get)
	rg.PATCH("/:id", h.update)
	rg.POST("/:id/status", h.changeStatus)
	rg.POST("/:id/feedback", h.addFeedback)
	rg.DELETE("/:id", h.delete)
	rg.GET("/:id/events", h.StreamProjectEvents)
}
