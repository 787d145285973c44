package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cutroom/cutroom-backend/internal/logging"
	"github.com/cutroom/cutroom-backend/internal/projects/domain"
)

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind domain.Kind) int {
	switch kind {
	case domain.KindNotParticipant, domain.KindOwnerOnly:
		return http.StatusForbidden
	case domain.KindInvalidTransition, domain.KindConflict:
		return http.StatusConflict
	case domain.KindEmptyFeedback, domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUpstream:
		return http.StatusBadGateway
	case domain.KindInvalidCredential:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// WriteError renders err as {"ok": false, "error": ..., "code": ...}.
// Unclassified errors are logged and hidden behind a generic message.
func WriteError(c *gin.Context, err error) {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		logging.New(c.Request.Context()).Error(c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error", "code": "internal"})
		return
	}

	body := gin.H{"ok": false, "error": derr.Error(), "code": derr.Kind}
	if len(derr.Fields) > 0 {
		body["details"] = derr.Fields
	}
	if derr.Retryable() {
		body["retryable"] = true
	}
	c.AbortWithStatusJSON(StatusOf(derr.Kind), body)
}

// BadRequest reports a body or query that could not be decoded.
func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"ok": false, "error": msg, "code": domain.KindValidation})
}
