package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cutroom/cutroom-backend/internal/auth"
	"github.com/cutroom/cutroom-backend/internal/logging"
	"github.com/cutroom/cutroom-backend/internal/projects/domain"
)

// Authenticate verifies the bearer credential and stores the subject in
// the Gin context. Requests without a valid credential stop here with 401.
func Authenticate(v auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"ok": false, "error": "missing authorization token", "code": domain.KindInvalidCredential,
			})
			return
		}

		id, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			logging.New(c.Request.Context()).Warnf("auth.verify", "rejected credential: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"ok": false, "error": "invalid token", "code": domain.KindInvalidCredential,
			})
			return
		}

		c.Set(auth.CtxFirebaseUID, id.Subject)
		if id.Email != "" {
			c.Set(auth.CtxEmail, id.Email)
		}
		c.Next()
	}
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.EqualFold(bearerToken[:7], "Bearer ") {
		return strings.TrimSpace(bearerToken[7:])
	}
	return ""
}
