package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxFirebaseUID = "firebase_uid"
	CtxEmail       = "email"
)

// UserFirebaseUID extracts the Firebase UID from the Gin context.
// This is set by the Authenticate middleware.
func UserFirebaseUID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxFirebaseUID))
}

// UserEmail returns the verified email, or "" when the credential had none.
func UserEmail(c *gin.Context) string {
	return c.GetString(CtxEmail)
}
