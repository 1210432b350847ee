package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxFirebaseUID = "firebase_uid"
	CtxEmail       = "email"
	CtxAuthz       = "authz"
)

// UserFirebaseUID extracts the Firebase UID from the Gin context
// This is set by FirebaseAuthMiddleware
func UserFirebaseUID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxFirebaseUID))
}

// FromContext returns the request's Authz, or an anonymous one when the
// middleware did not run.
func FromContext(c *gin.Context) *Authz {
	if v, ok := c.Get(CtxAuthz); ok {
		if a, ok := v.(*Authz); ok {
			return a
		}
	}
	return Anonymous()
}
