package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/GoSim-25-26J-441/diagram-service/internal/roles"
	"github.com/gin-gonic/gin"
)

type RoleResolver interface {
	EnsureRole(ctx context.Context, u roles.UpsertRole) (string, error)
}

// WithRole resolves the caller into a role and stores an *Authz on the
// context. The caller is taken from the Firebase UID when present; with
// trustHeader the X-User-Id header is accepted as well (development only).
// Requests without a caller continue anonymously.
func WithRole(resolver RoleResolver, perms PermissionSource, trustHeader bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		fuid := UserFirebaseUID(c)
		email := c.GetString(CtxEmail)
		if fuid == "" && trustHeader {
			fuid = strings.TrimSpace(c.GetHeader("X-User-Id"))
			email = c.GetHeader("X-User-Email")
		}

		if fuid == "" {
			c.Set(CtxAuthz, Anonymous())
			c.Next()
			return
		}

		roleID, err := resolver.EnsureRole(c.Request.Context(), roles.UpsertRole{
			ForeignID: fuid,
			Email:     email,
			Name:      c.GetHeader("X-User-Name"),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "ensure role: " + err.Error()})
			c.Abort()
			return
		}

		c.Set(CtxFirebaseUID, fuid)
		c.Set(CtxAuthz, New(roleID, perms))
		c.Next()
	}
}
