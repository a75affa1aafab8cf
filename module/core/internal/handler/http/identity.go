package http

import (
	"context"
	"log"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
)

const (
	UserIDHeader = "X-User-ID"
	identityKey  = "identity"
)

type roleStore interface {
	EnsureRole(ctx context.Context, userID string, fallback domain.Role) (domain.Role, error)
}

// IdentityMiddleware resolves the caller's role, assigning the default role
// on first sight. Authentication happens upstream; the user id is trusted.
type IdentityMiddleware struct {
	roles    roleStore
	fallback domain.Role
}

func NewIdentityMiddleware(roles roleStore) *IdentityMiddleware {
	return &IdentityMiddleware{roles: roles, fallback: domain.RoleStudent}
}

func (m *IdentityMiddleware) Resolve(c *gin.Context) {
	userID := c.GetHeader(UserIDHeader)
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + UserIDHeader + " header"})
		return
	}

	role, err := m.roles.EnsureRole(c.Request.Context(), userID, m.fallback)
	if err != nil {
		log.Printf("resolve role %s: %v", userID, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve role"})
		return
	}

	c.Set(identityKey, domain.Identity{UserID: userID, Role: role})
	c.Next()
}

// RequireRole rejects callers whose role is not one of roles.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown caller"})
			return
		}
		if !slices.Contains(roles, id.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role " + string(id.Role) + " not allowed"})
			return
		}
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}
