package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
)

const sessionKey = "session"

// Session is an authenticated caller: the administrator, or a seller with
// their id attached.
type Session struct {
	Role     Role   `json:"role"`
	SellerID string `json:"seller_id,omitempty"`
}

// SessionStore resolves bearer tokens to sessions.
type SessionStore interface {
	GetSession(ctx context.Context, token string) (*Session, error)
}

// Auth resolves an optional Authorization bearer token into a session on the
// context. Requests without a token pass through anonymous; the Require*
// middlewares below gate the protected routes.
func Auth(store SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		session, err := store.GetSession(c.Request.Context(), token)
		if err != nil || session == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// GetSession returns the session attached to the request, if any.
func GetSession(c *gin.Context) *Session {
	value, exists := c.Get(sessionKey)
	if !exists {
		return nil
	}
	session, ok := value.(*Session)
	if !ok {
		return nil
	}
	return session
}

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetSession(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := GetSession(c)
		if session == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if session.Role != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// RequireSeller admits sellers and the administrator.
func RequireSeller() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := GetSession(c)
		if session == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if session.Role != RoleSeller && session.Role != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Seller access required"})
			return
		}
		c.Next()
	}
}
