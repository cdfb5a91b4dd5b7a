package middleware

import (
	"fmt"
	"strings"

	"github.com/ds124wfegd/afritix/internal/entity"
	"github.com/ds124wfegd/afritix/pkg/auth"
	"github.com/gin-gonic/gin"
)

const (
	ctxUserID = "userID"
	ctxRole   = "role"
)

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Auth requires a valid bearer token and stores the caller in the context.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			c.Error(fmt.Errorf("missing bearer token: %w", entity.ErrUnauthorized))
			c.Abort()
			return
		}

		claims, err := verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			c.Error(fmt.Errorf("%v: %w", err, entity.ErrUnauthorized))
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// AdminOnly must run after Auth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.Error(fmt.Errorf("admin role required: %w", entity.ErrForbidden))
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated caller set by Auth.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

func IsAdmin(c *gin.Context) bool {
	return c.GetString(ctxRole) == entity.RoleAdmin
}
