package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"smart-locker-control/internal/access"
)

// RequirePermission creates middleware that lets the request through when the caller's
// role grants any of perms.
func RequirePermission(perms ...access.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := GetClaims(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		for _, perm := range perms {
			if access.Can(claims.Role, perm) {
				c.Next()
				return
			}
		}

		slog.Warn("Permission denied",
			"user", claims.Username,
			"role", claims.Role,
			"permissions", perms)
		AbortWithError(c, ErrInsufficientPermissions)
	}
}

// allowed checks a single permission inside a handler.
func allowed(c *gin.Context, perm access.Permission) bool {
	claims, err := GetClaims(c)
	if err != nil {
		AbortWithError(c, ErrUnauthorized)
		return false
	}
	if !access.Can(claims.Role, perm) {
		slog.Warn("Permission denied", "user", claims.Username, "role", claims.Role, "permission", perm)
		AbortWithError(c, ErrInsufficientPermissions)
		return false
	}
	return true
}
