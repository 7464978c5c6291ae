// Authentication middleware
// Checks for a valid bearer token in the Authorization header
// If valid, sets the session claims in the context
// If invalid, aborts with 401 Unauthorized
package routes

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"

	"smart-locker-control/internal/jwt"
)

const claimsKey = "claims"

var ErrClaimsNotFound = errors.New("session claims not found in context")

// GetClaims returns the session of the authenticated caller.
func GetClaims(c *gin.Context) (*jwt.SessionClaims, error) {
	v, exists := c.Get(claimsKey)
	if !exists {
		return nil, ErrClaimsNotFound
	}
	claims, ok := v.(*jwt.SessionClaims)
	if !ok {
		slog.Warn("GetClaims: Claims in context have unexpected type")
		return nil, ErrClaimsNotFound
	}
	return claims, nil
}

// username returns the caller's username, or "" for anonymous requests.
func username(c *gin.Context) string {
	if claims, err := GetClaims(c); err == nil {
		return claims.Username
	}
	return ""
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func (h *Handlers) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims, err := h.Signer.DecodeSession(token)
		if err != nil {
			slog.Debug("AuthMiddleware: Invalid auth token", "error", err)
			if errors.Is(err, gojwt.ErrTokenExpired) {
				AbortWithError(c, ErrTokenExpired)
				return
			}
			AbortWithError(c, err)
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}
