package routes

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smart-locker-control/internal/access"
	"smart-locker-control/internal/activity"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type publicUser struct {
	ID          string              `json:"id"`
	Username    string              `json:"username"`
	Role        access.Role         `json:"role"`
	Permissions []access.Permission `json:"permissions"`
}

func newPublicUser(u *access.User) publicUser {
	return publicUser{
		ID:          u.ID,
		Username:    u.Username,
		Role:        u.Role,
		Permissions: u.Permissions(),
	}
}

type loginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      publicUser `json:"user"`
}

func (h *Handlers) AuthRoutes(r *gin.RouterGroup) {
	r.POST("/login", h.login)
	r.GET("/me", h.AuthMiddleware(), h.me)
}

func (h *Handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %w", ErrMissingParameter, err))
		return
	}

	user, err := h.Users.Authenticate(req.Username, req.Password)
	if h.Metrics != nil {
		h.Metrics.RecordLogin(err == nil)
	}
	if err != nil {
		slog.Info("Login failed", "username", req.Username, "ip", c.ClientIP())
		AbortWithError(c, err)
		return
	}

	token, expiry, err := h.Signer.IssueSession(user)
	if err != nil {
		AbortWithError(c, fmt.Errorf("failed to issue session: %w", err))
		return
	}

	if _, err := h.record(c, h.Activity, activity.Entry{
		Action: activity.ActionLogin,
		Type:   activity.TypeUserAction,
		User:   user.Username,
	}); err != nil {
		slog.Warn("Login succeeded but activity could not be recorded", "username", user.Username, "error", err)
	}

	slog.Info("User logged in", "username", user.Username, "role", user.Role)
	c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiry,
		User:      newPublicUser(user),
	})
}

func (h *Handlers) me(c *gin.Context) {
	claims, err := GetClaims(c)
	if err != nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	user, err := h.Users.Find(claims.Subject)
	if errors.Is(err, access.ErrUserNotFound) {
		AbortWithError(c, ErrUnknownSubject)
		return
	} else if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPublicUser(user))
}
