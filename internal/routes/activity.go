package routes

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"smart-locker-control/internal/access"
	"smart-locker-control/internal/activity"
)

type activityRequest struct {
	Action   string         `json:"action"`
	Type     string         `json:"type"`
	Metadata map[string]any `json:"metadata"`
	Data     string         `json:"data"`
}

func (h *Handlers) ActivityRoutes(r *gin.RouterGroup) {
	r.GET("", RequirePermission(access.PermActivityRead), listHandler(h.Activity))
	r.POST("", RequirePermission(access.PermActivityWrite), appendHandler(h.Activity, false))
	r.DELETE("", RequirePermission(access.PermActivityClear), h.clearActivity)
	r.POST("/clear", RequirePermission(access.PermActivityClear), h.clearActivity)
}

func (h *Handlers) clearActivity(c *gin.Context) {
	marker, err := h.Activity.Clear(c.Request.Context(), username(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "activity": marker})
}

func listHandler(log *activity.Log) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := log.Recent(c.Request.Context())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

// appendHandler records a caller supplied entry. The server stamps user and time.
func appendHandler(log *activity.Log, withData bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req activityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, fmt.Errorf("%w: %w", ErrInvalidRequest, err))
			return
		}
		e := activity.Entry{
			Action:   req.Action,
			Type:     req.Type,
			User:     username(c),
			Metadata: req.Metadata,
		}
		if withData {
			e.Data = req.Data
		}

		entry, err := log.Append(c.Request.Context(), e)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}
