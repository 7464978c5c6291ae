package routes

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"smart-locker-control/internal/access"
	"smart-locker-control/internal/activity"
	"smart-locker-control/internal/locker"
)

type commandRequest struct {
	Action string `json:"action"`
}

type commandResponse struct {
	OK     bool           `json:"ok"`
	Status locker.Status  `json:"status"`
	Locker locker.State   `json:"locker"`
	Entry  activity.Entry `json:"activity"`
}

var actionPermission = map[locker.Action]access.Permission{
	locker.ActionOpen:  access.PermLockerOpen,
	locker.ActionClose: access.PermLockerClose,
}

func (h *Handlers) LockerRoutes(r *gin.RouterGroup) {
	r.GET("/status", RequirePermission(access.PermLockerRead), func(c *gin.Context) {
		c.JSON(http.StatusOK, h.Locker.Status())
	})

	r.POST("/command", RequirePermission(access.PermLockerOpen, access.PermLockerClose), func(c *gin.Context) {
		var req commandRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, fmt.Errorf("%w: %w", ErrInvalidRequest, err))
			return
		}
		action, err := locker.ParseAction(req.Action)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !allowed(c, actionPermission[action]) {
			return
		}

		resp, ok := h.command(c, action, "", "", nil)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, resp)
	})
}

// command runs action on the locker and records it in the activity log as the caller.
func (h *Handlers) command(c *gin.Context, action locker.Action, entryAction, entryType string, metadata map[string]any) (commandResponse, bool) {
	state, entry, err := h.Services.Command(c.Request.Context(), action, activity.Entry{
		Action:   entryAction,
		Type:     entryType,
		User:     username(c),
		Metadata: metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return commandResponse{}, false
	}
	return commandResponse{OK: true, Status: state.Status, Locker: state, Entry: entry}, true
}
