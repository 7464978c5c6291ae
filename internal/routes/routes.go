package routes

import (
	"github.com/gin-gonic/gin"

	"smart-locker-control/internal/activity"
	"smart-locker-control/internal/service"
)

// Handlers serves the API on top of the wired services. Metrics and Notifier may be nil.
type Handlers struct {
	*service.Services

	QRImageSize int
}

// Register mounts every API route on rg.
func (h *Handlers) Register(rg *gin.RouterGroup) {
	h.AuthRoutes(rg.Group("/auth"))

	authed := rg.Group("", h.AuthMiddleware())
	h.LockerRoutes(authed.Group("/locker"))
	h.ActivityRoutes(authed.Group("/activity"))
	h.QRRoutes(authed.Group("/qr"))
	h.AnalyticsRoutes(authed.Group("/analytics"))
}

// record appends an activity entry on behalf of the caller.
func (h *Handlers) record(c *gin.Context, log *activity.Log, e activity.Entry) (activity.Entry, error) {
	if e.User == "" {
		e.User = username(c)
	}
	return log.Append(c.Request.Context(), e)
}
