package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smart-locker-control/internal/access"
	"smart-locker-control/internal/activity"
)

func (h *Handlers) AnalyticsRoutes(r *gin.RouterGroup) {
	r.GET("", RequirePermission(access.PermAnalyticsRead), func(c *gin.Context) {
		entries, err := h.Activity.All(c.Request.Context())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, activity.Summarize(entries, time.Now()))
	})
}
