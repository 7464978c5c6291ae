package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smart-locker-control/internal/utils"
)

func Health(r gin.IRoutes) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"time":    time.Now().UTC().Format(time.RFC3339),
			"version": utils.GetVersion(),
		})
	})
}
