package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, handler *Handler) {
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.GET("/workflows", handler.ListWorkflows)
		api.GET("/workflows/:id/runs", handler.ListRuns)
		api.GET("/runs/:id/activities", handler.ListRunActivities)
		api.GET("/folders", handler.ListFolders)
	}
}
