package routes

import (
	"settlement-core/internal/handler"

	"github.com/gin-gonic/gin"
)

func RegisterSplitRoutes(rg *gin.RouterGroup) {
	splitGroup := rg.Group("/split")
	{
		splitGroup.POST("/templates", handler.Split.CreateTemplate)
		splitGroup.GET("/templates", handler.Split.ListTemplates)
		splitGroup.GET("/templates/:id", handler.Split.GetTemplate)
		splitGroup.DELETE("/templates/:id", handler.Split.DeleteTemplate)
		splitGroup.POST("/templates/:id/executions", handler.Split.ExecuteTemplate)
	}
}
