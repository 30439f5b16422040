package routes

import (
	"settlement-core/internal/handler"

	"github.com/gin-gonic/gin"
)

func RegisterSettlementRoutes(rg *gin.RouterGroup) {
	settlementGroup := rg.Group("/settlements")
	// Auth middleware here
	{
		settlementGroup.POST("", handler.Settlement.Settle)
	}
}
