package routes

import (
	"settlement-core/internal/handler"

	"github.com/gin-gonic/gin"
)

func RegisterFeeRoutes(rg *gin.RouterGroup) {
	feeGroup := rg.Group("/fees")
	{
		feeGroup.GET("/quote", handler.Fee.Quote)
		feeGroup.GET("/revenue", handler.Fee.Revenue)
	}
}
