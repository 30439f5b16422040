package routes

import (
	"settlement-core/internal/handler"

	"github.com/gin-gonic/gin"
)

func RegisterWalletRoutes(rg *gin.RouterGroup) {
	walletGroup := rg.Group("/wallet")
	{
		walletGroup.POST("/addresses", handler.Wallet.CreateAddress)
	}
}
