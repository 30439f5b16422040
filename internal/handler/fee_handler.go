package handler

import (
	"settlement-core/internal/handler/response"
	"settlement-core/internal/service"
	"settlement-core/pkg/errno"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type FeeHandler struct{}

var Fee = &FeeHandler{}

// Quote 预估手续费
// @Summary 预估手续费
// @Description 按 USD 金额返回手续费和所在档位, 不发起出账
// @Tags Fee
// @Produce json
// @Param amount_usd query string true "USD amount, e.g. 75.50"
// @Success 200 {object} response.Response
// @Router /api/v1/fees/quote [get]
func (h *FeeHandler) Quote(c *gin.Context) {
	amount, err := decimal.NewFromString(c.Query("amount_usd"))
	if err != nil {
		response.Error(c, errno.ErrInvalidAmount)
		return
	}
	quote, err := service.Fee.Calculate(amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, quote)
}

// Revenue 平台手续费累计收入
// @Summary 手续费累计收入
// @Tags Fee
// @Produce json
// @Param chain query string false "Filter by chain"
// @Success 200 {object} response.Response
// @Router /api/v1/fees/revenue [get]
func (h *FeeHandler) Revenue(c *gin.Context) {
	sum, err := service.FeeLedger.SumRevenue(c.Request.Context(), c.Query("chain"))
	if err != nil {
		response.Error(c, errno.ErrDatabase)
		return
	}
	response.Success(c, gin.H{"total_usd": sum})
}
