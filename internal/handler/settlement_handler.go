package handler

import (
	"errors"

	"settlement-core/internal/executor"
	"settlement-core/internal/handler/request"
	"settlement-core/internal/handler/response"
	"settlement-core/internal/service"
	"settlement-core/pkg/chain"
	"settlement-core/pkg/errno"
	"settlement-core/pkg/validator"

	"github.com/gin-gonic/gin"
)

type SettlementHandler struct{}

var Settlement = &SettlementHandler{}

// Settle 发起结算
// @Summary 发起结算
// @Description 按 USD 金额向一个或多个收款方出账, 手续费另行归集
// @Tags Settlement
// @Accept json
// @Produce json
// @Param request body request.SettleRequest true "Settle Request"
// @Success 200 {object} response.Response
// @Router /api/v1/settlements [post]
func (h *SettlementHandler) Settle(c *gin.Context) {
	var req request.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.Errno{Code: errno.ErrBind.Code, Message: validator.GetErrorMsg(err)})
		return
	}

	tag, err := chain.FromString(req.Chain)
	if err != nil {
		response.Error(c, errno.ErrUnsupportedChain)
		return
	}
	network, err := chain.ParseNetwork(req.Network)
	if err != nil {
		response.Error(c, errno.ErrUnsupportedChain)
		return
	}

	recipients := make([]service.SettlementRecipient, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		recipients = append(recipients, service.SettlementRecipient{
			Address:   r.Address,
			AmountUSD: r.AmountUSD,
		})
	}

	outcome, err := service.Settlement.Settle(c.Request.Context(), &service.SettlementRequest{
		UserID:     req.UserID,
		Chain:      tag,
		Network:    network,
		Token:      req.Token,
		Recipients: recipients,
	})
	if err != nil {
		response.Error(c, mapExecError(err))
		return
	}
	response.Success(c, outcome)
}

// mapExecError 把链执行层的错误翻译成对外错误码
func mapExecError(err error) error {
	switch {
	case errors.Is(err, executor.ErrInsufficientFunds):
		return errno.ErrInsufficientFunds
	case errors.Is(err, executor.ErrProviderUnavailable):
		return errno.ErrProviderUnavailable
	default:
		return err
	}
}
