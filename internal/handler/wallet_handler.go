package handler

import (
	"settlement-core/internal/handler/request"
	"settlement-core/internal/handler/response"
	"settlement-core/internal/service"
	"settlement-core/pkg/chain"
	"settlement-core/pkg/config"
	"settlement-core/pkg/errno"
	"settlement-core/pkg/validator"

	"github.com/gin-gonic/gin"
)

type WalletHandler struct{}

var Wallet = &WalletHandler{}

// CreateAddress 为用户生成一条链上的出账地址
// @Summary 生成出账地址
// @Description 同一用户同一链同一网络复用既有地址
// @Tags Wallet
// @Accept json
// @Produce json
// @Param request body request.CreateAddressRequest true "Create Address Request"
// @Success 200 {object} response.Response
// @Router /api/v1/wallet/addresses [post]
func (h *WalletHandler) CreateAddress(c *gin.Context) {
	var req request.CreateAddressRequest
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

	addr, err := service.KeyWallet.GenerateAddress(
		c.Request.Context(), req.UserID, tag, network,
		config.Global.Chains.Polkadot.SS58Prefix,
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, addr)
}
