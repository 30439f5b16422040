package handler

import (
	"strconv"

	"settlement-core/internal/handler/request"
	"settlement-core/internal/handler/response"
	"settlement-core/internal/model"
	"settlement-core/internal/service"
	"settlement-core/pkg/chain"
	"settlement-core/pkg/errno"
	"settlement-core/pkg/validator"

	"github.com/gin-gonic/gin"
)

type SplitHandler struct{}

var Split = &SplitHandler{}

// CreateTemplate 创建分账模板
// @Summary 创建分账模板
// @Tags Split
// @Accept json
// @Produce json
// @Param request body request.CreateSplitTemplateRequest true "Template"
// @Success 200 {object} response.Response
// @Router /api/v1/split/templates [post]
func (h *SplitHandler) CreateTemplate(c *gin.Context) {
	var req request.CreateSplitTemplateRequest
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

	// 模板绑定用户在该链上的出账地址, 没有地址不能建模板
	wallet, err := service.KeyWallet.GetWallet(c.Request.Context(), req.UserID, tag, network)
	if err != nil {
		response.Error(c, err)
		return
	}

	tpl := &model.SplitPaymentTemplate{
		UserID:      req.UserID,
		Name:        req.Name,
		Chain:       string(tag),
		Network:     string(network),
		FromAddress: wallet.Address,
	}
	for _, r := range req.Recipients {
		tpl.Recipients = append(tpl.Recipients, model.SplitPaymentRecipient{
			Address: r.Address,
			Amount:  r.Amount,
		})
	}

	if err := service.Split.CreateTemplate(c.Request.Context(), tpl); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tpl)
}

// GetTemplate 查询模板详情
// @Summary 查询模板详情
// @Tags Split
// @Produce json
// @Param id path int true "Template ID"
// @Param user_id query int true "User ID"
// @Success 200 {object} response.Response
// @Router /api/v1/split/templates/{id} [get]
func (h *SplitHandler) GetTemplate(c *gin.Context) {
	templateID, userID, ok := h.pathAndUser(c)
	if !ok {
		return
	}
	tpl, err := service.Split.GetTemplate(c.Request.Context(), userID, templateID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tpl)
}

// ListTemplates 用户的模板列表
// @Summary 用户的模板列表
// @Tags Split
// @Produce json
// @Param user_id query int true "User ID"
// @Success 200 {object} response.Response
// @Router /api/v1/split/templates [get]
func (h *SplitHandler) ListTemplates(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Query("user_id"), 10, 64)
	if err != nil || userID == 0 {
		response.Error(c, errno.ErrBind)
		return
	}
	tpls, err := service.Split.ListTemplates(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"templates": tpls})
}

// DeleteTemplate 删除模板 (软删, 历史执行记录保留)
// @Summary 删除模板
// @Tags Split
// @Produce json
// @Param id path int true "Template ID"
// @Param user_id query int true "User ID"
// @Success 200 {object} response.Response
// @Router /api/v1/split/templates/{id} [delete]
func (h *SplitHandler) DeleteTemplate(c *gin.Context) {
	templateID, userID, ok := h.pathAndUser(c)
	if !ok {
		return
	}
	if err := service.Split.DeleteTemplate(c.Request.Context(), userID, templateID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// ExecuteTemplate 执行分账
// @Summary 执行分账
// @Description 按模板向所有收款人出账, 幂等键重放返回既有记录
// @Tags Split
// @Accept json
// @Produce json
// @Param id path int true "Template ID"
// @Param request body request.ExecuteSplitRequest true "Execute Request"
// @Success 200 {object} response.Response
// @Router /api/v1/split/templates/{id}/executions [post]
func (h *SplitHandler) ExecuteTemplate(c *gin.Context) {
	templateID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	var req request.ExecuteSplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.Errno{Code: errno.ErrBind.Code, Message: validator.GetErrorMsg(err)})
		return
	}

	exec, err := service.Split.Execute(c.Request.Context(), req.UserID, templateID, req.IdempotencyKey)
	if err != nil {
		response.Error(c, mapExecError(err))
		return
	}
	response.Success(c, exec)
}

func (h *SplitHandler) pathAndUser(c *gin.Context) (templateID, userID uint64, ok bool) {
	templateID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, errno.ErrBind)
		return 0, 0, false
	}
	userID, err = strconv.ParseUint(c.Query("user_id"), 10, 64)
	if err != nil || userID == 0 {
		response.Error(c, errno.ErrBind)
		return 0, 0, false
	}
	return templateID, userID, true
}
