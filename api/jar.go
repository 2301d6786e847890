package api

import (
	"jars/middleware"
	"jars/service"

	"github.com/gin-gonic/gin"
)

// JarHandler 罐子、看板与转账
type JarHandler struct {
	balances     *service.BalanceService
	provisioning *service.ProvisioningService
	ledger       *service.LedgerService
}

// NewJarHandler 创建罐子处理器
func NewJarHandler(balances *service.BalanceService, provisioning *service.ProvisioningService, ledger *service.LedgerService) *JarHandler {
	return &JarHandler{balances: balances, provisioning: provisioning, ledger: ledger}
}

// SwapRequest 罐子间转账请求，金额为最小货币单位
type SwapRequest struct {
	FromJar     string `json:"from_jar" binding:"required" example:"Play"`
	ToJar       string `json:"to_jar" binding:"required" example:"Savings"`
	Amount      int64  `json:"amount" binding:"required,gt=0" example:"50000"`
	Description string `json:"description" example:"Move leftover fun money"`
}

// Categories 罐子类别列表
// @Summary 获取罐子类别
// @Tags 罐子
// @Produce json
// @Success 200 {object} Response{data=[]models.JarCategory} "获取成功"
// @Router /api/v1/jars/categories [get]
func (h *JarHandler) Categories(c *gin.Context) {
	cats, err := h.ledger.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err, "查询罐子类别失败")
		return
	}
	Success(c, cats)
}

// Setup 开通罐子（幂等）
// @Summary 开通罐子
// @Description 为当前用户开通全部六个罐子，已开通时不做任何事
// @Tags 罐子
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=service.SetupResult} "开通成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/jars/setup [post]
func (h *JarHandler) Setup(c *gin.Context) {
	res, err := h.provisioning.CheckSetup(c.Request.Context(), middleware.GetCurrentUserID(c))
	if err != nil {
		respondError(c, err, "开通罐子失败")
		return
	}
	Success(c, res)
}

// Dashboard 看板
// @Summary 获取看板
// @Description 用户信息、各罐子余额、收入历史和累计余额
// @Tags 罐子
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=service.Dashboard} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/jars/dashboard [get]
func (h *JarHandler) Dashboard(c *gin.Context) {
	d, err := h.balances.Dashboard(c.Request.Context(), middleware.GetCurrentUserID(c))
	if err != nil {
		respondError(c, err, "获取看板失败")
		return
	}
	Success(c, d)
}

// Swap 罐子间转账
// @Summary 罐子间转账
// @Tags 罐子
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SwapRequest true "转账信息"
// @Success 200 {object} Response{data=service.SwapResult} "转账成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 404 {object} Response "罐子不存在"
// @Router /api/v1/jars/swap [post]
func (h *JarHandler) Swap(c *gin.Context) {
	var req SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	res, err := h.ledger.SwapJar(c.Request.Context(), middleware.GetCurrentUserID(c), req.FromJar, req.ToJar, req.Amount, req.Description)
	if err != nil {
		respondError(c, err, "转账失败")
		return
	}
	SuccessWithMessage(c, "转账成功", res)
}

// DeleteData 清空当前用户数据
// @Summary 清空数据
// @Description 删除流水、月度收入、罐子和储蓄目标，用户本身保留
// @Tags 罐子
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response "删除成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/jars/data [delete]
func (h *JarHandler) DeleteData(c *gin.Context) {
	if err := h.ledger.DeleteAllUserData(c.Request.Context(), middleware.GetCurrentUserID(c)); err != nil {
		respondError(c, err, "删除数据失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}
