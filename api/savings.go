package api

import (
	"strconv"

	"jars/middleware"
	"jars/service"

	"github.com/gin-gonic/gin"
)

// SavingsHandler 储蓄目标与预测
type SavingsHandler struct {
	targets    *service.SavingTargetService
	projection *service.ProjectionService
}

// NewSavingsHandler 创建储蓄处理器
func NewSavingsHandler(targets *service.SavingTargetService, projection *service.ProjectionService) *SavingsHandler {
	return &SavingsHandler{targets: targets, projection: projection}
}

// SavingTargetRequest 设置储蓄目标，金额为最小货币单位
type SavingTargetRequest struct {
	TargetAmount int64 `json:"target_amount" binding:"required,gt=0" example:"50000000"`
}

// SavingTargetResponse 当前储蓄目标，未设置时为 0
type SavingTargetResponse struct {
	TargetAmount int64 `json:"target_amount" example:"50000000"`
}

// GetTarget 当前储蓄目标
// @Summary 获取储蓄目标
// @Tags 储蓄
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=SavingTargetResponse} "获取成功"
// @Router /api/v1/savings/target [get]
func (h *SavingsHandler) GetTarget(c *gin.Context) {
	amount, err := h.targets.GetSavingTarget(c.Request.Context(), middleware.GetCurrentUserID(c))
	if err != nil {
		respondError(c, err, "查询储蓄目标失败")
		return
	}
	Success(c, SavingTargetResponse{TargetAmount: amount})
}

// SetTarget 设置储蓄目标
// @Summary 设置储蓄目标
// @Tags 储蓄
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SavingTargetRequest true "目标金额"
// @Success 200 {object} Response{data=models.SavingTarget} "设置成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/savings/target [post]
func (h *SavingsHandler) SetTarget(c *gin.Context) {
	var req SavingTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	target, err := h.targets.SetSavingTarget(c.Request.Context(), middleware.GetCurrentUserID(c), req.TargetAmount)
	if err != nil {
		respondError(c, err, "设置储蓄目标失败")
		return
	}
	SuccessWithMessage(c, "设置成功", target)
}

// Projection 储蓄目标预测
// @Summary 储蓄预测
// @Description 按近6个月储蓄罐流入的平均速度线性外推；不传 target_amount 时使用当前储蓄目标
// @Tags 储蓄
// @Produce json
// @Security BearerAuth
// @Param target_amount query int false "目标金额（最小货币单位）"
// @Success 200 {object} Response{data=service.SavingsProjection} "获取成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/savings/projection [get]
func (h *SavingsHandler) Projection(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var target int64
	if raw := c.Query("target_amount"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			BadRequest(c, "目标金额必须为正整数")
			return
		}
		target = v
	} else {
		v, err := h.targets.GetSavingTarget(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err, "查询储蓄目标失败")
			return
		}
		if v <= 0 {
			BadRequest(c, "请先设置储蓄目标或传入 target_amount")
			return
		}
		target = v
	}

	p, err := h.projection.GetSavingsProjection(c.Request.Context(), userID, target)
	if err != nil {
		respondError(c, err, "预测失败")
		return
	}
	Success(c, p)
}
