package api

import (
	"jars/middleware"
	"jars/service"

	"github.com/gin-gonic/gin"
)

// IncomeHandler 月度收入
type IncomeHandler struct {
	allocation *service.AllocationService
	ledger     *service.LedgerService
}

// NewIncomeHandler 创建月度收入处理器
func NewIncomeHandler(allocation *service.AllocationService, ledger *service.LedgerService) *IncomeHandler {
	return &IncomeHandler{allocation: allocation, ledger: ledger}
}

// AddIncomeRequest 月度收入请求，金额为最小货币单位
type AddIncomeRequest struct {
	MonthYear   string             `json:"month_year" binding:"required" example:"2024-03"`
	TotalIncome int64              `json:"total_income" binding:"required,gt=0" example:"10000000"`
	Percentages map[string]float64 `json:"percentages" binding:"required"`
}

// Create 记录月度收入并分配到各罐子
// @Summary 添加月度收入
// @Description 按比例分配到各罐子；同一月份再次提交时替换之前的分配
// @Tags 收入
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AddIncomeRequest true "收入信息"
// @Success 200 {object} Response{data=service.IncomeAllocation} "分配成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/jars/income [post]
func (h *IncomeHandler) Create(c *gin.Context) {
	var req AddIncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	alloc, err := h.allocation.AddMonthlyIncome(c.Request.Context(), middleware.GetCurrentUserID(c), req.MonthYear, req.TotalIncome, req.Percentages)
	if err != nil {
		respondError(c, err, "添加月度收入失败")
		return
	}
	SuccessWithMessage(c, "分配成功", alloc)
}

// List 月度收入历史
// @Summary 月度收入历史
// @Tags 收入
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.MonthlyIncomeEntry} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/jars/income [get]
func (h *IncomeHandler) List(c *gin.Context) {
	list, err := h.ledger.IncomeHistory(c.Request.Context(), middleware.GetCurrentUserID(c))
	if err != nil {
		respondError(c, err, "查询收入历史失败")
		return
	}
	Success(c, list)
}
