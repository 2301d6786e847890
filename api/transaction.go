package api

import (
	"strconv"
	"strings"
	"time"

	"jars/middleware"
	"jars/models"
	"jars/repository"
	"jars/service"

	"github.com/gin-gonic/gin"
)

// TransactionHandler 流水
type TransactionHandler struct {
	ledger *service.LedgerService
}

// NewTransactionHandler 创建流水处理器
func NewTransactionHandler(ledger *service.LedgerService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger}
}

// CreateTransactionRequest 新增流水请求
// 金额为最小货币单位，正数收入，负数支出
type CreateTransactionRequest struct {
	JarCategoryID uint   `json:"jar_category_id" binding:"required" example:"2"`
	Amount        int64  `json:"amount" binding:"required" example:"-45000"`
	Description   string `json:"description" binding:"required,max=255" example:"Cà phê"`
	OccurredAt    string `json:"occurred_at" example:"2024-03-15 08:30:00"`
}

// TransactionListRequest 流水列表请求
type TransactionListRequest struct {
	Page          int    `form:"page" example:"1"`
	PageSize      int    `form:"page_size" example:"20"`
	JarCategoryID uint   `form:"jar_category_id" example:"2"`
	Type          string `form:"type" example:"expense"`
	StartTime     string `form:"start_time" example:"2024-01-01"`
	EndTime       string `form:"end_time" example:"2024-12-31"`
	Keywords      string `form:"keywords" example:"coffee,cà phê"`
}

// filter 把查询参数转为仓储过滤条件，结束日期包含当天
func (r *TransactionListRequest) filter() (repository.TransactionFilter, error) {
	f := repository.TransactionFilter{JarCategoryID: r.JarCategoryID, Type: r.Type}
	if r.StartTime != "" {
		t, err := time.ParseInLocation("2006-01-02", r.StartTime, time.UTC)
		if err != nil {
			return f, service.NewValidationError("start_time", "开始时间格式错误，应为: 2006-01-02")
		}
		f.StartDate = &t
	}
	if r.EndTime != "" {
		t, err := time.ParseInLocation("2006-01-02", r.EndTime, time.UTC)
		if err != nil {
			return f, service.NewValidationError("end_time", "结束时间格式错误，应为: 2006-01-02")
		}
		t = t.AddDate(0, 0, 1)
		f.EndDate = &t
	}
	for _, kw := range strings.Split(r.Keywords, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			f.Keywords = append(f.Keywords, kw)
		}
	}
	return f, nil
}

// parseOccurredAt 接受 "2006-01-02 15:04:05"、"2006-01-02" 或 RFC3339，无时区时按 UTC
func parseOccurredAt(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t, nil
		}
	}
	return nil, service.NewValidationError("occurred_at", "时间格式错误，应为: 2006-01-02 15:04:05")
}

// Create 新增流水
// @Summary 新增流水
// @Tags 流水
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTransactionRequest true "流水信息"
// @Success 200 {object} Response{data=models.Transaction} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 404 {object} Response "罐子不存在"
// @Router /api/v1/transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	occurred, err := parseOccurredAt(req.OccurredAt)
	if err != nil {
		respondError(c, err, "参数错误")
		return
	}

	tx, err := h.ledger.AddTransaction(c.Request.Context(), middleware.GetCurrentUserID(c), service.TransactionInput{
		JarCategoryID: req.JarCategoryID,
		AmountCents:   req.Amount,
		Description:   req.Description,
		Source:        models.SourceManual,
		OccurredAt:    occurred,
	})
	if err != nil {
		respondError(c, err, "创建流水失败")
		return
	}
	SuccessWithMessage(c, "创建成功", tx)
}

// List 流水列表
// @Summary 获取流水列表
// @Description 支持按罐子、类型、时间范围和关键词筛选，最新在前
// @Tags 流水
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Param jar_category_id query int false "罐子类别ID"
// @Param type query string false "income / expense / all"
// @Param start_time query string false "开始日期 (2024-01-01)"
// @Param end_time query string false "结束日期 (2024-12-31)，包含当天"
// @Param keywords query string false "描述关键词，逗号分隔"
// @Success 200 {object} Response{data=PageResponse{list=[]repository.TransactionWithCategory}} "获取成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	var req TransactionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	f, err := req.filter()
	if err != nil {
		respondError(c, err, "参数错误")
		return
	}
	f.Limit = req.PageSize
	f.Offset = (req.Page - 1) * req.PageSize

	page, err := h.ledger.ListTransactions(c.Request.Context(), middleware.GetCurrentUserID(c), f)
	if err != nil {
		respondError(c, err, "查询失败")
		return
	}
	Success(c, PageResponse{
		Total:    page.Total,
		Page:     req.Page,
		PageSize: req.PageSize,
		List:     page.List,
	})
}

// Delete 删除流水
// @Summary 删除流水
// @Tags 流水
// @Produce json
// @Security BearerAuth
// @Param id path int true "流水ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		BadRequest(c, "无效的ID")
		return
	}
	if err := h.ledger.DeleteTransaction(c.Request.Context(), middleware.GetCurrentUserID(c), uint(id)); err != nil {
		respondError(c, err, "删除失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

// Summary 近 N 天收支汇总
// @Summary 收支汇总
// @Tags 流水
// @Produce json
// @Security BearerAuth
// @Param days query int false "统计天数" default(30)
// @Success 200 {object} Response{data=service.TransactionSummary} "获取成功"
// @Router /api/v1/transactions/summary [get]
func (h *TransactionHandler) Summary(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	sum, err := h.ledger.Summary(c.Request.Context(), middleware.GetCurrentUserID(c), days)
	if err != nil {
		respondError(c, err, "汇总失败")
		return
	}
	Success(c, sum)
}
