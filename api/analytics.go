package api

import (
	"errors"
	"strconv"

	"jars/middleware"
	"jars/service"

	"github.com/gin-gonic/gin"
)

// AnalyticsHandler 余额走势预测
type AnalyticsHandler struct {
	forecast *service.ForecastService
	client   *service.ForecastClient
}

// NewAnalyticsHandler 创建分析处理器
func NewAnalyticsHandler(forecast *service.ForecastService, client *service.ForecastClient) *AnalyticsHandler {
	return &AnalyticsHandler{forecast: forecast, client: client}
}

// Forecast 余额预测
// @Summary 余额预测
// @Description 用月末累计余额序列请求外部预测服务，只返回最后一个历史日期之后的点
// @Tags 分析
// @Produce json
// @Security BearerAuth
// @Param periods query int false "预测期数" default(6)
// @Param freq query string false "D / W / M" default(M)
// @Success 200 {object} Response{data=service.BalanceForecast} "获取成功"
// @Failure 404 {object} Response "暂无流水"
// @Failure 502 {object} Response "预测服务错误"
// @Failure 503 {object} Response "未配置预测服务"
// @Router /api/v1/analytics/forecast [get]
func (h *AnalyticsHandler) Forecast(c *gin.Context) {
	if !h.client.Enabled() {
		ServiceUnavailable(c, "未配置预测服务")
		return
	}
	periods, _ := strconv.Atoi(c.DefaultQuery("periods", "6"))
	freq := c.DefaultQuery("freq", service.FreqMonthly)

	res, err := h.forecast.BalanceForecast(c.Request.Context(), middleware.GetCurrentUserID(c), periods, freq)
	if err != nil {
		var fe *service.ForecastError
		if errors.As(err, &fe) {
			BadGateway(c, SafeErrorMessage(err, "预测服务暂不可用"))
			return
		}
		respondError(c, err, "预测失败")
		return
	}
	Success(c, res)
}
