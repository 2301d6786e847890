package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"jars/config"
	"jars/repository"

	"github.com/rs/zerolog/log"
)

// 预测频率
const (
	FreqDaily   = "D"
	FreqWeekly  = "W"
	FreqMonthly = "M"
)

// ForecastPoint 历史数据点
type ForecastPoint struct {
	Date    string  `json:"date"`
	Balance float64 `json:"balance"`
}

// ForecastRequest 预测请求
type ForecastRequest struct {
	Data    []ForecastPoint `json:"data"`
	Periods int             `json:"periods"`
	Freq    string          `json:"freq"`
	Target  float64         `json:"target"`
	Lags    int             `json:"lags,omitempty"`
}

// PredictedPoint 预测点
type PredictedPoint struct {
	Date string  `json:"date"`
	Yhat float64 `json:"yhat"`
}

type forecastResponse struct {
	Forecast []PredictedPoint `json:"forecast"`
}

// ForecastError 预测服务返回的非 2xx 响应
type ForecastError struct {
	StatusCode int
	Body       string
}

func (e *ForecastError) Error() string {
	return fmt.Sprintf("预测服务错误: %d - %s", e.StatusCode, e.Body)
}

// Throttled 是否为限流信号
func (e *ForecastError) Throttled() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusServiceUnavailable
}

// ForecastClient 外部预测服务客户端，限流时指数退避重试
type ForecastClient struct {
	endpoint   string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewForecastClient 创建预测客户端
func NewForecastClient(cfg config.ForecastConfig) *ForecastClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseDelay := time.Duration(cfg.BaseDelayMS) * time.Millisecond
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	return &ForecastClient{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: cfg.MaxRetries,
		baseDelay:  baseDelay,
		sleep:      sleepContext,
	}
}

// Enabled 是否配置了预测服务
func (c *ForecastClient) Enabled() bool {
	return c != nil && c.endpoint != ""
}

// Forecast 请求预测，只返回晚于最后一个历史日期的点
func (c *ForecastClient) Forecast(ctx context.Context, req ForecastRequest) ([]PredictedPoint, error) {
	if len(req.Data) == 0 {
		return nil, NewValidationError("data", "历史数据不能为空")
	}
	if req.Periods <= 0 {
		req.Periods = 6
	}
	switch req.Freq {
	case "":
		req.Freq = FreqMonthly
	case FreqDaily, FreqWeekly, FreqMonthly:
	default:
		return nil, NewValidationError("freq", "频率只能是 D、W 或 M")
	}

	last, err := parseDay(req.Data[len(req.Data)-1].Date)
	if err != nil {
		return nil, NewValidationError("data", "历史数据日期格式应为 YYYY-MM-DD")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("序列化预测请求失败: %w", err)
	}

	var resp *forecastResponse
	for attempt := 0; ; attempt++ {
		resp, err = c.post(ctx, body)
		if err == nil {
			break
		}
		var fe *ForecastError
		if !errors.As(err, &fe) || !fe.Throttled() || attempt >= c.maxRetries {
			return nil, err
		}
		delay := c.baseDelay * time.Duration(1<<attempt)
		log.Warn().Int("attempt", attempt+1).Dur("delay", delay).Int("status", fe.StatusCode).Msg("预测服务限流，稍后重试")
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return FutureOnly(resp.Forecast, last), nil
}

func (c *ForecastClient) post(ctx context.Context, body []byte) (*forecastResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("请求预测服务失败: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ForecastError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var out forecastResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("解析预测响应失败: %w", err)
	}
	return &out, nil
}

// HealthCheck 用两个点做一次最小请求，检查预测服务是否可用
func (c *ForecastClient) HealthCheck(ctx context.Context) error {
	_, err := c.Forecast(ctx, ForecastRequest{
		Data: []ForecastPoint{
			{Date: "2024-01-01", Balance: 1000},
			{Date: "2024-02-01", Balance: 1100},
		},
		Periods: 2,
		Freq:    FreqMonthly,
		Target:  2000,
	})
	return err
}

// FutureOnly 丢弃不晚于 last 的预测点和日期无法解析的点
func FutureOnly(points []PredictedPoint, last time.Time) []PredictedPoint {
	out := make([]PredictedPoint, 0, len(points))
	for _, p := range points {
		d, err := parseDay(p.Date)
		if err != nil {
			continue
		}
		if d.After(last) {
			out = append(out, p)
		}
	}
	return out
}

// parseDay 接受 YYYY-MM-DD 或以其开头的时间戳
func parseDay(s string) (time.Time, error) {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// BalanceForecast 余额走势与预测
type BalanceForecast struct {
	History  []ForecastPoint  `json:"history"`
	Forecast []PredictedPoint `json:"forecast"`
	Target   float64          `json:"target"`
}

// ForecastService 基于用户流水构造余额序列并请求预测
type ForecastService struct {
	client  *ForecastClient
	store   *repository.Store
	targets *SavingTargetService
}

func NewForecastService(client *ForecastClient, store *repository.Store, targets *SavingTargetService) *ForecastService {
	return &ForecastService{client: client, store: store, targets: targets}
}

// BalanceForecast 以每月最后一个有流水的日期的累计余额为历史序列，目标为当前储蓄目标
func (s *ForecastService) BalanceForecast(ctx context.Context, userID uint, periods int, freq string) (*BalanceForecast, error) {
	if !s.client.Enabled() {
		return nil, fmt.Errorf("未配置预测服务")
	}
	txs, err := s.store.Transactions.ListAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("查询流水失败: %w", err)
	}
	if len(txs) == 0 {
		return nil, NewNotFoundError("transaction", "暂无流水，无法预测")
	}

	var history []ForecastPoint
	var running int64
	for i, t := range txs {
		running += t.AmountCents
		month := FormatMonth(t.OccurredAt)
		if i+1 < len(txs) && FormatMonth(txs[i+1].OccurredAt) == month {
			continue
		}
		history = append(history, ForecastPoint{Date: FormatDate(t.OccurredAt), Balance: ToMajor(running)})
	}

	target, err := s.targets.GetSavingTarget(ctx, userID)
	if err != nil {
		return nil, err
	}

	points, err := s.client.Forecast(ctx, ForecastRequest{
		Data:    history,
		Periods: periods,
		Freq:    freq,
		Target:  ToMajor(target),
		Lags:    12,
	})
	if err != nil {
		return nil, err
	}
	return &BalanceForecast{History: history, Forecast: points, Target: ToMajor(target)}, nil
}
