package service

import (
	"context"
	"fmt"
	"time"

	"jars/models"
	"jars/repository"

	"github.com/shopspring/decimal"
)

// 平均储蓄速度的固定窗口长度（月）
const projectionWindowMonths = 6

// SavingsProjection 储蓄目标预测结果，金额为主单位
type SavingsProjection struct {
	CanReachTarget    bool    `json:"can_reach_target"`
	Message           string  `json:"message"`
	MonthsToTarget    *int    `json:"months_to_target"`
	ProjectedDate     *string `json:"projected_date"`
	CurrentSavings    float64 `json:"current_savings"`
	TargetAmount      float64 `json:"target_amount"`
	AvgMonthlySavings float64 `json:"avg_monthly_savings"`
}

// ProjectionService 基于近6个月储蓄罐流入的线性外推
type ProjectionService struct {
	store *repository.Store
	now   func() time.Time
}

func NewProjectionService(store *repository.Store) *ProjectionService {
	return &ProjectionService{store: store, now: time.Now}
}

// GetSavingsProjection 预测达到目标金额所需月数
func (s *ProjectionService) GetSavingsProjection(ctx context.Context, userID uint, targetAmountCents int64) (*SavingsProjection, error) {
	savings, err := s.store.JarCategories.GetByName(ctx, models.JarSavings)
	if err != nil {
		return nil, notFoundOr(err, "jar_category", "储蓄罐不存在")
	}

	result := &SavingsProjection{TargetAmount: ToMajor(targetAmountCents)}

	count, err := s.store.Transactions.CountByJar(ctx, userID, savings.ID)
	if err != nil {
		return nil, fmt.Errorf("查询储蓄流水失败: %w", err)
	}
	if count == 0 {
		result.Message = "No savings history found. Start saving to get projections."
		return result, nil
	}

	now := s.now().UTC()
	thisMonth := MonthStart(now)
	cutoff := AddMonths(thisMonth, -projectionWindowMonths)

	recent, err := s.store.Transactions.PositiveSince(ctx, userID, savings.ID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("查询近期储蓄流水失败: %w", err)
	}

	balance, err := s.store.Transactions.NetByJar(ctx, userID, savings.ID)
	if err != nil {
		return nil, fmt.Errorf("查询储蓄余额失败: %w", err)
	}
	result.CurrentSavings = ToMajor(balance)

	if len(recent) == 0 {
		result.Message = "No recent savings activity found."
		return result, nil
	}

	var sum int64
	for _, t := range recent {
		sum += t.AmountCents
	}
	avg := decimal.NewFromInt(sum).Div(decimal.NewFromInt(projectionWindowMonths))
	result.AvgMonthlySavings = avg.Div(hundred).InexactFloat64()

	remaining := targetAmountCents - balance
	if remaining <= 0 {
		zero := 0
		today := FormatDate(now)
		result.CanReachTarget = true
		result.Message = "You have already reached your target!"
		result.MonthsToTarget = &zero
		result.ProjectedDate = &today
		return result, nil
	}

	if sum <= 0 {
		result.Message = "Based on current savings rate, target cannot be reached."
		return result, nil
	}

	// ceil(remaining / (sum/6)) 用整数精确计算
	months := int(ceilDiv(remaining*projectionWindowMonths, sum))
	date := FormatDate(AddMonths(thisMonth, months))
	result.CanReachTarget = true
	result.Message = fmt.Sprintf("Based on your average monthly savings of %s VND", avg.Div(hundred).StringFixed(0))
	result.MonthsToTarget = &months
	result.ProjectedDate = &date
	return result, nil
}

// ceilDiv 正整数向上取整除法
func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
