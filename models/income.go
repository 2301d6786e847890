package models

import (
	"time"

	"gorm.io/datatypes"
)

// AllocationPercentages 罐子名称 -> 分配百分比
type AllocationPercentages map[string]float64

// MonthlyIncomeEntry 月度收入记录
// 每个用户每月一条，重复提交时原地更新并重新分配
type MonthlyIncomeEntry struct {
	ID                    uint                                      `json:"id" gorm:"primaryKey"`
	UserID                uint                                      `json:"user_id" gorm:"not null;uniqueIndex:idx_income_user_month"`
	MonthYear             time.Time                                 `json:"month_year" gorm:"not null;uniqueIndex:idx_income_user_month"` // 当月1日 00:00 UTC
	TotalIncomeCents      int64                                     `json:"total_income" gorm:"not null"`
	AllocationPercentages datatypes.JSONType[AllocationPercentages] `json:"allocation_percentages"`
	CreatedAt             time.Time                                 `json:"created_at"`
	UpdatedAt             time.Time                                 `json:"updated_at"`
}

func (MonthlyIncomeEntry) TableName() string {
	return "monthly_income_entries"
}

// Percentages 返回分配百分比
func (e MonthlyIncomeEntry) Percentages() AllocationPercentages {
	return e.AllocationPercentages.Data()
}
