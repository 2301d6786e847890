package models

import "time"

// SavingTarget 储蓄目标，只追加，最新一条为当前目标
type SavingTarget struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	UserID            uint      `json:"user_id" gorm:"not null;index"`
	TargetAmountCents int64     `json:"target_amount" gorm:"not null"`
	CreatedAt         time.Time `json:"created_at" gorm:"index"`
}

func (SavingTarget) TableName() string {
	return "user_saving_targets"
}
