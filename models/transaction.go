package models

import "time"

// 交易来源
const (
	SourceManual        = "manual"
	SourceChatbot       = "chatbot"
	SourceMonthlyIncome = "monthly_income"
)

// Transaction 罐子流水
// 金额为最小货币单位，正数为收入，负数为支出；只做物理删除
type Transaction struct {
	ID                   uint      `json:"id" gorm:"primaryKey"`
	UserID               uint      `json:"user_id" gorm:"not null;index:idx_tx_user_occurred"`
	JarCategoryID        uint      `json:"jar_category_id" gorm:"not null;index"`
	AmountCents          int64     `json:"amount" gorm:"not null"`
	Description          string    `json:"description" gorm:"size:255;not null"`
	Source               string    `json:"source" gorm:"size:20;not null;default:manual"`
	MonthlyIncomeEntryID *uint     `json:"monthly_income_entry_id,omitempty" gorm:"index"`
	OccurredAt           time.Time `json:"occurred_at" gorm:"not null;index:idx_tx_user_occurred"`
	CreatedAt            time.Time `json:"created_at"`

	JarCategory JarCategory `json:"-" gorm:"foreignKey:JarCategoryID"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// IsIncome 是否为收入
func (t Transaction) IsIncome() bool {
	return t.AmountCents > 0
}
