package models

import (
	"time"
)

// User 用户模型
// 首次通过身份提供方验证时创建，之后只允许修改 Name
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"uniqueIndex;size:191;not null"`
	Name      string    `json:"name" gorm:"size:100"`
	Subject   *string   `json:"-" gorm:"size:191;uniqueIndex"` // 身份提供方 subject，NULL 表示未绑定
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 设置表名
func (User) TableName() string {
	return "users"
}
