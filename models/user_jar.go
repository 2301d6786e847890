package models

import "time"

// UserJar 用户拥有的罐子，每个用户每个类别至多一个
type UserJar struct {
	ID            uint        `json:"id" gorm:"primaryKey"`
	UserID        uint        `json:"user_id" gorm:"not null;uniqueIndex:idx_user_jar"`
	JarCategoryID uint        `json:"jar_category_id" gorm:"not null;uniqueIndex:idx_user_jar"`
	CreatedAt     time.Time   `json:"created_at"`
	JarCategory   JarCategory `json:"-" gorm:"foreignKey:JarCategoryID"`
}

func (UserJar) TableName() string {
	return "user_jars"
}
