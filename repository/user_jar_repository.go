package repository

import (
	"context"

	"jars/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserJarRepository 用户罐子仓储
type UserJarRepository struct {
	db *gorm.DB
}

func NewUserJarRepository(db *gorm.DB) *UserJarRepository {
	return &UserJarRepository{db: db}
}

func (r *UserJarRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserJar{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// CreateBatch 批量创建，唯一索引冲突时返回 gorm.ErrDuplicatedKey
func (r *UserJarRepository) CreateBatch(ctx context.Context, jars []models.UserJar) error {
	if len(jars) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&jars).Error
}

// CategoryIDsByUser 用户已开通的类别ID
func (r *UserJarRepository) CategoryIDsByUser(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.UserJar{}).
		Where("user_id = ?", userID).
		Order("jar_category_id").
		Pluck("jar_category_id", &ids).Error
	return ids, err
}

func (r *UserJarRepository) DeleteByUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.UserJar{}).Error
}
