package repository

import (
	"context"
	"fmt"

	"jars/models"

	"gorm.io/gorm"
)

// SavingTargetRepository 储蓄目标仓储
type SavingTargetRepository struct {
	db *gorm.DB
}

func NewSavingTargetRepository(db *gorm.DB) *SavingTargetRepository {
	return &SavingTargetRepository{db: db}
}

func (r *SavingTargetRepository) Create(ctx context.Context, target *models.SavingTarget) error {
	if err := r.db.WithContext(ctx).Create(target).Error; err != nil {
		return fmt.Errorf("create saving target: %w", err)
	}
	return nil
}

// Latest 最新的储蓄目标
func (r *SavingTargetRepository) Latest(ctx context.Context, userID uint) (*models.SavingTarget, error) {
	var target models.SavingTarget
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&target).Error
	if err != nil {
		return nil, err
	}
	return &target, nil
}

func (r *SavingTargetRepository) DeleteByUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.SavingTarget{}).Error
}
