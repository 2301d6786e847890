package repository

import (
	"context"
	"fmt"
	"time"

	"jars/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IncomeEntryRepository 月度收入仓储
type IncomeEntryRepository struct {
	db *gorm.DB
}

func NewIncomeEntryRepository(db *gorm.DB) *IncomeEntryRepository {
	return &IncomeEntryRepository{db: db}
}

// FindForUpdate 查询用户某月的收入记录并加行锁
// sqlite 不支持 FOR UPDATE，整库写锁已足够
func (r *IncomeEntryRepository) FindForUpdate(ctx context.Context, userID uint, month time.Time) (*models.MonthlyIncomeEntry, error) {
	db := r.db.WithContext(ctx)
	if db.Dialector.Name() != "sqlite" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var entry models.MonthlyIncomeEntry
	if err := db.Where("user_id = ? AND month_year = ?", userID, month).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// Create 新建，(user_id, month_year) 冲突时返回 gorm.ErrDuplicatedKey
func (r *IncomeEntryRepository) Create(ctx context.Context, entry *models.MonthlyIncomeEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// UpdateAllocation 原地更新总额与分配比例
func (r *IncomeEntryRepository) UpdateAllocation(ctx context.Context, entry *models.MonthlyIncomeEntry) error {
	if err := r.db.WithContext(ctx).Save(entry).Error; err != nil {
		return fmt.Errorf("update income entry: %w", err)
	}
	return nil
}

// ListByUser 按月份倒序
func (r *IncomeEntryRepository) ListByUser(ctx context.Context, userID uint) ([]models.MonthlyIncomeEntry, error) {
	var entries []models.MonthlyIncomeEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("month_year DESC").
		Find(&entries).Error
	return entries, err
}

// Latest 最近一个月的收入记录
func (r *IncomeEntryRepository) Latest(ctx context.Context, userID uint) (*models.MonthlyIncomeEntry, error) {
	var entry models.MonthlyIncomeEntry
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("month_year DESC").First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *IncomeEntryRepository) DeleteByUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.MonthlyIncomeEntry{}).Error
}
