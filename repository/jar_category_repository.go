package repository

import (
	"context"

	"jars/models"

	"gorm.io/gorm"
)

// JarCategoryRepository 罐子类别仓储（只读）
type JarCategoryRepository struct {
	db *gorm.DB
}

func NewJarCategoryRepository(db *gorm.DB) *JarCategoryRepository {
	return &JarCategoryRepository{db: db}
}

// List 按 sort 排序
func (r *JarCategoryRepository) List(ctx context.Context) ([]models.JarCategory, error) {
	var cats []models.JarCategory
	if err := r.db.WithContext(ctx).Order("sort ASC, id ASC").Find(&cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}

// ListByName 按名称排序，分配顺序依赖它
func (r *JarCategoryRepository) ListByName(ctx context.Context) ([]models.JarCategory, error) {
	var cats []models.JarCategory
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}

func (r *JarCategoryRepository) GetByID(ctx context.Context, id uint) (*models.JarCategory, error) {
	var cat models.JarCategory
	if err := r.db.WithContext(ctx).First(&cat, id).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *JarCategoryRepository) GetByName(ctx context.Context, name string) (*models.JarCategory, error) {
	var cat models.JarCategory
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&cat).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}
