package repository

import (
	"context"
	"fmt"

	"jars/models"

	"gorm.io/gorm"
)

// UserRepository 用户仓储
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetBySubject(ctx context.Context, subject string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("subject = ?", subject).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateName 只允许修改显示名
func (r *UserRepository) UpdateName(ctx context.Context, id uint, name string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// BindSubject 绑定身份提供方 subject
func (r *UserRepository) BindSubject(ctx context.Context, id uint, subject string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("subject", subject).Error
}
