package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"jars/models"
	"jars/repository"

	"gorm.io/gorm"
)

// IdentityUser 身份提供方返回的已验证身份
type IdentityUser struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

// UserService 用户
type UserService struct {
	store *repository.Store
}

func NewUserService(store *repository.Store) *UserService {
	return &UserService{store: store}
}

// GetProfile 用户资料
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user", "用户不存在")
	}
	return user, nil
}

// UpdateName 修改显示名
func (s *UserService) UpdateName(ctx context.Context, userID uint, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name", "名称不能为空")
	}
	if len([]rune(name)) > 100 {
		return nil, NewValidationError("name", "名称不能超过100个字符")
	}
	if err := s.store.Users.UpdateName(ctx, userID, name); err != nil {
		return nil, notFoundOr(err, "user", "用户不存在")
	}
	return s.GetProfile(ctx, userID)
}

// EnsureUser 首次登录时创建用户，之后按 subject 或邮箱找到已有用户
func (s *UserService) EnsureUser(ctx context.Context, id IdentityUser) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(id.Email))
	if email == "" {
		return nil, NewValidationError("email", "身份信息中缺少邮箱")
	}

	if id.Subject != "" {
		user, err := s.store.Users.GetBySubject(ctx, id.Subject)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("查询用户失败: %w", err)
		}
	}

	user, err := s.store.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if user.Subject == nil && id.Subject != "" {
			if err := s.store.Users.BindSubject(ctx, user.ID, id.Subject); err != nil {
				return nil, fmt.Errorf("绑定身份失败: %w", err)
			}
			sub := id.Subject
			user.Subject = &sub
		}
		return user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = strings.Split(email, "@")[0]
	}
	user = &models.User{Email: email, Name: name}
	if id.Subject != "" {
		sub := id.Subject
		user.Subject = &sub
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.store.Users.GetByEmail(ctx, email)
		}
		return nil, err
	}
	return user, nil
}
