package service

import (
	"context"
	"fmt"

	"jars/models"
	"jars/repository"

	"github.com/rs/zerolog/log"
)

// maxConflictAttempts 并发冲突时事务最多执行的次数
const maxConflictAttempts = 3

// SetupResult 开通检查结果
type SetupResult struct {
	Success bool `json:"success"`
}

// ProvisioningService 为新用户开通全部罐子
type ProvisioningService struct {
	store *repository.Store
}

func NewProvisioningService(store *repository.Store) *ProvisioningService {
	return &ProvisioningService{store: store}
}

// EnsureJarsProvisioned 幂等：已有罐子时不做任何事，否则一次性为每个类别创建罐子
// 并发开通触发唯一索引冲突时视为成功
func (s *ProvisioningService) EnsureJarsProvisioned(ctx context.Context, userID uint) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = s.provision(ctx, userID)
		if repository.IsDuplicateKey(err) {
			log.Debug().Uint("user_id", userID).Msg("罐子已由并发请求开通")
			return nil
		}
		if err == nil || attempt >= maxConflictAttempts || !repository.IsRetryableConflict(err) {
			return err
		}
		log.Debug().Err(err).Uint("user_id", userID).Int("attempt", attempt).Msg("开通罐子事务冲突，重试")
	}
}

func (s *ProvisioningService) provision(ctx context.Context, userID uint) error {
	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		count, err := tx.UserJars.CountByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("查询用户罐子失败: %w", err)
		}
		if count > 0 {
			return nil
		}

		cats, err := tx.JarCategories.List(ctx)
		if err != nil {
			return fmt.Errorf("查询罐子类别失败: %w", err)
		}
		jars := make([]models.UserJar, 0, len(cats))
		for _, c := range cats {
			jars = append(jars, models.UserJar{UserID: userID, JarCategoryID: c.ID})
		}
		return tx.UserJars.CreateBatch(ctx, jars)
	})
}

// CheckSetup 登录后调用，保证罐子已开通
func (s *ProvisioningService) CheckSetup(ctx context.Context, userID uint) (*SetupResult, error) {
	if err := s.EnsureJarsProvisioned(ctx, userID); err != nil {
		return nil, err
	}
	return &SetupResult{Success: true}, nil
}
