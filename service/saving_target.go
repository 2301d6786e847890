package service

import (
	"context"
	"errors"

	"jars/events"
	"jars/models"
	"jars/repository"

	"gorm.io/gorm"
)

// SavingTargetService 储蓄目标，只追加
type SavingTargetService struct {
	store *repository.Store
	hooks *Hooks
}

func NewSavingTargetService(store *repository.Store, hooks *Hooks) *SavingTargetService {
	return &SavingTargetService{store: store, hooks: hooks}
}

// SetSavingTarget 追加一条新目标
func (s *SavingTargetService) SetSavingTarget(ctx context.Context, userID uint, targetAmountCents int64) (*models.SavingTarget, error) {
	if targetAmountCents <= 0 {
		return nil, NewValidationError("target_amount", "目标金额必须大于0")
	}
	target := &models.SavingTarget{UserID: userID, TargetAmountCents: targetAmountCents}
	if err := s.store.SavingTargets.Create(ctx, target); err != nil {
		return nil, err
	}

	evt := events.New(events.TypeSavingTargetSet, userID, map[string]int64{"target_amount": targetAmountCents})
	s.hooks.afterCommit(ctx, userID, &evt)
	return target, nil
}

// GetSavingTarget 当前目标金额，没有设置时为 0
func (s *SavingTargetService) GetSavingTarget(ctx context.Context, userID uint) (int64, error) {
	target, err := s.store.SavingTargets.Latest(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return target.TargetAmountCents, nil
}
