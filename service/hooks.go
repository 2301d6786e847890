package service

import (
	"context"
	"sync"
	"time"

	"jars/events"

	"github.com/rs/zerolog/log"
)

const (
	sideEffectTimeout = 10 * time.Second
	invalidateTimeout = 2 * time.Second
)

// AllocationMailer 发送月度分配汇总邮件
type AllocationMailer interface {
	SendAllocationSummary(toEmail, name string, alloc *IncomeAllocation) error
}

// Hooks 写操作提交后的旁路动作
// 看板缓存在请求路径上同步作废；视图刷新、事件和邮件异步执行，失败只记日志
type Hooks struct {
	refresher ViewRefresher
	publisher events.Publisher
	mailer    AllocationMailer
	wg        sync.WaitGroup
}

// NewHooks 任一参数可为 nil
func NewHooks(refresher ViewRefresher, publisher events.Publisher, mailer AllocationMailer) *Hooks {
	return &Hooks{refresher: refresher, publisher: publisher, mailer: mailer}
}

// Wait 等待所有进行中的旁路动作完成，用于优雅退出和测试
func (h *Hooks) Wait() {
	if h == nil {
		return
	}
	h.wg.Wait()
}

// afterCommit 同步作废看板缓存，然后在后台刷新视图并发布事件
func (h *Hooks) afterCommit(ctx context.Context, userID uint, evt *events.Event) {
	if h == nil {
		return
	}
	if h.refresher != nil {
		ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
		if err := h.refresher.Invalidate(ictx, userID); err != nil {
			log.Error().Err(err).Uint("user_id", userID).Msg("作废看板缓存失败")
		}
		cancel()
	}
	h.goBackground(func(ctx context.Context) {
		if h.refresher != nil {
			if err := h.refresher.Refresh(ctx, userID); err != nil {
				log.Warn().Err(err).Uint("user_id", userID).Msg("刷新聚合视图失败")
			}
		}
		if h.publisher != nil && evt != nil {
			if err := h.publisher.Publish(ctx, *evt); err != nil {
				log.Warn().Err(err).Str("event", evt.Type).Msg("发布事件失败")
			}
		}
	})
}

// mailAllocation 发送分配汇总邮件
func (h *Hooks) mailAllocation(toEmail, name string, alloc *IncomeAllocation) {
	if h == nil || h.mailer == nil || toEmail == "" {
		return
	}
	h.goBackground(func(context.Context) {
		if err := h.mailer.SendAllocationSummary(toEmail, name, alloc); err != nil {
			log.Warn().Err(err).Str("to", toEmail).Msg("发送分配汇总邮件失败")
		}
	})
}

func (h *Hooks) goBackground(fn func(ctx context.Context)) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("旁路任务异常")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		fn(ctx)
	}()
}
