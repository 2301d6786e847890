package service

import (
	"context"
	"fmt"
	"time"

	"jars/cache"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler 后台定时任务，不参与核心业务
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC), cron.WithSeconds()),
	}
}

// Every 每隔 interval 执行一次 job
func (s *Scheduler) Every(interval time.Duration, name string, job func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("任务 %s 的间隔必须大于0", name)
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return s.cron.AddFunc(fmt.Sprintf("@every %ds", seconds), func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("job", name).Msg("定时任务异常")
			}
		}()
		job()
	})
}

// Entries 已注册任务数
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待运行中的任务结束
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// PurgeExpiredJob 清理进程内缓存的过期条目
func PurgeExpiredJob(p cache.Purger) func() {
	return func() {
		if n := p.CleanExpired(); n > 0 {
			log.Debug().Int("removed", n).Msg("已清理过期缓存")
		}
	}
}

// ForecastHealthCheckJob 探测预测服务是否可用
func ForecastHealthCheckJob(client *ForecastClient) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := client.HealthCheck(ctx); err != nil {
			log.Warn().Err(err).Msg("预测服务不可用")
			return
		}
		log.Debug().Msg("预测服务可用")
	}
}
