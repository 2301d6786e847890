package service

import (
	"context"
	"fmt"
	"regexp"

	"jars/cache"

	"gorm.io/gorm"
)

// ViewRefresher 刷新用户的聚合视图
// Invalidate 在请求路径上同步调用，Refresh 在后台执行
type ViewRefresher interface {
	Invalidate(ctx context.Context, userID uint) error
	Refresh(ctx context.Context, userID uint) error
}

var procedureName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// CacheRefresher 作废看板缓存；postgres 下可额外调用物化视图刷新函数
type CacheRefresher struct {
	cache    cache.Store
	db       *gorm.DB
	function string
}

// NewCacheRefresher db 或 function 为空时只作废缓存
func NewCacheRefresher(store cache.Store, db *gorm.DB, function string) (*CacheRefresher, error) {
	if function != "" && !procedureName.MatchString(function) {
		return nil, fmt.Errorf("非法的刷新函数名: %q", function)
	}
	return &CacheRefresher{cache: store, db: db, function: function}, nil
}

// Invalidate 看板代数加一，之后的读取不会再命中旧条目
func (r *CacheRefresher) Invalidate(ctx context.Context, userID uint) error {
	return InvalidateDashboard(ctx, r.cache, userID)
}

// Refresh 调用 postgres 刷新函数，其他方言什么也不做
func (r *CacheRefresher) Refresh(ctx context.Context, userID uint) error {
	if r.db != nil && r.function != "" && r.db.Dialector.Name() == "postgres" {
		if err := r.db.WithContext(ctx).Exec("SELECT " + r.function + "()").Error; err != nil {
			return fmt.Errorf("调用 %s 失败: %w", r.function, err)
		}
	}
	return nil
}

// InvalidateDashboard 递增用户看板代数并删除上一代的条目
// 代数递增之前开始的读取只会把结果写到旧代的键上
func InvalidateDashboard(ctx context.Context, store cache.Store, userID uint) error {
	if store == nil {
		return nil
	}
	gen, err := store.Incr(ctx, cache.DashboardGenKey(userID))
	if err != nil {
		return fmt.Errorf("递增看板代数失败: %w", err)
	}
	if err := store.Delete(ctx, cache.DashboardKey(userID, gen-1)); err != nil {
		return fmt.Errorf("清除看板缓存失败: %w", err)
	}
	return nil
}
