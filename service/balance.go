package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"jars/cache"
	"jars/models"
	"jars/repository"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// JarBalance 单个罐子的余额投影
type JarBalance struct {
	JarCategoryID              uint    `json:"jar_category_id"`
	CategoryName               string  `json:"category_name"`
	Description                string  `json:"description"`
	TotalIncomeCents           int64   `json:"total_income"`
	TotalSpentCents            int64   `json:"total_spent"`
	CurrentBalanceCents        int64   `json:"current_balance"`
	IncomeThisMonth            int64   `json:"income_this_month"`
	SpentThisMonth             int64   `json:"spent_this_month"`
	AllocatedThisMonth         int64   `json:"allocated_amount_this_month"`
	LatestAllocationPercentage float64 `json:"latest_allocation_percentage"`
}

// LifetimeBalance 全部罐子的累计
type LifetimeBalance struct {
	TotalIncome    int64 `json:"total_income"`
	TotalSpent     int64 `json:"total_spent"`
	CurrentBalance int64 `json:"current_balance"`
}

// Dashboard 看板数据
type Dashboard struct {
	User            *models.User                `json:"user"`
	Jars            []JarBalance                `json:"jars"`
	IncomeHistory   []models.MonthlyIncomeEntry `json:"income_history"`
	LifetimeBalance LifetimeBalance             `json:"lifetime_balance"`
}

// BalanceService 余额聚合，每次读取时从流水重新计算
type BalanceService struct {
	store *repository.Store
	cache cache.Store
	now   func() time.Time
}

// NewBalanceService dashboardCache 为 nil 时不缓存
func NewBalanceService(store *repository.Store, dashboardCache cache.Store) *BalanceService {
	return &BalanceService{store: store, cache: dashboardCache, now: time.Now}
}

// JarBalances 用户各罐子的余额，按类别名称排序
// 包含已开通的罐子和有流水的罐子
func (s *BalanceService) JarBalances(ctx context.Context, userID uint) ([]JarBalance, error) {
	monthStart := MonthStart(s.now())
	monthEnd := AddMonths(monthStart, 1)

	sums, err := s.store.Transactions.SumsByJar(ctx, userID, monthStart, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("汇总罐子流水失败: %w", err)
	}
	provisioned, err := s.store.UserJars.CategoryIDsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("查询用户罐子失败: %w", err)
	}
	cats, err := s.store.JarCategories.ListByName(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询罐子类别失败: %w", err)
	}

	var latest models.AllocationPercentages
	entry, err := s.store.IncomeEntries.Latest(ctx, userID)
	switch {
	case err == nil:
		latest = entry.Percentages()
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("查询最近月度收入失败: %w", err)
	}

	include := make(map[uint]bool, len(provisioned)+len(sums))
	for _, id := range provisioned {
		include[id] = true
	}
	byJar := make(map[uint]repository.JarSums, len(sums))
	for _, row := range sums {
		include[row.JarCategoryID] = true
		byJar[row.JarCategoryID] = row
	}

	balances := make([]JarBalance, 0, len(include))
	for _, cat := range cats {
		if !include[cat.ID] {
			continue
		}
		row := byJar[cat.ID]
		balances = append(balances, JarBalance{
			JarCategoryID:              cat.ID,
			CategoryName:               cat.Name,
			Description:                cat.Description,
			TotalIncomeCents:           row.TotalIncome,
			TotalSpentCents:            row.TotalSpent,
			CurrentBalanceCents:        row.TotalIncome - row.TotalSpent,
			IncomeThisMonth:            row.IncomeThisMonth,
			SpentThisMonth:             row.SpentThisMonth,
			AllocatedThisMonth:         row.AllocatedThisMonth,
			LatestAllocationPercentage: latest[cat.Name],
		})
	}
	sort.SliceStable(balances, func(i, j int) bool { return balances[i].CategoryName < balances[j].CategoryName })
	return balances, nil
}

// JarBalance 单个罐子的净余额
func (s *BalanceService) JarBalance(ctx context.Context, userID, categoryID uint) (int64, error) {
	return s.store.Transactions.NetByJar(ctx, userID, categoryID)
}

// Lifetime 汇总各罐子
func Lifetime(jars []JarBalance) LifetimeBalance {
	var lb LifetimeBalance
	for _, j := range jars {
		lb.TotalIncome += j.TotalIncomeCents
		lb.TotalSpent += j.TotalSpentCents
		lb.CurrentBalance += j.CurrentBalanceCents
	}
	return lb
}

// dashboardKey 当前代数下的看板缓存键，读不到代数时不使用缓存
func (s *BalanceService) dashboardKey(ctx context.Context, userID uint) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	gen, err := s.cache.Counter(ctx, cache.DashboardGenKey(userID))
	if err != nil {
		log.Warn().Err(err).Uint("user_id", userID).Msg("读取看板代数失败")
		return "", false
	}
	return cache.DashboardKey(userID, gen), true
}

// Dashboard 看板：用户、罐子余额、收入历史、累计余额
func (s *BalanceService) Dashboard(ctx context.Context, userID uint) (*Dashboard, error) {
	// 代数必须在查询数据之前读取
	key, cacheable := s.dashboardKey(ctx, userID)
	if cacheable {
		if raw, ok, err := s.cache.Get(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("读取看板缓存失败")
		} else if ok {
			var d Dashboard
			if err := json.Unmarshal(raw, &d); err == nil {
				return &d, nil
			}
		}
	}

	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user", "用户不存在")
	}

	d := &Dashboard{User: user}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		jars, err := s.JarBalances(gctx, userID)
		if err != nil {
			return err
		}
		d.Jars = jars
		return nil
	})
	g.Go(func() error {
		history, err := s.store.IncomeEntries.ListByUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("查询收入历史失败: %w", err)
		}
		d.IncomeHistory = history
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	d.LifetimeBalance = Lifetime(d.Jars)

	if cacheable {
		if raw, err := json.Marshal(d); err == nil {
			if err := s.cache.Set(ctx, key, raw); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("写入看板缓存失败")
			}
		}
	}
	return d, nil
}
