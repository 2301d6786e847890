package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"jars/events"
	"jars/models"
	"jars/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 百分比总和允许的误差
var percentTolerance = decimal.RequireFromString("0.01")

// AllocatedJar 单个罐子的分配结果
type AllocatedJar struct {
	JarCategoryID uint    `json:"jar_category_id"`
	CategoryName  string  `json:"category_name"`
	Percentage    float64 `json:"percentage"`
	AmountCents   int64   `json:"amount"`
	TransactionID uint    `json:"transaction_id"`
}

// IncomeAllocation 月度收入分配结果
type IncomeAllocation struct {
	Entry        *models.MonthlyIncomeEntry `json:"income_entry"`
	Transactions []AllocatedJar             `json:"transactions"`
	// 重新分配时被替换掉的旧流水条数
	Replaced int64 `json:"replaced"`
}

// AllocatedTotal 各罐子分配金额之和，与总收入的差额即舍入误差
func (a *IncomeAllocation) AllocatedTotal() int64 {
	var sum int64
	for _, t := range a.Transactions {
		sum += t.AmountCents
	}
	return sum
}

// AllocationService 月度收入分配引擎
type AllocationService struct {
	store *repository.Store
	hooks *Hooks
}

// NewAllocationService 创建分配引擎
func NewAllocationService(store *repository.Store, hooks *Hooks) *AllocationService {
	return &AllocationService{store: store, hooks: hooks}
}

// AddMonthlyIncome 记录某月收入并按比例分配到各罐子
// 同一用户同一月份重复调用时，旧的分配流水全部删除后重新生成
func (s *AllocationService) AddMonthlyIncome(ctx context.Context, userID uint, monthYear string, totalIncomeCents int64, percentages map[string]float64) (*IncomeAllocation, error) {
	month, err := ParseMonth(monthYear)
	if err != nil {
		return nil, err
	}
	if totalIncomeCents <= 0 {
		return nil, NewValidationError("total_income", "收入金额必须大于0")
	}

	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user", "用户不存在")
	}

	cats, err := s.store.JarCategories.ListByName(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询罐子类别失败: %w", err)
	}
	if err := ValidatePercentages(percentages, cats); err != nil {
		return nil, err
	}

	var result *IncomeAllocation
	run := func() error {
		return s.store.Transaction(ctx, func(tx *repository.Store) error {
			var err error
			result, err = allocate(ctx, tx, userID, month, totalIncomeCents, percentages, cats)
			return err
		})
	}

	// 并发的首次插入会撞唯一索引或死锁，回滚后重试，重试时走更新路径
	for attempt := 1; ; attempt++ {
		err = run()
		if err == nil || attempt >= maxConflictAttempts || !repository.IsRetryableConflict(err) {
			break
		}
		log.Debug().Err(err).Uint("user_id", userID).Str("month", FormatMonth(month)).Int("attempt", attempt).Msg("月度收入并发写入，重试")
	}
	if err != nil {
		return nil, fmt.Errorf("保存月度收入失败: %w", err)
	}

	drift := totalIncomeCents - result.AllocatedTotal()
	log.Info().
		Uint("user_id", userID).
		Str("month", FormatMonth(month)).
		Int64("total", totalIncomeCents).
		Int("jars", len(result.Transactions)).
		Int64("drift", drift).
		Int64("replaced", result.Replaced).
		Msg("月度收入已分配")

	evt := events.New(events.TypeIncomeAllocated, userID, map[string]interface{}{
		"income_entry_id": result.Entry.ID,
		"month_year":      FormatMonth(month),
		"total_income":    totalIncomeCents,
		"allocated":       result.AllocatedTotal(),
	})
	s.hooks.afterCommit(ctx, userID, &evt)
	s.hooks.mailAllocation(user.Email, user.Name, result)

	return result, nil
}

// allocate 在事务内完成：锁定/创建月度记录、删除旧流水、写入新流水
func allocate(ctx context.Context, tx *repository.Store, userID uint, month time.Time, total int64, percentages map[string]float64, cats []models.JarCategory) (*IncomeAllocation, error) {
	result := &IncomeAllocation{}

	entry, err := tx.IncomeEntries.FindForUpdate(ctx, userID, month)
	switch {
	case err == nil:
		replaced, err := tx.Transactions.DeleteByIncomeEntry(ctx, userID, entry.ID)
		if err != nil {
			return nil, fmt.Errorf("删除旧分配流水失败: %w", err)
		}
		result.Replaced = replaced
		entry.TotalIncomeCents = total
		entry.AllocationPercentages = datatypes.NewJSONType(models.AllocationPercentages(percentages))
		if err := tx.IncomeEntries.UpdateAllocation(ctx, entry); err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		entry = &models.MonthlyIncomeEntry{
			UserID:                userID,
			MonthYear:             month,
			TotalIncomeCents:      total,
			AllocationPercentages: datatypes.NewJSONType(models.AllocationPercentages(percentages)),
		}
		if err := tx.IncomeEntries.Create(ctx, entry); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("查询月度收入失败: %w", err)
	}
	result.Entry = entry

	entryID := entry.ID
	var txs []models.Transaction
	var pcts []float64
	for _, cat := range cats {
		pct, ok := percentages[cat.Name]
		if !ok || pct <= 0 {
			continue
		}
		amount := AllocateShare(total, pct)
		if amount <= 0 {
			continue
		}
		txs = append(txs, models.Transaction{
			UserID:               userID,
			JarCategoryID:        cat.ID,
			AmountCents:          amount,
			Description:          "Monthly income allocation for " + cat.Name,
			Source:               models.SourceMonthlyIncome,
			MonthlyIncomeEntryID: &entryID,
			OccurredAt:           month,
		})
		pcts = append(pcts, pct)
	}
	if err := tx.Transactions.CreateBatch(ctx, txs); err != nil {
		return nil, err
	}

	byID := make(map[uint]string, len(cats))
	for _, c := range cats {
		byID[c.ID] = c.Name
	}
	for i, t := range txs {
		result.Transactions = append(result.Transactions, AllocatedJar{
			JarCategoryID: t.JarCategoryID,
			CategoryName:  byID[t.JarCategoryID],
			Percentage:    pcts[i],
			AmountCents:   t.AmountCents,
			TransactionID: t.ID,
		})
	}
	return result, nil
}

// ValidatePercentages 校验分配比例：数值有限且非负、罐子名称存在、总和为 100±0.01
func ValidatePercentages(percentages map[string]float64, cats []models.JarCategory) error {
	if len(percentages) == 0 {
		return NewValidationError("allocation_percentages", "分配比例不能为空")
	}
	known := make(map[string]bool, len(cats))
	for _, c := range cats {
		known[c.Name] = true
	}

	names := make([]string, 0, len(percentages))
	for name := range percentages {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := percentages[name]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewValidationError("allocation_percentages", fmt.Sprintf("%s 的比例不是有效数字", name))
		}
		if v < 0 {
			return NewValidationError("allocation_percentages", fmt.Sprintf("%s 的比例不能为负数", name))
		}
		if !known[name] {
			return NewValidationError("allocation_percentages", fmt.Sprintf("未知的罐子: %s", name))
		}
	}

	sum := SumPercentages(percentages)
	if sum.Sub(hundred).Abs().GreaterThan(percentTolerance) {
		return NewValidationError("allocation_percentages",
			fmt.Sprintf("分配比例总和必须为100%%，当前为 %s%%", sum.String()))
	}
	return nil
}
