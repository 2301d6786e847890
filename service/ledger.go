package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jars/events"
	"jars/models"
	"jars/repository"

	"github.com/rs/zerolog/log"
)

// TransactionInput 手工或助手录入的流水
type TransactionInput struct {
	JarCategoryID uint
	AmountCents   int64 // 正数收入，负数支出
	Description   string
	Source        string
	OccurredAt    *time.Time
}

// TransactionPage 分页查询结果
type TransactionPage struct {
	Total int64                                `json:"total"`
	List  []repository.TransactionWithCategory `json:"list"`
}

// CategorySummary 类别收支
type CategorySummary struct {
	Income   int64 `json:"income"`
	Expenses int64 `json:"expenses"`
	Net      int64 `json:"net"`
	Count    int64 `json:"count"`
}

// TransactionSummary 近 N 天收支汇总
type TransactionSummary struct {
	Days                 int                        `json:"days"`
	TotalIncome          int64                      `json:"total_income"`
	TotalExpenses        int64                      `json:"total_expenses"`
	NetAmount            int64                      `json:"net_amount"`
	TransactionCount     int64                      `json:"transaction_count"`
	HasHistoricalData    bool                       `json:"has_historical_data"`
	FirstTransactionDate *time.Time                 `json:"first_transaction_date"`
	CategoryBreakdown    map[string]CategorySummary `json:"category_breakdown"`
}

// SwapResult 罐子间转账产生的两笔流水
type SwapResult struct {
	From models.Transaction `json:"from"`
	To   models.Transaction `json:"to"`
}

// LedgerService 流水相关操作
type LedgerService struct {
	store *repository.Store
	hooks *Hooks
	now   func() time.Time
}

func NewLedgerService(store *repository.Store, hooks *Hooks) *LedgerService {
	return &LedgerService{store: store, hooks: hooks, now: time.Now}
}

// Categories 全部罐子类别
func (s *LedgerService) Categories(ctx context.Context) ([]models.JarCategory, error) {
	return s.store.JarCategories.List(ctx)
}

// AddTransaction 新增一笔流水
func (s *LedgerService) AddTransaction(ctx context.Context, userID uint, in TransactionInput) (*models.Transaction, error) {
	if in.AmountCents == 0 {
		return nil, NewValidationError("amount", "金额不能为0")
	}
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return nil, NewValidationError("description", "描述不能为空")
	}
	if in.Source == "" {
		in.Source = models.SourceManual
	}
	if in.Source != models.SourceManual && in.Source != models.SourceChatbot {
		return nil, NewValidationError("source", "来源只能是 manual 或 chatbot")
	}
	if _, err := s.store.JarCategories.GetByID(ctx, in.JarCategoryID); err != nil {
		return nil, notFoundOr(err, "jar_category", fmt.Sprintf("罐子类别 %d 不存在", in.JarCategoryID))
	}

	occurred := s.now().UTC()
	if in.OccurredAt != nil {
		occurred = in.OccurredAt.UTC()
	}
	tx := &models.Transaction{
		UserID:        userID,
		JarCategoryID: in.JarCategoryID,
		AmountCents:   in.AmountCents,
		Description:   in.Description,
		Source:        in.Source,
		OccurredAt:    occurred,
	}
	if err := s.store.Transactions.Create(ctx, tx); err != nil {
		return nil, err
	}

	evt := events.New(events.TypeTransactionCreated, userID, tx)
	s.hooks.afterCommit(ctx, userID, &evt)
	return tx, nil
}

// ListTransactions 按条件查询流水，最新在前
func (s *LedgerService) ListTransactions(ctx context.Context, userID uint, f repository.TransactionFilter) (*TransactionPage, error) {
	switch f.Type {
	case "", repository.TypeAll, repository.TypeIncome, repository.TypeExpense:
	default:
		return nil, NewValidationError("type", "类型只能是 income、expense 或 all")
	}
	if f.Limit < 0 || f.Offset < 0 {
		return nil, NewValidationError("limit", "分页参数不能为负数")
	}
	list, total, err := s.store.Transactions.List(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("查询流水失败: %w", err)
	}
	return &TransactionPage{Total: total, List: list}, nil
}

// DeleteTransaction 删除用户自己的一笔流水
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id uint) error {
	if err := s.store.Transactions.DeleteForUser(ctx, userID, id); err != nil {
		return notFoundOr(err, "transaction", "流水不存在")
	}
	evt := events.New(events.TypeTransactionDeleted, userID, map[string]uint{"id": id})
	s.hooks.afterCommit(ctx, userID, &evt)
	return nil
}

// Summary 近 days 天的收支汇总，days <= 0 时取 30
func (s *LedgerService) Summary(ctx context.Context, userID uint, days int) (*TransactionSummary, error) {
	if days <= 0 {
		days = 30
	}
	since := s.now().UTC().AddDate(0, 0, -days)

	rows, err := s.store.Transactions.TotalsByCategory(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("汇总流水失败: %w", err)
	}
	first, err := s.store.Transactions.FirstOccurredAt(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("查询首笔流水失败: %w", err)
	}

	sum := &TransactionSummary{
		Days:                 days,
		HasHistoricalData:    first != nil,
		FirstTransactionDate: first,
		CategoryBreakdown:    make(map[string]CategorySummary, len(rows)),
	}
	for _, r := range rows {
		sum.TotalIncome += r.Income
		sum.TotalExpenses += r.Expense
		sum.TransactionCount += r.Count
		sum.CategoryBreakdown[r.CategoryName] = CategorySummary{
			Income:   r.Income,
			Expenses: r.Expense,
			Net:      r.Income - r.Expense,
			Count:    r.Count,
		}
	}
	sum.NetAmount = sum.TotalIncome - sum.TotalExpenses
	return sum, nil
}

// SwapJar 从一个罐子转到另一个罐子，两笔流水在同一事务中写入
func (s *LedgerService) SwapJar(ctx context.Context, userID uint, fromName, toName string, amountCents int64, description string) (*SwapResult, error) {
	if amountCents <= 0 {
		return nil, NewValidationError("amount", "转账金额必须大于0")
	}
	if strings.EqualFold(fromName, toName) {
		return nil, NewValidationError("to_jar", "转出和转入罐子不能相同")
	}
	if strings.TrimSpace(description) == "" {
		description = "Jar swap"
	}

	var result SwapResult
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		from, err := tx.JarCategories.GetByName(ctx, fromName)
		if err != nil {
			return notFoundOr(err, "jar_category", "罐子不存在: "+fromName)
		}
		to, err := tx.JarCategories.GetByName(ctx, toName)
		if err != nil {
			return notFoundOr(err, "jar_category", "罐子不存在: "+toName)
		}

		now := s.now().UTC()
		result.From = models.Transaction{
			UserID:        userID,
			JarCategoryID: from.ID,
			AmountCents:   -amountCents,
			Description:   fmt.Sprintf("%s (to %s)", description, to.Name),
			Source:        models.SourceManual,
			OccurredAt:    now,
		}
		result.To = models.Transaction{
			UserID:        userID,
			JarCategoryID: to.ID,
			AmountCents:   amountCents,
			Description:   fmt.Sprintf("%s (from %s)", description, from.Name),
			Source:        models.SourceManual,
			OccurredAt:    now,
		}
		if err := tx.Transactions.Create(ctx, &result.From); err != nil {
			return err
		}
		return tx.Transactions.Create(ctx, &result.To)
	})
	if err != nil {
		return nil, err
	}

	evt := events.New(events.TypeTransactionCreated, userID, result)
	s.hooks.afterCommit(ctx, userID, &evt)
	return &result, nil
}

// DeleteAllUserData 清空用户的全部数据，保留用户本身和罐子类别
func (s *LedgerService) DeleteAllUserData(ctx context.Context, userID uint) error {
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Transactions.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("删除流水失败: %w", err)
		}
		if err := tx.IncomeEntries.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("删除月度收入失败: %w", err)
		}
		if err := tx.UserJars.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("删除用户罐子失败: %w", err)
		}
		if err := tx.SavingTargets.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("删除储蓄目标失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Uint("user_id", userID).Msg("用户数据已清空")
	evt := events.New(events.TypeUserDataDeleted, userID, nil)
	s.hooks.afterCommit(ctx, userID, &evt)
	return nil
}

// IncomeHistory 月度收入记录，最新在前
func (s *LedgerService) IncomeHistory(ctx context.Context, userID uint) ([]models.MonthlyIncomeEntry, error) {
	return s.store.IncomeEntries.ListByUser(ctx, userID)
}

// ExportTransactions 导出用的全部流水（带类别名）
func (s *LedgerService) ExportTransactions(ctx context.Context, userID uint, f repository.TransactionFilter) ([]repository.TransactionWithCategory, error) {
	f.Limit, f.Offset = 0, 0
	list, _, err := s.store.Transactions.List(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("查询流水失败: %w", err)
	}
	return list, nil
}
