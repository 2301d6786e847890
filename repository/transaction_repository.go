package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jars/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 交易类型过滤
const (
	TypeAll     = "all"
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// TransactionFilter 流水查询条件
type TransactionFilter struct {
	JarCategoryID uint
	Type          string
	StartDate     *time.Time
	EndDate       *time.Time // 不含
	Keywords      []string   // 描述中包含任一关键字，忽略大小写
	Limit         int
	Offset        int
}

// TransactionWithCategory 带类别名称的流水
type TransactionWithCategory struct {
	models.Transaction
	CategoryName string `json:"category_name"`
}

// JarSums 单个罐子的汇总
type JarSums struct {
	JarCategoryID      uint
	TotalIncome        int64
	TotalSpent         int64
	IncomeThisMonth    int64
	SpentThisMonth     int64
	AllocatedThisMonth int64
}

// CategoryTotals 按类别汇总的收支
type CategoryTotals struct {
	JarCategoryID uint   `json:"jar_category_id"`
	CategoryName  string `json:"category_name"`
	Income        int64  `json:"income"`
	Expense       int64  `json:"expense"`
	Count         int64  `json:"count"`
}

// TransactionRepository 流水仓储
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(tx).Error; err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) CreateBatch(ctx context.Context, txs []models.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&txs).Error; err != nil {
		return fmt.Errorf("create transactions: %w", err)
	}
	return nil
}

// DeleteByIncomeEntry 删除某条月度收入生成的全部分配流水
func (r *TransactionRepository) DeleteByIncomeEntry(ctx context.Context, userID, entryID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND monthly_income_entry_id = ?", userID, entryID).
		Delete(&models.Transaction{})
	return res.RowsAffected, res.Error
}

// DeleteForUser 只删除属于该用户的流水
func (r *TransactionRepository) DeleteForUser(ctx context.Context, userID, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Transaction{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *TransactionRepository) DeleteByUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Transaction{}).Error
}

// ListByIncomeEntry 某条月度收入生成的流水
func (r *TransactionRepository) ListByIncomeEntry(ctx context.Context, userID, entryID uint) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND monthly_income_entry_id = ?", userID, entryID).
		Order("jar_category_id").
		Find(&txs).Error
	return txs, err
}

// List 按条件查询，最新在前
func (r *TransactionRepository) List(ctx context.Context, userID uint, f TransactionFilter) ([]TransactionWithCategory, int64, error) {
	q := r.db.WithContext(ctx).
		Table("transactions").
		Where("transactions.user_id = ?", userID)

	if f.JarCategoryID > 0 {
		q = q.Where("transactions.jar_category_id = ?", f.JarCategoryID)
	}
	switch f.Type {
	case TypeIncome:
		q = q.Where("transactions.amount_cents > 0")
	case TypeExpense:
		q = q.Where("transactions.amount_cents < 0")
	}
	if f.StartDate != nil {
		q = q.Where("transactions.occurred_at >= ?", f.StartDate.UTC())
	}
	if f.EndDate != nil {
		q = q.Where("transactions.occurred_at < ?", f.EndDate.UTC())
	}
	if len(f.Keywords) > 0 {
		cond := "LOWER(transactions.description) LIKE ?" + likeEscapeClause(r.db)
		conds := make([]string, 0, len(f.Keywords))
		args := make([]interface{}, 0, len(f.Keywords))
		for _, kw := range f.Keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			conds = append(conds, cond)
			args = append(args, "%"+escapeLikeValue(strings.ToLower(kw))+"%")
		}
		if len(conds) > 0 {
			q = q.Where("("+strings.Join(conds, " OR ")+")", args...)
		}
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []TransactionWithCategory
	q = q.Select("transactions.*, jar_categories.name AS category_name").
		Joins("LEFT JOIN jar_categories ON jar_categories.id = transactions.jar_category_id").
		Order("transactions.occurred_at DESC, transactions.id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// SumsByJar 一次 GROUP BY 计算每个罐子的累计与本月收支
func (r *TransactionRepository) SumsByJar(ctx context.Context, userID uint, monthStart, monthEnd time.Time) ([]JarSums, error) {
	var rows []JarSums
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select(`jar_category_id,
			COALESCE(SUM(CASE WHEN amount_cents > 0 THEN amount_cents ELSE 0 END), 0) AS total_income,
			COALESCE(SUM(CASE WHEN amount_cents < 0 THEN -amount_cents ELSE 0 END), 0) AS total_spent,
			COALESCE(SUM(CASE WHEN amount_cents > 0 AND occurred_at >= ? AND occurred_at < ? THEN amount_cents ELSE 0 END), 0) AS income_this_month,
			COALESCE(SUM(CASE WHEN amount_cents < 0 AND occurred_at >= ? AND occurred_at < ? THEN -amount_cents ELSE 0 END), 0) AS spent_this_month,
			COALESCE(SUM(CASE WHEN source = ? AND occurred_at >= ? AND occurred_at < ? THEN amount_cents ELSE 0 END), 0) AS allocated_this_month`,
			monthStart, monthEnd,
			monthStart, monthEnd,
			models.SourceMonthlyIncome, monthStart, monthEnd).
		Where("user_id = ?", userID).
		Group("jar_category_id").
		Scan(&rows).Error
	return rows, err
}

// NetByJar 罐子净余额
func (r *TransactionRepository) NetByJar(ctx context.Context, userID, categoryID uint) (int64, error) {
	var net int64
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Where("user_id = ? AND jar_category_id = ?", userID, categoryID).
		Scan(&net).Error
	return net, err
}

// CountByJar 罐子内的流水条数
func (r *TransactionRepository) CountByJar(ctx context.Context, userID, categoryID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("user_id = ? AND jar_category_id = ?", userID, categoryID).
		Count(&count).Error
	return count, err
}

// PositiveSince 某罐子自 since 起的正向流水
func (r *TransactionRepository) PositiveSince(ctx context.Context, userID, categoryID uint, since time.Time) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND jar_category_id = ? AND amount_cents > 0 AND occurred_at >= ?", userID, categoryID, since.UTC()).
		Order("occurred_at ASC").
		Find(&txs).Error
	return txs, err
}

// ListAll 用户全部流水，按时间正序
func (r *TransactionRepository) ListAll(ctx context.Context, userID uint) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("occurred_at ASC, id ASC").
		Find(&txs).Error
	return txs, err
}

// TotalsByCategory since 起按类别汇总
func (r *TransactionRepository) TotalsByCategory(ctx context.Context, userID uint, since time.Time) ([]CategoryTotals, error) {
	var rows []CategoryTotals
	err := r.db.WithContext(ctx).
		Table("transactions").
		Select(`transactions.jar_category_id,
			jar_categories.name AS category_name,
			COALESCE(SUM(CASE WHEN transactions.amount_cents > 0 THEN transactions.amount_cents ELSE 0 END), 0) AS income,
			COALESCE(SUM(CASE WHEN transactions.amount_cents < 0 THEN -transactions.amount_cents ELSE 0 END), 0) AS expense,
			COUNT(*) AS count`).
		Joins("LEFT JOIN jar_categories ON jar_categories.id = transactions.jar_category_id").
		Where("transactions.user_id = ? AND transactions.occurred_at >= ?", userID, since.UTC()).
		Group("transactions.jar_category_id, jar_categories.name").
		Order("jar_categories.name").
		Scan(&rows).Error
	return rows, err
}

// FirstOccurredAt 用户最早一笔流水的时间，没有流水时返回 nil
func (r *TransactionRepository) FirstOccurredAt(ctx context.Context, userID uint) (*time.Time, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("occurred_at ASC").
		Limit(1).
		Find(&tx).Error
	if err != nil {
		return nil, err
	}
	if tx.ID == 0 {
		return nil, nil
	}
	t := tx.OccurredAt
	return &t, nil
}

// escapeLikeValue 转义 LIKE 通配符，关键字中的 % 和 _ 按字面匹配
func escapeLikeValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// likeEscapeClause mysql 和 postgres 默认以反斜杠转义，sqlite 需要显式声明
// mysql 字符串字面量里的反斜杠本身是转义符，不能写 ESCAPE '\'
func likeEscapeClause(db *gorm.DB) string {
	if db.Dialector.Name() == "sqlite" {
		return ` ESCAPE '\'`
	}
	return ""
}
