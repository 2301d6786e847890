package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store 聚合所有仓储，持有同一个 *gorm.DB（连接池或事务）
type Store struct {
	db *gorm.DB

	Users         *UserRepository
	JarCategories *JarCategoryRepository
	UserJars      *UserJarRepository
	Transactions  *TransactionRepository
	IncomeEntries *IncomeEntryRepository
	SavingTargets *SavingTargetRepository
}

// NewStore 创建仓储集合
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Users:         NewUserRepository(db),
		JarCategories: NewJarCategoryRepository(db),
		UserJars:      NewUserJarRepository(db),
		Transactions:  NewTransactionRepository(db),
		IncomeEntries: NewIncomeEntryRepository(db),
		SavingTargets: NewSavingTargetRepository(db),
	}
}

// DB 底层连接
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Dialect 数据库方言名称：mysql | postgres | sqlite
func (s *Store) Dialect() string {
	return s.db.Dialector.Name()
}

// Transaction 在一个数据库事务中执行 fn
// fn 返回 nil 时提交，返回错误或 panic 时回滚
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// Ping 检查数据库连通性
func (s *Store) Ping(ctx context.Context) error {
	return s.db.WithContext(ctx).Exec("SELECT 1").Error
}
