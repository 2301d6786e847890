package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"jars/config"
	"jars/database"
	"jars/models"
	"jars/repository"

	"github.com/stretchr/testify/require"
)

// setupTestStore 每个测试独立的 sqlite 内存库
func setupTestStore(t *testing.T) *repository.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(config.DatabaseConfig{
		Driver: database.DriverSQLite,
		Path:   fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return repository.NewStore(db)
}

func createTestUser(t *testing.T, store *repository.Store, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Name: strings.Split(email, "@")[0]}
	require.NoError(t, store.Users.Create(context.Background(), user))
	return user
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func defaultPercentages() map[string]float64 {
	return map[string]float64{
		models.JarNecessity:  55,
		models.JarPlay:       10,
		models.JarEducation:  10,
		models.JarInvestment: 10,
		models.JarCharity:    5,
		models.JarSavings:    10,
	}
}

func categoryID(t *testing.T, store *repository.Store, name string) uint {
	t.Helper()
	cat, err := store.JarCategories.GetByName(context.Background(), name)
	require.NoError(t, err)
	return cat.ID
}

func addTx(t *testing.T, store *repository.Store, userID uint, jar string, amount int64, at time.Time) {
	t.Helper()
	require.NoError(t, store.Transactions.Create(context.Background(), &models.Transaction{
		UserID:        userID,
		JarCategoryID: categoryID(t, store, jar),
		AmountCents:   amount,
		Description:   "test " + jar,
		Source:        models.SourceManual,
		OccurredAt:    at.UTC(),
	}))
}
