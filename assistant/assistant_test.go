package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"jars/config"
	"jars/database"
	"jars/models"
	"jars/repository"
	"jars/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *repository.Store
	registry *Registry
	userID   uint
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(config.DatabaseConfig{
		Driver: database.DriverSQLite,
		Path:   fmt.Sprintf("file:assistant_%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	store := repository.NewStore(db)
	user := &models.User{Email: "assistant@example.com", Name: "assistant"}
	require.NoError(t, store.Users.Create(context.Background(), user))

	targets := service.NewSavingTargetService(store, nil)
	registry := NewDefaultRegistry(&Services{
		Allocation: service.NewAllocationService(store, nil),
		Ledger:     service.NewLedgerService(store, nil),
		Targets:    targets,
		Projection: service.NewProjectionService(store),
		Now:        func() time.Time { return time.Date(2024, 7, 15, 8, 0, 0, 0, time.UTC) },
	})
	return &fixture{store: store, registry: registry, userID: user.ID}
}

func (f *fixture) run(t *testing.T, tool, args string) Result {
	t.Helper()
	res, err := f.registry.Execute(context.Background(), tool, f.userID, json.RawMessage(args))
	require.NoError(t, err)
	return res
}

func (f *fixture) addTx(t *testing.T, jar string, amount int64, desc string, at time.Time) {
	t.Helper()
	cat, err := f.store.JarCategories.GetByName(context.Background(), jar)
	require.NoError(t, err)
	require.NoError(t, f.store.Transactions.Create(context.Background(), &models.Transaction{
		UserID: f.userID, JarCategoryID: cat.ID, AmountCents: amount,
		Description: desc, Source: models.SourceManual, OccurredAt: at,
	}))
}

func TestRegistry_Declarations(t *testing.T) {
	f := setupFixture(t)
	decls := f.registry.Declarations()

	names := make([]string, 0, len(decls))
	for _, d := range decls {
		names = append(names, d.Name)
		assert.Equal(t, "object", d.Parameters.Type)
		for _, req := range d.Parameters.Required {
			assert.Contains(t, d.Parameters.Properties, req, "%s.%s", d.Name, req)
		}
	}
	assert.Equal(t, []string{
		"add_monthly_income", "predict_savings", "search_transactions",
		"set_saving_target", "swap_jar", "update_transaction",
	}, names)

	_, err := f.registry.Execute(context.Background(), "send_money", f.userID, nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestAddMonthlyIncome_Defaults(t *testing.T) {
	f := setupFixture(t)

	res := f.run(t, "add_monthly_income", `{"monthly_income_amount": 10000000}`)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Monthly income of 10.000.000 ₫ for 2024-07 added successfully! Allocated to jars: "+
		"Necessity: 55%, Play: 10%, Education: 10%, Investment: 10%, Charity: 5%, Savings: 10%", res.Message)

	entry, err := f.store.IncomeEntries.Latest(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, "2024-07", service.FormatMonth(entry.MonthYear))
	assert.Equal(t, int64(10_000_000), entry.TotalIncomeCents)
}

func TestAddMonthlyIncome_CustomAndInvalid(t *testing.T) {
	f := setupFixture(t)

	res := f.run(t, "add_monthly_income", `{"monthly_income_amount": "5000000", "month_year": "2024-02",
		"necessity_percentage": 50, "play_percentage": 15}`)
	require.True(t, res.Success, res.Message)
	assert.Contains(t, res.Message, "Necessity: 50%, Play: 15%")

	tests := []struct {
		name string
		args string
		want string
	}{
		{"missing amount", `{}`, "Invalid monthly income amount"},
		{"negative amount", `{"monthly_income_amount": -5}`, "Invalid monthly income amount"},
		{"bad month", `{"monthly_income_amount": 100, "month_year": "July 2024"}`, `Month year must be in YYYY-MM format (e.g., "2024-01")`},
		{"bad total", `{"monthly_income_amount": 100, "necessity_percentage": 65}`, "Allocation percentages must total 100%. Current total: 110%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.run(t, "add_monthly_income", tt.args)
			assert.False(t, res.Success)
			assert.Equal(t, tt.want, res.Message)
		})
	}

	entries, err := f.store.IncomeEntries.ListByUser(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUpdateTransaction(t *testing.T) {
	f := setupFixture(t)

	res := f.run(t, "update_transaction", `{"amount": 45000, "jar_category_id": 2, "description": "Cà phê", "transaction_type": "expense"}`)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Transaction added successfully", res.Message)

	tx := res.Data.(*models.Transaction)
	assert.Equal(t, int64(-45_000), tx.AmountCents)
	assert.Equal(t, models.SourceChatbot, tx.Source)

	res = f.run(t, "update_transaction", `{"amount": 2000000, "jar_category_id": 4, "transaction_type": "income"}`)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, int64(2_000_000), res.Data.(*models.Transaction).AmountCents)

	assert.False(t, f.run(t, "update_transaction", `{"amount": 0, "jar_category_id": 2, "transaction_type": "expense"}`).Success)
	assert.False(t, f.run(t, "update_transaction", `{"amount": 10, "jar_category_id": 2, "transaction_type": "refund"}`).Success)
	res = f.run(t, "update_transaction", `{"amount": 10, "jar_category_id": 99, "transaction_type": "expense"}`)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "99")
}

func TestSetSavingTarget(t *testing.T) {
	f := setupFixture(t)

	res := f.run(t, "set_saving_target", `{"target_amount": 50000000}`)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Saving target set to 50.000.000 ₫", res.Message)

	target, err := f.store.SavingTargets.Latest(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, int64(50_000_000), target.TargetAmountCents)

	res = f.run(t, "set_saving_target", `{"target_amount": -1}`)
	assert.False(t, res.Success)
	assert.Equal(t, "Target amount must be a positive number in VND.", res.Message)
}

func TestSearchTransactions(t *testing.T) {
	f := setupFixture(t)
	now := time.Date(2024, 7, 15, 8, 0, 0, 0, time.UTC)
	f.addTx(t, models.JarPlay, -45_000, "Cà phê Highlands", now.AddDate(0, 0, -1))
	f.addTx(t, models.JarPlay, -30_000, "Iced coffee", now.AddDate(0, 0, -20))
	f.addTx(t, models.JarNecessity, -120_000, "Lunch", now.AddDate(0, 0, -2))
	f.addTx(t, models.JarSavings, 1_000_000, "Tiền lương tháng 7", now.AddDate(0, 0, -3))

	res := f.run(t, "search_transactions", `{"keywords": "coffee"}`)
	require.True(t, res.Success, res.Message)
	data := res.Data.(SearchResult)
	assert.Equal(t, []string{"cà phê", "coffee", "cafe"}, data.SearchKeywords)
	assert.Equal(t, 2, data.Summary.TotalTransactions)
	assert.Equal(t, int64(75_000), data.Summary.TotalExpensesVND)
	assert.Equal(t, int64(-75_000), data.Summary.NetAmountVND)
	require.Contains(t, data.ByCategory, models.JarPlay)
	assert.Equal(t, 2, data.ByCategory[models.JarPlay].Count)
	assert.Equal(t, int64(45_000), data.Transactions[0].AmountVND)
	assert.Equal(t, "expense", data.Transactions[0].Type)

	res = f.run(t, "search_transactions", `{"keywords": ["coffee"], "days_back": 7}`)
	require.True(t, res.Success)
	assert.Equal(t, 1, res.Data.(SearchResult).Summary.TotalTransactions)

	res = f.run(t, "search_transactions", `{"keywords": ["salary"], "transaction_type": "income"}`)
	require.True(t, res.Success)
	data = res.Data.(SearchResult)
	assert.Equal(t, 1, data.Summary.IncomeCount)
	assert.Equal(t, int64(1_000_000), data.Summary.TotalIncomeVND)

	res = f.run(t, "search_transactions", `{"keywords": [], "start_date": "2024-07-13", "end_date": "2024-07-13"}`)
	require.True(t, res.Success)
	assert.Equal(t, 1, res.Data.(SearchResult).Summary.TotalTransactions)

	res = f.run(t, "search_transactions", `{"keywords": ["x"], "start_date": "13/07/2024"}`)
	assert.False(t, res.Success)
}

func TestExpandKeywords(t *testing.T) {
	assert.Equal(t, []string{"phim", "movie", "cinema", "Netflix"}, ExpandKeywords([]string{"Movie", "phim", "Netflix", " "}))
	assert.Empty(t, ExpandKeywords(nil))
}

func TestPredictSavings(t *testing.T) {
	f := setupFixture(t)

	res := f.run(t, "predict_savings", `{"target_amount": 1000000, "target_description": "bike"}`)
	assert.False(t, res.Success)
	assert.Equal(t, "No savings history found. Start saving to get projections.", res.Message)
	data := res.Data.(map[string]interface{})
	assert.Nil(t, data["target_date"])
	assert.Equal(t, "bike", data["target_description"])

	f.addTx(t, models.JarSavings, 600_000, "monthly saving", time.Now().UTC().AddDate(0, -1, 0))

	res = f.run(t, "predict_savings", `{"target_amount": 1000000, "target_description": "bike"}`)
	require.True(t, res.Success, res.Message)
	data = res.Data.(map[string]interface{})
	assert.Equal(t, true, data["can_reach_target"])
	assert.Contains(t, res.Message, "for bike by")
	assert.Contains(t, res.Message, "You currently have 6.000 ₫ saved.")

	assert.False(t, f.run(t, "predict_savings", `{"target_amount": 1000}`).Success)
}

func TestSwapJar(t *testing.T) {
	f := setupFixture(t)
	f.addTx(t, models.JarPlay, 200_000, "seed", time.Now())

	res := f.run(t, "swap_jar", `{"fromJarName": "Play", "toJarName": "Savings", "amountCents": 50000}`)
	require.True(t, res.Success, res.Message)
	swap := res.Data.(*service.SwapResult)
	assert.Equal(t, int64(-50_000), swap.From.AmountCents)
	assert.Equal(t, "Jar swap (to Savings)", swap.From.Description)

	res = f.run(t, "swap_jar", `{"fromJarName": "Play", "toJarName": "Travel", "amountCents": 50000}`)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "Travel")

	assert.False(t, f.run(t, "swap_jar", `{"fromJarName": "Play", "toJarName": "Savings"}`).Success)
}
