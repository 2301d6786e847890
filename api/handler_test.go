package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jars/assistant"
	"jars/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestHealth(t *testing.T) {
	mock, store, cleanup := setupMockDB(t)
	defer cleanup()

	r := gin.New()
	r.GET("/health", NewHealthHandler(store).Health)

	mock.ExpectExec("SELECT 1").WillReturnResult(sqlmock.NewResult(0, 0))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	mock.ExpectExec("SELECT 1").WillReturnError(errors.New("connection refused"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategories_MockDB(t *testing.T) {
	mock, store, cleanup := setupMockDB(t)
	defer cleanup()

	ledger := service.NewLedgerService(store, nil)
	r := gin.New()
	r.GET("/categories", NewJarHandler(nil, nil, ledger).Categories)

	rows := sqlmock.NewRows([]string{"id", "name", "description", "sort"}).
		AddRow(1, "Necessity", "Daily living", 1).
		AddRow(6, "Savings", "Rainy day", 6)
	mock.ExpectQuery("SELECT \\* FROM `jar_categories` ORDER BY sort ASC, id ASC").WillReturnRows(rows)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/categories", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Necessity")
	assert.Contains(t, w.Body.String(), "Savings")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategories_DBError(t *testing.T) {
	mock, store, cleanup := setupMockDB(t)
	defer cleanup()

	ledger := service.NewLedgerService(store, nil)
	r := gin.New()
	r.GET("/categories", NewJarHandler(nil, nil, ledger).Categories)

	mock.ExpectQuery("SELECT \\* FROM `jar_categories`").WillReturnError(errors.New("boom"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/categories", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"校验错误", service.NewValidationError("amount", "金额不能为0"), http.StatusBadRequest},
		{"不存在", service.NewNotFoundError("transaction", "记录不存在"), http.StatusNotFound},
		{"其他错误", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			respondError(c, tt.err, "失败")
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestJarSetupAndDashboard(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/v1/jars/setup", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)

	body := `{"month_year":"2024-03","total_income":10000000,"percentages":{"Necessity":55,"Play":10,"Education":10,"Investment":10,"Charity":5,"Savings":10}}`
	w = app.do(t, http.MethodPost, "/api/v1/jars/income", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeResponse(t, w)
	assert.Equal(t, "分配成功", resp.Message)

	var alloc service.IncomeAllocation
	require.NoError(t, json.Unmarshal(resp.Data, &alloc))
	assert.Len(t, alloc.Transactions, 6)

	w = app.do(t, http.MethodGet, "/api/v1/jars/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code)
	var dash service.Dashboard
	require.NoError(t, json.Unmarshal(decodeResponse(t, w).Data, &dash))
	assert.Len(t, dash.Jars, 6)
	assert.Equal(t, int64(10000000), dash.LifetimeBalance.CurrentBalance)
	assert.Len(t, dash.IncomeHistory, 1)

	w = app.do(t, http.MethodGet, "/api/v1/jars/income", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_income"`)
}

func TestIncome_InvalidPercentages(t *testing.T) {
	app := newTestApp(t)

	body := `{"month_year":"2024-03","total_income":1000,"percentages":{"Necessity":50,"Play":10}}`
	w := app.do(t, http.MethodPost, "/api/v1/jars/income", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeResponse(t, w).Message, "100%")

	w = app.do(t, http.MethodPost, "/api/v1/jars/income", `{"month_year":"2024-03","total_income":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransactions_CRUD(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/v1/transactions",
		`{"jar_category_id":2,"amount":-45000,"description":"Cà phê sữa","occurred_at":"2024-03-15 08:30:00"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(decodeResponse(t, w).Data, &created))
	require.NotZero(t, created.ID)

	w = app.do(t, http.MethodPost, "/api/v1/transactions",
		`{"jar_category_id":1,"amount":200000,"description":"Refund","occurred_at":"2024-04-01"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/api/v1/transactions?type=expense", "")
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Total    int64 `json:"total"`
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
	}
	require.NoError(t, json.Unmarshal(decodeResponse(t, w).Data, &page))
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)

	w = app.do(t, http.MethodGet, "/api/v1/transactions?start_time=2024-03-15&end_time=2024-03-15&page_size=500", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(decodeResponse(t, w).Data, &page))
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 100, page.PageSize)

	w = app.do(t, http.MethodGet, "/api/v1/transactions?start_time=15-03-2024", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodDelete, "/api/v1/transactions/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodDelete, "/api/v1/transactions/"+jsonNumber(created.ID), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodDelete, "/api/v1/transactions/"+jsonNumber(created.ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTransactions_CreateValidation(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"缺少描述", `{"jar_category_id":1,"amount":100}`, http.StatusBadRequest},
		{"金额为0", `{"jar_category_id":1,"amount":0,"description":"x"}`, http.StatusBadRequest},
		{"时间格式错误", `{"jar_category_id":1,"amount":100,"description":"x","occurred_at":"15/03/2024"}`, http.StatusBadRequest},
		{"罐子不存在", `{"jar_category_id":99,"amount":100,"description":"x"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(t, http.MethodPost, "/api/v1/transactions", tt.body)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
		})
	}
}

func TestTransactions_Summary(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/v1/transactions", `{"jar_category_id":2,"amount":-30000,"description":"Movie"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/api/v1/transactions/summary?days=7", "")
	require.Equal(t, http.StatusOK, w.Code)
	var sum service.TransactionSummary
	require.NoError(t, json.Unmarshal(decodeResponse(t, w).Data, &sum))
	assert.Equal(t, 7, sum.Days)
	assert.Equal(t, int64(30000), sum.TotalExpenses)
	assert.Equal(t, int64(1), sum.TransactionCount)
}

func TestJarSwapAndDeleteData(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/v1/jars/swap", `{"from_jar":"Play","to_jar":"Savings","amount":50000}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "转账成功", decodeResponse(t, w).Message)

	w = app.do(t, http.MethodPost, "/api/v1/jars/swap", `{"from_jar":"Play","to_jar":"Vacation","amount":50000}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodPost, "/api/v1/jars/swap", `{"from_jar":"Play","to_jar":"Savings","amount":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodDelete, "/api/v1/jars/data", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/api/v1/transactions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":0`)
}

func TestSavingsTargetAndProjection(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/v1/savings/projection", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodGet, "/api/v1/savings/target", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"target_amount":0`)

	w = app.do(t, http.MethodPost, "/api/v1/savings/target", `{"target_amount":5000000}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, "/api/v1/savings/target", "")
	assert.Contains(t, w.Body.String(), `"target_amount":5000000`)

	w = app.do(t, http.MethodGet, "/api/v1/savings/projection", "")
	require.Equal(t, http.StatusOK, w.Code)
	var p service.SavingsProjection
	require.NoError(t, json.Unmarshal(decodeResponse(t, w).Data, &p))
	assert.False(t, p.CanReachTarget)
	assert.Equal(t, "No savings history found. Start saving to get projections.", p.Message)

	w = app.do(t, http.MethodGet, "/api/v1/savings/projection?target_amount=-5", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPost, "/api/v1/savings/target", `{"target_amount":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfile(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/v1/profile", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "api@example.com")

	w = app.do(t, http.MethodPut, "/api/v1/profile", `{"name":"Lan"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Lan"`)

	w = app.do(t, http.MethodPut, "/api/v1/profile", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExport(t *testing.T) {
	app := newTestApp(t)

	for _, body := range []string{
		`{"jar_category_id":2,"amount":-45000,"description":"Cà phê","occurred_at":"2024-03-15 08:30:00"}`,
		`{"jar_category_id":1,"amount":100000,"description":"Bonus","occurred_at":"2024-03-20"}`,
		`{"jar_category_id":1,"amount":-1000,"description":"Outside","occurred_at":"2024-05-01"}`,
	} {
		require.Equal(t, http.StatusOK, app.do(t, http.MethodPost, "/api/v1/transactions", body).Code)
	}

	t.Run("缺少参数", func(t *testing.T) {
		w := app.do(t, http.MethodGet, "/api/v1/export/csv?start_time=2024-03-01", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		w = app.do(t, http.MethodGet, "/api/v1/export/excel?start_time=2024/03/01&end_time=2024-03-31", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("CSV", func(t *testing.T) {
		w := app.do(t, http.MethodGet, "/api/v1/export/csv?start_time=2024-03-01&end_time=2024-03-31", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "attachment; filename=transactions_2024-03-01_2024-03-31.csv", w.Header().Get("Content-Disposition"))
		body := w.Body.String()
		assert.True(t, strings.HasPrefix(body, "\xEF\xBB\xBF"))
		lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(body, "\xEF\xBB\xBF")), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "ID,罐子,金额,类型,描述,来源,发生时间", lines[0])
		assert.Contains(t, body, "Cà phê")
		assert.NotContains(t, body, "Outside")
	})

	t.Run("Excel", func(t *testing.T) {
		w := app.do(t, http.MethodGet, "/api/v1/export/excel?start_time=2024-03-01&end_time=2024-03-31", "")
		require.Equal(t, http.StatusOK, w.Code)

		f, err := excelize.OpenReader(w.Body)
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows("流水")
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, "罐子", rows[0][1])
		assert.Equal(t, "合计", rows[3][0])
		assert.Equal(t, "55000", rows[3][2])
	})
}

func TestAssistantTools(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/v1/assistant/tools", "")
	require.Equal(t, http.StatusOK, w.Code)
	var decls []assistant.Declaration
	require.NoError(t, json.Unmarshal(decodeResponse(t, w).Data, &decls))
	assert.Len(t, decls, 6)

	w = app.do(t, http.MethodPost, "/api/v1/assistant/tools/set_saving_target", `{"target_amount":3000000}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res assistant.Result
	require.NoError(t, json.Unmarshal(decodeResponse(t, w).Data, &res))
	assert.True(t, res.Success)

	w = app.do(t, http.MethodGet, "/api/v1/savings/target", "")
	assert.Contains(t, w.Body.String(), `"target_amount":3000000`)

	w = app.do(t, http.MethodPost, "/api/v1/assistant/tools/set_saving_target", `{"target_amount":-1}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(decodeResponse(t, w).Data, &res))
	assert.False(t, res.Success)

	w = app.do(t, http.MethodPost, "/api/v1/assistant/tools/book_flight", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodPost, "/api/v1/assistant/tools/set_saving_target", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func jsonNumber(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
