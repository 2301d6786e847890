package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"jars/assistant"
	"jars/config"
	"jars/database"
	"jars/models"
	"jars/repository"
	"jars/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setUserIDMiddleware(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
}

// setupMockDB mysql 方言的 sqlmock，用于校验生成的 SQL
func setupMockDB(t *testing.T) (sqlmock.Sqlmock, *repository.Store, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return mock, repository.NewStore(gormDB), func() { sqlDB.Close() }
}

type testApp struct {
	store  *repository.Store
	router *gin.Engine
	user   *models.User
}

// newTestApp sqlite 内存库上的完整处理器集合，当前用户已登录
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(config.DatabaseConfig{
		Driver: database.DriverSQLite,
		Path:   fmt.Sprintf("file:api_%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	store := repository.NewStore(db)
	user := &models.User{Email: "api@example.com", Name: "api"}
	require.NoError(t, store.Users.Create(context.Background(), user))

	provisioning := service.NewProvisioningService(store)
	ledger := service.NewLedgerService(store, nil)
	allocation := service.NewAllocationService(store, nil)
	targets := service.NewSavingTargetService(store, nil)
	projection := service.NewProjectionService(store)
	balances := service.NewBalanceService(store, nil)

	jar := NewJarHandler(balances, provisioning, ledger)
	income := NewIncomeHandler(allocation, ledger)
	tx := NewTransactionHandler(ledger)
	savings := NewSavingsHandler(targets, projection)
	export := NewExportHandler(ledger)
	profile := NewProfileHandler(service.NewUserService(store))
	tools := NewAssistantHandler(assistant.NewDefaultRegistry(&assistant.Services{
		Allocation: allocation,
		Ledger:     ledger,
		Targets:    targets,
		Projection: projection,
	}))

	r := gin.New()
	r.GET("/api/v1/jars/categories", jar.Categories)
	v1 := r.Group("/api/v1", setUserIDMiddleware(user.ID))
	v1.GET("/profile", profile.Get)
	v1.PUT("/profile", profile.Update)
	v1.POST("/jars/setup", jar.Setup)
	v1.GET("/jars/dashboard", jar.Dashboard)
	v1.POST("/jars/income", income.Create)
	v1.GET("/jars/income", income.List)
	v1.POST("/jars/swap", jar.Swap)
	v1.DELETE("/jars/data", jar.DeleteData)
	v1.GET("/transactions", tx.List)
	v1.POST("/transactions", tx.Create)
	v1.GET("/transactions/summary", tx.Summary)
	v1.DELETE("/transactions/:id", tx.Delete)
	v1.GET("/savings/target", savings.GetTarget)
	v1.POST("/savings/target", savings.SetTarget)
	v1.GET("/savings/projection", savings.Projection)
	v1.GET("/export/csv", export.ExportCSV)
	v1.GET("/export/excel", export.ExportExcel)
	v1.GET("/assistant/tools", tools.Tools)
	v1.POST("/assistant/tools/:name", tools.Execute)

	return &testApp{store: store, router: r, user: user}
}

func (a *testApp) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

type testResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) testResponse {
	t.Helper()
	var resp testResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}
