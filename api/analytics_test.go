package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"jars/config"
	"jars/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func forecastRouter(t *testing.T, app *testApp, endpoint string) *gin.Engine {
	t.Helper()
	client := service.NewForecastClient(config.ForecastConfig{Endpoint: endpoint, BaseDelayMS: 1})
	forecast := service.NewForecastService(client, app.store, service.NewSavingTargetService(app.store, nil))

	r := gin.New()
	r.GET("/forecast", setUserIDMiddleware(app.user.ID), NewAnalyticsHandler(forecast, client).Forecast)
	return r
}

func TestAnalyticsForecast(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusOK, app.do(t, http.MethodPost, "/api/v1/transactions",
		`{"jar_category_id":6,"amount":500000,"description":"Save","occurred_at":"2024-01-20"}`).Code)

	var got service.ForecastRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"forecast":[{"date":"2024-01-01","yhat":1},{"date":"2024-02-29","yhat":6000}]}`)
	}))
	defer srv.Close()

	w := httptest.NewRecorder()
	forecastRouter(t, app, srv.URL).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/forecast?periods=3&freq=W", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, 3, got.Periods)
	assert.Equal(t, "W", got.Freq)
	require.Len(t, got.Data, 1)
	assert.Equal(t, "2024-01-20", got.Data[0].Date)

	var res service.BalanceForecast
	require.NoError(t, json.Unmarshal(decodeResponse(t, w).Data, &res))
	require.Len(t, res.Forecast, 1)
	assert.Equal(t, "2024-02-29", res.Forecast[0].Date)
}

func TestAnalyticsForecast_Errors(t *testing.T) {
	app := newTestApp(t)

	t.Run("未配置", func(t *testing.T) {
		w := httptest.NewRecorder()
		forecastRouter(t, app, "").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/forecast", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model failed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	t.Run("暂无流水", func(t *testing.T) {
		w := httptest.NewRecorder()
		forecastRouter(t, app, srv.URL).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/forecast", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	require.Equal(t, http.StatusOK, app.do(t, http.MethodPost, "/api/v1/transactions",
		`{"jar_category_id":6,"amount":500000,"description":"Save","occurred_at":"2024-01-20"}`).Code)

	t.Run("预测服务错误", func(t *testing.T) {
		w := httptest.NewRecorder()
		forecastRouter(t, app, srv.URL).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/forecast", nil))
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}
