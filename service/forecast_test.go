package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"jars/config"
	"jars/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestForecastClient(url string, maxRetries int) (*ForecastClient, *[]time.Duration) {
	c := NewForecastClient(config.ForecastConfig{Endpoint: url, MaxRetries: maxRetries, BaseDelayMS: 100})
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func sampleRequest() ForecastRequest {
	return ForecastRequest{
		Data: []ForecastPoint{
			{Date: "2024-01-31", Balance: 100},
			{Date: "2024-02-29", Balance: 150},
		},
		Periods: 3,
		Freq:    FreqMonthly,
		Target:  500,
	}
}

func writeForecast(w http.ResponseWriter, points ...PredictedPoint) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"forecast": points})
}

func TestForecast_RetriesOnThrottle(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		if n == 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req ForecastRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "M", req.Freq)
		writeForecast(w,
			PredictedPoint{Date: "2024-02-29", Yhat: 150},
			PredictedPoint{Date: "2024-03-31T00:00:00", Yhat: 200},
			PredictedPoint{Date: "2024-04-30", Yhat: 250},
		)
	}))
	defer srv.Close()

	client, slept := newTestForecastClient(srv.URL, 5)
	points, err := client.Forecast(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *slept)
	require.Len(t, points, 2, "不晚于最后历史日期的点被丢弃")
	assert.Equal(t, 200.0, points[0].Yhat)
}

func TestForecast_NoRetryOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, slept := newTestForecastClient(srv.URL, 5)
	_, err := client.Forecast(context.Background(), sampleRequest())
	require.Error(t, err)

	var fe *ForecastError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusInternalServerError, fe.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, *slept)
}

func TestForecast_RetriesExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, slept := newTestForecastClient(srv.URL, 2)
	_, err := client.Forecast(context.Background(), sampleRequest())

	var fe *ForecastError
	require.ErrorAs(t, err, &fe)
	assert.True(t, fe.Throttled())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Len(t, *slept, 2)
}

func TestForecast_Validation(t *testing.T) {
	client, _ := newTestForecastClient("http://127.0.0.1:1", 0)

	_, err := client.Forecast(context.Background(), ForecastRequest{})
	assert.True(t, IsValidation(err))

	req := sampleRequest()
	req.Freq = "Y"
	_, err = client.Forecast(context.Background(), req)
	assert.True(t, IsValidation(err))
}

func TestForecast_BadLastDateRejectedBeforeRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"forecast":[]}`))
	}))
	defer srv.Close()
	client, _ := newTestForecastClient(srv.URL, 3)

	req := sampleRequest()
	req.Data[len(req.Data)-1].Date = "2024/03/01"
	_, err := client.Forecast(context.Background(), req)
	assert.True(t, IsValidation(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "日期非法时不应请求预测服务")
}

func TestFutureOnly(t *testing.T) {
	last := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	out := FutureOnly([]PredictedPoint{
		{Date: "2024-02-28"},
		{Date: "not-a-date"},
		{Date: "2024-03-01"},
	}, last)
	require.Len(t, out, 1)
	assert.Equal(t, "2024-03-01", out[0].Date)
}

func TestBalanceForecast(t *testing.T) {
	store := setupTestStore(t)
	user := createTestUser(t, store, "forecast@example.com")
	addTx(t, store, user.ID, models.JarSavings, 100_000, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	addTx(t, store, user.ID, models.JarPlay, -20_000, time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	addTx(t, store, user.ID, models.JarSavings, 50_000, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))

	targets := NewSavingTargetService(store, nil)
	_, err := targets.SetSavingTarget(context.Background(), user.ID, 1_000_000)
	require.NoError(t, err)

	var got ForecastRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeForecast(w, PredictedPoint{Date: "2024-04-30", Yhat: 2000})
	}))
	defer srv.Close()

	client, _ := newTestForecastClient(srv.URL, 0)
	res, err := NewForecastService(client, store, targets).BalanceForecast(context.Background(), user.ID, 4, "")
	require.NoError(t, err)

	assert.Equal(t, []ForecastPoint{
		{Date: "2024-01-20", Balance: 800},
		{Date: "2024-03-02", Balance: 1300},
	}, res.History)
	assert.Equal(t, 10000.0, res.Target)
	require.Len(t, res.Forecast, 1)

	assert.Equal(t, 4, got.Periods)
	assert.Equal(t, FreqMonthly, got.Freq)
	assert.Equal(t, 12, got.Lags)
	assert.Equal(t, 10000.0, got.Target)
}

func TestBalanceForecast_NoTransactions(t *testing.T) {
	store := setupTestStore(t)
	user := createTestUser(t, store, "empty-forecast@example.com")
	client, _ := newTestForecastClient("http://127.0.0.1:1", 0)

	_, err := NewForecastService(client, store, NewSavingTargetService(store, nil)).BalanceForecast(context.Background(), user.ID, 3, FreqMonthly)
	assert.True(t, IsNotFound(err))
}
