package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolScope/internal/cache"
	"poolScope/internal/chain/chaintest"
	"poolScope/internal/config"
	"poolScope/internal/model"
	"poolScope/internal/observability"
	"poolScope/internal/pricing"
	"poolScope/internal/sampler"
	"poolScope/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Cached  bool            `json:"cached"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

type fixedFiat float64

func (f fixedFiat) USDRate(context.Context, string) (float64, error) {
	return float64(f), nil
}

func newTestServer(t *testing.T) (*httptest.Server, *chaintest.Backend) {
	t.Helper()
	backend := chaintest.New(10_000)
	backend.Reserves = func(callData string, h uint64) (*big.Int, *big.Int, *big.Int) {
		if callData == "0xb" {
			return big.NewInt(1_000_000), big.NewInt(26_000_000), big.NewInt(1)
		}
		return big.NewInt(1_000_000), big.NewInt(int64(2_000_000 + h)), big.NewInt(1)
	}
	client := backend.Dial(t)

	pools, err := config.NewPoolTable([]model.PoolIdentity{
		{Key: "ABC-XYZ", Name: "ABC / XYZ", PoolID: "2:1", Decimals0: 6, Decimals1: 6, CallData: "0xa"},
		{Key: "ABC-USD", Name: "ABC / USD", PoolID: "2:2", Decimals0: 6, Decimals1: 6, CallData: "0xb"},
	})
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	svc, err := service.New(service.Deps{
		Pools:       pools,
		Remote:      client,
		Sampler:     sampler.New(client, 4, metrics, nil),
		Cache:       cache.NewMemory(),
		Fiat:        fixedFiat(13),
		PriceInputs: pricing.Inputs{PoolA: "ABC-XYZ", PoolB: "ABC-USD", FiatAssetID: "xyz"},
		Metrics:     metrics,
	}, service.Settings{
		CacheTTL:         time.Minute,
		MetricsTTL:       time.Minute,
		BlockTime:        10 * time.Minute,
		SamplesPerCandle: 4,
	}, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(svc, metrics, 5*time.Second, nil))
	t.Cleanup(srv.Close)
	return srv, backend
}

func get(t *testing.T, srv *httptest.Server, path string) (int, envelope) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestGetPoolCandles(t *testing.T) {
	srv, backend := newTestServer(t)

	status, env := get(t, srv, "/api/pools?pool=ABC-XYZ&interval=daily&limit=5")
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.True(t, env.Success)
	assert.False(t, env.Cached)

	var series model.CandleSeries
	require.NoError(t, json.Unmarshal(env.Data, &series))
	assert.Equal(t, "ABC-XYZ", series.Pool)
	assert.Equal(t, "2:1", series.PoolID)
	assert.Equal(t, uint64(10_000), series.CurrentHeight)
	assert.Len(t, series.Candles, 5)

	calls := backend.TotalCalls()
	status, cachedEnv := get(t, srv, "/api/pools?pool=ABC-XYZ&interval=daily&limit=5")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, cachedEnv.Cached)
	assert.JSONEq(t, string(env.Data), string(cachedEnv.Data))
	assert.Equal(t, calls, backend.TotalCalls())
}

func TestGetPoolDetail(t *testing.T) {
	srv, _ := newTestServer(t)

	status, env := get(t, srv, "/api/pools?pool=ABC-USD&height=42")
	require.Equal(t, http.StatusOK, status, env.Error)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &raw))
	for _, key := range []string{"poolId", "poolName", "price", "priceInverse", "reserve0", "reserve1", "blockHeight"} {
		assert.Contains(t, raw, key)
	}
	assert.Equal(t, 26.0, raw["price"])
	assert.Equal(t, "26000000", raw["reserve1"])
	assert.Equal(t, 42.0, raw["blockHeight"])
}

func TestGetAllPools(t *testing.T) {
	srv, _ := newTestServer(t)

	status, env := get(t, srv, "/api/pools?pool=all")
	require.Equal(t, http.StatusOK, status, env.Error)
	var details []model.PoolDetail
	require.NoError(t, json.Unmarshal(env.Data, &details))
	require.Len(t, details, 2)
	assert.Equal(t, "ABC / USD", details[1].PoolName)

	status, env = get(t, srv, "/api/pools?pool=all&interval=hourly&limit=2")
	require.Equal(t, http.StatusOK, status, env.Error)
	var series []model.CandleSeries
	require.NoError(t, json.Unmarshal(env.Data, &series))
	require.Len(t, series, 2)
	assert.Len(t, series[0].Candles, 2)
}

func TestGetPoolsValidation(t *testing.T) {
	srv, backend := newTestServer(t)

	for _, path := range []string{
		"/api/pools",
		"/api/pools?pool=INVALID_POOL",
		"/api/pools?pool=ABC-XYZ&interval=monthly",
		"/api/pools?pool=ABC-XYZ&interval=daily&limit=ten",
		"/api/pools?pool=ABC-XYZ&height=-1",
	} {
		status, env := get(t, srv, path)
		assert.Equal(t, http.StatusBadRequest, status, path)
		assert.False(t, env.Success, path)
		assert.Equal(t, "validation_error", env.Code, path)
		assert.NotEmpty(t, env.Error, path)
	}
	assert.Zero(t, backend.TotalCalls())

	_, env := get(t, srv, "/api/pools?pool=INVALID_POOL")
	assert.Contains(t, env.Error, `Invalid pool "INVALID_POOL"`)
}

func TestGetPoolsRemoteFailure(t *testing.T) {
	srv, backend := newTestServer(t)
	backend.SetFailHeight(true)

	status, env := get(t, srv, "/api/pools?pool=ABC-XYZ")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.False(t, env.Success)
	assert.Equal(t, "remote_error", env.Code)
	assert.Contains(t, env.Error, "height unavailable")
}

func TestGetPoolCandlesAllHeightsFailing(t *testing.T) {
	srv, backend := newTestServer(t)
	backend.SetFailSimulations(true)

	status, env := get(t, srv, "/api/pools?pool=ABC-XYZ&interval=hourly&limit=3")
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.True(t, env.Success)

	var series model.CandleSeries
	require.NoError(t, json.Unmarshal(env.Data, &series))
	assert.NotNil(t, series.Candles)
	assert.Empty(t, series.Candles)
	assert.Contains(t, string(env.Data), `"candles":[]`)
}

func TestGetPriceMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	status, env := get(t, srv, "/api/metrics/price")
	require.Equal(t, http.StatusOK, status, env.Error)
	var m model.PriceMetrics
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.Equal(t, 26.0, m.USDDirect)
	assert.Equal(t, 13.0, m.FiatRate)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	srv, backend := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, uint64(10_000), health.Height)

	backend.SetFailHeight(true)
	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "poolscope_http_requests_total")
}

func TestNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	status, env := get(t, srv, "/api/unknown")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", env.Code)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("wrap: %w", model.ErrValidation), http.StatusBadRequest, "validation_error"},
		{model.ErrDecode, http.StatusInternalServerError, "decode_error"},
		{model.ErrZeroReserve, http.StatusInternalServerError, "zero_reserve"},
		{context.DeadlineExceeded, http.StatusInternalServerError, "timeout"},
		{errors.New("other"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, code := classify(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}
