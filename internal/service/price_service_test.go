package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settlement-core/pkg/chain"
	"settlement-core/pkg/config"
	"settlement-core/pkg/errno"
)

func newPriceTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	config.Global.Oracle.BaseURL = srv.URL
	config.Global.Oracle.CacheTTLSec = 30
	config.Global.Oracle.MaxConcurrent = 2
	InitPriceService()
	return srv
}

func TestPriceFetchAndCache(t *testing.T) {
	var calls int32
	newPriceTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"ethereum":{"usd":2500.5}}`)
	})

	p1, err := Price.USDPrice(context.Background(), chain.Ethereum)
	require.NoError(t, err)
	assert.True(t, p1.Equal(decimal.RequireFromString("2500.5")))

	// 30 秒内第二次查询走缓存
	p2, err := Price.USDPrice(context.Background(), chain.Ethereum)
	require.NoError(t, err)
	assert.True(t, p2.Equal(p1))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPriceRateLimitServesStale(t *testing.T) {
	var calls int32
	newPriceTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			fmt.Fprint(w, `{"bitcoin":{"usd":60000}}`)
			return
		}
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := Price.USDPrice(context.Background(), chain.Bitcoin)
	require.NoError(t, err)

	// 手动把缓存打成过期, 触发重新取价撞上 429
	Price.cache.Set("bitcoin", pricePoint{price: decimal.NewFromInt(60000)}, 0)

	stale, err := Price.USDPrice(context.Background(), chain.Bitcoin)
	require.NoError(t, err)
	assert.True(t, stale.Equal(decimal.NewFromInt(60000)))

	// 退避期内不再打上游
	before := atomic.LoadInt32(&calls)
	_, err = Price.USDPrice(context.Background(), chain.Bitcoin)
	require.NoError(t, err)
	assert.Equal(t, before, atomic.LoadInt32(&calls))
}

func TestPriceRateLimitNoCacheFails(t *testing.T) {
	newPriceTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := Price.USDPrice(context.Background(), chain.Solana)
	assert.ErrorIs(t, err, errno.ErrProviderUnavailable)
}

func TestPriceUnknownChain(t *testing.T) {
	newPriceTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := Price.USDPrice(context.Background(), chain.Tag("dogecoin"))
	assert.ErrorIs(t, err, errno.ErrUnsupportedChain)
}
