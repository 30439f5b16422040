package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"settlement-core/pkg/chain"
	"settlement-core/pkg/config"
	"settlement-core/pkg/errno"
	"settlement-core/pkg/logger"
	"settlement-core/pkg/monitor"
)

// coinIDs 链原生币在行情接口里的 id
var coinIDs = map[chain.Tag]string{
	chain.Ethereum: "ethereum",
	chain.Bitcoin:  "bitcoin",
	chain.Solana:   "solana",
	chain.Starknet: "starknet",
	chain.Stellar:  "stellar",
	chain.Polkadot: "polkadot",
}

// PriceService 美元报价。
// 30 秒缓存 + 全局限速。被上游 429 限流时进入退避期,
// 退避期内继续用过期缓存顶着, 不让结算停摆。
type PriceService struct {
	httpc   *http.Client
	cache   *gocache.Cache
	limiter *rate.Limiter
	sem     chan struct{}

	mu           sync.Mutex
	backoffUntil time.Time

	baseURL string
	ttl     time.Duration
}

var Price *PriceService

// InitPriceService 按配置初始化全局价格服务
func InitPriceService() {
	cfg := config.Global.Oracle
	ttl := time.Duration(cfg.CacheTTLSec) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	maxConc := cfg.MaxConcurrent
	if maxConc <= 0 {
		maxConc = 2
	}
	Price = &PriceService{
		httpc: &http.Client{Timeout: 10 * time.Second},
		// 条目不过期不清理, 退避期还要靠旧价救急
		cache:   gocache.New(gocache.NoExpiration, 0),
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		sem:     make(chan struct{}, maxConc),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		ttl:     ttl,
	}
}

type simplePriceResponse map[string]struct {
	USD float64 `json:"usd"`
}

// pricePoint 带取价时间的缓存条目。
// 条目永不过期, 新鲜度自己判: 过期价在退避期是救命稻草。
type pricePoint struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// USDPrice 查某条链原生币的美元价格
func (s *PriceService) USDPrice(ctx context.Context, tag chain.Tag) (decimal.Decimal, error) {
	coinID, ok := coinIDs[tag]
	if !ok {
		return decimal.Zero, errno.ErrUnsupportedChain
	}

	if v, found := s.cache.Get(coinID); found {
		point := v.(pricePoint)
		if time.Since(point.fetchedAt) < s.ttl {
			monitor.Business.OracleCacheHits.Inc()
			return point.price, nil
		}
	}

	// 退避期内不打上游, 有过期价就用过期价
	s.mu.Lock()
	backingOff := time.Now().Before(s.backoffUntil)
	s.mu.Unlock()
	if backingOff {
		if stale, ok := s.staleGet(coinID); ok {
			monitor.Business.OracleStaleServed.Inc()
			return stale, nil
		}
		return decimal.Zero, fmt.Errorf("%w: 价格源限流且无缓存", errno.ErrProviderUnavailable)
	}

	price, err := s.fetch(ctx, coinID)
	if err != nil {
		if stale, ok := s.staleGet(coinID); ok {
			monitor.Business.OracleStaleServed.Inc()
			logger.Warn("价格源查询失败, 回退到过期缓存",
				zap.String("coin", coinID), zap.Error(err))
			return stale, nil
		}
		return decimal.Zero, err
	}
	s.cache.Set(coinID, pricePoint{price: price, fetchedAt: time.Now()}, gocache.NoExpiration)
	return price, nil
}

func (s *PriceService) fetch(ctx context.Context, coinID string) (decimal.Decimal, error) {
	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return decimal.Zero, ctx.Err()
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return decimal.Zero, err
	}

	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", s.baseURL, coinID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, err
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", errno.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 60 * time.Second
		if v := resp.Header.Get("Retry-After"); v != "" {
			if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
				retryAfter = time.Duration(sec) * time.Second
			}
		}
		// 全局退避: 一个币种被限流, 其他币种也别去撞了
		s.mu.Lock()
		s.backoffUntil = time.Now().Add(retryAfter)
		s.mu.Unlock()
		logger.Warn("价格源限流, 进入退避", zap.Duration("retry_after", retryAfter))
		return decimal.Zero, fmt.Errorf("%w: 价格源限流", errno.ErrProviderUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: 价格源返回 %d", errno.ErrProviderUnavailable, resp.StatusCode)
	}

	var body simplePriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, err
	}
	entry, ok := body[coinID]
	if !ok || entry.USD <= 0 {
		return decimal.Zero, fmt.Errorf("%w: 价格源缺少 %s 报价", errno.ErrProviderUnavailable, coinID)
	}
	return decimal.NewFromFloat(entry.USD), nil
}

// staleGet 不管新鲜度, 有价就给
func (s *PriceService) staleGet(coinID string) (decimal.Decimal, bool) {
	if v, found := s.cache.Get(coinID); found {
		return v.(pricePoint).price, true
	}
	return decimal.Zero, false
}
