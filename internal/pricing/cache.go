package pricing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"defigateway/internal/model"
)

// DefaultTTL bounds how long a cached quote stays live.
const DefaultTTL = 60 * time.Second

// Upstream is the price source behind the cache.
type Upstream interface {
	SimplePrices(ctx context.Context, ids []string) (map[string]Quote, error)
	MarketChart(ctx context.Context, id string, days int) ([]model.PricePoint, error)
}

// symbolIDs maps canonical ticker symbols to upstream identifiers. Symbols
// not listed here pass through lowercased as the identifier.
var symbolIDs = map[string]string{
	"BTC":   "bitcoin",
	"WBTC":  "wrapped-bitcoin",
	"ETH":   "ethereum",
	"WETH":  "weth",
	"USDC":  "usd-coin",
	"USDT":  "tether",
	"DAI":   "dai",
	"BNB":   "binancecoin",
	"SOL":   "solana",
	"MATIC": "matic-network",
	"ARB":   "arbitrum",
	"OP":    "optimism",
	"UNI":   "uniswap",
	"AAVE":  "aave",
	"LINK":  "chainlink",
	"LDO":   "lido-dao",
	"CRV":   "curve-dao-token",
	"MKR":   "maker",
}

// UpstreamID resolves a requested symbol to its upstream identifier.
func UpstreamID(symbol string) string {
	if id, ok := symbolIDs[strings.ToUpper(strings.TrimSpace(symbol))]; ok {
		return id
	}
	return strings.ToLower(strings.TrimSpace(symbol))
}

// Cache is a TTL-bounded in-memory price cache over one upstream source.
// Eviction is lazy: expired entries are treated as absent at read time and
// stay in memory until overwritten or cleared.
type Cache struct {
	upstream Upstream
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger

	mu      sync.RWMutex
	entries map[string]model.PriceRecord
}

// Option adjusts cache construction.
type Option func(*Cache)

// WithClock injects the time source, for deterministic expiry in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache builds a price cache. A non-positive ttl falls back to DefaultTTL.
func NewCache(upstream Upstream, ttl time.Duration, logger *zap.Logger, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{
		upstream: upstream,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
		entries:  make(map[string]model.PriceRecord),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Price returns the current quote for a symbol, serving a live cached entry
// without I/O and fetching from the upstream otherwise.
func (c *Cache) Price(ctx context.Context, symbol string) (model.PriceRecord, error) {
	key := cacheKey(symbol)
	if rec, ok := c.lookup(key); ok {
		return rec, nil
	}

	id := UpstreamID(symbol)
	quotes, err := c.upstream.SimplePrices(ctx, []string{id})
	if err != nil {
		return model.PriceRecord{}, fmt.Errorf("%w: fetch %s: %v", model.ErrUpstreamUnavailable, id, err)
	}
	quote, ok := quotes[id]
	if !ok {
		return model.PriceRecord{}, fmt.Errorf("%w: no data for %s", model.ErrUpstreamUnavailable, id)
	}

	rec := c.store(key, quote)
	return rec, nil
}

// BatchPrices resolves quotes for a set of symbols. Live cached entries are
// reused; the remaining identifiers are fetched in a single upstream call and
// cached. A symbol the upstream does not know maps to nil rather than failing
// the batch.
func (c *Cache) BatchPrices(ctx context.Context, symbols []string) (map[string]*model.PriceRecord, error) {
	out := make(map[string]*model.PriceRecord, len(symbols))

	missing := make(map[string]struct{})
	for _, symbol := range symbols {
		if rec, ok := c.lookup(cacheKey(symbol)); ok {
			cached := rec
			out[symbol] = &cached
			continue
		}
		missing[UpstreamID(symbol)] = struct{}{}
	}

	var quotes map[string]Quote
	if len(missing) > 0 {
		ids := make([]string, 0, len(missing))
		for id := range missing {
			ids = append(ids, id)
		}
		var err error
		quotes, err = c.upstream.SimplePrices(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("%w: batch fetch: %v", model.ErrUpstreamUnavailable, err)
		}
	}

	for _, symbol := range symbols {
		if _, done := out[symbol]; done {
			continue
		}
		quote, ok := quotes[UpstreamID(symbol)]
		if !ok {
			out[symbol] = nil
			continue
		}
		rec := c.store(cacheKey(symbol), quote)
		out[symbol] = &rec
	}

	return out, nil
}

// History returns the ascending historical series for a symbol over the last
// days days. The order is whatever the upstream returns; no resampling.
func (c *Cache) History(ctx context.Context, symbol string, days int) ([]model.PricePoint, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive, got %d", model.ErrInvalidArgument, days)
	}
	id := UpstreamID(symbol)
	points, err := c.upstream.MarketChart(ctx, id, days)
	if err != nil {
		return nil, fmt.Errorf("%w: history %s: %v", model.ErrUpstreamUnavailable, id, err)
	}
	return points, nil
}

// Clear drops all cached entries; subsequent lookups go live.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]model.PriceRecord)
	c.mu.Unlock()
	c.logger.Debug("price cache cleared")
}

// Stats reports the cache size and sorted keys. Expired entries still count
// until overwritten or cleared.
func (c *Cache) Stats() model.CacheStats {
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	c.mu.RUnlock()

	sort.Strings(keys)
	return model.CacheStats{Size: len(keys), Keys: keys}
}

func (c *Cache) lookup(key string) (model.PriceRecord, bool) {
	c.mu.RLock()
	rec, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return model.PriceRecord{}, false
	}
	if c.now().UnixMilli()-rec.FetchedAt >= c.ttl.Milliseconds() {
		return model.PriceRecord{}, false
	}
	return rec, true
}

func (c *Cache) store(key string, quote Quote) model.PriceRecord {
	rec := model.PriceRecord{
		Symbol:       key,
		USDPrice:     quote.USD,
		Change24h:    quote.Change24h,
		MarketCapUSD: quote.MarketCapUSD,
		Volume24hUSD: quote.Volume24hUSD,
		FetchedAt:    c.now().UnixMilli(),
	}
	c.mu.Lock()
	c.entries[key] = rec
	c.mu.Unlock()
	return rec
}

func cacheKey(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}
