package price

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/karlseguin/ccache/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// lastKnownTTL keeps the fallback quote for the life of the process.
const lastKnownTTL = 100 * 365 * 24 * time.Hour

// CachedOracle serves quotes from a short-TTL cache in front of a Source and
// remembers the last successful quote as a fallback.
type CachedOracle struct {
	source Source
	ttl    time.Duration
	cache  *ccache.Cache
	group  singleflight.Group
}

var _ Oracle = (*CachedOracle)(nil)

func NewCachedOracle(source Source, ttl time.Duration) *CachedOracle {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedOracle{
		source: source,
		ttl:    ttl,
		cache:  ccache.New(ccache.Configure().MaxSize(1000).ItemsToPrune(50)),
	}
}

func cacheKey(kind, asset, fiat string) string {
	return fmt.Sprintf("%s:%s:%s", kind, strings.ToUpper(asset), strings.ToUpper(fiat))
}

func (o *CachedOracle) SpotPrice(ctx context.Context, asset, fiat string) (decimal.Decimal, error) {
	key := cacheKey("spot", asset, fiat)
	if item := o.cache.Get(key); item != nil && !item.Expired() {
		return item.Value().(decimal.Decimal), nil
	}

	v, err, _ := o.group.Do(key, func() (interface{}, error) {
		p, err := o.source.FetchPrice(ctx, asset, fiat)
		if err != nil {
			return nil, err
		}
		o.cache.Set(key, p, o.ttl)
		o.cache.Set(cacheKey("last", asset, fiat), p, lastKnownTTL)
		return p, nil
	})
	if err != nil {
		zap.L().Warn("Live price unavailable",
			zap.String("asset", asset),
			zap.String("fiat", fiat),
			zap.Error(err))
		return decimal.Zero, fmt.Errorf("%w: %s/%s: %v", ErrPriceUnavailable, asset, fiat, err)
	}
	return v.(decimal.Decimal), nil
}

func (o *CachedOracle) LastKnownPrice(asset, fiat string) (decimal.Decimal, bool) {
	item := o.cache.Get(cacheKey("last", asset, fiat))
	if item == nil {
		return decimal.Zero, false
	}
	return item.Value().(decimal.Decimal), true
}

func (o *CachedOracle) Stop() {
	o.cache.Stop()
}
