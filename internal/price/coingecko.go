package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"casino-settlement-go/internal/metrics"
	"casino-settlement-go/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const defaultBaseUrl = "https://api.coingecko.com/api/v3"

var coinIds = map[string]string{
	"SOL": "solana",
}

// CoinGecko reads simple/price quotes, throttled to the configured rate.
type CoinGecko struct {
	baseUrl     string
	apiKey      string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	timeout     time.Duration
}

var _ Source = (*CoinGecko)(nil)

func NewCoinGecko(httpClient *http.Client, cfg models.PriceConfig) *CoinGecko {
	baseUrl := cfg.BaseUrl
	if baseUrl == "" {
		baseUrl = defaultBaseUrl
	}
	perMin := cfg.RequestsPerMin
	if perMin <= 0 {
		perMin = 30
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &CoinGecko{
		baseUrl:     strings.TrimRight(baseUrl, "/"),
		apiKey:      cfg.ApiKey,
		httpClient:  httpClient,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), 1),
		timeout:     timeout,
	}
}

func (c *CoinGecko) FetchPrice(ctx context.Context, asset, fiat string) (decimal.Decimal, error) {
	coinId, ok := coinIds[strings.ToUpper(asset)]
	if !ok {
		return decimal.Zero, fmt.Errorf("coingecko: unsupported asset %s", asset)
	}
	vs := strings.ToLower(fiat)

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("coingecko: rate limit wait cancelled: %w", err)
	}

	start := time.Now()
	p, err := c.fetch(ctx, coinId, vs)
	metrics.RecordExternalCall("coingecko", "simple_price", err == nil, time.Since(start))
	return p, err
}

func (c *CoinGecko) fetch(ctx context.Context, coinId, vs string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	query := url.Values{}
	query.Set("ids", coinId)
	query.Set("vs_currencies", vs)
	endpoint := c.baseUrl + "/simple/price?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("coingecko: failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("coingecko: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return decimal.Zero, fmt.Errorf("coingecko: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("coingecko: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var response map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &response); err != nil {
		return decimal.Zero, fmt.Errorf("coingecko: failed to parse response: %w", err)
	}

	p, ok := response[coinId][vs]
	if !ok || !p.IsPositive() {
		return decimal.Zero, fmt.Errorf("coingecko: no %s quote for %s", vs, coinId)
	}
	return p, nil
}
