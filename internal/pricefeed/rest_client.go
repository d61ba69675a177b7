package pricefeed

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"finality-sim-go/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TickerPrice represents the response for a single ticker price.
type TickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// RestFeed periodically pulls a live reference price from a public ticker
// endpoint. Settlement itself never touches the network; the feed only seeds
// the price that market orders are stamped with.
type RestFeed struct {
	client  *resty.Client
	symbol  string
	logger  *zap.Logger
	limiter *rate.Limiter

	mu       sync.RWMutex
	price    float64
	candles  []Candle
	fallback float64
}

// ensure RestFeed implements the interface
var _ Feed = (*RestFeed)(nil)

// NewRestFeed creates a live price feed. The fallback price is served until
// the first successful refresh.
func NewRestFeed(cfg *config.PriceFeed, fallback float64, logger *zap.Logger) *RestFeed {
	client := resty.New().SetBaseURL(cfg.URL)
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &RestFeed{
		client:   client,
		symbol:   cfg.Symbol,
		logger:   logger,
		limiter:  limiter,
		price:    fallback,
		fallback: fallback,
	}
}

// CurrentPrice returns the most recently fetched price, or the fallback if no
// refresh has succeeded yet.
func (f *RestFeed) CurrentPrice() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.price
}

// Candles returns a walk seeded from the latest price, generated lazily on
// first use so the chart starts near the live market.
func (f *RestFeed) Candles() []Candle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.candles == nil {
		f.candles = randomWalk(f.price, 30, rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	return f.candles
}

// Refresh fetches the current ticker price and caches it.
func (f *RestFeed) Refresh(ctx context.Context) (float64, error) {
	var ticker TickerPrice

	req := f.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", f.symbol).
		SetResult(&ticker).
		SetHeader("Content-Type", "application/json")

	resp, err := f.doRequest(ctx, "GET", "/ticker/price", req)
	if err != nil {
		return 0, fmt.Errorf("failed to get ticker price: %w", err)
	}

	result := resp.Result().(*TickerPrice)
	price, err := strconv.ParseFloat(result.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse ticker price %q: %w", result.Price, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("ticker returned non-positive price %f for %s", price, f.symbol)
	}

	f.mu.Lock()
	f.price = price
	f.mu.Unlock()

	return price, nil
}

// Run refreshes the cached price at the configured interval until the context
// is cancelled. Errors are logged and the previous price kept.
func (f *RestFeed) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if price, err := f.Refresh(ctx); err != nil {
				f.logger.Warn("Price refresh failed, keeping previous price", zap.Error(err))
			} else {
				f.logger.Debug("Reference price refreshed", zap.Float64("price", price))
			}
		}
	}
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (f *RestFeed) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		f.logger.Debug("Executing request", zap.String("method", method), zap.String("url", f.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests || statusCode == 418 { // HTTP 429 or 418
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		f.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}
