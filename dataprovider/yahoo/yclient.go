// File: dataprovider/yahoo/yclient.go
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/braydio/RSAssistant-sub000/dataprovider"
	utils "github.com/braydio/RSAssistant-sub000/utilities"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	cache      *dataprovider.CandleCache
	cfg        utils.MarketDataConfig
	limiter    *rate.Limiter
	logger     *utils.Logger
}

// --- Internal structs for the Yahoo chart API response ---

// Per-bar numeric fields arrive as JSON nulls when Yahoo has no data for a
// slot, so the quote arrays decode into pointers.
type yChartResponse struct {
	Chart struct {
		Result []yChartResult `json:"result"`
	} `json:"chart"`
}

type yChartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []yQuote `json:"quote"`
	} `json:"indicators"`
}

type yQuote struct {
	Close  []*float64 `json:"close"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Open   []*float64 `json:"open"`
	Volume []*float64 `json:"volume"`
}

func NewClient(cfg *utils.AppConfig, logger *utils.Logger, cache *dataprovider.CandleCache) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("yahoo client: AppConfig cannot be nil")
	}
	if logger == nil {
		logger = utils.NewLogger(utils.Info)
		logger.LogWarn("Yahoo Client: Logger not provided, using default logger.")
	}

	mdCfg := cfg.MarketData
	if mdCfg.BaseURL == "" {
		mdCfg.BaseURL = defaultBaseURL
	}
	if mdCfg.MaxRetries <= 0 {
		mdCfg.MaxRetries = 3
	}
	if mdCfg.RetryDelaySec <= 0 {
		mdCfg.RetryDelaySec = 1
	}
	if mdCfg.RequestTimeoutSec <= 0 {
		mdCfg.RequestTimeoutSec = 10
	}
	if mdCfg.RateLimitPerSec <= 0 {
		mdCfg.RateLimitPerSec = 5
		logger.LogWarn("Yahoo Client: Invalid RateLimitPerSec, defaulting to 5")
	}
	if mdCfg.RateLimitBurst <= 0 {
		mdCfg.RateLimitBurst = mdCfg.RateLimitPerSec
	}

	client := &Client{
		BaseURL:    strings.TrimRight(mdCfg.BaseURL, "/"),
		HTTPClient: &http.Client{Timeout: time.Duration(mdCfg.RequestTimeoutSec) * time.Second},
		cache:      cache,
		cfg:        mdCfg,
		limiter:    rate.NewLimiter(rate.Limit(mdCfg.RateLimitPerSec), mdCfg.RateLimitBurst),
		logger:     logger,
	}

	logger.LogInfo("Yahoo client initialized with URL: %s, RateLimit: %d req/sec", client.BaseURL, mdCfg.RateLimitPerSec)

	return client, nil
}

// GetCandles fetches OHLC bars for symbol, retrying transient failures.
// HTTP 429 honors the Retry-After header; other request failures back off
// linearly. A response that parses but has an unexpected shape fails
// immediately. Bars Yahoo reports as null are skipped individually.
func (c *Client) GetCandles(ctx context.Context, symbol, interval, candleRange string) ([]utils.OHLCVBar, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	reqURL := fmt.Sprintf("%s/%s?interval=%s&range=%s",
		c.BaseURL, url.PathEscape(symbol), url.QueryEscape(interval), url.QueryEscape(candleRange))
	baseDelay := time.Duration(c.cfg.RetryDelaySec) * time.Second

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("yahoo: rate limiter wait for %s: %w", symbol, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("yahoo: build request for %s: %w", symbol, err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "RSAssistantBot/1.0")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt+1 >= c.cfg.MaxRetries {
				return nil, fmt.Errorf("yahoo: fetch %s failed: %w", symbol, lastErr)
			}
			delay := baseDelay * time.Duration(attempt+1)
			c.logger.LogWarn("Yahoo Client: fetch %s failed (attempt %d/%d): %v; retrying in %s", symbol, attempt+1, c.cfg.MaxRetries, err, delay)
			time.Sleep(delay)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := resp.Header.Get("Retry-After")
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			delay := c.calculateBackoff(attempt, retryAfter)
			c.logger.LogWarn("Yahoo Client: rate limit hit for %s (attempt %d/%d); sleeping %s", symbol, attempt+1, c.cfg.MaxRetries, delay)
			if attempt+1 >= c.cfg.MaxRetries {
				return nil, fmt.Errorf("yahoo: fetch %s failed: http 429 after %d attempts", symbol, c.cfg.MaxRetries)
			}
			time.Sleep(delay)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			lastErr = fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
			if attempt+1 >= c.cfg.MaxRetries {
				return nil, fmt.Errorf("yahoo: fetch %s failed: %w", symbol, lastErr)
			}
			delay := baseDelay * time.Duration(attempt+1)
			c.logger.LogWarn("Yahoo Client: fetch %s returned %d (attempt %d/%d); retrying in %s", symbol, resp.StatusCode, attempt+1, c.cfg.MaxRetries, delay)
			time.Sleep(delay)
			continue
		}

		var payload yChartResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&payload)
		resp.Body.Close()
		if decodeErr != nil {
			lastErr = fmt.Errorf("decode response: %w", decodeErr)
			if attempt+1 >= c.cfg.MaxRetries {
				return nil, fmt.Errorf("yahoo: fetch %s failed: %w", symbol, lastErr)
			}
			delay := baseDelay * time.Duration(attempt+1)
			c.logger.LogWarn("Yahoo Client: decoding %s response failed (attempt %d/%d): %v; retrying in %s", symbol, attempt+1, c.cfg.MaxRetries, decodeErr, delay)
			time.Sleep(delay)
			continue
		}

		bars, err := parseChart(payload)
		if err != nil {
			return nil, fmt.Errorf("yahoo: %w for %s", err, symbol)
		}
		utils.SortBarsByTimestamp(bars)
		c.cacheBars(symbol, interval, bars)
		return bars, nil
	}
	return nil, fmt.Errorf("yahoo: fetch %s failed: %w", symbol, lastErr)
}

// GetLastPrice returns the most recent hourly close for symbol.
func (c *Client) GetLastPrice(ctx context.Context, symbol string) (float64, bool, error) {
	bars, err := c.GetCandles(ctx, symbol, "1h", "5d")
	if err != nil {
		return 0, false, err
	}
	if len(bars) == 0 {
		return 0, false, nil
	}
	return bars[len(bars)-1].Close, true, nil
}

// calculateBackoff returns the retry delay for a 429. A parseable
// Retry-After wins but never drops below the configured base delay;
// otherwise the base delay scales linearly with the attempt count.
func (c *Client) calculateBackoff(attempt int, retryAfter string) time.Duration {
	base := time.Duration(c.cfg.RetryDelaySec) * time.Second
	if retryAfter != "" {
		if secs, err := strconv.ParseFloat(retryAfter, 64); err == nil {
			if d := time.Duration(secs * float64(time.Second)); d > base {
				return d
			}
			return base
		}
	}
	scale := attempt + 1
	if scale < 1 {
		scale = 1
	}
	return base * time.Duration(scale)
}

func (c *Client) cacheBars(symbol, interval string, bars []utils.OHLCVBar) {
	if c.cache == nil || len(bars) == 0 {
		return
	}
	if err := c.cache.SaveBars(symbol, interval, bars); err != nil {
		c.logger.LogWarn("Yahoo Client: caching %d bars for %s failed: %v", len(bars), symbol, err)
	}
}

func parseChart(payload yChartResponse) ([]utils.OHLCVBar, error) {
	if len(payload.Chart.Result) == 0 {
		return nil, errors.New("unexpected Yahoo Finance response")
	}
	data := payload.Chart.Result[0]
	if len(data.Timestamp) == 0 || len(data.Indicators.Quote) == 0 {
		return nil, errors.New("incomplete Yahoo Finance response")
	}
	quote := data.Indicators.Quote[0]
	bars := make([]utils.OHLCVBar, 0, len(data.Timestamp))
	for idx, ts := range data.Timestamp {
		open, okO := quoteValue(quote.Open, idx)
		high, okH := quoteValue(quote.High, idx)
		low, okL := quoteValue(quote.Low, idx)
		closePx, okC := quoteValue(quote.Close, idx)
		if !okO || !okH || !okL || !okC {
			continue
		}
		volume, _ := quoteValue(quote.Volume, idx)
		bars = append(bars, utils.OHLCVBar{
			Close:     closePx,
			High:      high,
			Low:       low,
			Open:      open,
			Timestamp: ts,
			Volume:    volume,
		})
	}
	return bars, nil
}

func quoteValue(vals []*float64, idx int) (float64, bool) {
	if idx >= len(vals) || vals[idx] == nil {
		return 0, false
	}
	return *vals[idx], true
}
