// File: pkg/executor/autorsa/client.go
package autorsa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/braydio/RSAssistant-sub000/pkg/executor"
	utils "github.com/braydio/RSAssistant-sub000/utilities"
)

// Client issues orders against a live auto-rsa deployment. Order endpoints
// are dispatched exactly once so a flaky connection can never double-submit;
// the read-only positions endpoint retries through DoJSONRequest.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	logger     *utils.Logger
	maxRetries int
	retryDelay time.Duration
}

func NewClient(cfg *utils.AppConfig, logger *utils.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("autorsa client: AppConfig cannot be nil")
	}
	if logger == nil {
		logger = utils.NewLogger(utils.Info)
		logger.LogWarn("AutoRSA Client: Logger not provided, using default logger.")
	}

	exCfg := cfg.Executor
	if exCfg.BaseURL == "" {
		return nil, errors.New("autorsa client: BaseURL is required in ExecutorConfig")
	}
	if exCfg.RequestTimeoutSec <= 0 {
		exCfg.RequestTimeoutSec = 15
	}
	if exCfg.MaxRetries < 0 {
		exCfg.MaxRetries = 0
	}
	if exCfg.RetryDelaySec <= 0 {
		exCfg.RetryDelaySec = 2
	}

	client := &Client{
		BaseURL:    strings.TrimRight(exCfg.BaseURL, "/"),
		APIKey:     exCfg.APIKey,
		HTTPClient: &http.Client{Timeout: time.Duration(exCfg.RequestTimeoutSec) * time.Second},
		logger:     logger,
		maxRetries: exCfg.MaxRetries,
		retryDelay: time.Duration(exCfg.RetryDelaySec) * time.Second,
	}

	logger.LogInfo("auto-rsa executor initialized with URL: %s", client.BaseURL)

	return client, nil
}

func (c *Client) Buy(ctx context.Context, symbol string, amount float64, usePercent bool) executor.ExecResult {
	payload := map[string]interface{}{"symbol": symbol, "amount": amount, "use_percent": usePercent}
	return c.dispatch(ctx, http.MethodPost, "/orders/buy", payload)
}

func (c *Client) Sell(ctx context.Context, symbol string, amount interface{}, broker string) executor.ExecResult {
	payload := map[string]interface{}{"symbol": symbol, "amount": amount}
	if broker != "" {
		payload["broker"] = broker
	}
	return c.dispatch(ctx, http.MethodPost, "/orders/sell", payload)
}

func (c *Client) SetBracket(ctx context.Context, symbol string, takeProfit, stopLoss float64) executor.ExecResult {
	payload := map[string]interface{}{
		"symbol":      symbol,
		"take_profit": executor.RoundPrice(takeProfit),
		"stop_loss":   executor.RoundPrice(stopLoss),
	}
	return c.dispatch(ctx, http.MethodPost, "/orders/brackets", payload)
}

func (c *Client) CancelAll(ctx context.Context, symbol string) executor.ExecResult {
	payload := map[string]interface{}{"symbol": symbol}
	return c.dispatch(ctx, http.MethodPost, "/orders/cancel", payload)
}

func (c *Client) GetPositions(ctx context.Context) executor.ExecResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/portfolio/positions", nil)
	if err != nil {
		return executor.ExecResult{Success: false, Error: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	var data interface{}
	if err := utils.DoJSONRequest(c.HTTPClient, req, c.maxRetries, c.retryDelay, &data); err != nil {
		c.logger.LogError("auto-rsa positions fetch failed: %v", err)
		return executor.ExecResult{Success: false, Error: err.Error()}
	}
	return executor.ExecResult{Success: true, Payload: data}
}

// dispatch sends one request and folds the response into an ExecResult. A
// non-2xx status or transport error comes back as a failed result, never an
// uncaught error.
func (c *Client) dispatch(ctx context.Context, method, path string, payload map[string]interface{}) executor.ExecResult {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return executor.ExecResult{Success: false, Error: fmt.Sprintf("encode payload: %v", err)}
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return executor.ExecResult{Success: false, Error: fmt.Sprintf("build request: %v", err)}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.logger.LogError("auto-rsa request failed (%s %s): %v", method, path, err)
		return executor.ExecResult{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errMsg := fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		c.logger.LogError("auto-rsa request failed (%s %s): %s", method, path, errMsg)
		return executor.ExecResult{Success: false, StatusCode: resp.StatusCode, Error: errMsg}
	}

	var data interface{}
	if len(raw) > 0 {
		// An unparseable success body is treated as an empty payload.
		if err := json.Unmarshal(raw, &data); err != nil {
			data = nil
		}
	}
	c.logger.LogDebug("auto-rsa response (%s %s): %v", method, path, data)
	return executor.ExecResult{Success: true, Payload: data, StatusCode: resp.StatusCode}
}

func (c *Client) authorize(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
}
