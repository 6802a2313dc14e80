// File: notification/discord/client.go
package discord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/braydio/RSAssistant-sub000/pkg/schedule"
	"github.com/braydio/RSAssistant-sub000/pkg/trading"
	"github.com/braydio/RSAssistant-sub000/utilities"

	"github.com/spf13/viper" // Used in NewClient for logger config
)

// Embed colors (decimal).
const (
	colorGreen = 3066993
	colorRed   = 15158332
	colorBlue  = 3447003
)

// Client sends notifications to a Discord webhook.
type Client struct {
	webhookURL string
	HTTPClient *http.Client
	logger     *utilities.Logger
}

// DiscordMessage represents the structure for a Discord webhook message.
// See: https://discord.com/developers/docs/resources/webhook#execute-webhook
type DiscordMessage struct {
	Content string         `json:"content,omitempty"`
	Embeds  []DiscordEmbed `json:"embeds,omitempty"`
}

// DiscordEmbed represents an embed object in a Discord message.
type DiscordEmbed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"` // ISO8601 timestamp
	Color       int    `json:"color,omitempty"`     // Decimal color code
}

func NewClient(webhookURL string) *Client {
	logLevel := utilities.Info
	if viper.GetBool("debug") {
		logLevel = utilities.Debug
	}

	logger := utilities.NewLogger(logLevel)

	if webhookURL == "" {
		logger.LogWarn("Discord Client: Webhook URL is empty. Notifications will not be sent.")
	} else {
		logger.LogInfo("Discord Client initialized with webhook URL.")
	}

	return &Client{
		webhookURL: webhookURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// SendMessage sends a simple text message to the configured Discord webhook.
func (c *Client) SendMessage(message string) error {
	if c.webhookURL == "" {
		c.logger.LogDebug("Discord SendMessage: Webhook URL is not set, skipping.")
		return nil
	}

	if strings.TrimSpace(message) == "" {
		c.logger.LogDebug("Discord SendMessage: Message is empty, skipping.")
		return nil
	}

	payload := DiscordMessage{
		Content: message,
	}
	return c.sendPayload(payload)
}

// SendEmbedMessage sends a message with one or more embeds.
func (c *Client) SendEmbedMessage(embeds ...DiscordEmbed) error {
	if c.webhookURL == "" {
		c.logger.LogDebug("Discord SendEmbedMessage: Webhook URL is not set, skipping.")
		return nil
	}
	if len(embeds) == 0 {
		c.logger.LogDebug("Discord SendEmbedMessage: No embeds provided, skipping.")
		return nil
	}
	payload := DiscordMessage{
		Embeds: embeds,
	}
	return c.sendPayload(payload)
}

// sendPayload is an internal helper to send the marshalled JSON payload.
func (c *Client) sendPayload(payload DiscordMessage) error {
	if c.webhookURL == "" {
		return fmt.Errorf("discord webhook URL not configured")
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		c.logger.LogError("Discord sendPayload: Failed to marshal JSON: %v", err)
		return fmt.Errorf("failed to marshal discord message: %w", err)
	}

	c.logger.LogDebug("Discord sendPayload: Sending to webhook. Payload size: %d bytes", len(payloadBytes))

	req, err := http.NewRequest("POST", c.webhookURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		c.logger.LogError("Discord sendPayload: Failed to create HTTP request: %v", err)
		return fmt.Errorf("failed to create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "RSAssistantBot/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.logger.LogError("Discord sendPayload: Failed to send HTTP request: %v", err)
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.logger.LogDebug("Discord sendPayload: Message sent successfully (Status: %s)", resp.Status)
		return nil
	}

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		c.logger.LogError("Discord sendPayload: Received non-OK status: %s. Failed to read body: %v", resp.Status, readErr)
		return fmt.Errorf("discord API error: %s, failed to read response body", resp.Status)
	}
	c.logger.LogError("Discord sendPayload: Received non-OK status: %s. Body: %s", resp.Status, string(bodyBytes))
	return fmt.Errorf("discord API error: %s, response: %s", resp.Status, string(bodyBytes))
}

// NotifyTradeOpened announces a freshly opened position.
func (c *Client) NotifyTradeOpened(position trading.TradePosition) error {
	if c.webhookURL == "" {
		c.logger.LogDebug("Discord NotifyTradeOpened: Webhook URL is not set, skipping.")
		return nil
	}

	directionUpper := strings.ToUpper(position.Direction)
	color := colorGreen
	emoji := "✅"
	if position.Direction == "short" {
		color = colorRed
		emoji = "🔻"
	}

	description := fmt.Sprintf(
		"**Symbol**: %s\n"+
			"**Entry Price**: `%.4f`\n"+
			"**Quantity**: `%.2f`\n"+
			"**Take Profit**: `%.4f`\n"+
			"**Stop Loss**: `%.4f`",
		position.Symbol,
		position.EntryPrice,
		position.Quantity,
		position.TakeProfit,
		position.StopLoss,
	)

	timestamp := position.OpenedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	embed := DiscordEmbed{
		Title:       fmt.Sprintf("%s Opened %s: %s", emoji, directionUpper, position.Symbol),
		Description: description,
		Color:       color,
		Timestamp:   timestamp.Format(time.RFC3339),
	}
	return c.SendEmbedMessage(embed)
}

// NotifyTradeClosed announces a realized round trip, including the exit
// reason and P&L.
func (c *Client) NotifyTradeClosed(trade trading.ClosedTrade, reason string) error {
	if c.webhookURL == "" {
		c.logger.LogDebug("Discord NotifyTradeClosed: Webhook URL is not set, skipping.")
		return nil
	}

	color := colorGreen
	emoji := "💰"
	if trade.PnL < 0 {
		color = colorRed
		emoji = "📉"
	}

	description := fmt.Sprintf(
		"**Symbol**: %s\n"+
			"**Direction**: %s\n"+
			"**Entry → Exit**: `%.4f` → `%.4f`\n"+
			"**Quantity**: `%.2f`\n"+
			"**Realized P&L**: `%+.2f`\n"+
			"**Reason**: %s",
		trade.Symbol,
		strings.ToUpper(trade.Direction),
		trade.EntryPrice,
		trade.ExitPrice,
		trade.Quantity,
		trade.PnL,
		reason,
	)

	timestamp := trade.ClosedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	embed := DiscordEmbed{
		Title:       fmt.Sprintf("%s Closed %s: %s", emoji, strings.ToUpper(trade.Direction), trade.Symbol),
		Description: description,
		Color:       color,
		Timestamp:   timestamp.Format(time.RFC3339),
	}
	return c.SendEmbedMessage(embed)
}

// NotifyError forwards a background-loop failure to the webhook. The bot
// installs this as its error sink.
func (c *Client) NotifyError(message string) error {
	if c.webhookURL == "" {
		c.logger.LogDebug("Discord NotifyError: Webhook URL is not set, skipping.")
		return nil
	}

	embed := DiscordEmbed{
		Title:       "⚠️ Trading Error",
		Description: message,
		Color:       colorRed,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	return c.SendEmbedMessage(embed)
}

// NotifyOrderDispatched announces a scheduled order the dispatcher just
// executed. Send failures are logged rather than returned so the dispatcher
// loop stays simple.
func (c *Client) NotifyOrderDispatched(order schedule.Order) {
	if c.webhookURL == "" {
		c.logger.LogDebug("Discord NotifyOrderDispatched: Webhook URL is not set, skipping.")
		return
	}

	broker := order.Broker
	if broker == "" {
		broker = "all brokers"
	}
	description := fmt.Sprintf(
		"**Action**: %s\n"+
			"**Ticker**: %s\n"+
			"**Quantity**: `%.2f`\n"+
			"**Broker**: %s\n"+
			"**Order ID**: `%s`",
		strings.ToUpper(order.Action),
		order.Ticker,
		order.Quantity,
		broker,
		order.ID,
	)

	embed := DiscordEmbed{
		Title:       fmt.Sprintf("ℹ️ Scheduled Order Executed: %s", order.Ticker),
		Description: description,
		Color:       colorBlue,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if err := c.SendEmbedMessage(embed); err != nil {
		c.logger.LogError("Discord NotifyOrderDispatched: %v", err)
	}
}

// NotifyHoldings renders the executor's positions payload as a holdings
// summary.
func (c *Client) NotifyHoldings(payload interface{}) error {
	if c.webhookURL == "" {
		c.logger.LogDebug("Discord NotifyHoldings: Webhook URL is not set, skipping.")
		return nil
	}

	lines := formatPositions(payload)
	description := "No open positions reported."
	if len(lines) > 0 {
		description = strings.Join(lines, "\n")
	}

	embed := DiscordEmbed{
		Title:       "📊 Current Holdings",
		Description: description,
		Color:       colorBlue,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	return c.SendEmbedMessage(embed)
}

// formatPositions flattens the loosely typed auto-rsa positions payload into
// display lines. Unknown shapes simply yield no lines.
func formatPositions(payload interface{}) []string {
	items, ok := payload.([]interface{})
	if !ok {
		wrapped, ok := payload.(map[string]interface{})
		if !ok {
			return nil
		}
		for _, key := range []string{"positions", "holdings"} {
			if inner, isList := wrapped[key].([]interface{}); isList {
				items = inner
				break
			}
		}
	}

	var lines []string
	for _, item := range items {
		pos, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		symbol := firstString(pos, "symbol", "ticker")
		if symbol == "" {
			continue
		}
		line := "**" + symbol + "**"
		if qty, err := firstFloat(pos, "quantity", "shares"); err == nil {
			line += fmt.Sprintf(": `%.2f`", qty)
		}
		if price, err := firstFloat(pos, "price", "last_price"); err == nil {
			line += fmt.Sprintf(" @ `%.2f`", price)
		}
		if broker := firstString(pos, "broker", "brokerage"); broker != "" {
			line += fmt.Sprintf(" (%s)", broker)
		}
		lines = append(lines, line)
	}
	return lines
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func firstFloat(m map[string]interface{}, keys ...string) (float64, error) {
	for _, key := range keys {
		if raw, ok := m[key]; ok {
			return utilities.ParseFloatFromInterface(raw)
		}
	}
	return 0, fmt.Errorf("no value for keys %v", keys)
}
