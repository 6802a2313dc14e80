// File: notification/discord/client_test.go
package discord

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/braydio/RSAssistant-sub000/pkg/schedule"
	"github.com/braydio/RSAssistant-sub000/pkg/trading"
)

type capturedRequest struct {
	userAgent string
	message   DiscordMessage
}

func newWebhookServer(t *testing.T, status int) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg DiscordMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("webhook body did not decode: %v", err)
		}
		captured = append(captured, capturedRequest{
			userAgent: r.Header.Get("User-Agent"),
			message:   msg,
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, &captured
}

func TestSendMessageSkipsWithoutWebhook(t *testing.T) {
	client := NewClient("")
	if err := client.SendMessage("hello"); err != nil {
		t.Fatalf("expected empty-webhook send to be a silent no-op, got %v", err)
	}
	if err := client.NotifyError("boom"); err != nil {
		t.Fatalf("expected empty-webhook notify to be a silent no-op, got %v", err)
	}
}

func TestNotifyTradeOpenedSendsGreenEmbed(t *testing.T) {
	server, captured := newWebhookServer(t, http.StatusNoContent)
	client := NewClient(server.URL)

	position := trading.TradePosition{
		Symbol:     "TQQQ",
		Direction:  "long",
		EntryPrice: 21.0,
		Quantity:   1.0,
		TakeProfit: 23.1,
		StopLoss:   19.95,
		OpenedAt:   time.Date(2025, 6, 11, 14, 0, 0, 0, time.UTC),
	}
	if err := client.NotifyTradeOpened(position); err != nil {
		t.Fatalf("NotifyTradeOpened: %v", err)
	}

	if len(*captured) != 1 {
		t.Fatalf("expected 1 webhook call, got %d", len(*captured))
	}
	got := (*captured)[0]
	if got.userAgent != "RSAssistantBot/1.0" {
		t.Errorf("unexpected User-Agent %q", got.userAgent)
	}
	if len(got.message.Embeds) != 1 {
		t.Fatalf("expected 1 embed, got %+v", got.message)
	}
	embed := got.message.Embeds[0]
	if embed.Color != colorGreen {
		t.Errorf("expected green embed for a long entry, got %d", embed.Color)
	}
	if !strings.Contains(embed.Title, "LONG") || !strings.Contains(embed.Title, "TQQQ") {
		t.Errorf("unexpected title %q", embed.Title)
	}
	if !strings.Contains(embed.Description, "23.1000") {
		t.Errorf("expected take profit in description, got %q", embed.Description)
	}
}

func TestNotifyTradeClosedLossUsesRed(t *testing.T) {
	server, captured := newWebhookServer(t, http.StatusOK)
	client := NewClient(server.URL)

	trade := trading.ClosedTrade{
		Symbol:     "SQQQ",
		Direction:  "short",
		EntryPrice: 20.0,
		ExitPrice:  19.0,
		Quantity:   1.0,
		PnL:        -1.0,
		ClosedAt:   time.Date(2025, 6, 11, 15, 0, 0, 0, time.UTC),
	}
	if err := client.NotifyTradeClosed(trade, "stop loss"); err != nil {
		t.Fatalf("NotifyTradeClosed: %v", err)
	}

	embed := (*captured)[0].message.Embeds[0]
	if embed.Color != colorRed {
		t.Errorf("expected red embed for a losing trade, got %d", embed.Color)
	}
	if !strings.Contains(embed.Description, "stop loss") {
		t.Errorf("expected exit reason in description, got %q", embed.Description)
	}
	if !strings.Contains(embed.Description, "-1.00") {
		t.Errorf("expected realized P&L in description, got %q", embed.Description)
	}
}

func TestNotifyOrderDispatchedUsesBlue(t *testing.T) {
	server, captured := newWebhookServer(t, http.StatusOK)
	client := NewClient(server.URL)

	client.NotifyOrderDispatched(schedule.Order{
		ID:       "abc-123",
		Action:   schedule.ActionBuy,
		Ticker:   "ABCD",
		Quantity: 5,
	})

	if len(*captured) != 1 {
		t.Fatalf("expected 1 webhook call, got %d", len(*captured))
	}
	embed := (*captured)[0].message.Embeds[0]
	if embed.Color != colorBlue {
		t.Errorf("expected blue embed for a dispatched order, got %d", embed.Color)
	}
	if !strings.Contains(embed.Description, "all brokers") {
		t.Errorf("expected empty broker to render as all brokers, got %q", embed.Description)
	}
}

func TestNotifyHoldingsFormatsPayload(t *testing.T) {
	server, captured := newWebhookServer(t, http.StatusOK)
	client := NewClient(server.URL)

	payload := map[string]interface{}{
		"positions": []interface{}{
			map[string]interface{}{"ticker": "ABCD", "quantity": 2.0, "price": "12.5", "broker": "fidelity"},
			map[string]interface{}{"symbol": "WXYZ", "shares": 1.0},
			map[string]interface{}{"note": "no symbol, skipped"},
		},
	}
	if err := client.NotifyHoldings(payload); err != nil {
		t.Fatalf("NotifyHoldings: %v", err)
	}

	description := (*captured)[0].message.Embeds[0].Description
	if !strings.Contains(description, "**ABCD**: `2.00` @ `12.50` (fidelity)") {
		t.Errorf("unexpected holdings line: %q", description)
	}
	if !strings.Contains(description, "**WXYZ**: `1.00`") {
		t.Errorf("expected WXYZ line, got %q", description)
	}
	if strings.Contains(description, "no symbol") {
		t.Errorf("expected symbol-less entries to be skipped, got %q", description)
	}
}

func TestNotifyHoldingsEmptyPayload(t *testing.T) {
	server, captured := newWebhookServer(t, http.StatusOK)
	client := NewClient(server.URL)

	if err := client.NotifyHoldings(nil); err != nil {
		t.Fatalf("NotifyHoldings(nil): %v", err)
	}
	description := (*captured)[0].message.Embeds[0].Description
	if description != "No open positions reported." {
		t.Errorf("unexpected empty-holdings description %q", description)
	}
}

func TestSendPayloadSurfacesAPIErrors(t *testing.T) {
	server, _ := newWebhookServer(t, http.StatusBadRequest)
	client := NewClient(server.URL)

	if err := client.SendMessage("hello"); err == nil {
		t.Fatal("expected a 400 from the webhook to surface as an error")
	}
}
