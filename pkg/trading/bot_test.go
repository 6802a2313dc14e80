// File: pkg/trading/bot_test.go
package trading

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/braydio/RSAssistant-sub000/pkg/executor"
	"github.com/braydio/RSAssistant-sub000/utilities"
)

type execCall struct {
	method     string
	symbol     string
	amount     interface{}
	usePercent bool
	broker     string
	takeProfit float64
	stopLoss   float64
}

type fakeExecutor struct {
	mu    sync.Mutex
	calls []execCall
	fail  map[string]bool
}

func (f *fakeExecutor) record(call execCall) executor.ExecResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.fail[call.method] {
		return executor.ExecResult{Success: false, StatusCode: 500, Error: "forced failure"}
	}
	return executor.ExecResult{Success: true}
}

func (f *fakeExecutor) Buy(_ context.Context, symbol string, amount float64, usePercent bool) executor.ExecResult {
	return f.record(execCall{method: "buy", symbol: symbol, amount: amount, usePercent: usePercent})
}

func (f *fakeExecutor) Sell(_ context.Context, symbol string, amount interface{}, broker string) executor.ExecResult {
	return f.record(execCall{method: "sell", symbol: symbol, amount: amount, broker: broker})
}

func (f *fakeExecutor) SetBracket(_ context.Context, symbol string, takeProfit, stopLoss float64) executor.ExecResult {
	return f.record(execCall{method: "bracket", symbol: symbol, takeProfit: takeProfit, stopLoss: stopLoss})
}

func (f *fakeExecutor) CancelAll(_ context.Context, symbol string) executor.ExecResult {
	return f.record(execCall{method: "cancel", symbol: symbol})
}

func (f *fakeExecutor) GetPositions(_ context.Context) executor.ExecResult {
	return f.record(execCall{method: "positions"})
}

func (f *fakeExecutor) byMethod(method string) []execCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []execCall
	for _, call := range f.calls {
		if call.method == method {
			matched = append(matched, call)
		}
	}
	return matched
}

type fakeProvider struct {
	mu          sync.Mutex
	bars        []utilities.OHLCVBar
	barsErr     error
	prices      map[string]float64
	priceErr    error
	candleCalls int
	priceCalls  int
}

func (f *fakeProvider) GetCandles(_ context.Context, _, _, _ string) ([]utilities.OHLCVBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candleCalls++
	if f.barsErr != nil {
		return nil, f.barsErr
	}
	return append([]utilities.OHLCVBar(nil), f.bars...), nil
}

func (f *fakeProvider) GetLastPrice(_ context.Context, symbol string) (float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceCalls++
	if f.priceErr != nil {
		return 0, false, f.priceErr
	}
	price, ok := f.prices[symbol]
	return price, ok, nil
}

func (f *fakeProvider) setPrice(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = price
}

func (f *fakeProvider) setBars(bars []utilities.OHLCVBar) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bars = bars
}

func (f *fakeProvider) candleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.candleCalls
}

type notifierEvent struct {
	kind   string
	symbol string
	reason string
	exit   float64
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notifierEvent
}

func (f *fakeNotifier) TradeOpened(position *TradePosition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, notifierEvent{kind: "opened", symbol: position.Symbol})
}

func (f *fakeNotifier) TradeClosed(trade ClosedTrade, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, notifierEvent{kind: "closed", symbol: trade.Symbol, reason: reason, exit: trade.ExitPrice})
}

func (f *fakeNotifier) byKind(kind string) []notifierEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []notifierEvent
	for _, event := range f.events {
		if event.kind == kind {
			matched = append(matched, event)
		}
	}
	return matched
}

type errorSink struct {
	mu   sync.Mutex
	msgs []string
}

func (e *errorSink) add(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
}

func (e *errorSink) all() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.msgs...)
}

func flatBars(n int, close float64) []utilities.OHLCVBar {
	bars := make([]utilities.OHLCVBar, n)
	for i := range bars {
		bars[i] = utilities.OHLCVBar{Timestamp: int64(i) * 14400, Close: close}
	}
	return bars
}

func newBotHarness(t *testing.T, mutate func(*utilities.AppConfig)) (*UltMaBot, *fakeExecutor, *fakeProvider, *StateStore, *errorSink) {
	t.Helper()
	cfg := &utilities.AppConfig{
		Trading: utilities.TradingConfig{
			CandleInterval:        "4h",
			CandleRange:           "1mo",
			PriceCheckIntervalSec: 300,
			TrendSafeguardEnabled: true,
			LoggingEnabled:        true,
			TrailingBuffer:        0.03,
		},
	}
	if mutate != nil {
		mutate(cfg)
	}

	store := newTestStore(t)
	exec := &fakeExecutor{fail: map[string]bool{}}
	provider := &fakeProvider{prices: map[string]float64{}}
	sink := &errorSink{}
	bot, err := NewUltMaBot(cfg, exec, store, provider, utilities.NewLogger(utilities.Error), sink.add)
	if err != nil {
		t.Fatalf("NewUltMaBot failed: %v", err)
	}
	return bot, exec, provider, store, sink
}

func TestFirstColorInitialisesWithoutTrade(t *testing.T) {
	bot, exec, _, store, _ := newBotHarness(t, nil)
	ctx := context.Background()
	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	if err := bot.evaluateColor(ctx, "green", 100, base, false); err != nil {
		t.Fatalf("evaluateColor failed: %v", err)
	}

	if len(exec.byMethod("buy")) != 0 || len(exec.byMethod("sell")) != 0 {
		t.Fatalf("initialisation must not trade: %+v", exec.calls)
	}
	state, err := store.LoadState()
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if state.LastColor != "green" || state.PreviousColor != "green" {
		t.Fatalf("unexpected state after init: %+v", state)
	}
	position, err := store.LoadActivePosition()
	if err != nil {
		t.Fatalf("LoadActivePosition failed: %v", err)
	}
	if position != nil {
		t.Fatalf("expected no position, got %+v", position)
	}
}

func TestColorFlipConfirmsAfterOneCandle(t *testing.T) {
	bot, exec, _, store, _ := newBotHarness(t, nil)
	ctx := context.Background()
	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	if err := bot.evaluateColor(ctx, "green", 100, base, false); err != nil {
		t.Fatalf("init evaluate failed: %v", err)
	}

	if err := bot.evaluateColor(ctx, "red", 20, base.Add(4*time.Hour), false); err != nil {
		t.Fatalf("arming evaluate failed: %v", err)
	}
	state, _ := store.LoadState()
	if state.PendingColor != "red" || state.PendingSince == nil {
		t.Fatalf("expected armed safeguard, got %+v", state)
	}
	if state.LastColor != "green" {
		t.Fatalf("flip must not happen before confirmation, got %+v", state)
	}
	if len(exec.byMethod("buy")) != 0 {
		t.Fatalf("no orders expected while pending: %+v", exec.calls)
	}

	confirmAt := base.Add(8 * time.Hour)
	if err := bot.evaluateColor(ctx, "red", 21, confirmAt, false); err != nil {
		t.Fatalf("confirming evaluate failed: %v", err)
	}

	state, _ = store.LoadState()
	if state.LastColor != "red" || state.PreviousColor != "green" || state.LastTradeDirection != "short" {
		t.Fatalf("unexpected state after flip: %+v", state)
	}
	if state.PendingColor != "" || state.PendingSince != nil {
		t.Fatalf("pending fields must clear on confirmation: %+v", state)
	}

	buys := exec.byMethod("buy")
	if len(buys) != 1 || buys[0].symbol != "SQQQ" || buys[0].amount != 1.0 || !buys[0].usePercent {
		t.Fatalf("unexpected buy calls: %+v", buys)
	}
	sells := exec.byMethod("sell")
	if len(sells) != 1 || sells[0].symbol != "TQQQ" || sells[0].amount != "all" || sells[0].broker != "" {
		t.Fatalf("unexpected sell calls: %+v", sells)
	}
	cancels := exec.byMethod("cancel")
	if len(cancels) != 2 {
		t.Fatalf("expected cancels on both symbols, got %+v", cancels)
	}
	brackets := exec.byMethod("bracket")
	if len(brackets) != 1 || math.Abs(brackets[0].takeProfit-23.1) > 1e-9 || math.Abs(brackets[0].stopLoss-19.95) > 1e-9 {
		t.Fatalf("unexpected bracket call: %+v", brackets)
	}

	position, err := store.LoadActivePosition()
	if err != nil {
		t.Fatalf("LoadActivePosition failed: %v", err)
	}
	if position == nil {
		t.Fatal("expected an open position")
	}
	if position.Symbol != "SQQQ" || position.Direction != "short" || position.EntryPrice != 21 || position.Quantity != 1.0 {
		t.Fatalf("unexpected position: %+v", position)
	}
	if !position.OpenedAt.Equal(confirmAt) {
		t.Fatalf("opened_at should be the evaluation timestamp, got %v", position.OpenedAt)
	}
}

func TestSameColorClearsPending(t *testing.T) {
	bot, exec, _, store, _ := newBotHarness(t, nil)
	ctx := context.Background()
	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	bot.evaluateColor(ctx, "green", 100, base, false)
	bot.evaluateColor(ctx, "red", 20, base.Add(4*time.Hour), false)
	bot.evaluateColor(ctx, "green", 101, base.Add(8*time.Hour), false)

	state, err := store.LoadState()
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if state.PendingColor != "" || state.PendingSince != nil {
		t.Fatalf("expected pending cleared, got %+v", state)
	}
	if state.LastColor != "green" {
		t.Fatalf("expected colour to stay green, got %+v", state)
	}
	if len(exec.calls) != 0 {
		t.Fatalf("no orders expected, got %+v", exec.calls)
	}
}

func TestSafeguardDisabledFlipsImmediately(t *testing.T) {
	bot, exec, _, store, _ := newBotHarness(t, func(cfg *utilities.AppConfig) {
		cfg.Trading.TrendSafeguardEnabled = false
	})
	ctx := context.Background()
	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	bot.evaluateColor(ctx, "green", 100, base, false)
	if err := bot.evaluateColor(ctx, "red", 20, base.Add(4*time.Hour), false); err != nil {
		t.Fatalf("evaluateColor failed: %v", err)
	}

	state, _ := store.LoadState()
	if state.LastColor != "red" {
		t.Fatalf("expected immediate flip, got %+v", state)
	}
	if len(exec.byMethod("buy")) != 1 {
		t.Fatalf("expected a buy, got %+v", exec.calls)
	}
}

func TestForceEntryBypassesSafeguard(t *testing.T) {
	bot, exec, provider, store, _ := newBotHarness(t, nil)
	ctx := context.Background()
	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	bot.evaluateColor(ctx, "green", 100, base, false)
	provider.setPrice("SQQQ", 20)

	if err := bot.ForceEntry(ctx, "short"); err != nil {
		t.Fatalf("ForceEntry failed: %v", err)
	}

	position, err := store.LoadActivePosition()
	if err != nil {
		t.Fatalf("LoadActivePosition failed: %v", err)
	}
	if position == nil || position.Symbol != "SQQQ" || position.EntryPrice != 20 {
		t.Fatalf("unexpected position: %+v", position)
	}
	if len(exec.byMethod("buy")) != 1 {
		t.Fatalf("expected a single buy, got %+v", exec.calls)
	}

	if err := bot.ForceEntry(ctx, "sideways"); err == nil {
		t.Fatal("expected error for invalid direction")
	}
}

func TestDuplicateEntrySkipped(t *testing.T) {
	bot, exec, _, store, _ := newBotHarness(t, nil)
	ctx := context.Background()
	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	// The trend still reads green but the book already holds the short,
	// so a confirmed red flip must not double-enter.
	store.SaveState(TrendState{LastColor: "green", PreviousColor: "green"})
	store.SaveActivePosition(&TradePosition{
		Symbol: "SQQQ", Direction: "short", EntryPrice: 22, Quantity: 1.0,
		TakeProfit: 24.2, StopLoss: 20.9, OpenedAt: base,
	})

	if err := bot.evaluateColor(ctx, "red", 23, base.Add(4*time.Hour), true); err != nil {
		t.Fatalf("evaluateColor failed: %v", err)
	}

	if got := len(exec.byMethod("buy")); got != 0 {
		t.Fatalf("expected no buy, got %d", got)
	}
	position, _ := store.LoadActivePosition()
	if position == nil || position.EntryPrice != 22 {
		t.Fatalf("original position must be untouched: %+v", position)
	}
	state, _ := store.LoadState()
	if state.LastColor != "red" {
		t.Fatalf("trend state should still flip, got %+v", state)
	}
}

func TestFlipClosesOppositePosition(t *testing.T) {
	bot, exec, provider, store, _ := newBotHarness(t, nil)
	ctx := context.Background()
	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	bot.evaluateColor(ctx, "green", 100, base, false)
	provider.setPrice("SQQQ", 20)
	if err := bot.ForceEntry(ctx, "short"); err != nil {
		t.Fatalf("ForceEntry failed: %v", err)
	}

	provider.setPrice("TQQQ", 100)
	if err := bot.ForceEntry(ctx, "long"); err != nil {
		t.Fatalf("flip ForceEntry failed: %v", err)
	}

	position, err := store.LoadActivePosition()
	if err != nil {
		t.Fatalf("LoadActivePosition failed: %v", err)
	}
	if position == nil || position.Symbol != "TQQQ" || position.Direction != "long" {
		t.Fatalf("expected rotated position, got %+v", position)
	}

	trades, err := store.ClosedPositions(0)
	if err != nil {
		t.Fatalf("ClosedPositions failed: %v", err)
	}
	if len(trades) != 1 || trades[0].Symbol != "SQQQ" {
		t.Fatalf("expected the short to be closed, got %+v", trades)
	}
	// The observed price at evaluation is used as the exit.
	if trades[0].ExitPrice != 100 || trades[0].PnL != 80 {
		t.Fatalf("unexpected exit/PnL: %+v", trades[0])
	}

	sells := exec.byMethod("sell")
	sawShortLiquidation := false
	for _, sell := range sells {
		if sell.symbol == "SQQQ" && sell.amount == "all" {
			sawShortLiquidation = true
		}
	}
	if !sawShortLiquidation {
		t.Fatalf("expected SQQQ liquidation, got %+v", sells)
	}
}

func TestSellFansOutAcrossBrokers(t *testing.T) {
	bot, exec, provider, _, _ := newBotHarness(t, func(cfg *utilities.AppConfig) {
		cfg.Trading.Brokers = []string{"fidelity", "schwab"}
	})
	ctx := context.Background()
	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	bot.evaluateColor(ctx, "green", 100, base, false)
	provider.setPrice("SQQQ", 20)
	if err := bot.ForceEntry(ctx, "short"); err != nil {
		t.Fatalf("ForceEntry failed: %v", err)
	}

	sells := exec.byMethod("sell")
	if len(sells) != 2 {
		t.Fatalf("expected one sell per broker, got %+v", sells)
	}
	brokers := map[string]bool{}
	for _, sell := range sells {
		if sell.symbol != "TQQQ" || sell.amount != "all" {
			t.Fatalf("unexpected sell call: %+v", sell)
		}
		brokers[sell.broker] = true
	}
	if !brokers["fidelity"] || !brokers["schwab"] {
		t.Fatalf("expected both brokers, got %v", brokers)
	}
}

func TestTakeProfitClosesPosition(t *testing.T) {
	bot, exec, provider, store, _ := newBotHarness(t, nil)
	ctx := context.Background()
	openedAt := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	if err := store.SaveActivePosition(&TradePosition{
		Symbol: "TQQQ", Direction: "long", EntryPrice: 100, Quantity: 1.0,
		TakeProfit: 110, StopLoss: 95, OpenedAt: openedAt,
	}); err != nil {
		t.Fatalf("SaveActivePosition failed: %v", err)
	}
	provider.setPrice("TQQQ", 112)

	if err := bot.checkPosition(ctx); err != nil {
		t.Fatalf("checkPosition failed: %v", err)
	}

	position, _ := store.LoadActivePosition()
	if position != nil {
		t.Fatalf("expected position closed, got %+v", position)
	}
	trades, _ := store.ClosedPositions(0)
	if len(trades) != 1 || trades[0].ExitPrice != 112 || trades[0].PnL != 12 {
		t.Fatalf("unexpected history: %+v", trades)
	}
	if len(exec.byMethod("sell")) != 1 || len(exec.byMethod("cancel")) != 1 {
		t.Fatalf("expected liquidation and cancel, got %+v", exec.calls)
	}
}

func TestStopLossClosesPosition(t *testing.T) {
	bot, _, provider, store, _ := newBotHarness(t, nil)
	ctx := context.Background()
	openedAt := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	store.SaveActivePosition(&TradePosition{
		Symbol: "TQQQ", Direction: "long", EntryPrice: 100, Quantity: 1.0,
		TakeProfit: 110, StopLoss: 95, OpenedAt: openedAt,
	})
	provider.setPrice("TQQQ", 94)

	if err := bot.checkPosition(ctx); err != nil {
		t.Fatalf("checkPosition failed: %v", err)
	}

	trades, _ := store.ClosedPositions(0)
	if len(trades) != 1 || trades[0].ExitPrice != 94 || trades[0].PnL != -6 {
		t.Fatalf("unexpected history: %+v", trades)
	}
}

func TestExtendedTrendTrailingLifecycle(t *testing.T) {
	bot, _, provider, store, _ := newBotHarness(t, nil)
	notifier := &fakeNotifier{}
	bot.SetNotifier(notifier)
	ctx := context.Background()
	openedAt := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	if _, err := bot.ToggleExtendedTrend(); err != nil {
		t.Fatalf("ToggleExtendedTrend failed: %v", err)
	}
	settings, _ := store.LoadSettings()
	if !settings.AllowExtendedTrend {
		t.Fatalf("extended trend should be on: %+v", settings)
	}

	store.SaveActivePosition(&TradePosition{
		Symbol: "TQQQ", Direction: "long", EntryPrice: 100, Quantity: 1.0,
		TakeProfit: 110, StopLoss: 95, OpenedAt: openedAt,
	})

	// Above take-profit: the stop ratchets instead of closing.
	provider.setPrice("TQQQ", 112)
	if err := bot.checkPosition(ctx); err != nil {
		t.Fatalf("checkPosition failed: %v", err)
	}
	position, _ := store.LoadActivePosition()
	if position == nil || position.TrailingStop == nil {
		t.Fatalf("expected trailing stop set, got %+v", position)
	}
	if math.Abs(*position.TrailingStop-108.64) > 1e-9 {
		t.Fatalf("expected trailing stop 108.64, got %v", *position.TrailingStop)
	}

	// Higher price ratchets the stop up.
	provider.setPrice("TQQQ", 115)
	bot.checkPosition(ctx)
	position, _ = store.LoadActivePosition()
	if position == nil || math.Abs(*position.TrailingStop-111.55) > 1e-9 {
		t.Fatalf("expected trailing stop 111.55, got %+v", position)
	}

	// Pullback below the stop closes the trade.
	provider.setPrice("TQQQ", 110.5)
	if err := bot.checkPosition(ctx); err != nil {
		t.Fatalf("checkPosition failed: %v", err)
	}
	position, _ = store.LoadActivePosition()
	if position != nil {
		t.Fatalf("expected position closed, got %+v", position)
	}
	trades, _ := store.ClosedPositions(0)
	if len(trades) != 1 || trades[0].ExitPrice != 110.5 || trades[0].PnL != 10.5 {
		t.Fatalf("unexpected history: %+v", trades)
	}

	closed := notifier.byKind("closed")
	if len(closed) != 1 || closed[0].reason != "trailing stop" || closed[0].exit != 110.5 {
		t.Fatalf("unexpected close notification: %+v", closed)
	}
}

func TestWebhookColorPreferredWhileFresh(t *testing.T) {
	bot, _, provider, store, _ := newBotHarness(t, nil)
	ctx := context.Background()

	provider.setPrice("TQQQ", 50)
	bot.UpdateColorFromWebhook("GREEN", time.Now().UTC())

	if err := bot.refreshColor(ctx); err != nil {
		t.Fatalf("refreshColor failed: %v", err)
	}
	if provider.candleCount() != 0 {
		t.Fatalf("webhook colour should skip the candle fetch, got %d fetches", provider.candleCount())
	}
	state, _ := store.LoadState()
	if state.LastColor != "green" {
		t.Fatalf("expected webhook colour applied, got %+v", state)
	}

	// A stale webhook falls back to the indicator fetch.
	bot.UpdateColorFromWebhook("green", time.Now().UTC().Add(-9*time.Hour))
	provider.setBars(flatBars(12, 100))
	if err := bot.refreshColor(ctx); err != nil {
		t.Fatalf("refreshColor failed: %v", err)
	}
	if provider.candleCount() != 1 {
		t.Fatalf("expected one candle fetch after staleness, got %d", provider.candleCount())
	}

	// Unknown colours are ignored entirely.
	bot.UpdateColorFromWebhook("blue", time.Now().UTC())
	if color, _, ok := bot.webhookSignal(); !ok || color != "green" {
		t.Fatalf("invalid colour should not overwrite signal, got %q", color)
	}
}

func TestRefreshColorSkipsThinHistory(t *testing.T) {
	bot, exec, provider, store, _ := newBotHarness(t, nil)
	ctx := context.Background()

	provider.setBars(flatBars(9, 100))
	if err := bot.refreshColor(ctx); err != nil {
		t.Fatalf("refreshColor failed: %v", err)
	}
	state, _ := store.LoadState()
	if state.LastColor != "" {
		t.Fatalf("thin history must not initialise state: %+v", state)
	}
	if len(exec.calls) != 0 {
		t.Fatalf("no orders expected, got %+v", exec.calls)
	}
}

func TestExecutorFailureStillPersistsPosition(t *testing.T) {
	bot, exec, provider, store, sink := newBotHarness(t, nil)
	ctx := context.Background()
	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	exec.fail["buy"] = true
	bot.evaluateColor(ctx, "red", 20, base, false)
	provider.setPrice("TQQQ", 100)
	if err := bot.ForceEntry(ctx, "long"); err != nil {
		t.Fatalf("ForceEntry failed: %v", err)
	}

	position, _ := store.LoadActivePosition()
	if position == nil || position.Symbol != "TQQQ" {
		t.Fatalf("position must persist despite executor failure: %+v", position)
	}

	sawBuyFailure := false
	for _, msg := range sink.all() {
		if strings.Contains(msg, "buy TQQQ") {
			sawBuyFailure = true
		}
	}
	if !sawBuyFailure {
		t.Fatalf("expected buy failure reported, got %v", sink.all())
	}
}

func TestNotifierGatedByLoggingToggle(t *testing.T) {
	bot, _, provider, store, _ := newBotHarness(t, nil)
	notifier := &fakeNotifier{}
	bot.SetNotifier(notifier)
	ctx := context.Background()
	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	bot.evaluateColor(ctx, "red", 20, base, false)
	provider.setPrice("TQQQ", 100)
	if err := bot.ForceEntry(ctx, "long"); err != nil {
		t.Fatalf("ForceEntry failed: %v", err)
	}
	if len(notifier.byKind("opened")) != 1 {
		t.Fatalf("expected open notification, got %+v", notifier.events)
	}

	if _, err := bot.ToggleLogging(); err != nil {
		t.Fatalf("ToggleLogging failed: %v", err)
	}
	settings, _ := store.LoadSettings()
	if settings.LoggingEnabled {
		t.Fatalf("logging should be off: %+v", settings)
	}

	provider.setPrice("TQQQ", 111)
	if err := bot.checkPosition(ctx); err != nil {
		t.Fatalf("checkPosition failed: %v", err)
	}
	if len(notifier.byKind("closed")) != 0 {
		t.Fatalf("close notification should be suppressed, got %+v", notifier.events)
	}
	trades, _ := store.ClosedPositions(0)
	if len(trades) != 1 {
		t.Fatalf("trade should still close, got %+v", trades)
	}
}

func TestPauseSkipsEvaluation(t *testing.T) {
	bot, _, provider, store, _ := newBotHarness(t, func(cfg *utilities.AppConfig) {
		cfg.Trading.CandleInterval = "30m"
	})
	provider.setBars(flatBars(12, 100))

	bot.Pause()
	if !bot.Paused() {
		t.Fatal("expected paused")
	}

	ctx, cancel := context.WithCancel(context.Background())
	bot.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	bot.Stop()
	cancel()

	if provider.candleCount() != 0 {
		t.Fatalf("paused bot must not fetch candles, got %d", provider.candleCount())
	}
	state, _ := store.LoadState()
	if state.LastColor != "" {
		t.Fatalf("paused bot must not touch state: %+v", state)
	}

	bot.Resume()
	if bot.Paused() {
		t.Fatal("expected resumed")
	}
}

func TestStartRunsImmediatelyAndStopIsIdempotent(t *testing.T) {
	bot, _, provider, store, _ := newBotHarness(t, nil)
	provider.setBars(flatBars(12, 100))

	ctx := context.Background()
	bot.Start(ctx)
	bot.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for provider.candleCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if provider.candleCount() == 0 {
		t.Fatal("monitor loop never ran")
	}

	bot.Stop()
	bot.Stop()

	state, err := store.LoadState()
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if state.LastColor != "green" {
		t.Fatalf("expected initialised state after first iteration, got %+v", state)
	}
}

func TestMetricsSnapshot(t *testing.T) {
	bot, _, provider, _, _ := newBotHarness(t, nil)
	ctx := context.Background()

	provider.setBars(flatBars(12, 100))
	if err := bot.refreshColor(ctx); err != nil {
		t.Fatalf("refreshColor failed: %v", err)
	}
	bot.Pause()

	metrics, err := bot.Metrics()
	if err != nil {
		t.Fatalf("Metrics failed: %v", err)
	}
	if metrics.LastColor != "green" {
		t.Fatalf("expected green, got %+v", metrics)
	}
	if !metrics.Paused {
		t.Fatal("expected paused metric")
	}
	if metrics.NextCheckAt == nil {
		t.Fatal("expected next check time after an indicator fetch")
	}
	if metrics.Settings.TrailingBuffer != 0.03 {
		t.Fatalf("unexpected settings: %+v", metrics.Settings)
	}
	if metrics.LastCheckAt == nil {
		t.Fatal("expected last check time")
	}
}

func TestRestartKeepsTogglesButResetsBuffer(t *testing.T) {
	logger := utilities.NewLogger(utilities.Error)
	store := newTestStore(t)
	cfg := &utilities.AppConfig{
		Trading: utilities.TradingConfig{
			CandleInterval:        "4h",
			TrendSafeguardEnabled: true,
			LoggingEnabled:        true,
			TrailingBuffer:        0.03,
		},
	}

	bot, err := NewUltMaBot(cfg, &fakeExecutor{}, store, &fakeProvider{prices: map[string]float64{}}, logger, nil)
	if err != nil {
		t.Fatalf("NewUltMaBot failed: %v", err)
	}
	if _, err := bot.ToggleTrendSafeguard(); err != nil {
		t.Fatalf("ToggleTrendSafeguard failed: %v", err)
	}

	cfg.Trading.TrailingBuffer = 0.05
	if _, err := NewUltMaBot(cfg, &fakeExecutor{}, store, &fakeProvider{prices: map[string]float64{}}, logger, nil); err != nil {
		t.Fatalf("restart NewUltMaBot failed: %v", err)
	}

	settings, err := store.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if settings.TrendSafeguardEnabled {
		t.Fatalf("runtime toggle must survive restart: %+v", settings)
	}
	if settings.TrailingBuffer != 0.05 {
		t.Fatalf("configured buffer must win at startup: %+v", settings)
	}
}

func TestParseCandleInterval(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"4h", 4 * time.Hour},
		{"30m", 30 * time.Minute},
		{"1d", 24 * time.Hour},
		{"5d", 120 * time.Hour},
	}
	for _, tc := range cases {
		got, err := parseCandleInterval(tc.raw)
		if err != nil {
			t.Fatalf("parseCandleInterval(%q) failed: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("parseCandleInterval(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
	if _, err := parseCandleInterval("fortnight"); err == nil {
		t.Fatal("expected error for junk interval")
	}
}
