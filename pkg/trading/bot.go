// File: pkg/trading/bot.go
package trading

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/braydio/RSAssistant-sub000/dataprovider"
	"github.com/braydio/RSAssistant-sub000/pkg/executor"
	"github.com/braydio/RSAssistant-sub000/strategy"
	"github.com/braydio/RSAssistant-sub000/utilities"
)

// TradeNotifier receives trade lifecycle events for operator channels.
// Notifications are suppressed while the logging toggle is off.
type TradeNotifier interface {
	TradeOpened(position *TradePosition)
	TradeClosed(trade ClosedTrade, reason string)
}

// UltMaBot runs the ULT-MA colour strategy: a monitor loop that classifies
// the trend every candle interval and a faster loop that polices the open
// position's exits. All trading state lives in the StateStore, so a restart
// resumes mid-trade.
type UltMaBot struct {
	exec     executor.TradeExecutor
	store    *StateStore
	data     dataprovider.DataProvider
	logger   *utilities.Logger
	notifier TradeNotifier
	onError  func(string)

	longSymbol        string
	shortSymbol       string
	brokers           []string
	candleIntervalRaw string
	candleInterval    time.Duration
	priceCheckEvery   time.Duration
	candleRange       string

	// tradeMu serialises colour evaluation and position checks so the two
	// loops, webhooks and forced entries never interleave state writes.
	tradeMu sync.Mutex

	mu                sync.RWMutex
	paused            bool
	nextCheckAt       *time.Time
	webhookColor      string
	webhookReceivedAt *time.Time

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewUltMaBot wires the colour-flip controller against its collaborators.
// Configured toggles seed the persisted settings on first run; the
// configured trailing buffer always wins over the stored one at startup.
func NewUltMaBot(cfg *utilities.AppConfig, exec executor.TradeExecutor, store *StateStore, data dataprovider.DataProvider, logger *utilities.Logger, onError func(string)) (*UltMaBot, error) {
	if cfg == nil {
		return nil, errors.New("ultma: config cannot be nil")
	}
	if exec == nil || store == nil || data == nil {
		return nil, errors.New("ultma: executor, store and data provider are required")
	}
	if logger == nil {
		logger = utilities.NewLogger(utilities.Info)
	}

	tCfg := cfg.Trading

	intervalRaw := tCfg.CandleInterval
	if intervalRaw == "" {
		intervalRaw = "4h"
	}
	candleInterval, err := parseCandleInterval(intervalRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid candle interval %q: %w", intervalRaw, err)
	}

	priceCheckEvery := time.Duration(tCfg.PriceCheckIntervalSec) * time.Second
	if priceCheckEvery <= 0 {
		priceCheckEvery = 5 * time.Minute
	}

	longSymbol := tCfg.LongSymbol
	if longSymbol == "" {
		longSymbol = "TQQQ"
	}
	shortSymbol := tCfg.ShortSymbol
	if shortSymbol == "" {
		shortSymbol = "SQQQ"
	}
	candleRange := tCfg.CandleRange
	if candleRange == "" {
		candleRange = "1mo"
	}

	trailingBuffer := tCfg.TrailingBuffer
	if trailingBuffer <= 0 || trailingBuffer >= 1 {
		if trailingBuffer != 0 {
			logger.LogWarn("Trailing buffer %.4f out of range; using default", trailingBuffer)
		}
		trailingBuffer = DefaultSettings().TrailingBuffer
	}

	bot := &UltMaBot{
		exec:              exec,
		store:             store,
		data:              data,
		logger:            logger,
		onError:           onError,
		longSymbol:        longSymbol,
		shortSymbol:       shortSymbol,
		brokers:           append([]string(nil), tCfg.Brokers...),
		candleIntervalRaw: intervalRaw,
		candleInterval:    candleInterval,
		priceCheckEvery:   priceCheckEvery,
		candleRange:       candleRange,
	}

	if err := store.SeedSettings(TradingSettings{
		AllowExtendedTrend:    tCfg.AllowExtendedTrend,
		TrendSafeguardEnabled: tCfg.TrendSafeguardEnabled,
		LoggingEnabled:        tCfg.LoggingEnabled,
		TrailingBuffer:        trailingBuffer,
	}); err != nil {
		return nil, err
	}
	settings, err := store.LoadSettings()
	if err != nil {
		return nil, err
	}
	settings.TrailingBuffer = trailingBuffer
	if err := store.SaveSettings(settings); err != nil {
		return nil, err
	}

	logger.LogInfo("ULT-MA bot initialised for %s/%s: candle interval %s, price checks every %s",
		longSymbol, shortSymbol, candleInterval, priceCheckEvery)
	return bot, nil
}

// SetNotifier attaches a trade event sink. Pass nil to detach.
func (b *UltMaBot) SetNotifier(notifier TradeNotifier) {
	b.notifier = notifier
}

// Start launches the monitor and position loops. Calling Start on a running
// bot is a no-op.
func (b *UltMaBot) Start(ctx context.Context) {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.wg.Add(2)
	go b.monitorLoop(runCtx)
	go b.positionLoop(runCtx)
	b.logger.LogInfo("ULT-MA bot loops started.")
}

// Stop cancels the loops and waits for them to drain.
func (b *UltMaBot) Stop() {
	b.runMu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	b.wg.Wait()
	b.logger.LogInfo("ULT-MA bot loops stopped.")
}

// Pause suspends trading evaluation without stopping the loops.
func (b *UltMaBot) Pause() {
	b.mu.Lock()
	b.paused = true
	b.mu.Unlock()
	b.logger.LogInfo("ULT-MA bot paused.")
}

// Resume re-enables trading evaluation.
func (b *UltMaBot) Resume() {
	b.mu.Lock()
	b.paused = false
	b.mu.Unlock()
	b.logger.LogInfo("ULT-MA bot resumed.")
}

// Paused reports whether trading evaluation is suspended.
func (b *UltMaBot) Paused() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.paused
}

// UpdateColorFromWebhook records an externally supplied trend colour. The
// monitor loop prefers it over an indicator fetch while it stays fresher
// than two candle intervals.
func (b *UltMaBot) UpdateColorFromWebhook(color string, timestamp time.Time) {
	normalized := strings.ToLower(strings.TrimSpace(color))
	if normalized != strategy.TrendGreen && normalized != strategy.TrendRed {
		b.logger.LogWarn("Ignoring webhook colour %q", color)
		return
	}
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	receivedAt := timestamp.UTC()

	b.mu.Lock()
	b.webhookColor = normalized
	b.webhookReceivedAt = &receivedAt
	b.mu.Unlock()
	b.logger.LogInfo("Webhook colour update: %s at %s", normalized, utilities.FormatTimestamp(receivedAt))
}

// ForceEntry bypasses the trend safeguard and evaluates the colour matching
// the requested direction at the current market price.
func (b *UltMaBot) ForceEntry(ctx context.Context, direction string) error {
	direction = strings.ToLower(strings.TrimSpace(direction))
	if direction != strategy.DirectionLong && direction != strategy.DirectionShort {
		return fmt.Errorf("direction must be %q or %q", strategy.DirectionLong, strategy.DirectionShort)
	}

	symbol := b.longSymbol
	color := strategy.TrendGreen
	if direction == strategy.DirectionShort {
		symbol = b.shortSymbol
		color = strategy.TrendRed
	}

	price, ok, err := b.data.GetLastPrice(ctx, symbol)
	if err != nil {
		return fmt.Errorf("failed to fetch price for %s: %w", symbol, err)
	}
	if !ok {
		return fmt.Errorf("no price available for %s", symbol)
	}

	b.logger.LogInfo("Forcing %s entry at %.2f", direction, price)
	return b.evaluateColor(ctx, color, price, time.Now().UTC(), true)
}

// ToggleTrendSafeguard flips the confirmation-candle requirement and returns
// the updated settings.
func (b *UltMaBot) ToggleTrendSafeguard() (TradingSettings, error) {
	settings, err := b.toggleSetting(func(s *TradingSettings) { s.TrendSafeguardEnabled = !s.TrendSafeguardEnabled })
	if err == nil {
		b.logger.LogInfo("Trend safeguard enabled: %t", settings.TrendSafeguardEnabled)
	}
	return settings, err
}

// ToggleExtendedTrend flips the trailing-exit mode and returns the updated
// settings.
func (b *UltMaBot) ToggleExtendedTrend() (TradingSettings, error) {
	settings, err := b.toggleSetting(func(s *TradingSettings) { s.AllowExtendedTrend = !s.AllowExtendedTrend })
	if err == nil {
		b.logger.LogInfo("Extended trend enabled: %t", settings.AllowExtendedTrend)
	}
	return settings, err
}

// ToggleLogging flips trade notifications and returns the updated settings.
func (b *UltMaBot) ToggleLogging() (TradingSettings, error) {
	settings, err := b.toggleSetting(func(s *TradingSettings) { s.LoggingEnabled = !s.LoggingEnabled })
	if err == nil {
		b.logger.LogInfo("Trade notifications enabled: %t", settings.LoggingEnabled)
	}
	return settings, err
}

func (b *UltMaBot) toggleSetting(mutate func(*TradingSettings)) (TradingSettings, error) {
	settings, err := b.store.LoadSettings()
	if err != nil {
		return TradingSettings{}, err
	}
	mutate(&settings)
	if err := b.store.SaveSettings(settings); err != nil {
		return TradingSettings{}, err
	}
	return settings, nil
}

// ActivePosition returns the open position, or nil when flat.
func (b *UltMaBot) ActivePosition() (*TradePosition, error) {
	return b.store.LoadActivePosition()
}

// StrategyMetrics is the operator-facing snapshot of the controller.
type StrategyMetrics struct {
	LastColor          string          `json:"last_color,omitempty"`
	PreviousColor      string          `json:"previous_color,omitempty"`
	LastTradeDirection string          `json:"last_trade_direction,omitempty"`
	PendingColor       string          `json:"pending_color,omitempty"`
	Paused             bool            `json:"paused"`
	LastCheckAt        *time.Time      `json:"last_check_at,omitempty"`
	NextCheckAt        *time.Time      `json:"next_check_at,omitempty"`
	Settings           TradingSettings `json:"settings"`
	ActivePosition     *TradePosition  `json:"active_position,omitempty"`
}

// Metrics combines the persisted trend state, settings and position with the
// in-memory runtime flags.
func (b *UltMaBot) Metrics() (StrategyMetrics, error) {
	state, err := b.store.LoadState()
	if err != nil {
		return StrategyMetrics{}, err
	}
	settings, err := b.store.LoadSettings()
	if err != nil {
		return StrategyMetrics{}, err
	}
	position, err := b.store.LoadActivePosition()
	if err != nil {
		return StrategyMetrics{}, err
	}

	metrics := StrategyMetrics{
		LastColor:          state.LastColor,
		PreviousColor:      state.PreviousColor,
		LastTradeDirection: state.LastTradeDirection,
		PendingColor:       state.PendingColor,
		LastCheckAt:        state.LastCheckAt,
		Settings:           settings,
		ActivePosition:     position,
	}

	b.mu.RLock()
	metrics.Paused = b.paused
	if b.nextCheckAt != nil {
		next := *b.nextCheckAt
		metrics.NextCheckAt = &next
	}
	b.mu.RUnlock()

	return metrics, nil
}

func (b *UltMaBot) monitorLoop(ctx context.Context) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.candleInterval)
	defer ticker.Stop()
	for {
		if !b.Paused() {
			if err := b.refreshColor(ctx); err != nil && ctx.Err() == nil {
				b.reportError(fmt.Sprintf("Colour check failed: %v", err))
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (b *UltMaBot) positionLoop(ctx context.Context) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.priceCheckEvery)
	defer ticker.Stop()
	for {
		if !b.Paused() {
			if err := b.checkPosition(ctx); err != nil && ctx.Err() == nil {
				b.reportError(fmt.Sprintf("Position check failed: %v", err))
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// refreshColor performs one monitor iteration: derive a colour and price,
// then run them through the flip state machine.
func (b *UltMaBot) refreshColor(ctx context.Context) error {
	timestamp := time.Now().UTC()
	color, price, err := b.determineColor(ctx)
	if err != nil {
		return err
	}
	if color == "" {
		return nil
	}
	return b.evaluateColor(ctx, color, price, timestamp, false)
}

// determineColor prefers a fresh webhook colour, pricing it off the matching
// symbol; otherwise it fetches candles for the long symbol and classifies
// them. Returns an empty colour when no usable signal exists.
func (b *UltMaBot) determineColor(ctx context.Context) (string, float64, error) {
	if color, receivedAt, ok := b.webhookSignal(); ok && time.Now().UTC().Sub(receivedAt) < 2*b.candleInterval {
		symbol := b.longSymbol
		if color == strategy.TrendRed {
			symbol = b.shortSymbol
		}
		price, ok, err := b.data.GetLastPrice(ctx, symbol)
		if err != nil {
			return "", 0, fmt.Errorf("failed to fetch price for webhook colour: %w", err)
		}
		if !ok {
			return "", 0, nil
		}
		b.logger.LogInfo("Using webhook colour %s with %s price %.2f", color, symbol, price)
		return color, price, nil
	}

	bars, err := b.data.GetCandles(ctx, b.longSymbol, b.candleIntervalRaw, b.candleRange)
	if err != nil {
		return "", 0, fmt.Errorf("failed to fetch %s candles: %w", b.longSymbol, err)
	}
	closes := strategy.PositiveCloses(bars)
	if len(closes) < strategy.MinTrendCloses {
		b.logger.LogWarn("Only %d usable closes for %s; skipping colour check", len(closes), b.longSymbol)
		return "", 0, nil
	}

	color := strategy.TrendColor(closes)
	price := closes[len(closes)-1]

	next := time.Now().UTC().Add(b.candleInterval)
	b.mu.Lock()
	b.nextCheckAt = &next
	b.mu.Unlock()

	return color, price, nil
}

func (b *UltMaBot) webhookSignal() (string, time.Time, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.webhookColor == "" || b.webhookReceivedAt == nil {
		return "", time.Time{}, false
	}
	return b.webhookColor, *b.webhookReceivedAt, true
}

// evaluateColor runs one colour observation through the flip state machine.
// The first observation only initialises state. A repeat of the current
// colour clears any pending flip. A new colour either arms the safeguard or,
// once confirmed (or when forced), flips the trend and trades.
func (b *UltMaBot) evaluateColor(ctx context.Context, color string, price float64, timestamp time.Time, forced bool) error {
	b.tradeMu.Lock()
	defer b.tradeMu.Unlock()

	if color != strategy.TrendGreen && color != strategy.TrendRed {
		b.logger.LogWarn("Ignoring unknown colour %q", color)
		return nil
	}

	state, err := b.store.LoadState()
	if err != nil {
		return err
	}
	settings, err := b.store.LoadSettings()
	if err != nil {
		return err
	}

	checkedAt := timestamp
	state.LastCheckAt = &checkedAt

	if state.LastColor == "" {
		state.LastColor = color
		state.PreviousColor = color
		state.PendingColor = ""
		state.PendingSince = nil
		if err := b.store.SaveState(state); err != nil {
			return err
		}
		b.logger.LogInfo("Initialised trend state with colour %s", color)
		return nil
	}

	if state.LastColor == color {
		state.PendingColor = ""
		state.PendingSince = nil
		return b.store.SaveState(state)
	}

	if settings.TrendSafeguardEnabled && !forced {
		if state.PendingColor != color || state.PendingSince == nil {
			state.PendingColor = color
			pendingSince := timestamp
			state.PendingSince = &pendingSince
			if err := b.store.SaveState(state); err != nil {
				return err
			}
			b.logger.LogInfo("Trend safeguard armed; waiting to confirm flip to %s", color)
			return nil
		}
		if timestamp.Sub(*state.PendingSince) < b.candleInterval {
			if err := b.store.SaveState(state); err != nil {
				return err
			}
			b.logger.LogInfo("Trend safeguard holding; flip to %s not yet confirmed", color)
			return nil
		}
	}

	b.logger.LogInfo("Colour flip confirmed: %s -> %s", state.LastColor, color)
	state.PreviousColor = state.LastColor
	state.LastColor = color
	state.PendingColor = ""
	state.PendingSince = nil
	state.LastTradeDirection = strategy.DirectionLong
	if color == strategy.TrendRed {
		state.LastTradeDirection = strategy.DirectionShort
	}
	if err := b.store.SaveState(state); err != nil {
		return err
	}

	return b.executeTrade(ctx, color, price, timestamp)
}

// executeTrade rotates the book onto the symbol matching color: closes an
// opposite position, clears open orders on both symbols, liquidates the
// opposite side at every brokerage and buys the target with full equity.
func (b *UltMaBot) executeTrade(ctx context.Context, color string, price float64, timestamp time.Time) error {
	targetSymbol := b.longSymbol
	oppositeSymbol := b.shortSymbol
	direction := strategy.DirectionLong
	if color == strategy.TrendRed {
		targetSymbol, oppositeSymbol = b.shortSymbol, b.longSymbol
		direction = strategy.DirectionShort
	}

	active, err := b.store.LoadActivePosition()
	if err != nil {
		return err
	}
	if active != nil && active.Symbol == targetSymbol {
		b.logger.LogInfo("Position in %s already active; skipping duplicate entry.", targetSymbol)
		return nil
	}
	if active != nil && active.Symbol == oppositeSymbol {
		if err := b.closePosition(ctx, price, "colour flip"); err != nil {
			return err
		}
	}

	b.noteExec("cancel "+targetSymbol, b.exec.CancelAll(ctx, targetSymbol))
	b.noteExec("cancel "+oppositeSymbol, b.exec.CancelAll(ctx, oppositeSymbol))

	takeProfit := price * (1 + strategy.TakeProfitRate)
	stopLoss := price * (1 - strategy.StopLossRate)
	b.logger.LogInfo("Opening %s at %.2f with TP %.2f and SL %.2f", targetSymbol, price, takeProfit, stopLoss)

	b.sellAcrossBrokers(ctx, oppositeSymbol, "all")
	b.noteExec("buy "+targetSymbol, b.exec.Buy(ctx, targetSymbol, 1.0, true))
	b.noteExec("bracket "+targetSymbol, b.exec.SetBracket(ctx, targetSymbol, takeProfit, stopLoss))

	position := &TradePosition{
		Symbol:     targetSymbol,
		Direction:  direction,
		EntryPrice: price,
		Quantity:   1.0,
		TakeProfit: takeProfit,
		StopLoss:   stopLoss,
		OpenedAt:   timestamp,
	}
	if err := b.store.SaveActivePosition(position); err != nil {
		return err
	}
	b.logger.LogInfo("Stored active %s position in %s", direction, targetSymbol)
	b.notifyTradeOpened(position)
	return nil
}

// checkPosition runs one position-loop iteration: ratchet the trailing stop
// in extended-trend mode, then test the trailing, take-profit and stop-loss
// exits in that order.
func (b *UltMaBot) checkPosition(ctx context.Context) error {
	b.tradeMu.Lock()
	defer b.tradeMu.Unlock()

	position, err := b.store.LoadActivePosition()
	if err != nil {
		return err
	}
	if position == nil {
		return nil
	}

	price, ok, err := b.data.GetLastPrice(ctx, position.Symbol)
	if err != nil {
		return fmt.Errorf("failed to fetch price for %s: %w", position.Symbol, err)
	}
	if !ok {
		b.logger.LogDebug("No price available for %s; skipping position check", position.Symbol)
		return nil
	}

	settings, err := b.store.LoadSettings()
	if err != nil {
		return err
	}

	hitTP := price >= position.TakeProfit
	hitSL := price <= position.StopLoss

	if hitTP && settings.AllowExtendedTrend {
		newTrailing := price * (1 - settings.TrailingBuffer)
		if position.TrailingStop == nil || newTrailing > *position.TrailingStop {
			position.TrailingStop = &newTrailing
			if err := b.store.SaveActivePosition(position); err != nil {
				return err
			}
			b.logger.LogInfo("Extended trend: trailing stop for %s moved to %.2f", position.Symbol, newTrailing)
			return nil
		}
	}

	if position.TrailingStop != nil && price <= *position.TrailingStop {
		b.logger.LogInfo("Trailing stop hit for %s at %.2f (stop %.2f)", position.Symbol, price, *position.TrailingStop)
		return b.closePosition(ctx, price, "trailing stop")
	}

	if hitTP || hitSL {
		reason := "stop loss"
		if hitTP {
			reason = "take profit"
		}
		b.logger.LogInfo("%s hit for %s at %.2f", reason, position.Symbol, price)
		return b.closePosition(ctx, price, reason)
	}
	return nil
}

// closePosition liquidates the stored position at the observed price,
// records the realized trade and clears the position row. Callers hold
// tradeMu.
func (b *UltMaBot) closePosition(ctx context.Context, price float64, reason string) error {
	position, err := b.store.LoadActivePosition()
	if err != nil {
		return err
	}
	if position == nil {
		return nil
	}

	b.logger.LogInfo("Closing %s position due to %s at %.2f", position.Symbol, reason, price)
	b.sellAcrossBrokers(ctx, position.Symbol, "all")
	b.noteExec("cancel "+position.Symbol, b.exec.CancelAll(ctx, position.Symbol))

	closedAt := time.Now().UTC()
	if err := b.store.RecordClosedPosition(position.Symbol, position.Direction, position.EntryPrice, price, position.Quantity, position.OpenedAt, closedAt); err != nil {
		return err
	}
	if err := b.store.SaveActivePosition(nil); err != nil {
		return err
	}

	b.notifyTradeClosed(ClosedTrade{
		Symbol:     position.Symbol,
		Direction:  position.Direction,
		EntryPrice: position.EntryPrice,
		ExitPrice:  price,
		Quantity:   position.Quantity,
		OpenedAt:   position.OpenedAt,
		ClosedAt:   closedAt,
		PnL:        (price - position.EntryPrice) * position.Quantity,
	}, reason)
	return nil
}

// sellAcrossBrokers issues a sell per configured brokerage, or one unscoped
// sell when none are configured.
func (b *UltMaBot) sellAcrossBrokers(ctx context.Context, symbol string, amount interface{}) {
	brokers := b.brokers
	if len(brokers) == 0 {
		brokers = []string{""}
	}
	for _, broker := range brokers {
		b.noteExec("sell "+symbol, b.exec.Sell(ctx, symbol, amount, broker))
	}
}

func (b *UltMaBot) noteExec(action string, result executor.ExecResult) {
	if result.Success {
		return
	}
	b.reportError(fmt.Sprintf("Executor %s failed (status %d): %s", action, result.StatusCode, result.Error))
}

func (b *UltMaBot) reportError(message string) {
	b.logger.LogError("%s", message)
	if b.onError != nil {
		b.onError(message)
	}
}

func (b *UltMaBot) notifyTradeOpened(position *TradePosition) {
	if b.notifier == nil {
		return
	}
	settings, err := b.store.LoadSettings()
	if err != nil || !settings.LoggingEnabled {
		return
	}
	b.notifier.TradeOpened(position)
}

func (b *UltMaBot) notifyTradeClosed(trade ClosedTrade, reason string) {
	if b.notifier == nil {
		return
	}
	settings, err := b.store.LoadSettings()
	if err != nil || !settings.LoggingEnabled {
		return
	}
	b.notifier.TradeClosed(trade, reason)
}

// parseCandleInterval understands Go durations plus the day suffix Yahoo
// uses ("1d", "5d").
func parseCandleInterval(raw string) (time.Duration, error) {
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d, nil
	}
	if strings.HasSuffix(raw, "d") {
		if days, err := strconv.Atoi(strings.TrimSuffix(raw, "d")); err == nil && days > 0 {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return 0, fmt.Errorf("unsupported interval %q", raw)
}
