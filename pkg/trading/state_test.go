// File: pkg/trading/state_test.go
package trading

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/braydio/RSAssistant-sub000/utilities"
)

func newTestStore(t *testing.T) *StateStore {
	t.Helper()
	logger := utilities.NewLogger(utilities.Error)
	store, err := NewStateStore(utilities.DatabaseConfig{DBPath: filepath.Join(t.TempDir(), "trading.db")}, logger)
	if err != nil {
		t.Fatalf("NewStateStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadStateWhenEmpty(t *testing.T) {
	store := newTestStore(t)

	state, err := store.LoadState()
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if state.LastColor != "" || state.PendingSince != nil || state.LastCheckAt != nil {
		t.Fatalf("expected zero state, got %+v", state)
	}
}

func TestSaveStateRoundTrip(t *testing.T) {
	store := newTestStore(t)

	pendingSince := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	lastCheck := time.Date(2025, 6, 1, 16, 0, 0, 0, time.UTC)
	saved := TrendState{
		LastColor:          "green",
		PreviousColor:      "red",
		LastTradeDirection: "long",
		PendingColor:       "red",
		PendingSince:       &pendingSince,
		LastCheckAt:        &lastCheck,
	}
	if err := store.SaveState(saved); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	loaded, err := store.LoadState()
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if loaded.LastColor != "green" || loaded.PreviousColor != "red" || loaded.LastTradeDirection != "long" {
		t.Fatalf("unexpected colours: %+v", loaded)
	}
	if loaded.PendingColor != "red" {
		t.Fatalf("expected pending colour red, got %q", loaded.PendingColor)
	}
	if loaded.PendingSince == nil || !loaded.PendingSince.Equal(pendingSince) {
		t.Fatalf("pending_since did not round-trip: %v", loaded.PendingSince)
	}
	if loaded.LastCheckAt == nil || !loaded.LastCheckAt.Equal(lastCheck) {
		t.Fatalf("last_check_at did not round-trip: %v", loaded.LastCheckAt)
	}
}

func TestSaveStateClearsPendingFields(t *testing.T) {
	store := newTestStore(t)

	pendingSince := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := store.SaveState(TrendState{LastColor: "green", PendingColor: "red", PendingSince: &pendingSince}); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}
	if err := store.SaveState(TrendState{LastColor: "green"}); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	loaded, err := store.LoadState()
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if loaded.PendingColor != "" || loaded.PendingSince != nil {
		t.Fatalf("expected pending fields cleared, got %+v", loaded)
	}
}

func TestLoadSettingsCreatesDefaults(t *testing.T) {
	store := newTestStore(t)

	settings, err := store.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if settings != DefaultSettings() {
		t.Fatalf("expected defaults, got %+v", settings)
	}

	settings.AllowExtendedTrend = true
	settings.TrailingBuffer = 0.05
	if err := store.SaveSettings(settings); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	reloaded, err := store.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if !reloaded.AllowExtendedTrend || reloaded.TrailingBuffer != 0.05 {
		t.Fatalf("settings did not persist: %+v", reloaded)
	}
}

func TestLoadSettingsKeepsDefaultsForMissingKeys(t *testing.T) {
	store := newTestStore(t)

	_, err := store.db.Exec(`INSERT INTO trading_settings (id, payload) VALUES (1, '{"trailing_buffer":0.08}')`)
	if err != nil {
		t.Fatalf("failed to plant payload: %v", err)
	}

	settings, err := store.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if settings.TrailingBuffer != 0.08 {
		t.Fatalf("expected trailing buffer 0.08, got %v", settings.TrailingBuffer)
	}
	if !settings.TrendSafeguardEnabled || !settings.LoggingEnabled {
		t.Fatalf("missing keys lost their defaults: %+v", settings)
	}
}

func TestSeedSettingsDoesNotClobber(t *testing.T) {
	store := newTestStore(t)

	first := DefaultSettings()
	first.TrailingBuffer = 0.04
	if err := store.SeedSettings(first); err != nil {
		t.Fatalf("SeedSettings failed: %v", err)
	}

	second := DefaultSettings()
	second.TrailingBuffer = 0.09
	if err := store.SeedSettings(second); err != nil {
		t.Fatalf("SeedSettings failed: %v", err)
	}

	settings, err := store.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if settings.TrailingBuffer != 0.04 {
		t.Fatalf("seed clobbered existing settings: %+v", settings)
	}
}

func TestActivePositionLifecycle(t *testing.T) {
	store := newTestStore(t)

	position, err := store.LoadActivePosition()
	if err != nil {
		t.Fatalf("LoadActivePosition failed: %v", err)
	}
	if position != nil {
		t.Fatalf("expected no position, got %+v", position)
	}

	openedAt := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	saved := &TradePosition{
		Symbol:     "TQQQ",
		Direction:  "long",
		EntryPrice: 100.0,
		Quantity:   1.0,
		TakeProfit: 110.0,
		StopLoss:   95.0,
		OpenedAt:   openedAt,
	}
	if err := store.SaveActivePosition(saved); err != nil {
		t.Fatalf("SaveActivePosition failed: %v", err)
	}

	position, err = store.LoadActivePosition()
	if err != nil {
		t.Fatalf("LoadActivePosition failed: %v", err)
	}
	if position == nil {
		t.Fatal("expected a position after save")
	}
	if position.Symbol != "TQQQ" || position.TakeProfit != 110.0 || !position.OpenedAt.Equal(openedAt) {
		t.Fatalf("position did not round-trip: %+v", position)
	}
	if position.TrailingStop != nil {
		t.Fatalf("expected nil trailing stop, got %v", *position.TrailingStop)
	}

	trailing := 108.64
	position.TrailingStop = &trailing
	if err := store.SaveActivePosition(position); err != nil {
		t.Fatalf("SaveActivePosition failed: %v", err)
	}
	position, err = store.LoadActivePosition()
	if err != nil {
		t.Fatalf("LoadActivePosition failed: %v", err)
	}
	if position.TrailingStop == nil || *position.TrailingStop != 108.64 {
		t.Fatalf("trailing stop did not persist: %+v", position)
	}

	if err := store.SaveActivePosition(nil); err != nil {
		t.Fatalf("clearing position failed: %v", err)
	}
	position, err = store.LoadActivePosition()
	if err != nil {
		t.Fatalf("LoadActivePosition failed: %v", err)
	}
	if position != nil {
		t.Fatalf("expected cleared position, got %+v", position)
	}
}

func TestRecordClosedPositionComputesPnL(t *testing.T) {
	store := newTestStore(t)

	openedAt := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	closedAt := openedAt.Add(6 * time.Hour)
	if err := store.RecordClosedPosition("SQQQ", "short", 20.0, 22.5, 2.0, openedAt, closedAt); err != nil {
		t.Fatalf("RecordClosedPosition failed: %v", err)
	}

	trades, err := store.ClosedPositions(0)
	if err != nil {
		t.Fatalf("ClosedPositions failed: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	trade := trades[0]
	if trade.PnL != 5.0 {
		t.Fatalf("expected PnL 5.0, got %v", trade.PnL)
	}
	if !trade.OpenedAt.Equal(openedAt) || !trade.ClosedAt.Equal(closedAt) {
		t.Fatalf("timestamps did not round-trip: %+v", trade)
	}
}

func TestClosedPositionsNewestFirst(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		openedAt := base.Add(time.Duration(i) * time.Hour)
		if err := store.RecordClosedPosition("TQQQ", "long", 100, 101, 1, openedAt, openedAt.Add(time.Hour)); err != nil {
			t.Fatalf("RecordClosedPosition failed: %v", err)
		}
	}

	trades, err := store.ClosedPositions(2)
	if err != nil {
		t.Fatalf("ClosedPositions failed: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].ID <= trades[1].ID {
		t.Fatalf("expected newest first, got ids %d then %d", trades[0].ID, trades[1].ID)
	}
}
