package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/braydio/RSAssistant-sub000/pkg/trading"
	"github.com/braydio/RSAssistant-sub000/pkg/watchlist"
	"github.com/braydio/RSAssistant-sub000/strategy"
	"github.com/braydio/RSAssistant-sub000/utilities"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusResponse struct {
	trading.StrategyMetrics
	QueuedOrders  int `json:"queued_orders"`
	WatchlistSize int `json:"watchlist_size"`
}

// statusHandler reports the bot snapshot plus queue depth and watchlist
// size.
func statusHandler(controller AppController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		metrics, err := controller.Metrics()
		if err != nil {
			controller.Logger().LogError("Status snapshot failed: %v", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		queued, err := controller.QueuedOrderCount()
		if err != nil {
			controller.Logger().LogError("Queue depth lookup failed: %v", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		entries, err := controller.WatchlistEntries()
		if err != nil {
			controller.Logger().LogError("Watchlist lookup failed: %v", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, statusResponse{
			StrategyMetrics: metrics,
			QueuedOrders:    queued,
			WatchlistSize:   len(entries),
		})
	}
}

// watchlistHandler lists the watched reverse-split tickers.
func watchlistHandler(controller AppController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		entries, err := controller.WatchlistEntries()
		if err != nil {
			controller.Logger().LogError("Watchlist lookup failed: %v", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if entries == nil {
			entries = []watchlist.Entry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

type historyResponse struct {
	Trades  []trading.ClosedTrade       `json:"trades"`
	Summary strategy.PerformanceSummary `json:"summary"`
}

// historyHandler returns recent closed trades with a performance summary.
// ?limit caps the row count and ?since (persisted timestamp layout) drops
// trades closed at or before the cutoff.
func historyHandler(controller AppController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
				return
			}
			limit = parsed
		}

		trades, err := controller.TradeHistory(limit)
		if err != nil {
			controller.Logger().LogError("Trade history lookup failed: %v", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		if raw := r.URL.Query().Get("since"); raw != "" {
			cutoff, err := utilities.ParseTimestamp(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "since must use the layout "+utilities.TimestampLayout)
				return
			}
			trades = utilities.FilterAfter(trades, func(ct trading.ClosedTrade) time.Time { return ct.ClosedAt }, cutoff)
		}
		if trades == nil {
			trades = []trading.ClosedTrade{}
		}

		outcomes := make([]strategy.TradeOutcome, 0, len(trades))
		for _, ct := range trades {
			outcomes = append(outcomes, strategy.TradeOutcome{
				Symbol:    ct.Symbol,
				Direction: ct.Direction,
				PnL:       ct.PnL,
			})
		}

		writeJSON(w, http.StatusOK, historyResponse{
			Trades:  trades,
			Summary: strategy.Summarize(outcomes),
		})
	}
}

type webhookRequest struct {
	Color     string `json:"color"`
	Timestamp string `json:"timestamp,omitempty"`
}

// webhookHandler accepts TradingView colour alerts and forwards them to the
// bot. A missing timestamp means "now".
func webhookHandler(controller AppController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req webhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		color := strings.ToLower(strings.TrimSpace(req.Color))
		if color != strategy.TrendGreen && color != strategy.TrendRed {
			writeError(w, http.StatusBadRequest, "color must be green or red")
			return
		}

		timestamp := time.Now().UTC()
		if req.Timestamp != "" {
			parsed, err := utilities.ParseTimestamp(req.Timestamp)
			if err != nil {
				writeError(w, http.StatusBadRequest, "timestamp must use the layout "+utilities.TimestampLayout)
				return
			}
			timestamp = parsed
		}

		controller.UpdateColorFromWebhook(color, timestamp)
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "accepted",
			"color":  color,
		})
	}
}

// pauseHandler suspends trade evaluation.
func pauseHandler(controller AppController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		controller.Pause()
		writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
	}
}

// resumeHandler lifts a pause.
func resumeHandler(controller AppController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		controller.Resume()
		writeJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
	}
}
