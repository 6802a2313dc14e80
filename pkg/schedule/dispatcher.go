// File: pkg/schedule/dispatcher.go
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/braydio/RSAssistant-sub000/pkg/executor"
	"github.com/braydio/RSAssistant-sub000/utilities"
)

const defaultDispatchInterval = 60 * time.Second

// DispatchNotifier receives a callback for every order the dispatcher
// executes.
type DispatchNotifier interface {
	NotifyOrderDispatched(order Order)
}

// Dispatcher drains the order queue through the trade executor. Orders run
// only once their execute-at time has passed and the market is open; a
// failed execution leaves the order queued for the next pass.
type Dispatcher struct {
	queue    *Queue
	exec     executor.TradeExecutor
	calendar *Calendar
	logger   *utilities.Logger
	notifier DispatchNotifier
	interval time.Duration

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher wires the queue, executor and market calendar together. The
// dispatch interval defaults to 60 seconds when unset.
func NewDispatcher(queue *Queue, exec executor.TradeExecutor, calendar *Calendar, cfg utilities.SchedulerConfig, logger *utilities.Logger) *Dispatcher {
	interval := time.Duration(cfg.DispatchIntervalSec) * time.Second
	if interval <= 0 {
		interval = defaultDispatchInterval
	}
	return &Dispatcher{
		queue:    queue,
		exec:     exec,
		calendar: calendar,
		logger:   logger,
		interval: interval,
	}
}

// SetNotifier installs the dispatch callback. Pass nil to disable.
func (d *Dispatcher) SetNotifier(n DispatchNotifier) {
	d.notifier = n
}

// Start launches the dispatch loop. Calling Start on a running dispatcher is
// a no-op.
func (d *Dispatcher) Start(ctx context.Context) {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if d.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.wg.Add(1)
	go d.dispatchLoop(runCtx)
	d.logger.LogInfo("Order dispatcher started (interval %s).", d.interval)
}

// Stop cancels the loop and waits for it to drain.
func (d *Dispatcher) Stop() {
	d.runMu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	d.wg.Wait()
	d.logger.LogInfo("Order dispatcher stopped.")
}

func (d *Dispatcher) dispatchLoop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		d.dispatchDue(ctx, time.Now())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// dispatchDue executes every queued order whose time has passed. Outside
// market hours the pass is skipped entirely so orders wait for the next
// session.
func (d *Dispatcher) dispatchDue(ctx context.Context, now time.Time) {
	if !d.calendar.IsMarketOpenAt(now) {
		return
	}

	due, err := d.queue.Due(now)
	if err != nil {
		d.logger.LogError("Failed to read due orders: %v", err)
		return
	}

	for _, order := range due {
		if ctx.Err() != nil {
			return
		}

		var res executor.ExecResult
		switch order.Action {
		case ActionBuy:
			res = d.exec.Buy(ctx, order.Ticker, order.Quantity, false)
		case ActionSell:
			res = d.exec.Sell(ctx, order.Ticker, order.Quantity, order.Broker)
		default:
			d.logger.LogError("Dropping order %s with unknown action %q", order.ID, order.Action)
			if _, err := d.queue.Cancel(order.ID); err != nil {
				d.logger.LogError("Failed to drop order %s: %v", order.ID, err)
			}
			continue
		}

		if !res.Success {
			d.logger.LogError("Scheduled %s of %v %s failed (status %d): %s; order %s stays queued",
				order.Action, order.Quantity, order.Ticker, res.StatusCode, res.Error, order.ID)
			continue
		}

		if _, err := d.queue.Cancel(order.ID); err != nil {
			d.logger.LogError("Order %s executed but could not be dequeued: %v", order.ID, err)
			continue
		}
		d.logger.LogInfo("Dispatched scheduled %s: %v %s (order %s)",
			order.Action, order.Quantity, order.Ticker, order.ID)
		if d.notifier != nil {
			d.notifier.NotifyOrderDispatched(order)
		}
	}
}
