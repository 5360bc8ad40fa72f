// Package manager is the subscription manager's front door: the Manager
// type hosts the single reconciliation thread and exposes updateSubscriptions,
// the per-type getters, and start/stop. Everything else in this repository
// exists to support this one type's contract.
package manager

import (
	"context"
	"fmt"
	"time"

	"marketdatamanager/internal/eventbus"
	"marketdatamanager/internal/exchange"
	"marketdatamanager/internal/marketdata"
	"marketdatamanager/internal/metrics"
	"marketdatamanager/internal/reconcile"
	"marketdatamanager/logger"
)

// Notification is the payload delivered to an optional WithNotifier
// callback: connect, disconnect, and reconciliation-failure events only —
// never per-fetch errors, which stay log-only per spec §7.
type Notification = reconcile.Notification

const (
	defaultLoopInterval      = 5 * time.Second
	defaultRequestsPerSecond = 5.0
	defaultBurst             = 1
)

type options struct {
	loopInterval      time.Duration
	requestsPerSecond float64
	burst             int
	notify            func(Notification)
	metrics           *metrics.Counters
}

// Option configures a Manager at construction time.
type Option func(*options)

// WithLoopInterval sets the minimum inter-reconciliation interval and sleep
// unit (spec §6's loopSeconds).
func WithLoopInterval(d time.Duration) Option {
	return func(o *options) { o.loopInterval = d }
}

// WithRateLimit sets the per-exchange polling rate limit.
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(o *options) { o.requestsPerSecond = requestsPerSecond; o.burst = burst }
}

// WithNotifier registers a callback invoked on exchange connect, disconnect,
// and reconciliation failure. Optional; nil by default.
func WithNotifier(fn func(Notification)) Option {
	return func(o *options) { o.notify = fn }
}

// WithMetrics supplies the Counters instance the engine and poller record
// against; when omitted, a fresh, process-local Counters is created.
func WithMetrics(c *metrics.Counters) Option {
	return func(o *options) { o.metrics = c }
}

// Manager is the outward surface described by spec §4.1/§6. One Manager
// should be instantiated per process and injected, not reached for as a
// global.
type Manager struct {
	bus    *eventbus.Bus
	engine *reconcile.Engine
	log    *logger.Entry
}

// New constructs a Manager against registry, ready for Start.
func New(registry *exchange.Registry, log *logger.Entry, opts ...Option) *Manager {
	o := options{
		loopInterval:      defaultLoopInterval,
		requestsPerSecond: defaultRequestsPerSecond,
		burst:             defaultBurst,
	}
	for _, opt := range opts {
		opt(&o)
	}

	bus := eventbus.New()
	engine := reconcile.New(reconcile.Config{
		Registry:          registry,
		Bus:               bus,
		Log:               log,
		LoopInterval:      o.loopInterval,
		RequestsPerSecond: o.requestsPerSecond,
		Burst:             o.burst,
		Notify:            o.notify,
		Metrics:           o.metrics,
	})

	return &Manager{bus: bus, engine: engine, log: log}
}

// UpdateSubscriptions atomically replaces the pending desired set. Never
// blocks and never fails, per spec §4.1's error contract.
func (m *Manager) UpdateSubscriptions(desired marketdata.SubscriptionSet) {
	m.engine.UpdateSubscriptions(desired)
}

// Start begins the reconciliation thread.
func (m *Manager) Start(ctx context.Context) {
	m.engine.Start(ctx)
}

// Stop sets desired to empty, letting the engine tear down every exchange,
// then blocks until the loop has exited.
func (m *Manager) Stop(ctx context.Context) {
	m.engine.Stop(ctx)
}

// State reports the reconcile loop's coarse lifecycle state.
func (m *Manager) State() reconcile.State {
	return m.engine.State()
}

// Engine exposes the underlying reconciliation engine for the optional
// status endpoint; most callers should use the typed getters above
// instead.
func (m *Manager) Engine() *reconcile.Engine {
	return m.engine
}

// Bus exposes the underlying event bus for optional subscriber-count
// metrics reporting; most callers should use the typed getters above
// instead.
func (m *Manager) Bus() *eventbus.Bus {
	return m.bus
}

func validateSpec(spec marketdata.TickerSpec) {
	if spec.Exchange == "" || spec.Base == "" || spec.Counter == "" {
		panic(fmt.Sprintf("manager: incomplete ticker spec %+v", spec))
	}
}

// GetTicker returns a hot, multiply-subscribable stream of ticker events
// for spec.
func (m *Manager) GetTicker(spec marketdata.TickerSpec) (<-chan marketdata.TickerEvent, func()) {
	validateSpec(spec)
	return m.bus.Ticker(spec)
}

// GetOrderBook returns a hot, multiply-subscribable stream of order book
// events for spec.
func (m *Manager) GetOrderBook(spec marketdata.TickerSpec) (<-chan marketdata.OrderBookEvent, func()) {
	validateSpec(spec)
	return m.bus.OrderBook(spec)
}

// GetTrades returns a hot, multiply-subscribable stream of trade events
// for spec.
func (m *Manager) GetTrades(spec marketdata.TickerSpec) (<-chan marketdata.TradeEvent, func()) {
	validateSpec(spec)
	return m.bus.Trade(spec)
}

// GetOpenOrders returns a hot, multiply-subscribable stream of open-orders
// events for spec.
func (m *Manager) GetOpenOrders(spec marketdata.TickerSpec) (<-chan marketdata.OpenOrdersEvent, func()) {
	validateSpec(spec)
	return m.bus.OpenOrdersFor(spec)
}

// GetTradeHistory returns a hot, multiply-subscribable stream of trade
// history events for spec.
func (m *Manager) GetTradeHistory(spec marketdata.TickerSpec) (<-chan marketdata.TradeHistoryEvent, func()) {
	validateSpec(spec)
	return m.bus.TradeHistoryFor(spec)
}

// GetSubscription dynamically dispatches on sub.Type and returns the same
// underlying stream as the typed accessors, boxed as `any`. An unknown
// DataType is a programmer error (spec §7) and panics immediately rather
// than returning a zero-value stream.
func (m *Manager) GetSubscription(sub marketdata.Subscription) (<-chan any, func()) {
	validateSpec(sub.Spec)
	switch sub.Type {
	case marketdata.Ticker:
		ch, cancel := m.GetTicker(sub.Spec)
		return boxAny(ch), cancel
	case marketdata.OrderBook:
		ch, cancel := m.GetOrderBook(sub.Spec)
		return boxAny(ch), cancel
	case marketdata.Trades:
		ch, cancel := m.GetTrades(sub.Spec)
		return boxAny(ch), cancel
	case marketdata.OpenOrders:
		ch, cancel := m.GetOpenOrders(sub.Spec)
		return boxAny(ch), cancel
	case marketdata.TradeHistory:
		ch, cancel := m.GetTradeHistory(sub.Spec)
		return boxAny(ch), cancel
	default:
		panic(fmt.Sprintf("manager: unknown data type %v in getSubscription dispatch", sub.Type))
	}
}

// boxAny relays a typed channel onto an `any` channel with the same
// latest-wins semantics Filtered already gives the typed channel; its own
// buffer holds at most one undelivered value, replaced by each newer one.
func boxAny[T any](ch <-chan T) <-chan any {
	out := make(chan any, 1)
	go func() {
		defer close(out)
		for v := range ch {
			select {
			case out <- v:
			default:
				select {
				case <-out:
				default:
				}
				select {
				case out <- v:
				default:
				}
			}
		}
	}()
	return out
}
