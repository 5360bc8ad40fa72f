// Package reconcile implements the ReconciliationEngine: the Manager's
// single loop thread that diffs desired subscription state against live
// exchange state, tears down and rebuilds changed exchanges, and drives one
// polling pass per tick. This is the core module the rest of the repository
// exists to support.
package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketdatamanager/internal/eventbus"
	"marketdatamanager/internal/exchange"
	"marketdatamanager/internal/marketdata"
	"marketdatamanager/internal/metrics"
	"marketdatamanager/internal/polling"
	"marketdatamanager/internal/session"
	"marketdatamanager/logger"
)

// streamingTypes mirrors the original's STREAMING_TYPES constant: the
// subset of DataType values a StreamingExchangeSession can carry.
var streamingTypes = map[marketdata.DataType]bool{
	marketdata.Ticker:    true,
	marketdata.OrderBook: true,
	marketdata.Trades:    true,
}

// NotificationKind classifies an operational event surfaced through the
// optional notifier hook. Ordinary per-fetch errors never produce one —
// only connect, disconnect, and reconciliation failure do.
type NotificationKind string

const (
	NotificationConnected        NotificationKind = "connected"
	NotificationDisconnected     NotificationKind = "disconnected"
	NotificationReconcileFailed  NotificationKind = "reconcile_failed"
)

// Notification is the payload handed to the optional notifier callback.
type Notification struct {
	Kind     NotificationKind
	Exchange string
	Err      error
}

// exchangeState is the engine's private record of one exchange's live
// streaming subscription, owned exclusively by the reconcile goroutine.
type exchangeState struct {
	activeStreaming marketdata.SubscriptionSet
	session         *session.Session
}

// State is the reconcile loop's coarse lifecycle state, exposed for the
// optional status endpoint.
type State string

const (
	StateIdle        State = "IDLE"
	StateReconciling State = "RECONCILING"
	StatePolling     State = "POLLING"
	StateSleeping    State = "SLEEPING"
	StateStopped     State = "STOPPED"
)

// Engine is the ReconciliationEngine. One Engine is owned by exactly one
// Manager; all mutation of exchangeState happens on its own goroutine.
type Engine struct {
	registry *exchange.Registry
	bus      *eventbus.Bus
	poller   *polling.Loop
	log      *logger.Entry
	metrics  *metrics.Counters

	loopInterval time.Duration
	notify       func(Notification)

	mu                sync.Mutex
	pending           *marketdata.SubscriptionSet
	lastReconcile     time.Time
	state             State
	activePolling     marketdata.SubscriptionSet
	connectedSnapshot []string

	// states is owned exclusively by the reconcile goroutine; other
	// goroutines must go through ConnectedExchanges, which reads the
	// mutex-guarded connectedSnapshot instead.
	states map[string]*exchangeState

	wake    chan struct{}
	stopOnce sync.Once
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Config bundles the Engine's construction parameters.
type Config struct {
	Registry          *exchange.Registry
	Bus               *eventbus.Bus
	Log               *logger.Entry
	LoopInterval      time.Duration
	RequestsPerSecond float64
	Burst             int
	Notify            func(Notification)
	Metrics           *metrics.Counters
}

// New constructs an Engine in the IDLE state. Call Start to begin the loop.
func New(cfg Config) *Engine {
	notify := cfg.Notify
	if notify == nil {
		notify = func(Notification) {}
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}
	poller := polling.New(cfg.Registry, cfg.Bus, cfg.Log, cfg.RequestsPerSecond, cfg.Burst)
	poller.Metrics = m
	return &Engine{
		registry:      cfg.Registry,
		bus:           cfg.Bus,
		poller:        poller,
		log:           cfg.Log,
		metrics:       m,
		loopInterval:  cfg.LoopInterval,
		notify:        notify,
		state:         StateIdle,
		activePolling: marketdata.NewSubscriptionSet(),
		states:        make(map[string]*exchangeState),
		wake:          make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
	}
}

// UpdateSubscriptions atomically stores desired as the pending set. It
// signals the loop early only if the last reconciliation finished more
// than loopInterval ago, coalescing bursts of rapid updates.
func (e *Engine) UpdateSubscriptions(desired marketdata.SubscriptionSet) {
	e.mu.Lock()
	e.pending = &desired
	stale := time.Since(e.lastReconcile) > e.loopInterval
	e.mu.Unlock()

	if stale {
		select {
		case e.wake <- struct{}{}:
		default:
		}
	}
}

func (e *Engine) takePending() (marketdata.SubscriptionSet, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending == nil {
		return marketdata.SubscriptionSet{}, false
	}
	desired := *e.pending
	e.pending = nil
	return desired, true
}

// restorePending puts saved back as pending, but only if nothing newer has
// arrived in the meantime — a newer pending set always wins.
func (e *Engine) restorePending(saved marketdata.SubscriptionSet) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending == nil {
		e.pending = &saved
	}
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// State reports the engine's current coarse lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// ActivePolling reports the current polling set, for diagnostics.
func (e *Engine) ActivePolling() marketdata.SubscriptionSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activePolling
}

// ConnectedExchanges reports the exchanges with a live streaming session, as
// of the last completed reconciliation. Safe to call from any goroutine.
func (e *Engine) ConnectedExchanges() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connectedSnapshot
}

// syncConnectedSnapshot republishes e.states' key set under mu. Called by
// the reconcile goroutine after every mutation of e.states.
func (e *Engine) syncConnectedSnapshot() {
	names := make([]string, 0, len(e.states))
	for name := range e.states {
		names = append(names, name)
	}
	e.mu.Lock()
	e.connectedSnapshot = names
	e.mu.Unlock()
}

// Start launches the reconcile/poll goroutine. It runs until Stop is called
// or ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	e.doneCh = make(chan struct{})
	go e.run(ctx)
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.doneCh)
	defer e.setState(StateStopped)

	for {
		e.reconcileOnce(ctx)

		e.mu.Lock()
		e.lastReconcile = time.Now()
		e.mu.Unlock()

		e.setState(StateSleeping)
		timer := time.NewTimer(e.loopInterval)
		select {
		case <-timer.C:
		case <-e.wake:
			timer.Stop()
		case <-e.stopCh:
			timer.Stop()
			e.finalReconcile(ctx)
			return
		case <-ctx.Done():
			timer.Stop()
			e.finalReconcile(ctx)
			return
		}
	}
}

// finalReconcile runs one last pass against the empty set so every open
// streaming session is deterministically torn down before the loop exits.
func (e *Engine) finalReconcile(ctx context.Context) {
	empty := marketdata.NewSubscriptionSet()
	e.mu.Lock()
	e.pending = &empty
	e.mu.Unlock()
	e.reconcileOnce(ctx)
}

// Stop requests a graceful shutdown: the next iteration reconciles against
// the empty set (tearing down every exchange) before the loop exits. It
// blocks until that has happened.
func (e *Engine) Stop(ctx context.Context) {
	e.stopOnce.Do(func() { close(e.stopCh) })
	if e.doneCh != nil {
		select {
		case <-e.doneCh:
		case <-ctx.Done():
		}
	}
}

// reconcileOnce performs one pass of the algorithm in spec §4.2. Steps
// 2-4 (group, diff, disconnect, subscribe) abort as a unit on error,
// restoring the pending set for retry; step 5 (poll) only runs if steps
// 2-4 succeeded.
func (e *Engine) reconcileOnce(ctx context.Context) {
	desired, hadPending := e.takePending()
	if !hadPending {
		e.runPoll(ctx)
		return
	}

	e.setState(StateReconciling)
	if err := e.diffAndSubscribe(ctx, desired); err != nil {
		e.log.WithError(err).Error("reconciliation failed, pending set restored for retry")
		e.restorePending(desired)
		e.metrics.RecordReconcileFailure()
		e.notify(Notification{Kind: NotificationReconcileFailed, Err: err})
		return
	}

	e.runPoll(ctx)
}

func (e *Engine) runPoll(ctx context.Context) {
	e.setState(StatePolling)
	e.mu.Lock()
	active := e.activePolling
	e.mu.Unlock()
	e.poller.Run(ctx, active)
}

func (e *Engine) diffAndSubscribe(ctx context.Context, desired marketdata.SubscriptionSet) error {
	defer e.syncConnectedSnapshot()
	byExchange := desired.ByExchange()

	// Step 3: diff and disconnect changed exchanges.
	for name, state := range e.states {
		target := streamingTarget(byExchange[name])
		if target.Equal(state.activeStreaming) {
			continue
		}
		if err := state.session.Close(ctx); err != nil {
			return fmt.Errorf("disconnecting changed exchange %s: %w", name, err)
		}
		e.metrics.RecordDisconnect(name)
		e.notify(Notification{Kind: NotificationDisconnected, Exchange: name})
		delete(e.states, name)
	}

	// Step 4: subscribe. Streaming exchanges whose target is unchanged keep
	// their session untouched; everyone else is considered afresh.
	newActivePolling := marketdata.NewSubscriptionSet()

	for name, subs := range byExchange {
		adapter, err := e.registry.Get(name)
		if err != nil {
			e.log.WithError(err).WithFields(logger.Fields{"exchange": name}).Error("reconciliation: unknown exchange, skipping")
			continue
		}

		target := streamingTarget(subs)

		if adapter.IsStreaming() {
			if _, unchanged := e.states[name]; !unchanged && target.Len() > 0 {
				sess, err := session.Open(ctx, adapter, target, e.bus, e.log)
				if err != nil {
					return fmt.Errorf("opening streaming session for %s: %w", name, err)
				}
				if sess != nil {
					e.states[name] = &exchangeState{activeStreaming: target, session: sess}
					e.metrics.RecordConnect(name)
					e.notify(Notification{Kind: NotificationConnected, Exchange: name})
				}
			}
			newActivePolling = newActivePolling.Union(nonStreamingSubset(subs))
		} else {
			newActivePolling = newActivePolling.Union(subs)
		}
	}

	e.mu.Lock()
	e.activePolling = newActivePolling
	e.mu.Unlock()
	return nil
}

// streamingTarget filters subs to STREAMING_TYPES in one pass. The same set
// serves both change detection (step 3) and the product subscription a new
// session opens with (step 4), so a change to a polled type such as
// OPEN_ORDERS or USER_TRADE_HISTORY never counts as a streaming change.
func streamingTarget(subs marketdata.SubscriptionSet) marketdata.SubscriptionSet {
	return subs.Filter(func(s marketdata.Subscription) bool { return streamingTypes[s.Type] })
}

func nonStreamingSubset(subs marketdata.SubscriptionSet) marketdata.SubscriptionSet {
	return subs.Filter(func(s marketdata.Subscription) bool { return !streamingTypes[s.Type] })
}
