package reconcile

import (
	"context"
	"fmt"
	"testing"
	"time"

	"marketdatamanager/internal/eventbus"
	"marketdatamanager/internal/exchange"
	"marketdatamanager/internal/marketdata"
	"marketdatamanager/logger"
)

type countingStreamingService struct {
	tickers map[string]chan marketdata.Ticker
}

func (s countingStreamingService) Ticker(ctx context.Context, pair string) (<-chan marketdata.Ticker, error) {
	ch, ok := s.tickers[pair]
	if !ok {
		return nil, nil
	}
	return ch, nil
}
func (s countingStreamingService) OrderBook(ctx context.Context, pair string, depth int) (<-chan marketdata.OrderBook, error) {
	return make(chan marketdata.OrderBook), nil
}
func (s countingStreamingService) Trades(ctx context.Context, pair string) (<-chan marketdata.Trade, error) {
	return make(chan marketdata.Trade), nil
}

type countingAdapter struct {
	name          string
	streaming     bool
	connectCount  int
	disconnectCount int
	svc           countingStreamingService
}

func (a *countingAdapter) Name() string      { return a.name }
func (a *countingAdapter) IsStreaming() bool { return a.streaming }
func (a *countingAdapter) MarketDataService() exchange.MarketDataService {
	return stubMarketDataService{}
}
func (a *countingAdapter) Connect(ctx context.Context, sub *exchange.ProductSubscription) error {
	a.connectCount++
	return nil
}
func (a *countingAdapter) Disconnect(ctx context.Context) error {
	a.disconnectCount++
	return nil
}
func (a *countingAdapter) StreamingMarketData() exchange.StreamingMarketDataService { return a.svc }

type stubMarketDataService struct{}

func (stubMarketDataService) GetTicker(ctx context.Context, pair string) (marketdata.Ticker, error) {
	return marketdata.Ticker{}, nil
}
func (stubMarketDataService) GetOrderBook(ctx context.Context, pair string, depth int) (marketdata.OrderBook, error) {
	return marketdata.OrderBook{}, nil
}
func (stubMarketDataService) GetTrades(ctx context.Context, pair string) ([]marketdata.Trade, error) {
	return nil, nil
}

func newTestEngine(t *testing.T, adapter exchange.ExchangeAdapter) *Engine {
	t.Helper()
	registry := exchange.NewRegistry()
	registry.Register(adapter.Name(), adapter)
	bus := eventbus.New()
	return New(Config{
		Registry:          registry,
		Bus:               bus,
		Log:               logger.GetLogger().WithComponent("test"),
		LoopInterval:      time.Hour,
		RequestsPerSecond: 1000,
		Burst:             10,
	})
}

func TestReconcileOnceOpensStreamingSessionForNewSubscription(t *testing.T) {
	spec := marketdata.TickerSpec{Exchange: "x", Base: "BTC", Counter: "USDT"}
	adapter := &countingAdapter{name: "x", streaming: true, svc: countingStreamingService{
		tickers: map[string]chan marketdata.Ticker{spec.CurrencyPair(): make(chan marketdata.Ticker, 1)},
	}}
	e := newTestEngine(t, adapter)

	desired := marketdata.NewSubscriptionSet(marketdata.Subscription{Spec: spec, Type: marketdata.Ticker})
	e.UpdateSubscriptions(desired)
	e.reconcileOnce(context.Background())

	if adapter.connectCount != 1 {
		t.Fatalf("expected exactly 1 connect call, got %d", adapter.connectCount)
	}
}

func TestReconcileOnceSkipsDisconnectWhenStreamingSetUnchanged(t *testing.T) {
	spec := marketdata.TickerSpec{Exchange: "x", Base: "BTC", Counter: "USDT"}
	adapter := &countingAdapter{name: "x", streaming: true, svc: countingStreamingService{
		tickers: map[string]chan marketdata.Ticker{spec.CurrencyPair(): make(chan marketdata.Ticker, 1)},
	}}
	e := newTestEngine(t, adapter)

	base := marketdata.NewSubscriptionSet(marketdata.Subscription{Spec: spec, Type: marketdata.Ticker})
	e.UpdateSubscriptions(base)
	e.reconcileOnce(context.Background())

	withOpenOrders := base.Union(marketdata.NewSubscriptionSet(marketdata.Subscription{Spec: spec, Type: marketdata.OpenOrders}))
	e.UpdateSubscriptions(withOpenOrders)
	e.reconcileOnce(context.Background())

	if adapter.disconnectCount != 0 {
		t.Fatalf("expected no disconnect when streaming set is unchanged, got %d", adapter.disconnectCount)
	}
	if e.ActivePolling().Len() != 1 {
		t.Fatalf("expected open orders subscription to land in active polling, got %d", e.ActivePolling().Len())
	}
}

type failingDisconnectAdapter struct {
	countingAdapter
	disconnectErr error
}

func (a *failingDisconnectAdapter) Disconnect(ctx context.Context) error {
	a.countingAdapter.disconnectCount++
	return a.disconnectErr
}

func TestReconcileOnceRestoresPendingWhenDisconnectFails(t *testing.T) {
	spec := marketdata.TickerSpec{Exchange: "x", Base: "BTC", Counter: "USDT"}
	adapter := &failingDisconnectAdapter{
		countingAdapter: countingAdapter{name: "x", streaming: true, svc: countingStreamingService{
			tickers: map[string]chan marketdata.Ticker{spec.CurrencyPair(): make(chan marketdata.Ticker, 1)},
		}},
		disconnectErr: fmt.Errorf("boom"),
	}
	e := newTestEngine(t, adapter)

	e.UpdateSubscriptions(marketdata.NewSubscriptionSet(marketdata.Subscription{Spec: spec, Type: marketdata.Ticker}))
	e.reconcileOnce(context.Background())

	changed := marketdata.NewSubscriptionSet(marketdata.Subscription{Spec: spec, Type: marketdata.OrderBook})
	e.UpdateSubscriptions(changed)
	e.reconcileOnce(context.Background())

	if adapter.disconnectCount != 1 {
		t.Fatalf("expected exactly 1 disconnect attempt, got %d", adapter.disconnectCount)
	}
	pending, ok := e.takePending()
	if !ok {
		t.Fatal("expected the failed reconciliation to restore the pending set")
	}
	if !pending.Equal(changed) {
		t.Fatalf("expected restored pending set to equal the attempted change, got %+v", pending)
	}
}

func TestReconcileOnceDisconnectsRemovedExchange(t *testing.T) {
	spec := marketdata.TickerSpec{Exchange: "x", Base: "BTC", Counter: "USDT"}
	adapter := &countingAdapter{name: "x", streaming: true, svc: countingStreamingService{
		tickers: map[string]chan marketdata.Ticker{spec.CurrencyPair(): make(chan marketdata.Ticker, 1)},
	}}
	e := newTestEngine(t, adapter)

	e.UpdateSubscriptions(marketdata.NewSubscriptionSet(marketdata.Subscription{Spec: spec, Type: marketdata.Ticker}))
	e.reconcileOnce(context.Background())

	e.UpdateSubscriptions(marketdata.NewSubscriptionSet())
	e.reconcileOnce(context.Background())

	if adapter.disconnectCount != 1 {
		t.Fatalf("expected exactly 1 disconnect call, got %d", adapter.disconnectCount)
	}
}
