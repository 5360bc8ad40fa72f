package manager

import (
	"context"
	"testing"
	"time"

	"marketdatamanager/internal/exchange"
	"marketdatamanager/internal/marketdata"
	"marketdatamanager/logger"
)

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

type stubAdapter struct{ name string }

func (a stubAdapter) Name() string      { return a.name }
func (a stubAdapter) IsStreaming() bool { return false }
func (a stubAdapter) MarketDataService() exchange.MarketDataService {
	return stubMarketDataService{}
}
func (a stubAdapter) Connect(ctx context.Context, sub *exchange.ProductSubscription) error {
	return nil
}
func (a stubAdapter) Disconnect(ctx context.Context) error { return nil }
func (a stubAdapter) StreamingMarketData() exchange.StreamingMarketDataService {
	return nil
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	registry := exchange.NewRegistry()
	registry.Register("x", stubAdapter{name: "x"})
	return New(registry, logger.GetLogger().WithComponent("test"),
		WithLoopInterval(time.Hour),
		WithRateLimit(1000, 10),
	)
}

func TestGetTickerPanicsOnIncompleteSpec(t *testing.T) {
	m := newTestManager(t)
	defer func() {
		if recover() == nil {
			t.Fatal("expected GetTicker to panic on an incomplete ticker spec")
		}
	}()
	m.GetTicker(marketdata.TickerSpec{Exchange: "x"})
}

func TestGetSubscriptionPanicsOnUnknownDataType(t *testing.T) {
	m := newTestManager(t)
	spec := marketdata.TickerSpec{Exchange: "x", Base: "BTC", Counter: "USDT"}
	defer func() {
		if recover() == nil {
			t.Fatal("expected GetSubscription to panic on an unknown data type")
		}
	}()
	m.GetSubscription(marketdata.Subscription{Spec: spec, Type: marketdata.DataType(99)})
}

func TestGetSubscriptionCancelClosesBoxedChannel(t *testing.T) {
	m := newTestManager(t)
	spec := marketdata.TickerSpec{Exchange: "x", Base: "BTC", Counter: "USDT"}

	ch, cancel := m.GetSubscription(marketdata.Subscription{Spec: spec, Type: marketdata.Ticker})
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected the boxed channel to be closed, got a value instead")
		}
	case <-time.After(time.Second):
		t.Fatal("boxAny goroutine did not exit after cancel: channel never closed")
	}
}

func TestGetTickerReturnsIndependentSubscriptions(t *testing.T) {
	m := newTestManager(t)
	spec := marketdata.TickerSpec{Exchange: "x", Base: "BTC", Counter: "USDT"}

	ch1, cancel1 := m.GetTicker(spec)
	defer cancel1()
	ch2, cancel2 := m.GetTicker(spec)
	defer cancel2()

	if ch1 == nil || ch2 == nil {
		t.Fatal("expected non-nil ticker channels")
	}
	if ch1 == ch2 {
		t.Fatal("expected each GetTicker call to return its own channel")
	}
}
