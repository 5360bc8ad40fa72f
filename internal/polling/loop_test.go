package polling

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

type stubMarketData struct {
	tickers map[string]marketdata.Ticker
	failTicker map[string]bool
}

func (s stubMarketData) GetTicker(ctx context.Context, pair string) (marketdata.Ticker, error) {
	if s.failTicker[pair] {
		return marketdata.Ticker{}, fmt.Errorf("boom")
	}
	return s.tickers[pair], nil
}
func (s stubMarketData) GetOrderBook(ctx context.Context, pair string, depth int) (marketdata.OrderBook, error) {
	return marketdata.OrderBook{}, nil
}
func (s stubMarketData) GetTrades(ctx context.Context, pair string) ([]marketdata.Trade, error) {
	return nil, nil
}

type stubAdapter struct {
	name string
	svc  stubMarketData
}

func (a *stubAdapter) Name() string                                             { return a.name }
func (a *stubAdapter) IsStreaming() bool                                        { return false }
func (a *stubAdapter) MarketDataService() exchange.MarketDataService           { return a.svc }
func (a *stubAdapter) Connect(ctx context.Context, sub *exchange.ProductSubscription) error { return nil }
func (a *stubAdapter) Disconnect(ctx context.Context) error                    { return nil }
func (a *stubAdapter) StreamingMarketData() exchange.StreamingMarketDataService { return nil }

func TestRunFailedFetchDoesNotSuppressSibling(t *testing.T) {
	specA := marketdata.TickerSpec{Exchange: "a", Base: "BTC", Counter: "USDT"}
	specB := marketdata.TickerSpec{Exchange: "a", Base: "ETH", Counter: "USDT"}

	adapter := &stubAdapter{name: "a", svc: stubMarketData{
		tickers: map[string]marketdata.Ticker{
			specA.CurrencyPair(): {Last: 1},
			specB.CurrencyPair(): {Last: 2},
		},
		failTicker: map[string]bool{specA.CurrencyPair(): true},
	}}

	registry := exchange.NewRegistry()
	registry.Register("a", adapter)
	bus := eventbus.New()
	loop := New(registry, bus, logger.GetLogger().WithComponent("test"), 1000, 10)

	outA, cancelA := bus.Ticker(specA)
	defer cancelA()
	outB, cancelB := bus.Ticker(specB)
	defer cancelB()

	active := marketdata.NewSubscriptionSet(
		marketdata.Subscription{Spec: specA, Type: marketdata.Ticker},
		marketdata.Subscription{Spec: specB, Type: marketdata.Ticker},
	)
	loop.Run(context.Background(), active)

	select {
	case ev := <-outB:
		if ev.Ticker.Last != 2 {
			t.Fatalf("got %v, want 2", ev.Ticker.Last)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for B's ticker event")
	}

	select {
	case ev := <-outA:
		t.Fatalf("expected no event for failing fetch, got %v", ev)
	default:
	}
}
