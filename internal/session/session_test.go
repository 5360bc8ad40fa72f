package session

import (
	"context"
	"testing"
	"time"

	"marketdatamanager/internal/eventbus"
	"marketdatamanager/internal/exchange"
	"marketdatamanager/internal/marketdata"
	"marketdatamanager/logger"
)

type fakeStreaming struct {
	tickers map[string]chan marketdata.Ticker
}

func (f fakeStreaming) Ticker(ctx context.Context, pair string) (<-chan marketdata.Ticker, error) {
	return f.tickers[pair], nil
}
func (f fakeStreaming) OrderBook(ctx context.Context, pair string, depth int) (<-chan marketdata.OrderBook, error) {
	return make(chan marketdata.OrderBook), nil
}
func (f fakeStreaming) Trades(ctx context.Context, pair string) (<-chan marketdata.Trade, error) {
	return make(chan marketdata.Trade), nil
}

type fakeAdapter struct {
	streaming    fakeStreaming
	connected    bool
	disconnected bool
}

func (a *fakeAdapter) Name() string      { return "fake" }
func (a *fakeAdapter) IsStreaming() bool { return true }
func (a *fakeAdapter) MarketDataService() exchange.MarketDataService { return nil }
func (a *fakeAdapter) Connect(ctx context.Context, sub *exchange.ProductSubscription) error {
	a.connected = true
	return nil
}
func (a *fakeAdapter) Disconnect(ctx context.Context) error {
	a.disconnected = true
	return nil
}
func (a *fakeAdapter) StreamingMarketData() exchange.StreamingMarketDataService { return a.streaming }

func TestOpenRelaysTickerEventsToBus(t *testing.T) {
	spec := marketdata.TickerSpec{Exchange: "fake", Base: "BTC", Counter: "USDT"}
	tickerCh := make(chan marketdata.Ticker, 1)
	adapter := &fakeAdapter{streaming: fakeStreaming{tickers: map[string]chan marketdata.Ticker{
		spec.CurrencyPair(): tickerCh,
	}}}

	bus := eventbus.New()
	target := marketdata.NewSubscriptionSet(marketdata.Subscription{Spec: spec, Type: marketdata.Ticker})

	sess, err := Open(context.Background(), adapter, target, bus, logger.GetLogger().WithComponent("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !adapter.connected {
		t.Fatal("expected adapter to be connected")
	}

	out, cancel := bus.Ticker(spec)
	defer cancel()

	tickerCh <- marketdata.Ticker{Last: 100}

	select {
	case ev := <-out:
		if ev.Ticker.Last != 100 {
			t.Fatalf("got %v, want 100", ev.Ticker.Last)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for relayed ticker event")
	}

	if err := sess.Close(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !adapter.disconnected {
		t.Fatal("expected adapter to be disconnected")
	}
}

func TestOpenWithEmptyTargetReturnsNilSession(t *testing.T) {
	adapter := &fakeAdapter{}
	bus := eventbus.New()
	sess, err := Open(context.Background(), adapter, marketdata.NewSubscriptionSet(), bus, logger.GetLogger().WithComponent("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess != nil {
		t.Fatal("expected nil session for empty target")
	}
	if adapter.connected {
		t.Fatal("expected adapter not to be connected for empty target")
	}
}
