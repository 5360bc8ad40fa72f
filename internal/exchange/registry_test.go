package exchange

import (
	"context"
	"testing"

	"marketdatamanager/internal/marketdata"
)

type stubAdapter struct {
	name      string
	streaming bool
}

func (s *stubAdapter) Name() string      { return s.name }
func (s *stubAdapter) IsStreaming() bool { return s.streaming }
func (s *stubAdapter) MarketDataService() MarketDataService { return nil }
func (s *stubAdapter) Connect(ctx context.Context, sub *ProductSubscription) error { return nil }
func (s *stubAdapter) Disconnect(ctx context.Context) error                       { return nil }
func (s *stubAdapter) StreamingMarketData() StreamingMarketDataService            { return nil }

func TestRegistryResolvesRegisteredAdapter(t *testing.T) {
	r := NewRegistry()
	r.Register("binance", &stubAdapter{name: "binance", streaming: true})

	adapter, err := r.Get("binance")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !adapter.IsStreaming() {
		t.Fatal("expected binance to be classified as streaming")
	}
}

func TestRegistryUnknownExchangeErrors(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("nonesuch"); err == nil {
		t.Fatal("expected error for unregistered exchange")
	}
}

func TestProductSubscriptionIsEmpty(t *testing.T) {
	sub := NewProductSubscription()
	if !sub.IsEmpty() {
		t.Fatal("expected fresh subscription to be empty")
	}
	sub.AddTicker(marketdata.TickerSpec{Exchange: "binance", Base: "BTC", Counter: "USDT"}.CurrencyPair())
	if sub.IsEmpty() {
		t.Fatal("expected subscription with a ticker to be non-empty")
	}
}
