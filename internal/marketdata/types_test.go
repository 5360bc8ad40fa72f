package marketdata

import "testing"

func TestSubscriptionSetCollapsesDuplicates(t *testing.T) {
	s := TickerSpec{Exchange: "binance", Base: "BTC", Counter: "USDT"}
	set := NewSubscriptionSet(
		Subscription{Spec: s, Type: Ticker},
		Subscription{Spec: s, Type: Ticker},
	)
	if set.Len() != 1 {
		t.Fatalf("expected 1 member, got %d", set.Len())
	}
}

func TestSubscriptionSetEqualIgnoresOrder(t *testing.T) {
	a := TickerSpec{Exchange: "binance", Base: "BTC", Counter: "USDT"}
	b := TickerSpec{Exchange: "kraken", Base: "ETH", Counter: "USD"}

	set1 := NewSubscriptionSet(
		Subscription{Spec: a, Type: Ticker},
		Subscription{Spec: b, Type: Ticker},
	)
	set2 := NewSubscriptionSet(
		Subscription{Spec: b, Type: Ticker},
		Subscription{Spec: a, Type: Ticker},
	)

	if !set1.Equal(set2) {
		t.Fatal("expected structurally identical sets to be equal")
	}
}

func TestSubscriptionSetNotEqualOnDifferentMembers(t *testing.T) {
	a := TickerSpec{Exchange: "binance", Base: "BTC", Counter: "USDT"}

	set1 := NewSubscriptionSet(Subscription{Spec: a, Type: Ticker})
	set2 := NewSubscriptionSet(Subscription{Spec: a, Type: OrderBook})

	if set1.Equal(set2) {
		t.Fatal("expected sets with different types to differ")
	}
}

func TestSubscriptionSetByExchangeGroups(t *testing.T) {
	binanceSpec := TickerSpec{Exchange: "binance", Base: "BTC", Counter: "USDT"}
	krakenSpec := TickerSpec{Exchange: "kraken", Base: "ETH", Counter: "USD"}

	set := NewSubscriptionSet(
		Subscription{Spec: binanceSpec, Type: Ticker},
		Subscription{Spec: binanceSpec, Type: OpenOrders},
		Subscription{Spec: krakenSpec, Type: Ticker},
	)

	byExchange := set.ByExchange()
	if len(byExchange) != 2 {
		t.Fatalf("expected 2 exchanges, got %d", len(byExchange))
	}
	if byExchange["binance"].Len() != 2 {
		t.Fatalf("expected 2 binance subscriptions, got %d", byExchange["binance"].Len())
	}
	if byExchange["kraken"].Len() != 1 {
		t.Fatalf("expected 1 kraken subscription, got %d", byExchange["kraken"].Len())
	}
}

func TestSubscriptionSetFilter(t *testing.T) {
	spec := TickerSpec{Exchange: "binance", Base: "BTC", Counter: "USDT"}
	set := NewSubscriptionSet(
		Subscription{Spec: spec, Type: Ticker},
		Subscription{Spec: spec, Type: OrderBook},
		Subscription{Spec: spec, Type: OpenOrders},
	)

	streaming := set.Filter(func(s Subscription) bool { return s.Type.Streaming() })
	if streaming.Len() != 2 {
		t.Fatalf("expected 2 streaming subscriptions, got %d", streaming.Len())
	}
}

func TestDataTypeStreaming(t *testing.T) {
	cases := map[DataType]bool{
		Ticker:       true,
		OrderBook:    true,
		Trades:       true,
		OpenOrders:   false,
		TradeHistory: false,
	}
	for dt, want := range cases {
		if got := dt.Streaming(); got != want {
			t.Errorf("%s.Streaming() = %v, want %v", dt, got, want)
		}
	}
}
