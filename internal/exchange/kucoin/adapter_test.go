package kucoin

import (
	"context"
	"testing"
)

func TestKucoinSymbolStripsSlashAndUppercases(t *testing.T) {
	if got := kucoinSymbol("btc/usdt"); got != "BTCUSDT" {
		t.Fatalf("got %s, want BTCUSDT", got)
	}
}

func TestKucoinSymbolPassesThroughNativeForm(t *testing.T) {
	if got := kucoinSymbol("XBTUSDTM"); got != "XBTUSDTM" {
		t.Fatalf("got %s, want XBTUSDTM", got)
	}
}

func TestNewAppliesDefaultsForZeroValues(t *testing.T) {
	a := New("", 0, 0)
	if a.limiter == nil {
		t.Fatal("expected a non-nil rate limiter")
	}
	if a.marketAPI == nil {
		t.Fatal("expected a non-nil market API client")
	}
}

func TestIsStreamingReportsFalse(t *testing.T) {
	a := New("", 0, 0)
	if a.IsStreaming() {
		t.Fatal("kucoin adapter must report IsStreaming() false")
	}
}

func TestConnectReturnsErrorOnPollingOnlyAdapter(t *testing.T) {
	a := New("", 0, 0)
	if err := a.Connect(context.Background(), nil); err == nil {
		t.Fatal("expected Connect to fail on a polling-only adapter")
	}
}

func TestStreamingMarketDataReturnsUnsupportedService(t *testing.T) {
	a := New("", 0, 0)
	svc := a.StreamingMarketData()
	if _, err := svc.Ticker(context.Background(), "BTC/USDT"); err == nil {
		t.Fatal("expected an error from the unsupported streaming service")
	}
}
