package binance

import "testing"

func TestBinanceSymbolLowercasesAndStripsSlash(t *testing.T) {
	if got := binanceSymbol("BTC/USDT"); got != "btcusdt" {
		t.Fatalf("got %s, want btcusdt", got)
	}
}

func TestDeliverLatestWinsOnFullChannel(t *testing.T) {
	ch := make(chan int, 1)
	deliver(ch, 1)
	deliver(ch, 2)

	select {
	case v := <-ch:
		if v != 2 {
			t.Fatalf("got %d, want 2", v)
		}
	default:
		t.Fatal("expected a buffered value")
	}
}
