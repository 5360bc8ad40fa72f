package bybit

import (
	"testing"

	"marketdatamanager/internal/marketdata"
)

func TestBybitSymbolUppercasesAndStripsSlash(t *testing.T) {
	if got := bybitSymbol("btc/usdt"); got != "BTCUSDT" {
		t.Fatalf("got %s, want BTCUSDT", got)
	}
}

func TestDispatchIgnoresEnvelopeWithoutTopic(t *testing.T) {
	a := &Adapter{
		tickerChans: map[string]chan marketdata.Ticker{},
	}
	if err := a.dispatch(`{"data":{}}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
