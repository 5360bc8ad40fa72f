package metrics

import (
	"testing"
)

func TestRecordConnectIncrementsCounter(t *testing.T) {
	c := New()

	c.RecordConnect("binance")
	c.RecordConnect("bybit")

	if got := c.ExchangesConnected.Load(); got != 2 {
		t.Fatalf("ExchangesConnected = %d, want 2", got)
	}
}

func TestRecordPollResultSplitsSuccessAndError(t *testing.T) {
	c := New()

	c.RecordPollResult(true)
	c.RecordPollResult(false)
	c.RecordPollResult(true)

	if got := c.PollSuccesses.Load(); got != 2 {
		t.Fatalf("PollSuccesses = %d, want 2", got)
	}
	if got := c.PollErrors.Load(); got != 1 {
		t.Fatalf("PollErrors = %d, want 1", got)
	}
}
