package metrics

import (
	"context"
	"time"

	"marketdatamanager/internal/eventbus"
	"marketdatamanager/logger"
)

// StartBusSubscriberMetrics emits per-topic subscriber counts on bus every
// interval, until ctx is cancelled. Useful for spotting a leaked GetTicker
// caller that never called its cancel function.
func StartBusSubscriberMetrics(ctx context.Context, bus *eventbus.Bus, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	log := logger.GetLogger()
	ticker := time.NewTicker(interval)
	component := "eventbus"

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				EmitMetric(log, component, "ticker_subscribers", bus.Tickers.SubscriberCount(), "gauge", nil)
				EmitMetric(log, component, "order_book_subscribers", bus.OrderBooks.SubscriberCount(), "gauge", nil)
				EmitMetric(log, component, "trade_subscribers", bus.Trades.SubscriberCount(), "gauge", nil)
				EmitMetric(log, component, "open_orders_subscribers", bus.OpenOrders.SubscriberCount(), "gauge", nil)
				EmitMetric(log, component, "trade_history_subscribers", bus.TradeHistory.SubscriberCount(), "gauge", nil)
			}
		}
	}()
}
